// Package vector holds the commands that run the emulator: headless runs and
// the interactive debugger console.
package vector

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Manu343726/devector/pkg/config"
	"github.com/Manu343726/devector/pkg/hw/audio"
	"github.com/Manu343726/devector/pkg/hw/debugger"
	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/Manu343726/devector/pkg/logging"
	"github.com/Manu343726/devector/pkg/statsview"
	"github.com/spf13/viper"
)

type sessionOptions struct {
	rom      string
	attach   bool
	run      bool
	wav      string
	debugDoc string
}

// session is a machine plus everything hanging from it for the lifetime of a command
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	machine  *machine.Machine
	debugger *debugger.Debugger
	symbols  debugger.Symbols

	closers []io.Closer
}

func newSession(opts sessionOptions) (s *session, err error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	s = &session{settings: settings}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	logger, logCloser, err := logging.New(logging.Options{Level: settings.Log.Level, File: settings.Log.File})
	if err != nil {
		return nil, err
	}
	s.logger = logger
	s.closers = append(s.closers, logCloser)

	speed, err := machine.ParseSpeed(settings.Machine.Speed)
	if err != nil {
		return nil, err
	}

	if settings.Debug.StatsAddr != "" {
		if statsview.Available() {
			statsview.Launch(settings.Debug.StatsAddr, os.Stderr)
		} else {
			logger.Warn("built without statsview support, ignoring debug.stats_addr")
		}
	}

	var sink audio.Sink
	wav := opts.wav
	if wav == "" {
		wav = settings.Audio.Wav
	}
	if wav != "" {
		recorder, err := audio.CreateRecorder(wav)
		if err != nil {
			return nil, err
		}
		sink = recorder
		s.closers = append(s.closers, recorder)
	}

	s.debugger = debugger.New(logger)
	s.machine, err = machine.New(machine.Options{
		RamDisks:    settings.Machine.RamDisks,
		LoadAddress: settings.Machine.LoadAddress,
		Speed:       speed,
		Logger:      logger,
		Debugger:    s.debugger,
		Attach:      opts.attach || settings.Debug.Attach,
		AudioSink:   sink,
		Mute:        settings.Audio.Mute,
	})
	if err != nil {
		return nil, err
	}
	s.machine.Start()

	rom := opts.rom
	if rom == "" {
		rom = settings.Machine.Rom
	}
	if rom == "" {
		return nil, errors.New("no ROM image given")
	}
	if err := s.loadRom(rom); err != nil {
		return nil, err
	}

	debugDoc := opts.debugDoc
	if debugDoc == "" {
		debugDoc = settings.Debug.Breakpoints
	}
	if debugDoc != "" {
		if err := s.loadDebugFile(debugDoc); err != nil {
			return nil, err
		}
	}

	if opts.run {
		if _, err := s.request(machine.ReqRun, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) loadRom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read ROM: %w", err)
	}
	if _, err := s.request(machine.ReqLoadRom, machine.Data{"data": data, "path": path}); err != nil {
		return fmt.Errorf("cannot load ROM '%s': %w", path, err)
	}
	return nil
}

func (s *session) loadDebugFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	symbols, breakpoints, err := debugger.LoadDebugFile(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.symbols = symbols
	for _, bp := range breakpoints {
		if _, err := s.request(machine.ReqDebugBreakpointAdd, debugger.BreakpointData(bp)); err != nil {
			return fmt.Errorf("%s: breakpoint %s: %w", path, bp, err)
		}
	}
	s.logger.Info("debug file loaded", slog.String("path", path), slog.Int("symbols", len(symbols)), slog.Int("breakpoints", len(breakpoints)))
	return nil
}

// request turns a failed request into an error carrying the reason, when the handler gave one
func (s *session) request(kind machine.Req, params machine.Data) (machine.Data, error) {
	data, ok := s.machine.Request(kind, params)
	if ok {
		return data, nil
	}
	if reason, hasReason := data.Text("error"); hasReason {
		return data, fmt.Errorf("%s failed: %s", kind, reason)
	}
	return data, fmt.Errorf("%s failed", kind)
}

func (s *session) Close() error {
	var errs []error
	if s.machine != nil {
		errs = append(errs, s.machine.Close())
	}
	if s.debugger != nil {
		s.debugger.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}
