package vector

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/debugger"
	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/spf13/cobra"
)

var (
	runFrames uint64
	runWav    string
	runTrace  int
)

var RunCmd = &cobra.Command{
	Use:   "run <rom>",
	Short: "Run a ROM image without the debugger console",
	Long: `Loads a ROM image at the configured load address and runs it.

With --frames the machine runs exactly that many frames as fast as possible
and exits. Otherwise it runs at the configured speed until interrupted.

Example:
  devector run game.rom --speed max --frames 500 --wav out.wav
  devector run test.rom --frames 10 --trace 40`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	RunCmd.Flags().Uint64VarP(&runFrames, "frames", "n", 0, "Number of frames to run (0 = until interrupted)")
	RunCmd.Flags().StringVar(&runWav, "wav", "", "Record audio into a WAV file")
	RunCmd.Flags().IntVarP(&runTrace, "trace", "t", 0, "Print the last N executed instructions on exit")
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := newSession(sessionOptions{rom: args[0], attach: runTrace > 0, wav: runWav})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runFrames > 0 {
		err = runFrameCount(ctx, s, runFrames)
	} else {
		err = runUntilInterrupted(ctx, s)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runTrace > 0 {
		data, err := s.request(machine.ReqDebugTraceLogGet, machine.Data{"lines": runTrace, "filter": uint64(i8080.CategoryOther)})
		if err != nil {
			return err
		}
		lines, _ := data["lines"].([]debugger.TraceLine)
		for i := len(lines) - 1; i >= 0; i-- {
			fmt.Fprintln(out, lines[i])
		}
	}

	stats, err := s.request(machine.ReqGetHWStats, nil)
	if err != nil {
		return err
	}
	regs, err := s.request(machine.ReqGetRegs, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "frames: %d, instructions: %d, cycles: %d\n", stats["frames"], stats["instructions"], stats["cc"])
	fmt.Fprintln(out, formatRegs(regs))
	if reason, ok := stats.Text("error"); ok {
		return fmt.Errorf("machine stopped on a fault: %s", reason)
	}
	return nil
}

func runFrameCount(ctx context.Context, s *session, frames uint64) error {
	for i := uint64(0); i < frames; i++ {
		if ctx.Err() != nil {
			return nil
		}
		data, err := s.request(machine.ReqExecuteFrame, nil)
		if err != nil {
			return err
		}
		if brk, _ := data.Bool("break"); brk {
			s.logger.Info("stopped by the debugger", "pc", fmt.Sprintf("0x%04X", data["pc"]))
			return nil
		}
		if _, faulted := data.Text("error"); faulted {
			return nil
		}
	}
	return nil
}

func runUntilInterrupted(ctx context.Context, s *session) error {
	if _, err := s.request(machine.ReqRun, nil); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_, err := s.request(machine.ReqStop, nil)
			return err
		case <-ticker.C:
			data, err := s.request(machine.ReqIsRunning, nil)
			if err != nil {
				return err
			}
			if running, _ := data.Bool("isRunning"); !running {
				return nil
			}
		}
	}
}
