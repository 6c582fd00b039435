// Package config holds the user settings of devector, loaded through viper
// from ~/.devector.yaml, DEVECTOR_* environment variables and command flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings of a devector session
type Settings struct {
	Machine MachineSettings `mapstructure:"machine" yaml:"machine"`
	Debug   DebugSettings   `mapstructure:"debug" yaml:"debug"`
	Log     LogSettings     `mapstructure:"log" yaml:"log"`
	Audio   AudioSettings   `mapstructure:"audio" yaml:"audio"`
}

type MachineSettings struct {
	// Emulation speed: "1%", "20%", "50%", "100%", "200%" or "max"
	Speed string `mapstructure:"speed" yaml:"speed"`
	// Number of RAM-disks plugged in, 0 to 8
	RamDisks int `mapstructure:"ramdisks" yaml:"ramdisks"`
	// Address ROM images are loaded at
	LoadAddress uint16 `mapstructure:"load_address" yaml:"load_address"`
	// ROM image loaded on start, optional
	Rom string `mapstructure:"rom" yaml:"rom"`
}

type DebugSettings struct {
	// Whether the debugger is attached on start
	Attach bool `mapstructure:"attach" yaml:"attach"`
	// YAML file with breakpoints to preload
	Breakpoints string `mapstructure:"breakpoints" yaml:"breakpoints"`
	// Console history file, relative paths are resolved against the home directory
	History string `mapstructure:"history" yaml:"history"`
	// Address the runtime stats page listens on, empty to disable
	StatsAddr string `mapstructure:"stats_addr" yaml:"stats_addr"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

type AudioSettings struct {
	// Output WAV file, empty to disable recording
	Wav string `mapstructure:"wav" yaml:"wav"`
	// Silenced channels: 0 to 2 are timer counters, 3 is the beeper
	Mute []int `mapstructure:"mute" yaml:"mute,flow"`
}

// Registers the default value of every setting
func SetDefaults(v *viper.Viper) {
	v.SetDefault("machine.speed", "100%")
	v.SetDefault("machine.ramdisks", 8)
	v.SetDefault("machine.load_address", 0x0100)
	v.SetDefault("machine.rom", "")
	v.SetDefault("debug.attach", false)
	v.SetDefault("debug.breakpoints", "")
	v.SetDefault("debug.history", ".devector_history")
	v.SetDefault("debug.stats_addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("audio.wav", "")
	v.SetDefault("audio.mute", []int{})
}

// Configures environment variable lookup, DEVECTOR_MACHINE_SPEED overrides machine.speed
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("devector")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the settings held by a viper instance
func Load(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("cannot decode settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Default returns the settings used when no configuration source is available
func Default() *Settings {
	v := viper.New()
	SetDefaults(v)
	settings, err := Load(v)
	if err != nil {
		panic(err)
	}
	return settings
}

func (s *Settings) Validate() error {
	if s.Machine.RamDisks < 0 || s.Machine.RamDisks > 8 {
		return fmt.Errorf("machine.ramdisks must be between 0 and 8, got %d", s.Machine.RamDisks)
	}
	for _, channel := range s.Audio.Mute {
		if channel < 0 || channel > 3 {
			return fmt.Errorf("audio.mute channels must be between 0 and 3, got %d", channel)
		}
	}
	return nil
}
