package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Manu343726/devector/pkg/config"
	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useSettings(t *testing.T, values map[string]any) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	config.SetDefaults(viper.GetViper())
	viper.Set("log.level", "error")
	for key, value := range values {
		viper.Set(key, value)
	}
}

func TestSession_StartsRunning(t *testing.T) {
	rom := filepath.Join(t.TempDir(), "loop.rom")
	require.NoError(t, os.WriteFile(rom, consoleRom, 0o644))
	useSettings(t, map[string]any{"machine.speed": "max", "audio.mute": []int{0, 3}})

	s, err := newSession(sessionOptions{rom: rom, run: true})
	require.NoError(t, err)
	defer s.Close()

	data, err := s.request(machine.ReqIsRunning, nil)
	require.NoError(t, err)
	assert.Equal(t, true, data["isRunning"])
}

func TestSession_Errors(t *testing.T) {
	useSettings(t, nil)
	_, err := newSession(sessionOptions{})
	assert.EqualError(t, err, "no ROM image given")

	useSettings(t, map[string]any{"machine.speed": "7%"})
	_, err = newSession(sessionOptions{rom: "missing.rom"})
	assert.Error(t, err)

	useSettings(t, map[string]any{"audio.mute": []int{4}})
	_, err = newSession(sessionOptions{rom: "missing.rom"})
	assert.ErrorContains(t, err, "audio.mute")
}
