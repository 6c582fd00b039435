package cmd

import (
	"fmt"
	"os"

	"github.com/Manu343726/devector/cmd/tools"
	"github.com/Manu343726/devector/cmd/vector"
	"github.com/Manu343726/devector/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "devector",
	Short: "A Vector-06c emulator and debugger",
	Long: `Devector emulates the Vector-06c home computer: its 8080 CPU, memory with
RAM-disks, display timing, the three channel timer and audio.

This CLI runs ROM images headless, inside an interactive debugger with
breakpoints, watchpoints and an execution trace, or under a live monitor.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(tools.ToolsCmd, vector.RunCmd, vector.DebugCmd, vector.MonitorCmd)
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.devector.yaml)")
	flags.String("speed", "100%", "emulation speed: 1%, 20%, 50%, 100%, 200% or max")
	flags.Int("ramdisks", 8, "number of RAM-disks, 0 to 8")
	flags.Uint16("load-address", 0x0100, "address ROM images are loaded at")
	flags.String("log-level", "info", "console log level: debug, info, warn or error")
	flags.String("log-file", "", "JSON log file receiving every record")

	for key, flag := range map[string]string{
		"machine.speed":        "speed",
		"machine.ramdisks":     "ramdisks",
		"machine.load_address": "load-address",
		"log.level":            "log-level",
		"log.file":             "log-file",
	} {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}

	config.SetDefaults(viper.GetViper())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".devector" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".devector")
	}

	config.BindEnv(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
