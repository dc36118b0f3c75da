// Package cmd wires the pomobot CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pomobot/pomobot/internal/config"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:     "pomobot",
	Short:   "A group pomodoro session daemon",
	Long:    `Pomobot runs timed group work/break sessions and countdowns per guild, with crash-safe snapshot persistence and goal tracking.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/pomobot/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging")
}

// configPath resolves the config file location from the flag or default.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
