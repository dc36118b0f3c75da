package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pomobot/pomobot/internal/config"
)

var (
	idleActiveMinutes int
	idlePausedMinutes int
	idleProbeSeconds  int
)

var configIdleCmd = &cobra.Command{
	Use:   "config:idle",
	Short: "Update idle-sweep timeouts in the config file",
	Long: `Update the idle-sweep timeouts in the config file. Only the idle section
is rewritten; comments and other sections are preserved. Flags left unset
keep their current values. A running daemon picks the change up through its
config watcher.

Examples:
  # Probe sessions after 90 minutes of running-timer silence
  pomobot config:idle --active-minutes 90

  # Tighten everything
  pomobot config:idle --active-minutes 45 --paused-minutes 15 --probe-seconds 30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		idle := mergeIdleFlags(cfg.Idle, cmd)
		if err := config.SaveIdle(path, idle); err != nil {
			return err
		}

		fmt.Printf("Idle timeouts saved to %s (active: %dm, paused: %dm, probe: %ds)\n",
			path, idle.ActiveTimeoutMinutes, idle.PausedTimeoutMinutes, idle.ProbeTimeoutSeconds)
		return nil
	},
}

func init() {
	configIdleCmd.Flags().IntVar(&idleActiveMinutes, "active-minutes", 0,
		"idle deadline extension while the timer runs, in minutes")
	configIdleCmd.Flags().IntVar(&idlePausedMinutes, "paused-minutes", 0,
		"idle deadline extension while the timer is paused, in minutes")
	configIdleCmd.Flags().IntVar(&idleProbeSeconds, "probe-seconds", 0,
		"how long a liveness prompt waits for a reaction, in seconds")
	rootCmd.AddCommand(configIdleCmd)
}

// mergeIdleFlags overlays explicitly set flags on the current idle config.
func mergeIdleFlags(current config.IdleConfig, cmd *cobra.Command) config.IdleConfig {
	merged := current
	if cmd.Flags().Changed("active-minutes") {
		merged.ActiveTimeoutMinutes = idleActiveMinutes
	}
	if cmd.Flags().Changed("paused-minutes") {
		merged.PausedTimeoutMinutes = idlePausedMinutes
	}
	if cmd.Flags().Changed("probe-seconds") {
		merged.ProbeTimeoutSeconds = idleProbeSeconds
	}
	return merged
}
