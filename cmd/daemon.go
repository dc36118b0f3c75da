package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pomobot/pomobot/internal/config"
	"github.com/pomobot/pomobot/internal/engine"
	"github.com/pomobot/pomobot/internal/goals"
	"github.com/pomobot/pomobot/internal/infrastructure/sqlite"
	"github.com/pomobot/pomobot/internal/log"
	"github.com/pomobot/pomobot/internal/platform"
	"github.com/pomobot/pomobot/internal/tracing"
	"github.com/pomobot/pomobot/internal/watcher"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the session engine daemon",
	Long: `Run the session engine as a long-lived daemon. On startup the snapshot
store is opened, persisted sessions are recovered, and the config file is
watched so idle-timeout changes apply without a restart.

The daemon runs until SIGINT/SIGTERM; live sessions are snapshotted on the
way down so the next start resumes them.

Example:
  pomobot daemon
  pomobot daemon --config ./pomobot.yaml --debug`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// First run: lay down a commented default so there is something
		// to edit and hot reload.
		if writeErr := config.WriteDefaultConfig(path); writeErr != nil {
			return fmt.Errorf("writing default config: %w", writeErr)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	cleanup, err := log.Init(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer cleanup()
	if !debugFlag {
		log.SetMinLevel(log.LevelInfo)
	}
	log.Info(log.CatDaemon, "pomobot daemon starting", "config", path, "debug", debugFlag)

	tracerProvider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	db, err := sqlite.NewDB(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	repo := sqlite.NewSnapshotRepository(db)

	client := platform.NewDetached()
	tracker := goals.NewTracker(goals.DefaultExpiration, goals.DefaultCleanupInterval)
	idle := idleTimeouts(cfg.Idle)
	registry := engine.NewRegistry(repo, client, idle)
	controller := engine.NewController(registry, client, tracker, idle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stream lifecycle events into the log.
	go func() {
		for ev := range controller.Events(ctx) {
			log.Info(log.CatDaemon, "session event",
				"kind", ev.Payload.Kind, "guild", ev.Payload.GuildID,
				"session", ev.Payload.SessionID, "phase", ev.Payload.Phase)
		}
	}()

	recovered, err := engine.Recover(ctx, repo, registry, client, controller, cfg.Store.SnapshotMaxAge())
	if err != nil {
		return fmt.Errorf("recovering sessions: %w", err)
	}

	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	onChange, err := w.Start()
	if err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-onChange:
				reloaded, err := config.Load(path)
				if err != nil {
					log.ErrorErr(log.CatConfig, "config reload failed, keeping current settings", err)
					continue
				}
				t := idleTimeouts(reloaded.Idle)
				registry.SetTimeouts(t)
				controller.SetIdleTimeouts(t)
				log.Info(log.CatConfig, "idle timeouts reloaded",
					"active", t.Active, "paused", t.Paused, "probe", t.Probe)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Pomobot daemon started (%d session(s) recovered)\n", recovered)
	fmt.Println("Press Ctrl+C to stop")

	sig := <-sigCh
	fmt.Printf("\nReceived %s, shutting down...\n", sig)
	log.Info(log.CatDaemon, "shutting down", "signal", sig.String())

	// Stop the tick loops, then snapshot live sessions so the next start
	// can resume them.
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	for _, s := range registry.All() {
		registry.Locked(s.GuildID, func() { s.Timer.Stop(time.Now()) })
		registry.Persist(shutdownCtx, s)
	}

	if err := repo.Close(); err != nil {
		log.ErrorErr(log.CatStore, "closing snapshot store", err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatTrace, "shutting down tracing", err)
	}

	fmt.Println("Daemon stopped")
	return nil
}

func idleTimeouts(idle config.IdleConfig) engine.IdleTimeouts {
	return engine.IdleTimeouts{
		Active: idle.ActiveTimeout(),
		Paused: idle.PausedTimeout(),
		Probe:  idle.ProbeTimeout(),
	}
}
