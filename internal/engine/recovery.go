package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pomobot/pomobot/internal/log"
	"github.com/pomobot/pomobot/internal/platform"
	"github.com/pomobot/pomobot/internal/session"
	"github.com/pomobot/pomobot/internal/store"
)

// Recover reconstructs sessions from persisted snapshots at process start.
// Guilds the bot no longer belongs to are dropped and their snapshots
// deleted. Recovered sessions carry no command context; context-dependent
// side effects stay off until a new interactive command reattaches one.
// Expired snapshots are cleaned up afterwards. Returns how many sessions
// were re-activated.
func Recover(ctx context.Context, st store.SnapshotStore, registry *Registry, client platform.Client, controller *Controller, maxAge time.Duration) (int, error) {
	snapshots, err := st.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshots: %w", err)
	}

	recovered := 0
	for _, snap := range snapshots {
		member, err := client.InGuild(ctx, snap.GuildID)
		if err != nil {
			// Membership unknown; keep the snapshot for the next start.
			log.ErrorErr(log.CatRegistry, "membership check failed", err, "guild", snap.GuildID)
			continue
		}
		if !member {
			log.Warn(log.CatRegistry, "guild no longer joined, dropping snapshot", "guild", snap.GuildID)
			if err := st.Delete(ctx, snap.GuildID); err != nil {
				log.ErrorErr(log.CatRegistry, "snapshot delete failed", err, "guild", snap.GuildID)
			}
			continue
		}

		s := FromSnapshot(snap)
		registry.Activate(ctx, s)
		recovered++

		log.Info(log.CatRegistry, "session recovered",
			"guild", s.GuildID, "session", s.ID, "phase", s.Phase, "epoch", s.Epoch)
		controller.publish(EventSessionRecovered, s, s.Phase)

		go controller.Resume(ctx, s)
	}

	if removed, err := st.CleanupExpired(ctx, maxAge); err != nil {
		log.ErrorErr(log.CatStore, "snapshot cleanup failed", err)
	} else if removed > 0 {
		log.Info(log.CatStore, "expired snapshots removed", "count", removed)
	}

	return recovered, nil
}

// FromSnapshot rebuilds a session from its persisted projection, marked
// recovered. Activation assigns a fresh epoch, so a tick loop surviving
// from a previous process can never pass the staleness check.
func FromSnapshot(snap store.Snapshot) *session.Session {
	return &session.Session{
		ID:       snap.SessionID,
		GuildID:  snap.GuildID,
		Phase:    snap.Phase,
		Settings: snap.Settings,
		Stats:    snap.Stats,
		Timer: session.Timer{
			Remaining: snap.TimerRemaining,
			Running:   snap.TimerRunning,
			End:       snap.TimerEnd,
		},
		IdleDeadline: snap.IdleDeadline,
		Recovered:    true,
	}
}
