package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pomobot/pomobot/internal/log"
	"github.com/pomobot/pomobot/internal/store"
)

// snapshotColumns is the list of columns to select for snapshot queries.
const snapshotColumns = `guild_id, session_id, phase,
	focus_seconds, short_break_seconds, long_break_seconds, intervals,
	work_units_completed, work_units_elapsed, work_seconds_completed,
	timer_remaining_ms, timer_running, timer_end,
	idle_deadline, epoch, saved_at, version`

// SnapshotRepository implements store.SnapshotStore using SQLite.
type SnapshotRepository struct {
	db    *DB
	clock func() time.Time
}

// Ensure SnapshotRepository implements store.SnapshotStore.
var _ store.SnapshotStore = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a repository over an open database.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, clock: time.Now}
}

// scanSnapshot scans a row into a snapshotModel.
func scanSnapshot(scanner interface{ Scan(...any) error }) (snapshotModel, error) {
	var m snapshotModel
	err := scanner.Scan(
		&m.GuildID, &m.SessionID, &m.Phase,
		&m.FocusSeconds, &m.ShortBreakSeconds, &m.LongBreakSeconds, &m.Intervals,
		&m.WorkUnitsCompleted, &m.WorkUnitsElapsed, &m.WorkSecondsCompleted,
		&m.TimerRemainingMS, &m.TimerRunning, &m.TimerEnd,
		&m.IdleDeadline, &m.Epoch, &m.SavedAt, &m.Version,
	)
	return m, err
}

// Save writes or replaces the snapshot for its guild.
func (r *SnapshotRepository) Save(ctx context.Context, snap store.Snapshot) error {
	snap.SavedAt = r.clock().UTC()
	if snap.Version == 0 {
		snap.Version = store.SchemaVersion
	}
	m := toModel(snap)

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			session_id = excluded.session_id,
			phase = excluded.phase,
			focus_seconds = excluded.focus_seconds,
			short_break_seconds = excluded.short_break_seconds,
			long_break_seconds = excluded.long_break_seconds,
			intervals = excluded.intervals,
			work_units_completed = excluded.work_units_completed,
			work_units_elapsed = excluded.work_units_elapsed,
			work_seconds_completed = excluded.work_seconds_completed,
			timer_remaining_ms = excluded.timer_remaining_ms,
			timer_running = excluded.timer_running,
			timer_end = excluded.timer_end,
			idle_deadline = excluded.idle_deadline,
			epoch = excluded.epoch,
			saved_at = excluded.saved_at,
			version = excluded.version`,
		m.GuildID, m.SessionID, m.Phase,
		m.FocusSeconds, m.ShortBreakSeconds, m.LongBreakSeconds, m.Intervals,
		m.WorkUnitsCompleted, m.WorkUnitsElapsed, m.WorkSecondsCompleted,
		m.TimerRemainingMS, m.TimerRunning, m.TimerEnd,
		m.IdleDeadline, m.Epoch, m.SavedAt, m.Version,
	)
	if err != nil {
		return fmt.Errorf("save snapshot for guild %s: %w", snap.GuildID, err)
	}
	return nil
}

// Load fetches the snapshot for a guild. A record with an unknown schema
// version or an undecodable phase is treated as absent.
func (r *SnapshotRepository) Load(ctx context.Context, guildID string) (store.Snapshot, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE guild_id = ?`, guildID)

	m, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load snapshot for guild %s: %w", guildID, err)
	}

	snap, err := decodeModel(m)
	if err != nil {
		log.Warn(log.CatStore, "dropping undecodable snapshot", "guild", guildID, "reason", err.Error())
		return store.Snapshot{}, store.ErrNotFound
	}
	return snap, nil
}

// LoadAll returns every decodable snapshot. Corrupted or schema-incompatible
// rows are skipped so a single bad record cannot block recovery of the rest.
func (r *SnapshotRepository) LoadAll(ctx context.Context) ([]store.Snapshot, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []store.Snapshot
	for rows.Next() {
		m, err := scanSnapshot(rows)
		if err != nil {
			log.Warn(log.CatStore, "skipping unreadable snapshot row", "reason", err.Error())
			continue
		}
		snap, err := decodeModel(m)
		if err != nil {
			log.Warn(log.CatStore, "skipping undecodable snapshot", "guild", m.GuildID, "reason", err.Error())
			continue
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// Delete removes the snapshot for a guild. Absent guilds are a no-op.
func (r *SnapshotRepository) Delete(ctx context.Context, guildID string) error {
	_, err := r.db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE guild_id = ?`, guildID)
	if err != nil {
		return fmt.Errorf("delete snapshot for guild %s: %w", guildID, err)
	}
	return nil
}

// CleanupExpired deletes snapshots saved longer than maxAge ago.
func (r *SnapshotRepository) CleanupExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := r.clock().UTC().Add(-maxAge).Unix()
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE saved_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired snapshots: %w", err)
	}
	return int(n), nil
}

// Count returns the number of persisted snapshots.
func (r *SnapshotRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (r *SnapshotRepository) Close() error {
	return r.db.Close()
}

// decodeModel validates the schema version before converting the row.
func decodeModel(m snapshotModel) (store.Snapshot, error) {
	if m.Version != store.SchemaVersion {
		return store.Snapshot{}, fmt.Errorf("unsupported snapshot version %d", m.Version)
	}
	return m.toSnapshot()
}
