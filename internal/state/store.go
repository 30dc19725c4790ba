// Package state persists the charm's per-unit state between hook invocations in a
// SQLite database inside the charm directory: the stored ingress URL and the queue
// of deferred events.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/canonical/sqlair"
	_ "github.com/mattn/go-sqlite3"

	"github.com/reductstore/reductstore-operator/internal/constants"
)

const schema = `
CREATE TABLE IF NOT EXISTS unit_state (
    name  TEXT NOT NULL PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS deferred_event (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    kind          TEXT NOT NULL,
    workload      TEXT NOT NULL DEFAULT '',
    relation_name TEXT NOT NULL DEFAULT '',
    relation_id   TEXT NOT NULL DEFAULT '',
    remote_app    TEXT NOT NULL DEFAULT '',
    deferred_at   TIMESTAMP NOT NULL,
    UNIQUE (kind, workload, relation_id)
);
`

const keyIngressURL = "ingress_url"

// Unit is the durable state of one unit.
type Unit struct {
	IngressURL string
}

// DeferredEvent is a queued event waiting to be re-emitted at the next dispatch.
type DeferredEvent struct {
	ID           int64     `db:"id"`
	Kind         string    `db:"kind"`
	Workload     string    `db:"workload"`
	RelationName string    `db:"relation_name"`
	RelationID   string    `db:"relation_id"`
	RemoteApp    string    `db:"remote_app"`
	DeferredAt   time.Time `db:"deferred_at"`
}

type keyValue struct {
	Key   string `db:"name"`
	Value string `db:"value"`
}

// Store is the unit state database.
type Store struct {
	db *sqlair.DB

	selectValue  *sqlair.Statement
	upsertValue  *sqlair.Statement
	selectEvents *sqlair.Statement
	insertEvent  *sqlair.Statement
	deleteEvent  *sqlair.Statement
}

// Path returns the database location inside the charm directory.
func Path(charmDir string) string {
	return filepath.Join(charmDir, constants.UnitStateFileName)
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open unit state %s: %w", path, err)
	}
	// A hook process is single-threaded; one connection keeps SQLite locking simple.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create unit state schema: %w", err)
	}

	s := &Store{db: sqlair.NewDB(sqlDB)}
	if err := s.prepare(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepare() error {
	var err error
	if s.selectValue, err = sqlair.Prepare(
		`SELECT &keyValue.* FROM unit_state WHERE name = $keyValue.name`, keyValue{}); err != nil {
		return fmt.Errorf("failed to prepare select value statement: %w", err)
	}
	if s.upsertValue, err = sqlair.Prepare(`
INSERT INTO unit_state (name, value) VALUES ($keyValue.name, $keyValue.value)
ON CONFLICT (name) DO UPDATE SET value = excluded.value`, keyValue{}); err != nil {
		return fmt.Errorf("failed to prepare upsert value statement: %w", err)
	}
	if s.selectEvents, err = sqlair.Prepare(
		`SELECT &DeferredEvent.* FROM deferred_event ORDER BY id`, DeferredEvent{}); err != nil {
		return fmt.Errorf("failed to prepare select events statement: %w", err)
	}
	if s.insertEvent, err = sqlair.Prepare(`
INSERT INTO deferred_event (kind, workload, relation_name, relation_id, remote_app, deferred_at)
VALUES ($DeferredEvent.kind, $DeferredEvent.workload, $DeferredEvent.relation_name,
        $DeferredEvent.relation_id, $DeferredEvent.remote_app, $DeferredEvent.deferred_at)
ON CONFLICT (kind, workload, relation_id) DO NOTHING`, DeferredEvent{}); err != nil {
		return fmt.Errorf("failed to prepare insert event statement: %w", err)
	}
	if s.deleteEvent, err = sqlair.Prepare(
		`DELETE FROM deferred_event WHERE id = $DeferredEvent.id`, DeferredEvent{}); err != nil {
		return fmt.Errorf("failed to prepare delete event statement: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.PlainDB().Close()
}

// LoadUnit returns the stored unit state; a fresh database yields the zero value.
func (s *Store) LoadUnit(ctx context.Context) (Unit, error) {
	kv := keyValue{Key: keyIngressURL}
	err := s.db.Query(ctx, s.selectValue, kv).Get(&kv)
	if errors.Is(err, sqlair.ErrNoRows) {
		return Unit{}, nil
	}
	if err != nil {
		return Unit{}, fmt.Errorf("failed to load %s: %w", keyIngressURL, err)
	}
	return Unit{IngressURL: kv.Value}, nil
}

// SaveUnit writes the unit state.
func (s *Store) SaveUnit(ctx context.Context, u Unit) error {
	kv := keyValue{Key: keyIngressURL, Value: u.IngressURL}
	if err := s.db.Query(ctx, s.upsertValue, kv).Run(); err != nil {
		return fmt.Errorf("failed to save %s: %w", keyIngressURL, err)
	}
	return nil
}

// DeferredEvents returns the queued events, oldest first.
func (s *Store) DeferredEvents(ctx context.Context) ([]DeferredEvent, error) {
	var events []DeferredEvent
	err := s.db.Query(ctx, s.selectEvents).GetAll(&events)
	if errors.Is(err, sqlair.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deferred events: %w", err)
	}
	return events, nil
}

// Defer queues ev. An identical event already queued is kept in its original position.
func (s *Store) Defer(ctx context.Context, ev DeferredEvent) error {
	if ev.DeferredAt.IsZero() {
		ev.DeferredAt = time.Now().UTC()
	}
	if err := s.db.Query(ctx, s.insertEvent, ev).Run(); err != nil {
		return fmt.Errorf("failed to defer %s: %w", ev.Kind, err)
	}
	return nil
}

// Remove drops a queued event once it has been handled without deferring again.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.db.Query(ctx, s.deleteEvent, DeferredEvent{ID: id}).Run(); err != nil {
		return fmt.Errorf("failed to remove deferred event %d: %w", id, err)
	}
	return nil
}
