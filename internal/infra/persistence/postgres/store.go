// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics, snapshotting state into a JSONB bucket table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"notations/internal/infra/persistence/memory"
	"notations/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/notations?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory
// implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

type metaBucket struct {
	Auth           domain.AuthState `json:"auth"`
	Settings       domain.Settings  `json:"settings"`
	RootID         string           `json:"rootId"`
	CurrentStackID string           `json:"currentStackId"`
	ActiveSheetID  string           `json:"activeSheetId,omitempty"`
	UI             domain.UIState   `json:"ui"`
}

var buckets = []string{"meta", "stacks", "sheets"}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), ensures the snapshot table exists, and hydrates the
// in-memory store from any existing snapshot. Corrupt snapshot payloads fall
// back to the seed state; connection errors are returned.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}

	mem := memory.New(engine)
	s := &Store{Store: mem, db: db}
	snapshot, found, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	if found {
		mem.ImportState(snapshot)
	}
	return s, nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (domain.Snapshot, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return domain.Snapshot{}, false, nil
	}

	var snapshot domain.Snapshot
	if data, ok := payloads["meta"]; ok && len(data) > 0 {
		var meta metaBucket
		if err := json.Unmarshal(data, &meta); err != nil {
			return domain.Snapshot{}, true, nil
		}
		snapshot.Auth = meta.Auth
		snapshot.Settings = meta.Settings
		snapshot.RootID = meta.RootID
		snapshot.CurrentStackID = meta.CurrentStackID
		snapshot.ActiveSheetID = meta.ActiveSheetID
		snapshot.UI = meta.UI
	}
	if data, ok := payloads["stacks"]; ok && len(data) > 0 {
		if err := json.Unmarshal(data, &snapshot.Stacks); err != nil {
			return domain.Snapshot{}, true, nil
		}
	}
	if data, ok := payloads["sheets"]; ok && len(data) > 0 {
		if err := json.Unmarshal(data, &snapshot.Sheets); err != nil {
			return domain.Snapshot{}, true, nil
		}
	}
	return snapshot, true, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case "meta":
			data, err = json.Marshal(metaBucket{
				Auth:           snapshot.Auth,
				Settings:       snapshot.Settings,
				RootID:         snapshot.RootID,
				CurrentStackID: snapshot.CurrentStackID,
				ActiveSheetID:  snapshot.ActiveSheetID,
				UI:             snapshot.UI,
			})
		case "stacks":
			data, err = json.Marshal(snapshot.Stacks)
		case "sheets":
			data, err = json.Marshal(snapshot.Sheets)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// RunInTransaction applies fn in memory, then snapshots the committed state
// to Postgres.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
