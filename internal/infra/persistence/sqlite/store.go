// Package sqlite provides a SQLite-backed persistent store. Transactions run
// against the in-memory store; the full state is snapshotted to a single
// table as JSON buckets after every successful commit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"notations/internal/infra/persistence/memory"
	"notations/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// metaBucket carries everything outside the two node buckets.
type metaBucket struct {
	Auth           domain.AuthState `json:"auth"`
	Settings       domain.Settings  `json:"settings"`
	RootID         string           `json:"rootId"`
	CurrentStackID string           `json:"currentStackId"`
	ActiveSheetID  string           `json:"activeSheetId,omitempty"`
	UI             domain.UIState   `json:"ui"`
}

var buckets = []string{"meta", "stacks", "sheets"}

// NewStore constructs a snapshotting SQLite-backed persistent store. An
// unreadable or corrupt snapshot falls back to the seeded default state; the
// store only fails to open when the database itself cannot be used.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "notations.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.New(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}

	snapshot, ok := decodeSnapshot(payloads)
	if !ok {
		// Corrupt payloads are not fatal; ImportState normalizes an empty
		// snapshot into the seed state.
		snapshot = domain.Snapshot{}
	}
	s.ImportState(snapshot)
	return nil
}

func decodeSnapshot(payloads map[string][]byte) (domain.Snapshot, bool) {
	var snapshot domain.Snapshot
	if data, ok := payloads["meta"]; ok && len(data) > 0 {
		var meta metaBucket
		if err := json.Unmarshal(data, &meta); err != nil {
			return domain.Snapshot{}, false
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
			return domain.Snapshot{}, false
		}
	}
	if data, ok := payloads["sheets"]; ok && len(data) > 0 {
		if err := json.Unmarshal(data, &snapshot.Sheets); err != nil {
			return domain.Snapshot{}, false
		}
	}
	return snapshot, true
}

func encodeBucket(snapshot domain.Snapshot, bucket string) ([]byte, error) {
	switch bucket {
	case "meta":
		return json.Marshal(metaBucket{
			Auth:           snapshot.Auth,
			Settings:       snapshot.Settings,
			RootID:         snapshot.RootID,
			CurrentStackID: snapshot.CurrentStackID,
			ActiveSheetID:  snapshot.ActiveSheetID,
			UI:             snapshot.UI,
		})
	case "stacks":
		return json.Marshal(snapshot.Stacks)
	case "sheets":
		return json.Marshal(snapshot.Sheets)
	default:
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := encodeBucket(snapshot, bucket)
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn in memory, then snapshots the committed state
// to SQLite.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
