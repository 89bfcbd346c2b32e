package core

import (
	"database/sql"
	"path/filepath"
	"testing"

	"notations/internal/infra/persistence/postgres"
	pgtestutil "notations/internal/infra/persistence/postgres/testutil"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("NOTATIONS_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if store.RootID() == "" {
		t.Fatal("store not seeded")
	}
}

func TestOpenPersistentStoreSQLiteDefaultAndPath(t *testing.T) {
	t.Setenv("NOTATIONS_STORAGE_DRIVER", "")
	t.Setenv("NOTATIONS_SQLITE_PATH", filepath.Join(t.TempDir(), "state.db"))

	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	if _, ok := store.GetStack(store.RootID()); !ok {
		t.Fatal("root stack missing after open")
	}
}

func TestOpenPersistentStorePostgres(t *testing.T) {
	db, conn := pgtestutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) {
		return db, nil
	})
	defer restore()

	t.Setenv("NOTATIONS_STORAGE_DRIVER", "postgres")
	t.Setenv("NOTATIONS_POSTGRES_DSN", "postgres://stub/notations")

	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open postgres store: %v", err)
	}
	if store.RootID() == "" {
		t.Fatal("store not seeded")
	}
	if len(conn.Execs) == 0 {
		t.Fatal("expected DDL executed against stub connection")
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("NOTATIONS_STORAGE_DRIVER", "papyrus")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatal("unknown driver must fail")
	}
}
