package core

import (
	"fmt"
	"os"

	"notations/internal/infra/persistence/memory"
	"notations/internal/infra/persistence/postgres"
	"notations/internal/infra/persistence/sqlite"
	"notations/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	NOTATIONS_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	NOTATIONS_SQLITE_PATH: path to sqlite file (default ./notations.db)
//	NOTATIONS_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *domain.RulesEngine) (domain.PersistentStore, error) {
	driver := os.Getenv("NOTATIONS_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.New(engine), nil
	case StorageSQLite:
		path := os.Getenv("NOTATIONS_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("NOTATIONS_POSTGRES_DSN")
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
