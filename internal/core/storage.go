package core

import (
	"fmt"
	"os"

	"studycore/internal/infra/persistence/memory"
	"studycore/internal/infra/persistence/sqlite"
	"studycore/pkg/domain"
)

// StorageDriver identifies a concrete storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenGraphStore selects a backend using environment variables. Defaults to
// sqlite when unset.
//
//	STUDYCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	STUDYCORE_SQLITE_PATH: path to sqlite file (default ./studycore.db)
//	STUDYCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenGraphStore(engine *domain.RulesEngine) (domain.GraphStore, error) {
	driver := os.Getenv("STUDYCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("STUDYCORE_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("STUDYCORE_POSTGRES_DSN")
		return NewPostgresStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
