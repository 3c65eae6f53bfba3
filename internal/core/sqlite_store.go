package core

import (
	"studycore/internal/infra/persistence/sqlite"
	"studycore/pkg/domain"
)

// NewSQLiteStore constructs an SQLite-backed store using the provided file
// path (may be empty for the default) and rules engine.
func NewSQLiteStore(path string, engine *domain.RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}
