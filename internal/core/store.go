package core

import (
	memory "studycore/internal/infra/persistence/memory"
	"studycore/pkg/domain"
)

// MemoryStore is the in-memory transactional graph store.
type MemoryStore = memory.Store

// NewMemoryStore constructs an in-memory store backed by the provided rules engine.
func NewMemoryStore(engine *domain.RulesEngine) *MemoryStore {
	return memory.NewStore(engine)
}
