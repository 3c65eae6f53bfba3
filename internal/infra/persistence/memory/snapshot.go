package memory

import "studycore/pkg/domain"

// Snapshot is the serializable form of the committed state, used by the
// durable stores to persist and rehydrate the full graph.
type Snapshot struct {
	Studies    map[string]domain.Study                                    `json:"studies"`
	Libraries  map[string]domain.Library                                  `json:"libraries"`
	Concepts   map[string]domain.ConceptChain                             `json:"concepts"`
	Selections map[string]map[domain.SelectionKind][]domain.SelectionNode `json:"selections"`
	Audit      map[string][]domain.AuditAction                            `json:"audit"`
	Counters   map[string]int64                                           `json:"counters"`
}

// ExportState captures the committed state as a snapshot.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.state.clone()
	return Snapshot{
		Studies:    state.studies,
		Libraries:  state.libraries,
		Concepts:   state.concepts,
		Selections: state.selections,
		Audit:      state.audit,
		Counters:   state.counters,
	}
}

// ImportState replaces the committed state with the snapshot contents.
// Nil maps hydrate to empty tables.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for k, v := range snapshot.Studies {
		state.studies[k] = v
	}
	for k, v := range snapshot.Libraries {
		state.libraries[k] = v
	}
	for k, v := range snapshot.Concepts {
		state.concepts[k] = v.Clone()
	}
	for study, kinds := range snapshot.Selections {
		byKind := make(map[domain.SelectionKind][]domain.SelectionNode, len(kinds))
		for kind, nodes := range kinds {
			cp := make([]domain.SelectionNode, len(nodes))
			for i, n := range nodes {
				cp[i] = n.Clone()
			}
			byKind[kind] = cp
		}
		state.selections[study] = byKind
	}
	for study, trail := range snapshot.Audit {
		state.audit[study] = append([]domain.AuditAction(nil), trail...)
	}
	for k, v := range snapshot.Counters {
		state.counters[k] = v
	}
	s.state = state
}
