package domain

import "fmt"

// SelectionGroup is the aggregate root owning a study's ordered selection
// list for one selection kind. The group exclusively owns its slice; every
// accessor copies. A group loaded for update additionally carries closure
// data (the list as last read from storage) which Save uses as its diff
// baseline, plus the study revision token captured at load time.
type SelectionGroup struct {
	studyUID   string
	kind       SelectionKind
	selections []Selection
	closure    []Selection
	forUpdate  bool
	revision   int64
}

// NewSelectionGroup constructs an aggregate over the given current list.
// Orders are renumbered to a dense 1..N sequence in list position order.
func NewSelectionGroup(studyUID string, kind SelectionKind, current []Selection) *SelectionGroup {
	g := &SelectionGroup{
		studyUID:   studyUID,
		kind:       kind,
		selections: cloneSelections(current),
	}
	g.renumber()
	return g
}

// StudyUID returns the owning study uid.
func (g *SelectionGroup) StudyUID() string { return g.studyUID }

// Kind returns the selection kind this aggregate manages.
func (g *SelectionGroup) Kind() SelectionKind { return g.kind }

// Selections returns a copy of the current ordered list.
func (g *SelectionGroup) Selections() []Selection { return cloneSelections(g.selections) }

// Len returns the number of current selections.
func (g *SelectionGroup) Len() int { return len(g.selections) }

// BeginUpdate snapshots the current list as closure data and captures the
// study revision token. Repositories call this when loading for update;
// Save refuses aggregates that were never placed in update mode.
func (g *SelectionGroup) BeginUpdate(revision int64) {
	g.closure = cloneSelections(g.selections)
	g.revision = revision
	g.forUpdate = true
}

// Closure returns the diff baseline and whether the group is in update mode.
func (g *SelectionGroup) Closure() ([]Selection, bool) {
	if !g.forUpdate {
		return nil, false
	}
	return cloneSelections(g.closure), true
}

// Revision returns the study revision token captured at load time.
func (g *SelectionGroup) Revision() int64 { return g.revision }

// CommitClosure advances the diff baseline to the current list after a
// successful save, so the aggregate can be saved again without a reload.
func (g *SelectionGroup) CommitClosure(revision int64) {
	if !g.forUpdate {
		return
	}
	g.closure = cloneSelections(g.selections)
	g.revision = revision
}

// Find returns the current selection with the given uid.
func (g *SelectionGroup) Find(selectionUID string) (Selection, bool) {
	for _, sel := range g.selections {
		if sel.SelectionUID == selectionUID {
			return sel, true
		}
	}
	return Selection{}, false
}

// Add appends a selection at the end of the list.
func (g *SelectionGroup) Add(sel Selection) {
	sel.Kind = g.kind
	g.selections = append(g.selections, sel)
	g.renumber()
}

// Insert places a selection at the given 1-based position, shifting
// subsequent entries down. Positions outside 1..N+1 are clamped.
func (g *SelectionGroup) Insert(sel Selection, position int) {
	sel.Kind = g.kind
	if position < 1 {
		position = 1
	}
	if position > len(g.selections)+1 {
		position = len(g.selections) + 1
	}
	idx := position - 1
	g.selections = append(g.selections[:idx], append([]Selection{sel}, g.selections[idx:]...)...)
	g.renumber()
}

// Remove deletes the selection with the given uid and renumbers the tail so
// orders stay dense. Removing an absent uid is an error.
func (g *SelectionGroup) Remove(selectionUID string) error {
	for i, sel := range g.selections {
		if sel.SelectionUID == selectionUID {
			g.selections = append(g.selections[:i], g.selections[i+1:]...)
			g.renumber()
			return nil
		}
	}
	return NotFoundError{Entity: EntitySelection, UID: selectionUID}
}

// Update replaces the selection value at the same uid, keeping its position.
func (g *SelectionGroup) Update(sel Selection) error {
	for i, existing := range g.selections {
		if existing.SelectionUID == sel.SelectionUID {
			sel.Kind = g.kind
			sel.Order = existing.Order
			g.selections[i] = sel
			return nil
		}
	}
	return NotFoundError{Entity: EntitySelection, UID: sel.SelectionUID}
}

// Reorder moves the selection with the given uid to the 1-based target
// position and renumbers the whole list.
func (g *SelectionGroup) Reorder(selectionUID string, position int) error {
	idx := -1
	for i, sel := range g.selections {
		if sel.SelectionUID == selectionUID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return NotFoundError{Entity: EntitySelection, UID: selectionUID}
	}
	if position < 1 || position > len(g.selections) {
		return BusinessLogicError{Msg: fmt.Sprintf("target order %d outside 1..%d", position, len(g.selections))}
	}
	sel := g.selections[idx]
	g.selections = append(g.selections[:idx], g.selections[idx+1:]...)
	target := position - 1
	g.selections = append(g.selections[:target], append([]Selection{sel}, g.selections[target:]...)...)
	g.renumber()
	return nil
}

func (g *SelectionGroup) renumber() {
	for i := range g.selections {
		g.selections[i].Order = i + 1
	}
}

func cloneSelections(in []Selection) []Selection {
	if in == nil {
		return nil
	}
	out := make([]Selection, len(in))
	copy(out, in)
	return out
}
