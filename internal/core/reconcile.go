package core

import "studycore/pkg/domain"

// OpKind labels one reconciliation operation.
type OpKind string

// Reconciliation operation kinds. The kind is a pure function of the diff:
// a uid present only in closure deletes, only in current creates, and in
// both with a changed content hash or order edits.
const (
	OpCreate OpKind = "create"
	OpEdit   OpKind = "edit"
	OpDelete OpKind = "delete"
)

// SelectionOp is one typed step of a reconciliation plan. Before carries the
// closure value being superseded, After the value to attach; one of the two
// is nil for creates and deletes.
type SelectionOp struct {
	Kind         OpKind
	SelectionUID string
	Before       *domain.Selection
	After        *domain.Selection
}

// PlanReconciliation diffs the closure snapshot against the aggregate's
// current list and returns the complete ordered mutation plan. The plan is
// computed before any mutation is applied: removals from any position and
// any count are handled in one pass, deletes first (closure order), then
// creates and edits in current list order. Two entries with equal content
// hashes and equal order produce no op, so a save with zero changes is a
// no-op.
func PlanReconciliation(closure, current []domain.Selection) []SelectionOp {
	currentByUID := make(map[string]domain.Selection, len(current))
	for _, sel := range current {
		currentByUID[sel.SelectionUID] = sel
	}
	closureByUID := make(map[string]domain.Selection, len(closure))
	for _, sel := range closure {
		closureByUID[sel.SelectionUID] = sel
	}

	var plan []SelectionOp
	for _, old := range closure {
		if _, kept := currentByUID[old.SelectionUID]; kept {
			continue
		}
		before := old
		plan = append(plan, SelectionOp{
			Kind:         OpDelete,
			SelectionUID: old.SelectionUID,
			Before:       &before,
		})
	}
	for _, sel := range current {
		after := sel
		old, existed := closureByUID[sel.SelectionUID]
		if !existed {
			plan = append(plan, SelectionOp{
				Kind:         OpCreate,
				SelectionUID: sel.SelectionUID,
				After:        &after,
			})
			continue
		}
		if old.ContentHash() == sel.ContentHash() && old.Order == sel.Order {
			continue
		}
		before := old
		plan = append(plan, SelectionOp{
			Kind:         OpEdit,
			SelectionUID: sel.SelectionUID,
			Before:       &before,
			After:        &after,
		})
	}
	return plan
}
