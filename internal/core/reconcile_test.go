package core

import (
	"testing"

	"studycore/pkg/domain"
)

func planSel(uid, label string, order int) domain.Selection {
	return domain.Selection{
		SelectionUID: uid,
		Kind:         domain.SelectionEndpoint,
		Order:        order,
		Label:        label,
	}
}

func TestPlanReconciliationNoChanges(t *testing.T) {
	list := []domain.Selection{planSel("a", "one", 1), planSel("b", "two", 2)}
	if plan := PlanReconciliation(list, list); len(plan) != 0 {
		t.Fatalf("identical lists must plan nothing, got %d ops", len(plan))
	}
}

func TestPlanReconciliationCreateOnly(t *testing.T) {
	plan := PlanReconciliation(nil, []domain.Selection{planSel("a", "one", 1)})
	if len(plan) != 1 {
		t.Fatalf("plan = %d ops, want 1", len(plan))
	}
	op := plan[0]
	if op.Kind != OpCreate || op.SelectionUID != "a" || op.Before != nil || op.After == nil {
		t.Fatalf("op = %+v", op)
	}
}

func TestPlanReconciliationDeleteOnly(t *testing.T) {
	plan := PlanReconciliation([]domain.Selection{planSel("a", "one", 1)}, nil)
	if len(plan) != 1 {
		t.Fatalf("plan = %d ops, want 1", len(plan))
	}
	op := plan[0]
	if op.Kind != OpDelete || op.SelectionUID != "a" || op.Before == nil || op.After != nil {
		t.Fatalf("op = %+v", op)
	}
}

func TestPlanReconciliationEditOnContentChange(t *testing.T) {
	closure := []domain.Selection{planSel("a", "one", 1)}
	current := []domain.Selection{planSel("a", "renamed", 1)}
	plan := PlanReconciliation(closure, current)
	if len(plan) != 1 || plan[0].Kind != OpEdit {
		t.Fatalf("plan = %+v", plan)
	}
	if plan[0].Before.Label != "one" || plan[0].After.Label != "renamed" {
		t.Fatalf("edit op carries before=%q after=%q", plan[0].Before.Label, plan[0].After.Label)
	}
}

func TestPlanReconciliationEditOnReorder(t *testing.T) {
	closure := []domain.Selection{planSel("a", "one", 1), planSel("b", "two", 2)}
	current := []domain.Selection{planSel("b", "two", 1), planSel("a", "one", 2)}
	plan := PlanReconciliation(closure, current)
	if len(plan) != 2 {
		t.Fatalf("plan = %d ops, want 2", len(plan))
	}
	for _, op := range plan {
		if op.Kind != OpEdit {
			t.Fatalf("reorder must plan edits, got %+v", op)
		}
	}
}

func TestPlanReconciliationMixedOrdering(t *testing.T) {
	closure := []domain.Selection{
		planSel("keep", "keep", 1),
		planSel("gone1", "x", 2),
		planSel("edit", "old", 3),
		planSel("gone2", "y", 4),
	}
	current := []domain.Selection{
		planSel("keep", "keep", 1),
		planSel("edit", "new", 2),
		planSel("fresh", "z", 3),
	}
	plan := PlanReconciliation(closure, current)
	if len(plan) != 4 {
		t.Fatalf("plan = %d ops, want 4", len(plan))
	}
	// Deletes first in closure order, then creates and edits in current order.
	want := []struct {
		kind OpKind
		uid  string
	}{
		{OpDelete, "gone1"},
		{OpDelete, "gone2"},
		{OpEdit, "edit"},
		{OpCreate, "fresh"},
	}
	for i, w := range want {
		if plan[i].Kind != w.kind || plan[i].SelectionUID != w.uid {
			t.Fatalf("plan[%d] = %s %s, want %s %s", i, plan[i].Kind, plan[i].SelectionUID, w.kind, w.uid)
		}
	}
}

func TestPlanReconciliationRemoveFromMiddleRenumbersRest(t *testing.T) {
	closure := []domain.Selection{
		planSel("a", "a", 1),
		planSel("b", "b", 2),
		planSel("c", "c", 3),
	}
	// Removing b shifts c up; the shifted entry is an edit, a is untouched.
	current := []domain.Selection{
		planSel("a", "a", 1),
		planSel("c", "c", 2),
	}
	plan := PlanReconciliation(closure, current)
	if len(plan) != 2 {
		t.Fatalf("plan = %d ops, want 2", len(plan))
	}
	if plan[0].Kind != OpDelete || plan[0].SelectionUID != "b" {
		t.Fatalf("plan[0] = %+v", plan[0])
	}
	if plan[1].Kind != OpEdit || plan[1].SelectionUID != "c" {
		t.Fatalf("plan[1] = %+v", plan[1])
	}
}
