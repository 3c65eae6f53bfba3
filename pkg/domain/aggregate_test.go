package domain

import (
	"errors"
	"testing"
)

func endpointSel(uid string) Selection {
	return Selection{SelectionUID: uid, Kind: SelectionEndpoint}
}

func orders(group *SelectionGroup) []int {
	sels := group.Selections()
	out := make([]int, len(sels))
	for i, s := range sels {
		out[i] = s.Order
	}
	return out
}

func uids(group *SelectionGroup) []string {
	sels := group.Selections()
	out := make([]string, len(sels))
	for i, s := range sels {
		out[i] = s.SelectionUID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewSelectionGroupRenumbers(t *testing.T) {
	a := endpointSel("a")
	a.Order = 5
	b := endpointSel("b")
	b.Order = 9
	group := NewSelectionGroup("Study_000001", SelectionEndpoint, []Selection{a, b})
	got := orders(group)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("orders after construction = %v, want [1 2]", got)
	}
}

func TestAddInsertKeepOrdersDense(t *testing.T) {
	group := NewSelectionGroup("Study_000001", SelectionEndpoint, nil)
	group.Add(endpointSel("a"))
	group.Add(endpointSel("b"))
	group.Insert(endpointSel("c"), 1)
	group.Insert(endpointSel("d"), 99) // clamped to the tail

	if got := uids(group); !equalStrings(got, []string{"c", "a", "b", "d"}) {
		t.Fatalf("list = %v", got)
	}
	for i, order := range orders(group) {
		if order != i+1 {
			t.Fatalf("order at position %d = %d", i+1, order)
		}
	}
}

func TestRemoveRenumbersTail(t *testing.T) {
	group := NewSelectionGroup("Study_000001", SelectionEndpoint, []Selection{
		endpointSel("a"), endpointSel("b"), endpointSel("c"), endpointSel("d"),
	})
	if err := group.Remove("b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := uids(group); !equalStrings(got, []string{"a", "c", "d"}) {
		t.Fatalf("list after remove = %v", got)
	}
	got := orders(group)
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("orders after remove = %v, want [1 2 3]", got)
	}

	err := group.Remove("missing")
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("remove missing uid = %v, want NotFoundError", err)
	}
}

func TestUpdateReplacesValueInPlace(t *testing.T) {
	group := NewSelectionGroup("Study_000001", SelectionEndpoint, []Selection{
		endpointSel("a"), endpointSel("b"),
	})
	replacement := endpointSel("a")
	replacement.Label = "updated"
	replacement.Order = 42 // ignored, position is preserved
	if err := group.Update(replacement); err != nil {
		t.Fatalf("update: %v", err)
	}
	sel, ok := group.Find("a")
	if !ok {
		t.Fatalf("selection a vanished")
	}
	if sel.Label != "updated" || sel.Order != 1 {
		t.Fatalf("updated selection = %+v", sel)
	}

	if err := group.Update(endpointSel("missing")); err == nil {
		t.Fatalf("expected error updating a missing uid")
	}
}

func TestReorderMovesAndRenumbers(t *testing.T) {
	group := NewSelectionGroup("Study_000001", SelectionEndpoint, []Selection{
		endpointSel("a"), endpointSel("b"), endpointSel("c"),
	})
	if err := group.Reorder("c", 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := uids(group); !equalStrings(got, []string{"c", "a", "b"}) {
		t.Fatalf("list after reorder = %v", got)
	}

	err := group.Reorder("a", 4)
	var logic BusinessLogicError
	if !errors.As(err, &logic) {
		t.Fatalf("out-of-range reorder = %v, want BusinessLogicError", err)
	}
	if err := group.Reorder("missing", 1); err == nil {
		t.Fatalf("expected error reordering a missing uid")
	}
}

func TestClosureLifecycle(t *testing.T) {
	group := NewSelectionGroup("Study_000001", SelectionEndpoint, []Selection{endpointSel("a")})
	if _, ok := group.Closure(); ok {
		t.Fatalf("closure must be absent before BeginUpdate")
	}

	group.BeginUpdate(3)
	closure, ok := group.Closure()
	if !ok || len(closure) != 1 || closure[0].SelectionUID != "a" {
		t.Fatalf("closure = %v, %v", closure, ok)
	}
	if group.Revision() != 3 {
		t.Fatalf("revision = %d, want 3", group.Revision())
	}

	group.Add(endpointSel("b"))
	closure, _ = group.Closure()
	if len(closure) != 1 {
		t.Fatalf("closure must stay pinned at the load-time list, got %d entries", len(closure))
	}

	group.CommitClosure(4)
	closure, _ = group.Closure()
	if len(closure) != 2 {
		t.Fatalf("committed closure must track the current list, got %d entries", len(closure))
	}
	if group.Revision() != 4 {
		t.Fatalf("revision after commit = %d, want 4", group.Revision())
	}
}

func TestSelectionsReturnsCopy(t *testing.T) {
	group := NewSelectionGroup("Study_000001", SelectionEndpoint, []Selection{endpointSel("a")})
	sels := group.Selections()
	sels[0].Label = "mutated"
	if got, _ := group.Find("a"); got.Label != "" {
		t.Fatalf("external mutation leaked into the aggregate")
	}
}
