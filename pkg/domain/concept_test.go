package domain

import (
	"testing"
	"time"
)

func chainOf(versions ...ConceptVersion) ConceptChain {
	return ConceptChain{Versions: versions}
}

func TestConceptChainLatest(t *testing.T) {
	if _, ok := chainOf().Latest(); ok {
		t.Fatalf("empty chain must have no head")
	}
	chain := chainOf(
		ConceptVersion{UID: "c", Version: VersionNumber{Minor: 1}, Status: ConceptStatusDraft},
		ConceptVersion{UID: "c", Version: VersionNumber{Major: 1}, Status: ConceptStatusFinal},
	)
	head, ok := chain.Latest()
	if !ok || head.Version.String() != "1.0" {
		t.Fatalf("head = %+v, %v", head, ok)
	}
}

func TestConceptChainLatestWithStatus(t *testing.T) {
	chain := chainOf(
		ConceptVersion{Version: VersionNumber{Minor: 1}, Status: ConceptStatusDraft},
		ConceptVersion{Version: VersionNumber{Major: 1}, Status: ConceptStatusFinal},
		ConceptVersion{Version: VersionNumber{Major: 1, Minor: 1}, Status: ConceptStatusDraft},
	)
	final, ok := chain.LatestWithStatus(ConceptStatusFinal)
	if !ok || final.Version.String() != "1.0" {
		t.Fatalf("latest final = %+v, %v", final, ok)
	}
	draft, ok := chain.LatestWithStatus(ConceptStatusDraft)
	if !ok || draft.Version.String() != "1.1" {
		t.Fatalf("latest draft = %+v, %v", draft, ok)
	}
	if _, ok := chain.LatestWithStatus(ConceptStatusRetired); ok {
		t.Fatalf("chain has no retired node")
	}
}

func TestConceptChainVersionAt(t *testing.T) {
	chain := chainOf(
		ConceptVersion{Version: VersionNumber{Minor: 1}},
		ConceptVersion{Version: VersionNumber{Major: 1}},
	)
	if _, ok := chain.VersionAt("0.1"); !ok {
		t.Fatalf("version 0.1 should resolve")
	}
	if _, ok := chain.VersionAt("2.0"); ok {
		t.Fatalf("version 2.0 was never carried")
	}
}

func TestConceptVersionCloneIsDeep(t *testing.T) {
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	v := ConceptVersion{
		Attributes: map[string]any{"units": "days"},
		EndDate:    &end,
	}
	cp := v.Clone()
	cp.Attributes["units"] = "weeks"
	*cp.EndDate = cp.EndDate.Add(time.Hour)
	if v.Attributes["units"] != "days" {
		t.Fatalf("clone shares the attributes map")
	}
	if !v.EndDate.Equal(end) {
		t.Fatalf("clone shares the end date pointer")
	}
}
