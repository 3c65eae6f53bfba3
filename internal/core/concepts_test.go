package core

import (
	"context"
	"errors"
	"testing"

	"studycore/pkg/domain"
)

func newConceptFixture(t *testing.T) (*Service, context.Context) {
	t.Helper()
	ctx := context.Background()
	svc := NewInMemoryService(domain.NewRulesEngine())
	if _, err := svc.CreateLibrary(ctx, domain.Library{Name: "Sponsor", IsEditable: true}); err != nil {
		t.Fatalf("create library: %v", err)
	}
	return svc, ctx
}

func TestCreateConceptStartsAtInitialDraft(t *testing.T) {
	svc, ctx := newConceptFixture(t)

	created, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind:        domain.ConceptEndpointTemplate,
		LibraryName: "Sponsor",
		Name:        "Overall survival",
		Author:      "alice",
	})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}
	if created.UID != "EndpointTemplate_000001" {
		t.Fatalf("uid = %s", created.UID)
	}
	if created.Version.String() != "0.1" || created.Status != domain.ConceptStatusDraft {
		t.Fatalf("created = %s %s", created.Version, created.Status)
	}
	if created.ChangeDescription != domain.ChangeDescriptionInitial {
		t.Fatalf("change description = %q", created.ChangeDescription)
	}
}

func TestCreateConceptRequiresEditableLibrary(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	if _, err := svc.CreateLibrary(ctx, domain.Library{Name: "CDISC", IsEditable: false}); err != nil {
		t.Fatalf("create library: %v", err)
	}

	_, err := svc.CreateConcept(ctx, domain.ConceptVersion{Kind: domain.ConceptTerminologyTerm, LibraryName: "CDISC"})
	var logic domain.BusinessLogicError
	if !errors.As(err, &logic) {
		t.Fatalf("read-only library create = %v, want BusinessLogicError", err)
	}

	_, err = svc.CreateConcept(ctx, domain.ConceptVersion{Kind: domain.ConceptTerminologyTerm, LibraryName: "missing"})
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("missing library create = %v, want NotFoundError", err)
	}
}

func TestEditConceptDraftBumpsMinor(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	created, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptEndpointTemplate, LibraryName: "Sponsor", Name: "OS",
	})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}

	updated, err := svc.EditConceptDraft(ctx, created.UID, "clarified wording", "bob", func(v *domain.ConceptVersion) error {
		v.Definition = "Time from randomization to death"
		return nil
	})
	if err != nil {
		t.Fatalf("edit draft: %v", err)
	}
	if updated.Version.String() != "0.2" || updated.Status != domain.ConceptStatusDraft {
		t.Fatalf("edited = %s %s", updated.Version, updated.Status)
	}
	if updated.ChangeDescription != "clarified wording" || updated.Author != "bob" {
		t.Fatalf("edited metadata = %q by %q", updated.ChangeDescription, updated.Author)
	}

	_, err = svc.EditConceptDraft(ctx, created.UID, "", "bob", func(*domain.ConceptVersion) error { return nil })
	var logic domain.BusinessLogicError
	if !errors.As(err, &logic) {
		t.Fatalf("empty change description = %v, want BusinessLogicError", err)
	}
}

func TestApproveConceptLifecycle(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	created, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptEndpointTemplate, LibraryName: "Sponsor", Name: "OS",
	})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}

	approved, err := svc.ApproveConcept(ctx, created.UID, "alice")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Version.String() != "1.0" || approved.Status != domain.ConceptStatusFinal {
		t.Fatalf("approved = %s %s", approved.Version, approved.Status)
	}
	if approved.ChangeDescription != domain.ChangeDescriptionApproved {
		t.Fatalf("change description = %q", approved.ChangeDescription)
	}

	// A final head is neither editable nor approvable again.
	if _, err := svc.ApproveConcept(ctx, created.UID, "alice"); err == nil {
		t.Fatalf("approving a final head must fail")
	}
	if _, err := svc.EditConceptDraft(ctx, created.UID, "late edit", "alice", func(*domain.ConceptVersion) error { return nil }); err == nil {
		t.Fatalf("editing a final head must fail")
	}

	next, err := svc.CreateConceptNewVersion(ctx, created.UID, "", "carol")
	if err != nil {
		t.Fatalf("new version: %v", err)
	}
	if next.Version.String() != "1.1" || next.Status != domain.ConceptStatusDraft {
		t.Fatalf("new version = %s %s", next.Version, next.Status)
	}
	if next.ChangeDescription != domain.ChangeDescriptionNewVersion {
		t.Fatalf("default change description = %q", next.ChangeDescription)
	}

	// Approving the reopened draft jumps past every 1.x minor.
	approved, err = svc.ApproveConcept(ctx, created.UID, "carol")
	if err != nil {
		t.Fatalf("approve second version: %v", err)
	}
	if approved.Version.String() != "2.0" {
		t.Fatalf("second approval = %s, want 2.0", approved.Version)
	}
}

func TestInactivateReactivateConcept(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	created, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptUnitDefinition, LibraryName: "Sponsor", Name: "days",
	})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}
	if _, err := svc.ApproveConcept(ctx, created.UID, "alice"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	retired, err := svc.InactivateConcept(ctx, created.UID, "alice")
	if err != nil {
		t.Fatalf("inactivate: %v", err)
	}
	if retired.Status != domain.ConceptStatusRetired || retired.Version.String() != "1.0" {
		t.Fatalf("retired = %s %s, version must be retained", retired.Version, retired.Status)
	}
	if retired.ChangeDescription != domain.ChangeDescriptionInactivated {
		t.Fatalf("change description = %q", retired.ChangeDescription)
	}

	if _, err := svc.InactivateConcept(ctx, created.UID, "alice"); err == nil {
		t.Fatalf("inactivating a retired head must fail")
	}

	restored, err := svc.ReactivateConcept(ctx, created.UID, "bob")
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if restored.Status != domain.ConceptStatusFinal || restored.Version.String() != "1.0" {
		t.Fatalf("restored = %s %s", restored.Version, restored.Status)
	}
}

func TestReopenRetiredConceptAsDraft(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	created, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptTerminologyTerm, LibraryName: "Sponsor", Name: "partial response",
	})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}
	if _, err := svc.ApproveConcept(ctx, created.UID, "alice"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.InactivateConcept(ctx, created.UID, "alice"); err != nil {
		t.Fatalf("inactivate: %v", err)
	}

	// A retired head is a valid starting point for a fresh draft.
	reopened, err := svc.CreateConceptNewVersion(ctx, created.UID, "bring the term back", "bob")
	if err != nil {
		t.Fatalf("new version from retired head: %v", err)
	}
	if reopened.Version.String() != "1.1" || reopened.Status != domain.ConceptStatusDraft {
		t.Fatalf("reopened = %s %s, want 1.1 draft", reopened.Version, reopened.Status)
	}
	if reopened.ChangeDescription != "bring the term back" {
		t.Fatalf("change description = %q", reopened.ChangeDescription)
	}

	// The open draft blocks a second reopening.
	if _, err := svc.CreateConceptNewVersion(ctx, created.UID, "", "bob"); err == nil {
		t.Fatalf("new version with an open draft must fail")
	}
}

func TestSoftDeleteConceptGuardsApprovedVersions(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	draft, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptObjectiveTemplate, LibraryName: "Sponsor", Name: "draft only",
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if err := svc.SoftDeleteConcept(ctx, draft.UID); err != nil {
		t.Fatalf("soft delete draft: %v", err)
	}
	if _, err := svc.GetConcept(ctx, draft.UID); err == nil {
		t.Fatalf("deleted concept must not resolve")
	}

	kept, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptObjectiveTemplate, LibraryName: "Sponsor", Name: "approved",
	})
	if err != nil {
		t.Fatalf("create second concept: %v", err)
	}
	if _, err := svc.ApproveConcept(ctx, kept.UID, "alice"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	err = svc.SoftDeleteConcept(ctx, kept.UID)
	var logic domain.BusinessLogicError
	if !errors.As(err, &logic) {
		t.Fatalf("deleting an approved concept = %v, want BusinessLogicError", err)
	}
}

func TestApproveConceptCascade(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	template, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptEndpointTemplate, LibraryName: "Sponsor", Name: "template",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	dependent, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptEndpointTemplate, LibraryName: "Sponsor", Name: "instance",
	})
	if err != nil {
		t.Fatalf("create dependent: %v", err)
	}
	alreadyFinal, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptEndpointTemplate, LibraryName: "Sponsor", Name: "already final",
	})
	if err != nil {
		t.Fatalf("create third concept: %v", err)
	}
	if _, err := svc.ApproveConcept(ctx, alreadyFinal.UID, "alice"); err != nil {
		t.Fatalf("pre-approve: %v", err)
	}

	resolver := domain.DependentResolverFunc(func(uid string) ([]string, error) {
		if uid != template.UID {
			t.Fatalf("resolver asked about %s", uid)
		}
		return []string{dependent.UID, alreadyFinal.UID}, nil
	})
	approved, err := svc.ApproveConceptCascade(ctx, template.UID, "alice", resolver)
	if err != nil {
		t.Fatalf("cascade approve: %v", err)
	}
	if approved.Version.String() != "1.0" {
		t.Fatalf("template approval = %s", approved.Version)
	}

	chain, err := svc.GetConcept(ctx, dependent.UID)
	if err != nil {
		t.Fatalf("get dependent: %v", err)
	}
	head, _ := chain.Latest()
	if head.Status != domain.ConceptStatusFinal || head.Version.String() != "1.0" {
		t.Fatalf("dependent head = %s %s", head.Version, head.Status)
	}

	// The already-final dependent is skipped, not re-approved.
	chain, err = svc.GetConcept(ctx, alreadyFinal.UID)
	if err != nil {
		t.Fatalf("get third concept: %v", err)
	}
	head, _ = chain.Latest()
	if head.Version.String() != "1.0" {
		t.Fatalf("already-final head = %s, want unchanged 1.0", head.Version)
	}
}

func TestFindConceptHistoryNewestFirst(t *testing.T) {
	svc, ctx := newConceptFixture(t)
	created, err := svc.CreateConcept(ctx, domain.ConceptVersion{
		Kind: domain.ConceptEndpointTemplate, LibraryName: "Sponsor", Name: "OS",
	})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}
	if _, err := svc.EditConceptDraft(ctx, created.UID, "reworded", "bob", func(*domain.ConceptVersion) error { return nil }); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := svc.ApproveConcept(ctx, created.UID, "alice"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	records, err := svc.FindConceptHistory(ctx, created.UID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("history entries = %d, want 3", len(records))
	}
	wantVersions := []string{"1.0", "0.2", "0.1"}
	for i, want := range wantVersions {
		if got := records[i].Version.String(); got != want {
			t.Fatalf("history[%d] = %s, want %s", i, got, want)
		}
	}
	if records[0].EndDate != nil {
		t.Fatalf("open head must have no end date")
	}
	for _, rec := range records[1:] {
		if rec.EndDate == nil {
			t.Fatalf("superseded version %s must carry an end date", rec.Version)
		}
	}
}

func TestConceptUIDPrefix(t *testing.T) {
	cases := map[domain.ConceptKind]string{
		domain.ConceptEndpointTemplate:  "EndpointTemplate",
		domain.ConceptObjectiveTemplate: "ObjectiveTemplate",
		domain.ConceptUnitDefinition:    "UnitDefinition",
		domain.ConceptTerminologyTerm:   "TerminologyTerm",
	}
	for kind, want := range cases {
		if got := conceptUIDPrefix(kind); got != want {
			t.Fatalf("prefix of %s = %s, want %s", kind, got, want)
		}
	}
}
