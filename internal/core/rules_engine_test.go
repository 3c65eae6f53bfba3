package core

import (
	"context"
	"errors"
	"testing"

	"studycore/pkg/domain"
)

func newRulesFixture(t *testing.T) (*MemoryStore, string, context.Context) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore(NewDefaultRulesEngine())
	var studyUID string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		study, err := tx.CreateStudy(domain.Study{})
		studyUID = study.UID
		return err
	})
	if err != nil {
		t.Fatalf("create study: %v", err)
	}
	return store, studyUID, ctx
}

func TestOrderDensityRuleBlocksGappedOrders(t *testing.T) {
	store, studyUID, ctx := newRulesFixture(t)

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.AttachSelection(studyUID, domain.Selection{
			SelectionUID: "StudyEndpoint_000001",
			Kind:         domain.SelectionEndpoint,
			Order:        5,
		})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("gapped order commit = %v, want RuleViolationError", err)
	}
	if !violation.Result.HasBlocking() {
		t.Fatalf("expected a blocking violation")
	}

	// The blocked transaction must not have committed anything.
	if nodes := store.SelectionNodes(studyUID, domain.SelectionEndpoint); len(nodes) != 0 {
		t.Fatalf("blocked transaction leaked %d nodes", len(nodes))
	}
}

func TestOrderDensityRuleAcceptsDenseOrders(t *testing.T) {
	store, studyUID, ctx := newRulesFixture(t)

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for i, uid := range []string{"StudyEndpoint_000001", "StudyEndpoint_000002"} {
			if _, err := tx.AttachSelection(studyUID, domain.Selection{
				SelectionUID: uid,
				Kind:         domain.SelectionEndpoint,
				Order:        i + 1,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("dense list commit: %v", err)
	}
}

func TestOrderDensityRuleIgnoresUntouchedStudies(t *testing.T) {
	store, studyUID, ctx := newRulesFixture(t)
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.AttachSelection(studyUID, domain.Selection{
			SelectionUID: "StudyEndpoint_000001",
			Kind:         domain.SelectionEndpoint,
			Order:        1,
		})
		return err
	}); err != nil {
		t.Fatalf("seed selection: %v", err)
	}

	// A transaction touching only study metadata must not re-evaluate
	// selection lists.
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateStudy(studyUID, func(study *domain.Study) error {
			study.ProjectName = "renamed"
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("metadata-only commit: %v", err)
	}
}

func TestReferenceIntegrityRuleBlocksMissingConcept(t *testing.T) {
	store, studyUID, ctx := newRulesFixture(t)

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.AttachSelection(studyUID, domain.Selection{
			SelectionUID: "StudyEndpoint_000001",
			Kind:         domain.SelectionEndpoint,
			Order:        1,
			Concept:      domain.ConceptRef{UID: "EndpointTemplate_000099"},
		})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("dangling concept commit = %v, want RuleViolationError", err)
	}
}

func TestReferenceIntegrityRuleBlocksUnknownVersion(t *testing.T) {
	store, studyUID, ctx := newRulesFixture(t)
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateConcept(domain.ConceptVersion{
			UID:     "EndpointTemplate_000001",
			Kind:    domain.ConceptEndpointTemplate,
			Version: domain.InitialDraftVersion(),
			Status:  domain.ConceptStatusDraft,
		})
		return err
	}); err != nil {
		t.Fatalf("create concept: %v", err)
	}

	attach := func(version string) error {
		_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.AttachSelection(studyUID, domain.Selection{
				SelectionUID: "StudyEndpoint_000001",
				Kind:         domain.SelectionEndpoint,
				Order:        1,
				Concept:      domain.ConceptRef{UID: "EndpointTemplate_000001", Version: version},
			})
			return err
		})
		return err
	}

	var violation domain.RuleViolationError
	if err := attach("3.0"); !errors.As(err, &violation) {
		t.Fatalf("unknown pinned version = %v, want RuleViolationError", err)
	}
	if err := attach("0.1"); err != nil {
		t.Fatalf("carried pinned version: %v", err)
	}
}
