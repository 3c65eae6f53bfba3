package core

import (
	"context"
	"fmt"

	"studycore/pkg/domain"
)

// ReferenceIntegrityRule blocks commits that attach selections pointing at
// concepts missing from the graph, or at version numbers the referenced
// chain never carried.
func ReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntitySelection || change.Action != domain.ActionCreate {
			continue
		}
		sc, ok := domain.DecodeChangePayload[domain.SelectionChange](change.After)
		if !ok {
			continue
		}
		sel := sc.Selection
		if sel.Concept.IsZero() {
			continue
		}
		chain, found := view.FindConcept(sel.Concept.UID)
		if !found {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "reference_integrity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("selection %s references missing concept %s", sel.SelectionUID, sel.Concept.UID),
				Entity:   domain.EntitySelection,
				EntityID: sel.SelectionUID,
			})
			continue
		}
		if sel.Concept.Version == "" {
			continue
		}
		if _, found := chain.VersionAt(sel.Concept.Version); !found {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "reference_integrity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("selection %s pins concept %s at version %s, which the chain never carried", sel.SelectionUID, sel.Concept.UID, sel.Concept.Version),
				Entity:   domain.EntitySelection,
				EntityID: sel.SelectionUID,
			})
		}
	}
	return res, nil
}

// NewDefaultRulesEngine returns an engine with the built-in rules registered.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(OrderDensityRule())
	engine.Register(ReferenceIntegrityRule())
	return engine
}
