package core

import (
	"context"
	"fmt"

	"studycore/pkg/domain"
)

// OrderDensityRule blocks commits that leave a study's current selection
// list with gapped or duplicated order positions. Orders must be exactly
// 1..N after every transaction.
func OrderDensityRule() domain.Rule {
	return orderDensityRule{}
}

type orderDensityRule struct{}

func (orderDensityRule) Name() string { return "order_density" }

func (orderDensityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for study, kinds := range touchedSelectionLists(changes) {
		for kind := range kinds {
			selections := view.CurrentSelections(study, kind)
			for i, sel := range selections {
				if sel.Order == i+1 {
					continue
				}
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "order_density",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("%s list of study %s has order %d at position %d; orders must run 1..%d", kind, study, sel.Order, i+1, len(selections)),
					Entity:   domain.EntitySelection,
					EntityID: sel.SelectionUID,
				})
				break
			}
		}
	}
	return res, nil
}

// touchedSelectionLists collects the study/kind pairs the change feed
// mutated, so rules only re-check lists a transaction actually touched.
func touchedSelectionLists(changes []domain.Change) map[string]map[domain.SelectionKind]struct{} {
	touched := make(map[string]map[domain.SelectionKind]struct{})
	for _, change := range changes {
		if change.Entity != domain.EntitySelection {
			continue
		}
		for _, payload := range []domain.ChangePayload{change.Before, change.After} {
			sc, ok := domain.DecodeChangePayload[domain.SelectionChange](payload)
			if !ok {
				continue
			}
			kinds, ok := touched[sc.StudyUID]
			if !ok {
				kinds = make(map[domain.SelectionKind]struct{})
				touched[sc.StudyUID] = kinds
			}
			kinds[sc.Selection.Kind] = struct{}{}
		}
	}
	return touched
}
