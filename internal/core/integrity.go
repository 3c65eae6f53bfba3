package core

import (
	"fmt"

	"studycore/pkg/domain"
)

// termResolver checks terminology term references against the concept graph.
// The referenced chain must exist, carry the terminology kind, and its head
// must not be retired.
type termResolver struct{}

func (termResolver) ResolveTerm(view domain.RuleView, termUID string) error {
	head, err := resolveConceptHead(view, termUID, domain.ConceptTerminologyTerm)
	if err != nil {
		return err
	}
	if head.Status == domain.ConceptStatusRetired {
		return domain.BusinessLogicError{Msg: fmt.Sprintf("terminology term %s is retired", termUID)}
	}
	return nil
}

// unitResolver checks unit definition references the same way.
type unitResolver struct{}

func (unitResolver) ResolveUnit(view domain.RuleView, unitUID string) error {
	head, err := resolveConceptHead(view, unitUID, domain.ConceptUnitDefinition)
	if err != nil {
		return err
	}
	if head.Status == domain.ConceptStatusRetired {
		return domain.BusinessLogicError{Msg: fmt.Sprintf("unit definition %s is retired", unitUID)}
	}
	return nil
}

func resolveConceptHead(view domain.RuleView, uid string, kind domain.ConceptKind) (domain.ConceptVersion, error) {
	chain, ok := view.FindConcept(uid)
	if !ok {
		return domain.ConceptVersion{}, domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
	}
	head, ok := chain.Latest()
	if !ok {
		return domain.ConceptVersion{}, domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
	}
	if head.Kind != kind {
		return domain.ConceptVersion{}, domain.BusinessLogicError{Msg: fmt.Sprintf("concept %s is %s, expected %s", uid, head.Kind, kind)}
	}
	return head, nil
}

// designCellChecker enforces the study design cell shape: the cell must name
// an arm and an epoch, the arm must be a current arm selection of the same
// study, and at most one cell may occupy a given arm/epoch coordinate.
type designCellChecker struct{}

func (designCellChecker) CheckSelection(view domain.RuleView, studyUID string, sel domain.Selection, current []domain.Selection) error {
	if sel.ArmUID == "" || sel.EpochUID == "" {
		return domain.BusinessLogicError{Msg: "design cell requires both an arm and an epoch reference"}
	}
	armFound := false
	for _, arm := range view.CurrentSelections(studyUID, domain.SelectionArm) {
		if arm.SelectionUID == sel.ArmUID {
			armFound = true
			break
		}
	}
	if !armFound {
		return domain.NotFoundError{Entity: domain.EntitySelection, UID: sel.ArmUID}
	}
	for _, other := range current {
		if other.SelectionUID == sel.SelectionUID {
			continue
		}
		if other.ArmUID == sel.ArmUID && other.EpochUID == sel.EpochUID {
			return domain.ForbiddenError{Msg: fmt.Sprintf(
				"design cell for arm %s and epoch %s already exists (%s)", sel.ArmUID, sel.EpochUID, other.SelectionUID)}
		}
	}
	return nil
}
