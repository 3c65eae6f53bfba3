package core

import (
	"context"
	"fmt"
	"strings"

	"studycore/pkg/domain"
)

func conceptUIDPrefix(kind domain.ConceptKind) string {
	parts := strings.Split(string(kind), "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, "")
}

// CreateConcept persists the initial draft of a library concept at version
// 0.1. The target library must exist and be editable.
func (s *Service) CreateConcept(ctx context.Context, draft domain.ConceptVersion) (domain.ConceptVersion, error) {
	var created domain.ConceptVersion
	err := s.runOperation(ctx, "create_concept", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			library, ok := tx.FindLibrary(draft.LibraryName)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityLibrary, UID: draft.LibraryName}
			}
			if !library.IsEditable {
				return domain.BusinessLogicError{Msg: fmt.Sprintf("library %s is read-only", library.Name)}
			}
			if draft.UID == "" {
				uid, err := tx.NextUID(conceptUIDPrefix(draft.Kind))
				if err != nil {
					return err
				}
				draft.UID = uid
			}
			draft.Version = domain.InitialDraftVersion()
			draft.Status = domain.ConceptStatusDraft
			draft.ChangeDescription = domain.ChangeDescriptionInitial
			var err error
			created, err = tx.CreateConcept(draft)
			return err
		})
		return created.UID, err
	})
	return created, err
}

// EditConceptDraft applies the mutator to the concept's draft head, bumping
// the minor version. Only drafts are editable and every edit must carry a
// change description.
func (s *Service) EditConceptDraft(ctx context.Context, uid, changeDescription, author string, mutator func(*domain.ConceptVersion) error) (domain.ConceptVersion, error) {
	if changeDescription == "" {
		return domain.ConceptVersion{}, domain.BusinessLogicError{Msg: "a change description is required when editing a draft"}
	}
	var updated domain.ConceptVersion
	err := s.runOperation(ctx, "edit_concept", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			head, err := conceptHead(tx, uid)
			if err != nil {
				return err
			}
			if head.Status != domain.ConceptStatusDraft {
				return domain.BusinessLogicError{Msg: fmt.Sprintf("concept %s is %s; only drafts can be edited", uid, head.Status)}
			}
			next := head.Clone()
			if err := mutator(&next); err != nil {
				return err
			}
			next.UID = uid
			next.Kind = head.Kind
			next.LibraryName = head.LibraryName
			next.Status = domain.ConceptStatusDraft
			next.Version = head.Version.BumpMinor()
			next.ChangeDescription = changeDescription
			next.Author = author
			updated, err = tx.AppendConceptVersion(uid, next)
			return err
		})
		return uid, err
	})
	return updated, err
}

// ApproveConcept promotes a draft head to final at the next whole version.
func (s *Service) ApproveConcept(ctx context.Context, uid, author string) (domain.ConceptVersion, error) {
	var approved domain.ConceptVersion
	err := s.runOperation(ctx, "approve_concept", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			approved, err = approveConceptTx(tx, uid, author)
			return err
		})
		return uid, err
	})
	return approved, err
}

func approveConceptTx(tx domain.Transaction, uid, author string) (domain.ConceptVersion, error) {
	head, err := conceptHead(tx, uid)
	if err != nil {
		return domain.ConceptVersion{}, err
	}
	if head.Status != domain.ConceptStatusDraft {
		return domain.ConceptVersion{}, domain.BusinessLogicError{Msg: fmt.Sprintf("concept %s is %s; only drafts can be approved", uid, head.Status)}
	}
	next := head.Clone()
	next.Status = domain.ConceptStatusFinal
	next.Version = head.Version.NextMajor()
	next.ChangeDescription = domain.ChangeDescriptionApproved
	next.Author = author
	return tx.AppendConceptVersion(uid, next)
}

// ApproveConceptCascade approves a template concept together with every
// dependent instance the resolver reports that is still in draft. The whole
// cascade commits or fails as one transaction.
func (s *Service) ApproveConceptCascade(ctx context.Context, uid, author string, resolver domain.DependentResolver) (domain.ConceptVersion, error) {
	var approved domain.ConceptVersion
	err := s.runOperation(ctx, "approve_concept", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			approved, err = approveConceptTx(tx, uid, author)
			if err != nil {
				return err
			}
			if resolver == nil {
				return nil
			}
			dependents, err := resolver.Dependents(uid)
			if err != nil {
				return err
			}
			for _, dep := range dependents {
				head, err := conceptHead(tx, dep)
				if err != nil {
					return err
				}
				if head.Status != domain.ConceptStatusDraft {
					continue
				}
				if _, err := approveConceptTx(tx, dep, author); err != nil {
					return err
				}
			}
			return nil
		})
		return uid, err
	})
	return approved, err
}

// CreateConceptNewVersion opens a fresh draft from a final or retired head,
// bumping the minor version. Reopening a retired concept is how a retired
// definition comes back into circulation. A concept has at most one open
// draft at a time.
func (s *Service) CreateConceptNewVersion(ctx context.Context, uid, changeDescription, author string) (domain.ConceptVersion, error) {
	if changeDescription == "" {
		changeDescription = domain.ChangeDescriptionNewVersion
	}
	var created domain.ConceptVersion
	err := s.runOperation(ctx, "new_concept_version", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			head, err := conceptHead(tx, uid)
			if err != nil {
				return err
			}
			if head.Status != domain.ConceptStatusFinal && head.Status != domain.ConceptStatusRetired {
				return domain.BusinessLogicError{Msg: fmt.Sprintf("concept %s is %s; a new version requires a final or retired head", uid, head.Status)}
			}
			next := head.Clone()
			next.Status = domain.ConceptStatusDraft
			next.Version = head.Version.BumpMinor()
			next.ChangeDescription = changeDescription
			next.Author = author
			created, err = tx.AppendConceptVersion(uid, next)
			return err
		})
		return uid, err
	})
	return created, err
}

// InactivateConcept retires a final head. The version number is retained.
func (s *Service) InactivateConcept(ctx context.Context, uid, author string) (domain.ConceptVersion, error) {
	return s.transitionConcept(ctx, "inactivate_concept", uid, author,
		domain.ConceptStatusFinal, domain.ConceptStatusRetired, domain.ChangeDescriptionInactivated)
}

// ReactivateConcept returns a retired head to final at its retired version.
func (s *Service) ReactivateConcept(ctx context.Context, uid, author string) (domain.ConceptVersion, error) {
	return s.transitionConcept(ctx, "reactivate_concept", uid, author,
		domain.ConceptStatusRetired, domain.ConceptStatusFinal, domain.ChangeDescriptionReactivated)
}

func (s *Service) transitionConcept(ctx context.Context, operation, uid, author string, from, to domain.ConceptStatus, changeDescription string) (domain.ConceptVersion, error) {
	var updated domain.ConceptVersion
	err := s.runOperation(ctx, operation, func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			head, err := conceptHead(tx, uid)
			if err != nil {
				return err
			}
			if head.Status != from {
				return domain.BusinessLogicError{Msg: fmt.Sprintf("concept %s is %s, expected %s", uid, head.Status, from)}
			}
			next := head.Clone()
			next.Status = to
			next.ChangeDescription = changeDescription
			next.Author = author
			updated, err = tx.AppendConceptVersion(uid, next)
			return err
		})
		return uid, err
	})
	return updated, err
}

// SoftDeleteConcept removes a concept that was never approved. The chain is
// detached from its library but kept for history.
func (s *Service) SoftDeleteConcept(ctx context.Context, uid string) error {
	return s.runOperation(ctx, "delete_concept", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			chain, ok := tx.FindConcept(uid)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
			}
			for _, version := range chain.Versions {
				if version.Version.Approved() {
					return domain.BusinessLogicError{Msg: fmt.Sprintf("concept %s has been approved and can no longer be deleted", uid)}
				}
			}
			return tx.DetachConcept(uid)
		})
		return uid, err
	})
}

// GetConcept returns a concept's committed version chain.
func (s *Service) GetConcept(ctx context.Context, uid string) (domain.ConceptChain, error) {
	var chain domain.ConceptChain
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		found, ok := view.FindConcept(uid)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
		}
		chain = found
		return nil
	})
	return chain, err
}

// FindConceptHistory returns the concept's version history, newest first.
func (s *Service) FindConceptHistory(ctx context.Context, uid string) ([]domain.ConceptHistoryRecord, error) {
	chain, err := s.GetConcept(ctx, uid)
	if err != nil {
		return nil, err
	}
	records := make([]domain.ConceptHistoryRecord, 0, len(chain.Versions))
	for i := len(chain.Versions) - 1; i >= 0; i-- {
		v := chain.Versions[i]
		records = append(records, domain.ConceptHistoryRecord{
			Version:           v.Version,
			Status:            v.Status,
			ChangeDescription: v.ChangeDescription,
			Author:            v.Author,
			StartDate:         v.StartDate,
			EndDate:           v.EndDate,
		})
	}
	return records, nil
}

func conceptHead(tx domain.Transaction, uid string) (domain.ConceptVersion, error) {
	chain, ok := tx.FindConcept(uid)
	if !ok {
		return domain.ConceptVersion{}, domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
	}
	head, ok := chain.Latest()
	if !ok {
		return domain.ConceptVersion{}, domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
	}
	return head, nil
}
