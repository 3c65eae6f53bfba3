package core

import (
	"context"
	"fmt"

	"studycore/pkg/domain"
)

// ResolverSet carries the entity-specific reference resolution and
// referential-integrity callbacks a selection repository applies during
// reconciliation. Nil members skip the corresponding check.
type ResolverSet struct {
	Terms  domain.TermResolver
	Units  domain.UnitResolver
	Checks []domain.IntegrityChecker
}

// SelectionRepository persists one selection kind's aggregates against the
// graph store. The reconciliation protocol is identical across kinds; only
// the resolver set differs.
type SelectionRepository struct {
	store     domain.GraphStore
	kind      domain.SelectionKind
	resolvers ResolverSet
	logger    Logger
	clock     Clock
}

// NewSelectionRepository constructs a repository for the given selection kind.
func NewSelectionRepository(store domain.GraphStore, kind domain.SelectionKind, resolvers ResolverSet) *SelectionRepository {
	repo := &SelectionRepository{
		store:     store,
		kind:      kind,
		resolvers: resolvers,
		logger:    noopLogger{},
	}
	if nowFn := store.NowFunc(); nowFn != nil {
		repo.clock = ClockFunc(nowFn)
	} else {
		repo.clock = ClockFunc(defaultNow)
	}
	return repo
}

// Kind returns the selection kind this repository manages.
func (r *SelectionRepository) Kind() domain.SelectionKind { return r.kind }

// SetLogger installs a logger; used by the service to share its own.
func (r *SelectionRepository) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// FindByStudy loads the study's current selection list into a fresh
// aggregate. With forUpdate the aggregate additionally captures closure
// data and the study's revision token, arming it for Save.
func (r *SelectionRepository) FindByStudy(ctx context.Context, studyUID string, forUpdate bool) (*domain.SelectionGroup, error) {
	var group *domain.SelectionGroup
	err := r.store.View(ctx, func(view domain.TransactionView) error {
		study, ok := view.FindStudy(studyUID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityStudy, UID: studyUID}
		}
		group = domain.NewSelectionGroup(studyUID, r.kind, view.CurrentSelections(studyUID, r.kind))
		if forUpdate {
			group.BeginUpdate(study.Revision)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// FindAll returns one read-only aggregate per study matching the filter.
func (r *SelectionRepository) FindAll(ctx context.Context, filter domain.ProjectFilter) ([]*domain.SelectionGroup, error) {
	var groups []*domain.SelectionGroup
	err := r.store.View(ctx, func(view domain.TransactionView) error {
		for _, study := range view.ListStudies() {
			if !filter.Matches(study) {
				continue
			}
			groups = append(groups, domain.NewSelectionGroup(study.UID, r.kind, view.CurrentSelections(study.UID, r.kind)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// GenerateUID reserves the next selection uid for this repository's kind.
func (r *SelectionRepository) GenerateUID(ctx context.Context) (string, error) {
	var uid string
	_, err := r.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		uid, err = tx.NextUID(r.kind.UIDPrefix())
		return err
	})
	return uid, err
}

// Save reconciles the aggregate's current list against its closure data and
// applies the resulting plan atomically: detach superseded nodes, attach new
// ones, and append one audit action per transition. Closure data must have
// been captured via a for-update load; a missing closure is a programming
// error and panics. Saving against a released or locked study fails with
// VersioningError before any mutation; a stale revision token fails with
// ConcurrentModificationError. A plan with zero operations leaves the store
// untouched, including the revision token.
func (r *SelectionRepository) Save(ctx context.Context, group *domain.SelectionGroup, author string) error {
	closure, ok := group.Closure()
	if !ok {
		panic("selection aggregate saved without closure data; load it with forUpdate=true")
	}
	current := group.Selections()
	plan := PlanReconciliation(closure, current)

	var newRevision int64
	_, err := r.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		study, found := tx.FindStudy(group.StudyUID())
		if !found {
			return domain.NotFoundError{Entity: domain.EntityStudy, UID: group.StudyUID()}
		}
		if !study.Editable() {
			return domain.VersioningError{StudyUID: study.UID, Status: study.Status}
		}
		if len(plan) == 0 {
			newRevision = group.Revision()
			return nil
		}
		revision, err := tx.BumpStudyRevision(study.UID, group.Revision())
		if err != nil {
			return err
		}
		newRevision = revision

		view := tx.Snapshot()
		for _, op := range plan {
			if op.After == nil {
				continue
			}
			if err := r.resolveReferences(view, study.UID, *op.After, current); err != nil {
				return err
			}
		}

		for _, op := range plan {
			if err := r.applyOp(tx, study.UID, op, author); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	group.CommitClosure(newRevision)
	if len(plan) > 0 {
		r.logger.Debug("selections reconciled",
			"study_uid", group.StudyUID(), "kind", string(r.kind), "operations", len(plan))
	}
	return nil
}

// Delete removes one selection, renumbers the tail so orders stay dense,
// and records the delete action. The selection's history remains queryable.
func (r *SelectionRepository) Delete(ctx context.Context, studyUID, selectionUID, author string) error {
	group, err := r.FindByStudy(ctx, studyUID, true)
	if err != nil {
		return err
	}
	if err := group.Remove(selectionUID); err != nil {
		return err
	}
	return r.Save(ctx, group, author)
}

func (r *SelectionRepository) applyOp(tx domain.Transaction, studyUID string, op SelectionOp, author string) error {
	action := domain.AuditAction{
		StudyUID:      studyUID,
		SelectionKind: r.kind,
		SelectionUID:  op.SelectionUID,
		Author:        author,
		Date:          r.clock.Now(),
	}
	switch op.Kind {
	case OpDelete:
		old, err := tx.DetachSelection(studyUID, r.kind, op.SelectionUID)
		if err != nil {
			return err
		}
		action.Kind = domain.ActionKindDelete
		action.BeforeRef = old.InstanceID
	case OpEdit:
		old, err := tx.DetachSelection(studyUID, r.kind, op.SelectionUID)
		if err != nil {
			return err
		}
		sel := *op.After
		sel.Author = author
		node, err := tx.AttachSelection(studyUID, sel)
		if err != nil {
			return err
		}
		action.Kind = domain.ActionKindEdit
		action.BeforeRef = old.InstanceID
		action.AfterRef = node.InstanceID
	case OpCreate:
		sel := *op.After
		sel.Author = author
		node, err := tx.AttachSelection(studyUID, sel)
		if err != nil {
			return err
		}
		action.Kind = domain.ActionKindCreate
		action.AfterRef = node.InstanceID
	default:
		return domain.BusinessLogicError{Msg: fmt.Sprintf("unknown reconciliation op %q", op.Kind)}
	}
	_, err := tx.AppendAuditAction(action)
	return err
}

func (r *SelectionRepository) resolveReferences(view domain.TransactionView, studyUID string, sel domain.Selection, current []domain.Selection) error {
	if !sel.Concept.IsZero() {
		chain, ok := view.FindConcept(sel.Concept.UID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityConcept, UID: sel.Concept.UID}
		}
		if sel.Concept.Version != "" {
			if _, ok := chain.VersionAt(sel.Concept.Version); !ok {
				return domain.NotFoundError{Entity: domain.EntityConcept, UID: fmt.Sprintf("%s@%s", sel.Concept.UID, sel.Concept.Version)}
			}
		}
	}
	if sel.TermUID != "" && r.resolvers.Terms != nil {
		if err := r.resolvers.Terms.ResolveTerm(view, sel.TermUID); err != nil {
			return err
		}
	}
	if sel.UnitUID != "" && r.resolvers.Units != nil {
		if err := r.resolvers.Units.ResolveUnit(view, sel.UnitUID); err != nil {
			return err
		}
	}
	for _, check := range r.resolvers.Checks {
		if err := check.CheckSelection(view, studyUID, sel, current); err != nil {
			return err
		}
	}
	return nil
}
