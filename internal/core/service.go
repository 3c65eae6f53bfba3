package core

import (
	"context"
	"time"

	"studycore/pkg/domain"
)

// Service exposes higher-level transactional operations over the graph
// store: study lifecycle, library and concept management, and per-kind
// selection repositories.
type Service struct {
	store    domain.GraphStore
	logger   Logger
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	clock    Clock
	archiver Archiver

	endpoints   *SelectionRepository
	arms        *SelectionRepository
	designCells *SelectionRepository
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.GraphStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.clock == nil {
		if nowFn := store.NowFunc(); nowFn != nil {
			svc.clock = ClockFunc(nowFn)
		} else {
			svc.clock = ClockFunc(defaultNow)
		}
	}
	svc.endpoints = NewSelectionRepository(store, domain.SelectionEndpoint, ResolverSet{
		Terms: termResolver{},
		Units: unitResolver{},
	})
	svc.arms = NewSelectionRepository(store, domain.SelectionArm, ResolverSet{
		Terms: termResolver{},
	})
	svc.designCells = NewSelectionRepository(store, domain.SelectionDesignCell, ResolverSet{
		Checks: []domain.IntegrityChecker{designCellChecker{}},
	})
	for _, repo := range []*SelectionRepository{svc.endpoints, svc.arms, svc.designCells} {
		repo.SetLogger(svc.logger)
	}
	return svc
}

// NewInMemoryService creates a service with a fresh in-memory store running
// the given rules engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.GraphStore { return s.store }

// Endpoints returns the study endpoint selection repository.
func (s *Service) Endpoints() *SelectionRepository { return s.endpoints }

// Arms returns the study arm selection repository.
func (s *Service) Arms() *SelectionRepository { return s.arms }

// DesignCells returns the study design cell selection repository.
func (s *Service) DesignCells() *SelectionRepository { return s.designCells }

type operationMetadata struct {
	entity domain.EntityType
	action domain.Action
}

var operationCatalog = map[string]operationMetadata{
	"create_study":        {entity: domain.EntityStudy, action: domain.ActionCreate},
	"update_study":        {entity: domain.EntityStudy, action: domain.ActionUpdate},
	"release_study":       {entity: domain.EntityStudy, action: domain.ActionUpdate},
	"lock_study":          {entity: domain.EntityStudy, action: domain.ActionUpdate},
	"unlock_study":        {entity: domain.EntityStudy, action: domain.ActionUpdate},
	"create_library":      {entity: domain.EntityLibrary, action: domain.ActionCreate},
	"create_concept":      {entity: domain.EntityConcept, action: domain.ActionCreate},
	"edit_concept":        {entity: domain.EntityConcept, action: domain.ActionUpdate},
	"approve_concept":     {entity: domain.EntityConcept, action: domain.ActionUpdate},
	"new_concept_version": {entity: domain.EntityConcept, action: domain.ActionUpdate},
	"inactivate_concept":  {entity: domain.EntityConcept, action: domain.ActionUpdate},
	"reactivate_concept":  {entity: domain.EntityConcept, action: domain.ActionUpdate},
	"delete_concept":      {entity: domain.EntityConcept, action: domain.ActionDelete},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	meta, ok := operationCatalog[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, duration time.Duration, err error) {
	meta, ok := operationCatalog[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// logViolations surfaces non-blocking rule findings; blocking ones already
// aborted the transaction.
func (s *Service) logViolations(operation string, res domain.Result) {
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityBlock {
			continue
		}
		s.logger.Warn("rule violation", "operation", operation, "rule", v.Rule, "severity", string(v.Severity), "message", v.Message)
	}
}

// runOperation wraps a service operation with tracing, metrics and audit
// capture. The callback returns the id of the entity it touched.
func (s *Service) runOperation(ctx context.Context, operation string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	entityID, err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.recordAuditError(ctx, operation, entityID, duration, err)
		s.logger.Error("operation failed", "operation", operation, "entity_id", entityID, "error", err)
		return err
	}
	s.recordAuditSuccess(ctx, operation, entityID, duration)
	s.logger.Debug("operation completed", "operation", operation, "entity_id", entityID)
	return nil
}

// CreateStudy persists a new study in draft status with a zero revision
// token. An empty UID is assigned from the study counter.
func (s *Service) CreateStudy(ctx context.Context, study domain.Study) (domain.Study, error) {
	var created domain.Study
	err := s.runOperation(ctx, "create_study", func(ctx context.Context) (string, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateStudy(study)
			return err
		})
		s.logViolations("create_study", res)
		return created.UID, err
	})
	return created, err
}

// UpdateStudy mutates a study using the provided mutator. Status changes go
// through the lifecycle operations instead.
func (s *Service) UpdateStudy(ctx context.Context, uid string, mutator func(*domain.Study) error) (domain.Study, error) {
	var updated domain.Study
	err := s.runOperation(ctx, "update_study", func(ctx context.Context) (string, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateStudy(uid, func(study *domain.Study) error {
				status := study.Status
				if err := mutator(study); err != nil {
					return err
				}
				study.Status = status
				return nil
			})
			return err
		})
		s.logViolations("update_study", res)
		return uid, err
	})
	return updated, err
}

// GetStudy returns the committed state of a study.
func (s *Service) GetStudy(ctx context.Context, uid string) (domain.Study, error) {
	var study domain.Study
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		found, ok := view.FindStudy(uid)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityStudy, UID: uid}
		}
		study = found
		return nil
	})
	return study, err
}

// ListStudies returns the committed studies matching the filter, ordered by uid.
func (s *Service) ListStudies(ctx context.Context, filter domain.ProjectFilter) ([]domain.Study, error) {
	var studies []domain.Study
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, study := range view.ListStudies() {
			if filter.Matches(study) {
				studies = append(studies, study)
			}
		}
		return nil
	})
	return studies, err
}

// ReleaseStudy transitions a draft study to released and hands a snapshot to
// the archiver when one is configured.
func (s *Service) ReleaseStudy(ctx context.Context, uid, requestedBy string) (domain.Study, error) {
	return s.transitionStudy(ctx, "release_study", uid, requestedBy, domain.StudyStatusDraft, domain.StudyStatusReleased, true)
}

// LockStudy transitions a released study to locked, snapshotting it first.
func (s *Service) LockStudy(ctx context.Context, uid, requestedBy string) (domain.Study, error) {
	return s.transitionStudy(ctx, "lock_study", uid, requestedBy, domain.StudyStatusReleased, domain.StudyStatusLocked, true)
}

// UnlockStudy returns a locked study to released. No snapshot is taken.
func (s *Service) UnlockStudy(ctx context.Context, uid, requestedBy string) (domain.Study, error) {
	return s.transitionStudy(ctx, "unlock_study", uid, requestedBy, domain.StudyStatusLocked, domain.StudyStatusReleased, false)
}

func (s *Service) transitionStudy(ctx context.Context, operation, uid, requestedBy string, from, to domain.StudyStatus, archive bool) (domain.Study, error) {
	var updated domain.Study
	err := s.runOperation(ctx, operation, func(ctx context.Context) (string, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateStudy(uid, func(study *domain.Study) error {
				if study.Status != from {
					return domain.VersioningError{StudyUID: uid, Status: study.Status}
				}
				study.Status = to
				return nil
			})
			return err
		})
		s.logViolations(operation, res)
		if err != nil {
			return uid, err
		}
		if archive && s.archiver != nil {
			snapshot, err := s.SnapshotStudy(ctx, uid)
			if err != nil {
				return uid, err
			}
			jobID, err := s.archiver.EnqueueSnapshot(ctx, snapshot, requestedBy)
			if err != nil {
				return uid, err
			}
			s.logger.Info("study snapshot enqueued", "study_uid", uid, "job_id", jobID, "status", string(to))
		}
		return uid, nil
	})
	return updated, err
}

// SnapshotStudy captures the study's current selections and full selection
// history across every kind, for archival.
func (s *Service) SnapshotStudy(ctx context.Context, uid string) (domain.StudySnapshot, error) {
	snapshot := domain.StudySnapshot{
		Selections: make(map[domain.SelectionKind][]domain.Selection),
		History:    make(map[domain.SelectionKind][]domain.HistoryRecord),
	}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		study, ok := view.FindStudy(uid)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityStudy, UID: uid}
		}
		snapshot.Study = study
		snapshot.TakenAt = s.clock.Now()
		for _, kind := range []domain.SelectionKind{domain.SelectionEndpoint, domain.SelectionArm, domain.SelectionDesignCell} {
			snapshot.Selections[kind] = view.CurrentSelections(uid, kind)
			snapshot.History[kind] = buildSelectionHistory(view, uid, kind, "")
		}
		return nil
	})
	return snapshot, err
}

// CreateLibrary persists a library definition.
func (s *Service) CreateLibrary(ctx context.Context, library domain.Library) (domain.Library, error) {
	var created domain.Library
	err := s.runOperation(ctx, "create_library", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateLibrary(library)
			return err
		})
		return created.Name, err
	})
	return created, err
}
