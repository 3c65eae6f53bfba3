package domain

import (
	"context"
	"time"
)

// Transaction exposes the graph mutations a storage implementation must
// support within one atomic scope. All methods operate on the transactional
// snapshot; nothing is visible to other readers until commit.
type Transaction interface {
	Snapshot() TransactionView

	CreateStudy(Study) (Study, error)
	UpdateStudy(uid string, mutator func(*Study) error) (Study, error)
	// BumpStudyRevision performs the optimistic compare-and-increment on
	// the study's current value node. A mismatch between expected and the
	// stored revision fails with ConcurrentModificationError.
	BumpStudyRevision(uid string, expected int64) (int64, error)

	CreateLibrary(Library) (Library, error)
	CreateConcept(ConceptVersion) (ConceptVersion, error)
	// AppendConceptVersion closes the chain head (sets its EndDate) and
	// appends the next value node.
	AppendConceptVersion(uid string, next ConceptVersion) (ConceptVersion, error)
	// DetachConcept removes a never-approved draft from its library while
	// retaining the chain for history.
	DetachConcept(uid string) error

	// AttachSelection creates a new selection node instance and connects it
	// to the study's current view.
	AttachSelection(studyUID string, sel Selection) (SelectionNode, error)
	// DetachSelection disconnects the current node for the uid from the
	// study's current view, retaining it for the audit chain.
	DetachSelection(studyUID string, kind SelectionKind, selectionUID string) (SelectionNode, error)

	AppendAuditAction(AuditAction) (AuditAction, error)

	// NextUID reserves the next value of the per-entity-type monotonic
	// counter, formatted "<EntityType>_NNNNNN".
	NextUID(entityType string) (string, error)

	FindStudy(uid string) (Study, bool)
	FindLibrary(name string) (Library, bool)
	FindConcept(uid string) (ConceptChain, bool)
}

// TransactionView provides read-only access to transactional state.
type TransactionView interface {
	RuleView
	SelectionNodes(studyUID string, kind SelectionKind) []SelectionNode
	AuditTrail(studyUID string) []AuditAction
	ListConcepts() []ConceptChain
}

// GraphStore is the storage adapter contract the repositories are written
// against. Implementations provide atomic transactions with commit-time rule
// evaluation plus committed-state read helpers.
type GraphStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	FindStudy(uid string) (Study, bool)
	ListStudies() []Study
	FindLibrary(name string) (Library, bool)
	FindConcept(uid string) (ConceptChain, bool)
	ListConcepts() []ConceptChain
	CurrentSelections(studyUID string, kind SelectionKind) []Selection
	SelectionNodes(studyUID string, kind SelectionKind) []SelectionNode
	AuditTrail(studyUID string) []AuditAction
	NowFunc() func() time.Time
}
