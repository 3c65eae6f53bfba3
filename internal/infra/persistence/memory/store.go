// Package memory provides the in-memory implementation of the graph storage
// adapter, used directly for tests and as the transactional engine behind
// the durable sqlite and postgres stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"studycore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the storage adapter interface.
var _ domain.GraphStore = (*Store)(nil)

type memoryState struct {
	studies    map[string]domain.Study
	libraries  map[string]domain.Library
	concepts   map[string]domain.ConceptChain
	selections map[string]map[domain.SelectionKind][]domain.SelectionNode
	audit      map[string][]domain.AuditAction
	counters   map[string]int64
}

func newMemoryState() memoryState {
	return memoryState{
		studies:    make(map[string]domain.Study),
		libraries:  make(map[string]domain.Library),
		concepts:   make(map[string]domain.ConceptChain),
		selections: make(map[string]map[domain.SelectionKind][]domain.SelectionNode),
		audit:      make(map[string][]domain.AuditAction),
		counters:   make(map[string]int64),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.studies {
		cloned.studies[k] = v
	}
	for k, v := range s.libraries {
		cloned.libraries[k] = v
	}
	for k, v := range s.concepts {
		cloned.concepts[k] = v.Clone()
	}
	for study, kinds := range s.selections {
		byKind := make(map[domain.SelectionKind][]domain.SelectionNode, len(kinds))
		for kind, nodes := range kinds {
			cp := make([]domain.SelectionNode, len(nodes))
			for i, n := range nodes {
				cp[i] = n.Clone()
			}
			byKind[kind] = cp
		}
		cloned.selections[study] = byKind
	}
	for study, trail := range s.audit {
		cloned.audit[study] = append([]domain.AuditAction(nil), trail...)
	}
	for k, v := range s.counters {
		cloned.counters[k] = v
	}
	return cloned
}

// Store provides an in-memory transactional graph store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// NowFunc returns the store clock used to timestamp transactions.
func (s *Store) NowFunc() func() time.Time {
	return s.nowFn
}

// SetNowFunc overrides the store clock. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	state   memoryState
	changes []domain.Change
	now     time.Time
}

// TransactionView exposes a read-only snapshot of the transactional state.
type TransactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return TransactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store
// state. Registered rules are evaluated over the resulting change feed
// before commit; blocking violations abort with RuleViolationError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *Transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

func payloadOf(label string, value any) domain.ChangePayload {
	payload, err := domain.NewChangePayloadFromValue(value)
	if err != nil {
		panic(fmt.Errorf("memory store %s payload: %w", label, err))
	}
	return payload
}

// Snapshot exposes the transactional state to repositories and rules.
func (tx *Transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

// CreateStudy stores a new study root. An empty uid draws from the Study counter.
func (tx *Transaction) CreateStudy(study domain.Study) (domain.Study, error) {
	if study.UID == "" {
		uid, err := tx.NextUID("Study")
		if err != nil {
			return domain.Study{}, err
		}
		study.UID = uid
	}
	if _, exists := tx.state.studies[study.UID]; exists {
		return domain.Study{}, domain.BusinessLogicError{Msg: fmt.Sprintf("study %q already exists", study.UID)}
	}
	if study.Status == "" {
		study.Status = domain.StudyStatusDraft
	}
	study.Revision = 0
	study.CreatedAt = tx.now
	study.UpdatedAt = tx.now
	tx.state.studies[study.UID] = study
	tx.recordChange(domain.Change{
		Entity: domain.EntityStudy,
		Action: domain.ActionCreate,
		After:  payloadOf("study", study),
	})
	return study, nil
}

// UpdateStudy mutates a study using the provided mutator function.
func (tx *Transaction) UpdateStudy(uid string, mutator func(*domain.Study) error) (domain.Study, error) {
	current, ok := tx.state.studies[uid]
	if !ok {
		return domain.Study{}, domain.NotFoundError{Entity: domain.EntityStudy, UID: uid}
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.Study{}, err
	}
	current.UID = uid
	current.UpdatedAt = tx.now
	tx.state.studies[uid] = current
	tx.recordChange(domain.Change{
		Entity: domain.EntityStudy,
		Action: domain.ActionUpdate,
		Before: payloadOf("study", before),
		After:  payloadOf("study", current),
	})
	return current, nil
}

// BumpStudyRevision compares the stored revision token against expected and
// increments it, failing with ConcurrentModificationError on mismatch.
func (tx *Transaction) BumpStudyRevision(uid string, expected int64) (int64, error) {
	current, ok := tx.state.studies[uid]
	if !ok {
		return 0, domain.NotFoundError{Entity: domain.EntityStudy, UID: uid}
	}
	if current.Revision != expected {
		return 0, domain.ConcurrentModificationError{StudyUID: uid, Expected: expected, Actual: current.Revision}
	}
	current.Revision++
	current.UpdatedAt = tx.now
	tx.state.studies[uid] = current
	return current.Revision, nil
}

// CreateLibrary stores a new concept library.
func (tx *Transaction) CreateLibrary(library domain.Library) (domain.Library, error) {
	if library.Name == "" {
		return domain.Library{}, domain.BusinessLogicError{Msg: "library name must not be empty"}
	}
	if _, exists := tx.state.libraries[library.Name]; exists {
		return domain.Library{}, domain.BusinessLogicError{Msg: fmt.Sprintf("library %q already exists", library.Name)}
	}
	library.CreatedAt = tx.now
	tx.state.libraries[library.Name] = library
	tx.recordChange(domain.Change{
		Entity: domain.EntityLibrary,
		Action: domain.ActionCreate,
		After:  payloadOf("library", library),
	})
	return library, nil
}

// CreateConcept opens a new version chain with the given initial value node.
func (tx *Transaction) CreateConcept(initial domain.ConceptVersion) (domain.ConceptVersion, error) {
	if initial.UID == "" {
		return domain.ConceptVersion{}, domain.BusinessLogicError{Msg: "concept uid must not be empty"}
	}
	if _, exists := tx.state.concepts[initial.UID]; exists {
		return domain.ConceptVersion{}, domain.BusinessLogicError{Msg: fmt.Sprintf("concept %q already exists", initial.UID)}
	}
	initial.StartDate = tx.now
	initial.EndDate = nil
	tx.state.concepts[initial.UID] = domain.ConceptChain{Versions: []domain.ConceptVersion{initial.Clone()}}
	tx.recordChange(domain.Change{
		Entity: domain.EntityConcept,
		Action: domain.ActionCreate,
		After:  payloadOf("concept", initial),
	})
	return initial, nil
}

// AppendConceptVersion closes the chain head and appends the next value node.
func (tx *Transaction) AppendConceptVersion(uid string, next domain.ConceptVersion) (domain.ConceptVersion, error) {
	chain, ok := tx.state.concepts[uid]
	if !ok || chain.Deleted {
		return domain.ConceptVersion{}, domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
	}
	chain = chain.Clone()
	head := &chain.Versions[len(chain.Versions)-1]
	before := head.Clone()
	end := tx.now
	head.EndDate = &end
	next.UID = uid
	next.StartDate = tx.now
	next.EndDate = nil
	chain.Versions = append(chain.Versions, next.Clone())
	tx.state.concepts[uid] = chain
	tx.recordChange(domain.Change{
		Entity: domain.EntityConcept,
		Action: domain.ActionUpdate,
		Before: payloadOf("concept", before),
		After:  payloadOf("concept", next),
	})
	return next, nil
}

// DetachConcept removes a chain from its library's visible set while
// retaining the version history.
func (tx *Transaction) DetachConcept(uid string) error {
	chain, ok := tx.state.concepts[uid]
	if !ok || chain.Deleted {
		return domain.NotFoundError{Entity: domain.EntityConcept, UID: uid}
	}
	chain = chain.Clone()
	before, _ := chain.Latest()
	chain.Deleted = true
	tx.state.concepts[uid] = chain
	tx.recordChange(domain.Change{
		Entity: domain.EntityConcept,
		Action: domain.ActionDelete,
		Before: payloadOf("concept", before),
	})
	return nil
}

// AttachSelection creates a new selection node instance connected to the
// study's current view.
func (tx *Transaction) AttachSelection(studyUID string, sel domain.Selection) (domain.SelectionNode, error) {
	if _, ok := tx.state.studies[studyUID]; !ok {
		return domain.SelectionNode{}, domain.NotFoundError{Entity: domain.EntityStudy, UID: studyUID}
	}
	if sel.SelectionUID == "" {
		return domain.SelectionNode{}, domain.BusinessLogicError{Msg: "selection uid must not be empty"}
	}
	byKind, ok := tx.state.selections[studyUID]
	if !ok {
		byKind = make(map[domain.SelectionKind][]domain.SelectionNode)
		tx.state.selections[studyUID] = byKind
	}
	nodes := byKind[sel.Kind]
	seq := 0
	for _, n := range nodes {
		if n.Selection.SelectionUID == sel.SelectionUID {
			seq = n.VersionSeq
		}
	}
	seq++
	sel.StartDate = tx.now
	node := domain.SelectionNode{
		InstanceID: fmt.Sprintf("%s#%d", sel.SelectionUID, seq),
		VersionSeq: seq,
		Current:    true,
		Selection:  sel,
	}
	byKind[sel.Kind] = append(nodes, node)
	tx.recordChange(domain.Change{
		Entity: domain.EntitySelection,
		Action: domain.ActionCreate,
		After:  payloadOf("selection", domain.SelectionChange{StudyUID: studyUID, Selection: sel}),
	})
	return node.Clone(), nil
}

// DetachSelection disconnects the current node for the given uid from the
// study's current view. The node is retained with its end date set so the
// audit chain stays intact.
func (tx *Transaction) DetachSelection(studyUID string, kind domain.SelectionKind, selectionUID string) (domain.SelectionNode, error) {
	nodes := tx.state.selections[studyUID][kind]
	for i := range nodes {
		if !nodes[i].Current || nodes[i].Selection.SelectionUID != selectionUID {
			continue
		}
		end := tx.now
		nodes[i].Current = false
		nodes[i].EndDate = &end
		tx.recordChange(domain.Change{
			Entity: domain.EntitySelection,
			Action: domain.ActionDelete,
			Before: payloadOf("selection", domain.SelectionChange{StudyUID: studyUID, Selection: nodes[i].Selection}),
		})
		return nodes[i].Clone(), nil
	}
	return domain.SelectionNode{}, domain.NotFoundError{Entity: domain.EntitySelection, UID: selectionUID}
}

// AppendAuditAction appends an immutable action node to the study's audit
// trail. An empty ID draws from the StudyAction counter.
func (tx *Transaction) AppendAuditAction(action domain.AuditAction) (domain.AuditAction, error) {
	if _, ok := tx.state.studies[action.StudyUID]; !ok {
		return domain.AuditAction{}, domain.NotFoundError{Entity: domain.EntityStudy, UID: action.StudyUID}
	}
	if action.ID == "" {
		id, err := tx.NextUID("StudyAction")
		if err != nil {
			return domain.AuditAction{}, err
		}
		action.ID = id
	}
	if action.Date.IsZero() {
		action.Date = tx.now
	}
	tx.state.audit[action.StudyUID] = append(tx.state.audit[action.StudyUID], action)
	tx.recordChange(domain.Change{
		Entity: domain.EntityAuditAction,
		Action: domain.ActionCreate,
		After:  payloadOf("audit action", action),
	})
	return action, nil
}

// NextUID reserves the next value of the per-entity-type monotonic counter.
func (tx *Transaction) NextUID(entityType string) (string, error) {
	if entityType == "" {
		return "", domain.BusinessLogicError{Msg: "entity type must not be empty"}
	}
	tx.state.counters[entityType]++
	return fmt.Sprintf("%s_%06d", entityType, tx.state.counters[entityType]), nil
}

// FindStudy retrieves a study from the transactional state.
func (tx *Transaction) FindStudy(uid string) (domain.Study, bool) {
	study, ok := tx.state.studies[uid]
	return study, ok
}

// FindLibrary retrieves a library from the transactional state.
func (tx *Transaction) FindLibrary(name string) (domain.Library, bool) {
	library, ok := tx.state.libraries[name]
	return library, ok
}

// FindConcept retrieves a concept chain from the transactional state.
func (tx *Transaction) FindConcept(uid string) (domain.ConceptChain, bool) {
	chain, ok := tx.state.concepts[uid]
	if !ok || chain.Deleted {
		return domain.ConceptChain{}, false
	}
	return chain.Clone(), true
}

// View methods --------------------------------------------------------------

// ListStudies returns all studies within the snapshot.
func (v TransactionView) ListStudies() []domain.Study {
	out := make([]domain.Study, 0, len(v.state.studies))
	for _, s := range v.state.studies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// FindStudy retrieves a study by uid from the snapshot.
func (v TransactionView) FindStudy(uid string) (domain.Study, bool) {
	s, ok := v.state.studies[uid]
	return s, ok
}

// FindLibrary retrieves a library by name from the snapshot.
func (v TransactionView) FindLibrary(name string) (domain.Library, bool) {
	l, ok := v.state.libraries[name]
	return l, ok
}

// FindConcept retrieves a concept chain by uid from the snapshot.
func (v TransactionView) FindConcept(uid string) (domain.ConceptChain, bool) {
	chain, ok := v.state.concepts[uid]
	if !ok || chain.Deleted {
		return domain.ConceptChain{}, false
	}
	return chain.Clone(), true
}

// ListConcepts returns all non-deleted concept chains in the snapshot.
func (v TransactionView) ListConcepts() []domain.ConceptChain {
	out := make([]domain.ConceptChain, 0, len(v.state.concepts))
	for _, chain := range v.state.concepts {
		if chain.Deleted {
			continue
		}
		out = append(out, chain.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return chainUID(out[i]) < chainUID(out[j])
	})
	return out
}

// CurrentSelections returns the study's current selection list for the
// given kind, ordered by position.
func (v TransactionView) CurrentSelections(studyUID string, kind domain.SelectionKind) []domain.Selection {
	return currentSelections(v.state, studyUID, kind)
}

// SelectionNodes returns every persisted node (current and superseded) for
// the study and kind.
func (v TransactionView) SelectionNodes(studyUID string, kind domain.SelectionKind) []domain.SelectionNode {
	nodes := v.state.selections[studyUID][kind]
	out := make([]domain.SelectionNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// AuditTrail returns the study's audit action sequence in append order.
func (v TransactionView) AuditTrail(studyUID string) []domain.AuditAction {
	return append([]domain.AuditAction(nil), v.state.audit[studyUID]...)
}

func chainUID(c domain.ConceptChain) string {
	if len(c.Versions) == 0 {
		return ""
	}
	return c.Versions[0].UID
}

func currentSelections(state *memoryState, studyUID string, kind domain.SelectionKind) []domain.Selection {
	nodes := state.selections[studyUID][kind]
	out := make([]domain.Selection, 0, len(nodes))
	for _, n := range nodes {
		if n.Current {
			out = append(out, n.Selection)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Committed-state read helpers ----------------------------------------------

// FindStudy retrieves a study by uid from committed state.
func (s *Store) FindStudy(uid string) (domain.Study, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.studies[uid]
	return st, ok
}

// ListStudies returns all studies from committed state.
func (s *Store) ListStudies() []domain.Study {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := newTransactionView(&s.state)
	return view.ListStudies()
}

// FindLibrary retrieves a library by name from committed state.
func (s *Store) FindLibrary(name string) (domain.Library, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.libraries[name]
	return l, ok
}

// FindConcept retrieves a concept chain by uid from committed state.
func (s *Store) FindConcept(uid string) (domain.ConceptChain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := newTransactionView(&s.state)
	return view.FindConcept(uid)
}

// ListConcepts returns all non-deleted concept chains from committed state.
func (s *Store) ListConcepts() []domain.ConceptChain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := newTransactionView(&s.state)
	return view.ListConcepts()
}

// CurrentSelections returns the committed current selection list.
func (s *Store) CurrentSelections(studyUID string, kind domain.SelectionKind) []domain.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return currentSelections(&s.state, studyUID, kind)
}

// SelectionNodes returns all committed nodes for the study and kind.
func (s *Store) SelectionNodes(studyUID string, kind domain.SelectionKind) []domain.SelectionNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := newTransactionView(&s.state)
	return view.SelectionNodes(studyUID, kind)
}

// AuditTrail returns the study's committed audit action sequence.
func (s *Store) AuditTrail(studyUID string) []domain.AuditAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := newTransactionView(&s.state)
	return view.AuditTrail(studyUID)
}
