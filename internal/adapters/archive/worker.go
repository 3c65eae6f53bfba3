// Package archive persists study snapshots asynchronously. Release and lock
// transitions enqueue a snapshot; the worker renders it into immutable JSON
// and CSV artifacts and writes them to an object store.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"studycore/internal/blob"
	"studycore/pkg/domain"
)

// JobStatus describes the lifecycle stage of an archive request.
type JobStatus string

// Archive job statuses.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Artifact captures one stored archive object.
type Artifact struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ETag        string    `json:"etag,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job tracks an archive request and its resulting artifacts.
type Job struct {
	ID          string     `json:"id"`
	StudyUID    string     `json:"study_uid"`
	StudyStatus string     `json:"study_status"`
	RequestedBy string     `json:"requested_by"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AuditLog records archive lifecycle entries.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit metadata for one archive transition.
type AuditEntry struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	StudyUID   string    `json:"study_uid"`
	Actor      string    `json:"actor"`
	Status     JobStatus `json:"status"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Worker archives study snapshots asynchronously.
type Worker struct {
	store blob.Store
	audit AuditLog

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id       string
	snapshot domain.StudySnapshot
}

// NewWorker constructs an archive worker writing to the given object store.
// The audit log may be nil.
func NewWorker(store blob.Store, audit AuditLog) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:  store,
		audit:  audit,
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing archive requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for in-flight work to finish.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// EnqueueSnapshot schedules a snapshot for archival and returns the job id.
func (w *Worker) EnqueueSnapshot(ctx context.Context, snapshot domain.StudySnapshot, requestedBy string) (string, error) {
	if w.store == nil {
		return "", fmt.Errorf("archive object store not configured")
	}
	if snapshot.Study.UID == "" {
		return "", fmt.Errorf("snapshot study uid required")
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	job := Job{
		ID:          id,
		StudyUID:    snapshot.Study.UID,
		StudyStatus: string(snapshot.Study.Status),
		RequestedBy: requestedBy,
		Status:      JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &job
	w.mu.Unlock()

	w.record(ctx, id, JobStatusQueued, "")

	select {
	case w.queue <- task{id: id, snapshot: snapshot}:
	default:
		w.fail(id, "archive queue full")
		return "", fmt.Errorf("archive queue full")
	}
	return id, nil
}

// GetJob returns a snapshot of the archive job record.
func (w *Worker) GetJob(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

func (w *Worker) process(t task) {
	w.updateStatus(t.id, JobStatusRunning, "")

	prefix := fmt.Sprintf("studies/%s/%s", t.snapshot.Study.UID, t.snapshot.TakenAt.UTC().Format("20060102T150405Z"))

	snapshotPayload, err := json.MarshalIndent(t.snapshot, "", "  ")
	if err != nil {
		w.fail(t.id, fmt.Sprintf("encode snapshot: %v", err))
		return
	}
	historyPayload, err := renderHistoryCSV(t.snapshot)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("render history: %v", err))
		return
	}

	artifacts := make([]Artifact, 0, 2)
	for _, part := range []struct {
		key         string
		contentType string
		payload     []byte
	}{
		{key: prefix + "/snapshot.json", contentType: "application/json", payload: snapshotPayload},
		{key: prefix + "/history.csv", contentType: "text/csv", payload: historyPayload},
	} {
		info, err := w.store.Put(w.ctx, part.key, bytes.NewReader(part.payload), blob.PutOptions{
			ContentType: part.contentType,
			Metadata: map[string]string{
				"study_uid": t.snapshot.Study.UID,
				"job_id":    t.id,
			},
		})
		if err != nil {
			w.fail(t.id, fmt.Sprintf("store artifact %s: %v", part.key, err))
			return
		}
		artifacts = append(artifacts, Artifact{
			Key:         info.Key,
			ContentType: part.contentType,
			SizeBytes:   info.Size,
			ETag:        info.ETag,
			URL:         info.URL,
			CreatedAt:   info.LastModified,
		})
	}

	w.complete(t.id, artifacts)
}

var historyHeader = []string{"kind", "selection_uid", "change_type", "order", "label", "author", "start_date", "end_date"}

func renderHistoryCSV(snapshot domain.StudySnapshot) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(historyHeader); err != nil {
		return nil, err
	}
	for _, kind := range []domain.SelectionKind{domain.SelectionEndpoint, domain.SelectionArm, domain.SelectionDesignCell} {
		for _, rec := range snapshot.History[kind] {
			end := ""
			if rec.EndDate != nil {
				end = rec.EndDate.UTC().Format(time.RFC3339)
			}
			row := []string{
				string(rec.Kind),
				rec.SelectionUID,
				string(rec.ChangeType),
				strconv.Itoa(rec.Selection.Order),
				rec.Selection.Label,
				rec.Author,
				rec.StartDate.UTC().Format(time.RFC3339),
				end,
			}
			if err := writer.Write(row); err != nil {
				return nil, err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Worker) updateStatus(id string, status JobStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = status
		job.Error = message
		job.UpdatedAt = now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, status, message)
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = JobStatusSucceeded
		job.Error = ""
		job.Artifacts = artifacts
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, JobStatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = JobStatusFailed
		job.Error = reason
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, JobStatusFailed, reason)
}

func (w *Worker) record(ctx context.Context, jobID string, status JobStatus, note string) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	var studyUID, actor string
	if job, ok := w.jobs[jobID]; ok {
		studyUID = job.StudyUID
		actor = job.RequestedBy
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		JobID:      jobID,
		StudyUID:   studyUID,
		Actor:      actor,
		Status:     status,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func (j *Job) copy() Job {
	dup := *j
	if len(j.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), j.Artifacts...)
	}
	return dup
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
