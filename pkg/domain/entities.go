// Package domain defines the persistent entities, value objects, and rule
// evaluation primitives shared by the studycore services and storage adapters.
package domain

import "time"

// EntityType identifies the type of record stored in the metadata repository.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityStudy identifies a study root record.
	EntityStudy EntityType = "study"
	// EntityLibrary identifies a concept library record.
	EntityLibrary EntityType = "library"
	// EntityConcept identifies a versioned library concept record.
	EntityConcept EntityType = "concept"
	// EntitySelection identifies a per-study selection record.
	EntitySelection EntityType = "study_selection"
	// EntityAuditAction identifies an audit trail action record.
	EntityAuditAction EntityType = "audit_action"
)

// StudyStatus enumerates the study lifecycle states that gate selection edits.
type StudyStatus string

// Canonical study statuses. Released and locked studies reject all selection mutation.
const (
	StudyStatusDraft    StudyStatus = "draft"
	StudyStatusReleased StudyStatus = "released"
	StudyStatusLocked   StudyStatus = "locked"
)

// Study is the root record selections hang off. Revision is the optimistic
// concurrency token on the study's current value node: every committed
// selection mutation increments it, and writers holding a stale token fail.
type Study struct {
	UID           string      `json:"uid"`
	ProjectName   string      `json:"project_name"`
	ProjectNumber string      `json:"project_number"`
	Status        StudyStatus `json:"status"`
	Revision      int64       `json:"revision"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Editable reports whether selection mutations are permitted for the study.
func (s Study) Editable() bool { return s.Status == StudyStatusDraft }

// Library groups concepts under a shared editability policy. Non-editable
// libraries (e.g. imported controlled terminology) reject concept creation.
type Library struct {
	Name       string    `json:"name"`
	IsEditable bool      `json:"is_editable"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProjectFilter narrows FindAll results by project metadata. Zero values match everything.
type ProjectFilter struct {
	ProjectName   string
	ProjectNumber string
}

// Matches reports whether the study satisfies the filter.
func (f ProjectFilter) Matches(s Study) bool {
	if f.ProjectName != "" && f.ProjectName != s.ProjectName {
		return false
	}
	if f.ProjectNumber != "" && f.ProjectNumber != s.ProjectNumber {
		return false
	}
	return true
}

// Change describes a mutation applied to an entity during a transaction.
// Before and After hold JSON snapshots consumed by commit-time rules.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the change feed.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
