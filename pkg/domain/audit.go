package domain

import "time"

// ActionKind labels an audit action node. It is derived from the diff, not
// from iteration state: present in closure only means delete, present in
// both means edit, present in the current list only means create.
type ActionKind string

// Audit action kinds.
const (
	ActionKindCreate ActionKind = "create"
	ActionKindEdit   ActionKind = "edit"
	ActionKindDelete ActionKind = "delete"
)

// AuditAction is an immutable history node recording one selection
// transition. BeforeRef points at the superseded node instance, AfterRef at
// the superseding one; one or the other is empty for creates and deletes.
// Actions are appended to the study's audit trail and never mutated.
type AuditAction struct {
	ID            string        `json:"id"`
	StudyUID      string        `json:"study_uid"`
	SelectionKind SelectionKind `json:"selection_kind"`
	SelectionUID  string        `json:"selection_uid"`
	Kind          ActionKind    `json:"kind"`
	BeforeRef     string        `json:"before_ref,omitempty"`
	AfterRef      string        `json:"after_ref,omitempty"`
	Author        string        `json:"author"`
	Date          time.Time     `json:"date"`
}

// HistoryRecord is one reconstructed version of a selection, labeled with
// the transition that produced it. EndDate is nil while the version is
// still current.
type HistoryRecord struct {
	StudyUID     string        `json:"study_uid"`
	SelectionUID string        `json:"selection_uid"`
	Kind         SelectionKind `json:"kind"`
	ChangeType   ActionKind    `json:"change_type"`
	Selection    Selection     `json:"selection"`
	Author       string        `json:"author"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      *time.Time    `json:"end_date,omitempty"`
}

// ConceptHistoryRecord is one entry of a concept's version history.
type ConceptHistoryRecord struct {
	Version           VersionNumber `json:"version"`
	Status            ConceptStatus `json:"status"`
	ChangeDescription string        `json:"change_description"`
	Author            string        `json:"author"`
	StartDate         time.Time     `json:"start_date"`
	EndDate           *time.Time    `json:"end_date,omitempty"`
}
