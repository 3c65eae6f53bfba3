package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SelectionKind identifies a per-study ordered selection family. Every kind
// instantiates the same reconciliation protocol.
type SelectionKind string

// Canonical selection kinds managed by the study repositories.
const (
	SelectionEndpoint   SelectionKind = "study_endpoint"
	SelectionArm        SelectionKind = "study_arm"
	SelectionDesignCell SelectionKind = "study_design_cell"
)

// UIDPrefix returns the entity-type prefix used for generated selection uids.
func (k SelectionKind) UIDPrefix() string {
	switch k {
	case SelectionEndpoint:
		return "StudyEndpoint"
	case SelectionArm:
		return "StudyArm"
	case SelectionDesignCell:
		return "StudyDesignCell"
	}
	return "StudySelection"
}

// ConceptRef pins a library concept reference at an exact version.
type ConceptRef struct {
	UID     string `json:"uid,omitempty"`
	Version string `json:"version,omitempty"`
}

// IsZero reports whether the reference is unset.
func (r ConceptRef) IsZero() bool { return r.UID == "" }

// Selection is one row of a study's ordered selection list. Selections are
// immutable value objects: an update replaces the whole value at the same
// uid, never mutates it in place. SelectionUID is stable across edits and
// changes only on a true delete-and-recreate.
type Selection struct {
	SelectionUID string        `json:"selection_uid"`
	Kind         SelectionKind `json:"kind"`
	Order        int           `json:"order"`
	Concept      ConceptRef    `json:"concept,omitzero"`
	TermUID      string        `json:"term_uid,omitempty"`
	UnitUID      string        `json:"unit_uid,omitempty"`
	ArmUID       string        `json:"arm_uid,omitempty"`
	EpochUID     string        `json:"epoch_uid,omitempty"`
	Label        string        `json:"label,omitempty"`
	Author       string        `json:"author"`
	StartDate    time.Time     `json:"start_date"`
}

// selectionContent is the hashed subset of a selection. Order is excluded so
// a pure reorder is distinguishable from a content edit; author and start
// date are excluded because they describe the write, not the value.
type selectionContent struct {
	SelectionUID string        `json:"selection_uid"`
	Kind         SelectionKind `json:"kind"`
	Concept      ConceptRef    `json:"concept"`
	TermUID      string        `json:"term_uid"`
	UnitUID      string        `json:"unit_uid"`
	ArmUID       string        `json:"arm_uid"`
	EpochUID     string        `json:"epoch_uid"`
	Label        string        `json:"label"`
}

// ContentHash returns a stable digest of the selection's identity-bearing
// fields. Two selections with equal hashes and equal order reconcile to a
// no-op; this replaces host-language object identity as the change contract.
func (s Selection) ContentHash() string {
	raw, err := json.Marshal(selectionContent{
		SelectionUID: s.SelectionUID,
		Kind:         s.Kind,
		Concept:      s.Concept,
		TermUID:      s.TermUID,
		UnitUID:      s.UnitUID,
		ArmUID:       s.ArmUID,
		EpochUID:     s.EpochUID,
		Label:        s.Label,
	})
	if err != nil {
		// selectionContent contains only marshalable field types
		panic(err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SelectionChange is the change-feed payload recorded for selection
// attach/detach mutations, decoded by commit-time rules.
type SelectionChange struct {
	StudyUID  string    `json:"study_uid"`
	Selection Selection `json:"selection"`
}

// SelectionNode is one persisted instance of a selection value. Every edit
// creates a new node; superseded nodes are retained for the audit trail with
// Current cleared and EndDate set, never physically deleted.
type SelectionNode struct {
	InstanceID string     `json:"instance_id"`
	VersionSeq int        `json:"version_seq"`
	Current    bool       `json:"current"`
	Selection  Selection  `json:"selection"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// Clone returns a copy of the node.
func (n SelectionNode) Clone() SelectionNode {
	cp := n
	if n.EndDate != nil {
		end := *n.EndDate
		cp.EndDate = &end
	}
	return cp
}
