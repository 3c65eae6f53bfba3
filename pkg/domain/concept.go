package domain

import "time"

// ConceptKind identifies a versioned library object family.
type ConceptKind string

// Canonical concept kinds managed by the library services.
const (
	ConceptEndpointTemplate  ConceptKind = "endpoint_template"
	ConceptObjectiveTemplate ConceptKind = "objective_template"
	ConceptUnitDefinition    ConceptKind = "unit_definition"
	ConceptTerminologyTerm   ConceptKind = "terminology_term"
)

// ConceptStatus enumerates the lifecycle states of a versioned concept.
type ConceptStatus string

// Canonical concept statuses. Retired concepts may return to final;
// drafts below version 1.0 may be soft-deleted.
const (
	ConceptStatusDraft   ConceptStatus = "draft"
	ConceptStatusFinal   ConceptStatus = "final"
	ConceptStatusRetired ConceptStatus = "retired"
)

// Standard change descriptions recorded on lifecycle transitions.
const (
	ChangeDescriptionInitial     = "Initial version"
	ChangeDescriptionApproved    = "Approved version"
	ChangeDescriptionInactivated = "Inactivated version"
	ChangeDescriptionReactivated = "Reactivated version"
	ChangeDescriptionNewVersion  = "New draft created"
)

// ConceptVersion is one value node in a concept's version chain. The UID is
// stable across versions; the chain records every lifecycle transition.
// EndDate is nil while the node is the chain's open head.
type ConceptVersion struct {
	UID               string         `json:"uid"`
	Kind              ConceptKind    `json:"kind"`
	LibraryName       string         `json:"library_name"`
	Name              string         `json:"name"`
	Definition        string         `json:"definition,omitempty"`
	Attributes        map[string]any `json:"attributes,omitempty"`
	Version           VersionNumber  `json:"version"`
	Status            ConceptStatus  `json:"status"`
	ChangeDescription string         `json:"change_description"`
	Author            string         `json:"author"`
	StartDate         time.Time      `json:"start_date"`
	EndDate           *time.Time     `json:"end_date,omitempty"`
}

// Clone returns a deep copy of the version node.
func (c ConceptVersion) Clone() ConceptVersion {
	cp := c
	if c.Attributes != nil {
		cp.Attributes = make(map[string]any, len(c.Attributes))
		for k, v := range c.Attributes {
			cp.Attributes[k] = v
		}
	}
	if c.EndDate != nil {
		end := *c.EndDate
		cp.EndDate = &end
	}
	return cp
}

// ConceptChain is a concept's full version history, oldest node first.
// Appending a node closes the previous head (sets its EndDate).
type ConceptChain struct {
	Deleted  bool             `json:"deleted"`
	Versions []ConceptVersion `json:"versions"`
}

// Clone returns a deep copy of the chain.
func (c ConceptChain) Clone() ConceptChain {
	cp := ConceptChain{Deleted: c.Deleted}
	if c.Versions != nil {
		cp.Versions = make([]ConceptVersion, len(c.Versions))
		for i, v := range c.Versions {
			cp.Versions[i] = v.Clone()
		}
	}
	return cp
}

// Latest returns the chain head, the node describing the concept's current state.
func (c ConceptChain) Latest() (ConceptVersion, bool) {
	if len(c.Versions) == 0 {
		return ConceptVersion{}, false
	}
	return c.Versions[len(c.Versions)-1].Clone(), true
}

// LatestWithStatus returns the newest node carrying the given status.
func (c ConceptChain) LatestWithStatus(status ConceptStatus) (ConceptVersion, bool) {
	for i := len(c.Versions) - 1; i >= 0; i-- {
		if c.Versions[i].Status == status {
			return c.Versions[i].Clone(), true
		}
	}
	return ConceptVersion{}, false
}

// VersionAt returns the node pinned at the given version string, newest match first.
func (c ConceptChain) VersionAt(version string) (ConceptVersion, bool) {
	for i := len(c.Versions) - 1; i >= 0; i-- {
		if c.Versions[i].Version.String() == version {
			return c.Versions[i].Clone(), true
		}
	}
	return ConceptVersion{}, false
}
