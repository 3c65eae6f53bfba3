package core

import "studycore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Study              = domain.Study
	StudyStatus        = domain.StudyStatus
	Library            = domain.Library
	ConceptKind        = domain.ConceptKind
	ConceptStatus      = domain.ConceptStatus
	ConceptVersion     = domain.ConceptVersion
	ConceptChain       = domain.ConceptChain
	VersionNumber      = domain.VersionNumber
	SelectionKind      = domain.SelectionKind
	Selection          = domain.Selection
	SelectionNode      = domain.SelectionNode
	SelectionGroup     = domain.SelectionGroup
	AuditAction        = domain.AuditAction
	ActionKind         = domain.ActionKind
	HistoryRecord      = domain.HistoryRecord
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	GraphStore         = domain.GraphStore
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	ProjectFilter      = domain.ProjectFilter
	StudySnapshot      = domain.StudySnapshot
)

const (
	EntityStudy       = domain.EntityStudy
	EntityLibrary     = domain.EntityLibrary
	EntityConcept     = domain.EntityConcept
	EntitySelection   = domain.EntitySelection
	EntityAuditAction = domain.EntityAuditAction
)

const (
	StudyStatusDraft    = domain.StudyStatusDraft
	StudyStatusReleased = domain.StudyStatusReleased
	StudyStatusLocked   = domain.StudyStatusLocked
)

const (
	ConceptStatusDraft   = domain.ConceptStatusDraft
	ConceptStatusFinal   = domain.ConceptStatusFinal
	ConceptStatusRetired = domain.ConceptStatusRetired
)

const (
	SelectionEndpoint   = domain.SelectionEndpoint
	SelectionArm        = domain.SelectionArm
	SelectionDesignCell = domain.SelectionDesignCell
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
