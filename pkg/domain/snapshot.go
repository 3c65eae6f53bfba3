package domain

import "time"

// StudySnapshot is the frozen view of a study taken when it is released or
// locked: every current selection list plus the full history per kind.
// Snapshots are handed to the archiver and stored as immutable artifacts.
type StudySnapshot struct {
	Study      Study                             `json:"study"`
	TakenAt    time.Time                         `json:"taken_at"`
	Selections map[SelectionKind][]Selection     `json:"selections"`
	History    map[SelectionKind][]HistoryRecord `json:"history"`
}
