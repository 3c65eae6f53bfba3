package core

import (
	"context"
	"sort"

	"studycore/pkg/domain"
)

// buildSelectionHistory reconstructs every version of the study's selections
// of one kind by walking the audit chain. Each action yields one record whose
// content comes from the node instance the action references; a record's end
// date is the date of the next action on the same selection uid. Passing a
// selection uid narrows the walk to that selection.
func buildSelectionHistory(view domain.TransactionView, studyUID string, kind domain.SelectionKind, selectionUID string) []domain.HistoryRecord {
	nodes := make(map[string]domain.SelectionNode)
	for _, node := range view.SelectionNodes(studyUID, kind) {
		nodes[node.InstanceID] = node
	}

	var records []domain.HistoryRecord
	for _, action := range view.AuditTrail(studyUID) {
		if action.SelectionKind != kind {
			continue
		}
		if selectionUID != "" && action.SelectionUID != selectionUID {
			continue
		}
		ref := action.AfterRef
		if action.Kind == domain.ActionKindDelete {
			ref = action.BeforeRef
		}
		node, ok := nodes[ref]
		if !ok {
			continue
		}
		records = append(records, domain.HistoryRecord{
			StudyUID:     studyUID,
			SelectionUID: action.SelectionUID,
			Kind:         kind,
			ChangeType:   action.Kind,
			Selection:    node.Selection,
			Author:       action.Author,
			StartDate:    action.Date,
		})
	}

	// Stitch end dates: the audit trail is chronological, so each record is
	// closed by the next one touching the same selection uid.
	lastIdx := make(map[string]int)
	for i := range records {
		if prev, ok := lastIdx[records[i].SelectionUID]; ok {
			end := records[i].StartDate
			records[prev].EndDate = &end
		}
		lastIdx[records[i].SelectionUID] = i
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SelectionUID != records[j].SelectionUID {
			return records[i].SelectionUID < records[j].SelectionUID
		}
		return records[j].StartDate.Before(records[i].StartDate)
	})
	return records
}

// FindSelectionHistory returns the full version history of the study's
// selections of this repository's kind, newest version first per selection.
// An empty selection uid returns the history of every selection.
func (r *SelectionRepository) FindSelectionHistory(ctx context.Context, studyUID, selectionUID string) ([]domain.HistoryRecord, error) {
	var records []domain.HistoryRecord
	err := r.store.View(ctx, func(view domain.TransactionView) error {
		if _, ok := view.FindStudy(studyUID); !ok {
			return domain.NotFoundError{Entity: domain.EntityStudy, UID: studyUID}
		}
		records = buildSelectionHistory(view, studyUID, r.kind, selectionUID)
		if selectionUID != "" && len(records) == 0 {
			return domain.NotFoundError{Entity: domain.EntitySelection, UID: selectionUID}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
