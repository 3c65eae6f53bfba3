package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"studycore/pkg/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "studycore.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx := context.Background()
	var study domain.Study
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		if study, err = tx.CreateStudy(domain.Study{ProjectName: "Oncology"}); err != nil {
			return err
		}
		if _, err := tx.AttachSelection(study.UID, domain.Selection{
			SelectionUID: "StudyEndpoint_000001",
			Kind:         domain.SelectionEndpoint,
			Order:        1,
			Label:        "Overall survival",
		}); err != nil {
			return err
		}
		_, err = tx.AppendAuditAction(domain.AuditAction{
			StudyUID:     study.UID,
			SelectionUID: "StudyEndpoint_000001",
			Kind:         domain.ActionKindCreate,
		})
		return err
	}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	restored, ok := reopened.FindStudy(study.UID)
	if !ok {
		t.Fatalf("study missing after reopen")
	}
	if restored.ProjectName != "Oncology" {
		t.Fatalf("restored study = %+v", restored)
	}
	current := reopened.CurrentSelections(study.UID, domain.SelectionEndpoint)
	if len(current) != 1 || current[0].Label != "Overall survival" {
		t.Fatalf("restored selections = %+v", current)
	}
	if trail := reopened.AuditTrail(study.UID); len(trail) != 1 {
		t.Fatalf("restored trail = %d actions", len(trail))
	}

	// Counters must persist so uids never repeat across restarts.
	var uid string
	if _, err := reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		uid, err = tx.NextUID("Study")
		return err
	}); err != nil {
		t.Fatalf("next uid: %v", err)
	}
	if uid != "Study_000002" {
		t.Fatalf("uid after reopen = %s, want Study_000002", uid)
	}
}

func TestStoreFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studycore.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	boom := errors.New("boom")
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateStudy(domain.Study{UID: "Study_000001"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("transaction error = %v, want boom", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if _, ok := reopened.FindStudy("Study_000001"); ok {
		t.Fatalf("failed transaction leaked to disk")
	}
}

func TestStoreDefaultsPath(t *testing.T) {
	t.Chdir(t.TempDir())
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != "studycore.db" {
		t.Fatalf("default path = %s", store.Path())
	}
}
