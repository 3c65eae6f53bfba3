package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"studycore/internal/infra/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()

	payload := `{"study":"Study_000001"}`
	info, err := store.Put(ctx, "studies/Study_000001/snapshot.json", strings.NewReader(payload), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"requested-by": "alice"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Key != "studies/Study_000001/snapshot.json" {
		t.Fatalf("Info.Key = %q", info.Key)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("Info.Size = %d, want %d", info.Size, len(payload))
	}
	if info.ContentType != "application/json" {
		t.Fatalf("Info.ContentType = %q", info.ContentType)
	}

	got, rc, err := store.Get(ctx, "studies/Study_000001/snapshot.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("body = %q, want %q", data, payload)
	}
	if got.Metadata["requested-by"] != "alice" {
		t.Fatalf("Metadata = %v, want requested-by=alice", got.Metadata)
	}
}

func TestPutRejectsExistingKey(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()

	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second Put error = %v, want already exists", err)
	}
}

func TestHeadMissingKeyFails(t *testing.T) {
	store := NewTestStore()
	if _, err := store.Head(context.Background(), "absent"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	for _, key := range []string{"studies/A/snapshot.json", "studies/A/history.csv", "studies/B/snapshot.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "studies/A/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(infos))
	}
	if infos[0].Key != "studies/A/history.csv" || infos[1].Key != "studies/A/snapshot.json" {
		t.Fatalf("List keys = %q, %q", infos[0].Key, infos[1].Key)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	for i := 0; i < 2; i++ {
		ok, err := store.Delete(ctx, "k")
		if err != nil || !ok {
			t.Fatalf("Delete #%d = (%v, %v)", i+1, ok, err)
		}
	}
	if _, err := store.Head(ctx, "k"); err == nil {
		t.Fatalf("expected key gone after delete")
	}
}

func TestPresignURLGetOnly(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()

	url, err := store.PresignURL(ctx, "studies/A/snapshot.json", core.SignedURLOptions{Method: "GET", Expiry: time.Minute})
	if err != nil {
		t.Fatalf("PresignURL: %v", err)
	}
	if !strings.Contains(url, "studies/A/snapshot.json") {
		t.Fatalf("presigned URL %q does not reference the key", url)
	}

	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("PUT presign error = %v, want ErrUnsupported", err)
	}
}
