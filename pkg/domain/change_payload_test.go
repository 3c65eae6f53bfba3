package domain

import (
	"encoding/json"
	"testing"
)

func TestChangePayloadDefinedAndEmpty(t *testing.T) {
	undefined := UndefinedChangePayload()
	if undefined.Defined() || !undefined.IsEmpty() {
		t.Fatalf("undefined payload reported defined=%v empty=%v", undefined.Defined(), undefined.IsEmpty())
	}
	if undefined.Raw() != nil {
		t.Fatalf("undefined payload must yield nil raw bytes")
	}

	empty := NewChangePayload(nil)
	if !empty.Defined() || !empty.IsEmpty() {
		t.Fatalf("nil-raw payload reported defined=%v empty=%v", empty.Defined(), empty.IsEmpty())
	}

	filled := NewChangePayload(json.RawMessage(`{"uid":"Study_000001"}`))
	if !filled.Defined() || filled.IsEmpty() {
		t.Fatalf("filled payload reported defined=%v empty=%v", filled.Defined(), filled.IsEmpty())
	}
}

func TestChangePayloadRawIsCloned(t *testing.T) {
	raw := json.RawMessage(`{"uid":"Study_000001"}`)
	payload := NewChangePayload(raw)
	raw[2] = 'X'
	got := payload.Raw()
	if string(got) != `{"uid":"Study_000001"}` {
		t.Fatalf("payload shares the caller's buffer: %s", got)
	}
	got[2] = 'Y'
	if string(payload.Raw()) != `{"uid":"Study_000001"}` {
		t.Fatalf("Raw must return a fresh copy each call")
	}
}

func TestDecodeChangePayload(t *testing.T) {
	payload, err := NewChangePayloadFromValue(Study{UID: "Study_000001", ProjectName: "Ph2"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	study, ok := DecodeChangePayload[Study](payload)
	if !ok || study.UID != "Study_000001" || study.ProjectName != "Ph2" {
		t.Fatalf("decoded = %+v, %v", study, ok)
	}

	if _, ok := DecodeChangePayload[Study](UndefinedChangePayload()); ok {
		t.Fatalf("undefined payload must not decode")
	}
	if _, ok := DecodeChangePayload[Study](NewChangePayload(json.RawMessage(`{broken`))); ok {
		t.Fatalf("malformed payload must not decode")
	}
}
