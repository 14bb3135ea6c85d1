package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reclaim/internal/transcript"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	rec := NewRecord()
	rec.Exploration = []transcript.Tagged{
		{Message: transcript.Message{Role: transcript.RoleSystem, Content: "intro"}, Tag: transcript.Tag{Kind: transcript.KindSystemIntro}},
	}
	rec.Executions = []Execution{
		{
			Strategy:   "clear apt cache",
			SpaceFreed: 120,
			Succeeded:  true,
			Attempts:   2,
			Transcript: []transcript.Tagged{
				{Message: transcript.Message{Role: transcript.RoleAssistant, Content: "package main"}, Tag: transcript.Tag{Kind: transcript.KindCodeAttempt, Outcome: transcript.OutcomeSuccess}},
			},
		},
	}
	rec.SpaceFreed = 120

	if _, err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d records, want 1", len(loaded))
	}
	if diff := cmp.Diff(rec, loaded[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAllDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	for _, id := range []string{"bbb", "aaa", "ccc"} {
		rec := NewRecord()
		rec.ID = id
		if _, err := store.Save(rec); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	loaded, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	var got []string
	for _, r := range loaded {
		got = append(got, r.ID)
	}
	want := []string{"aaa", "bbb", "ccc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAllRejectsMalformedTag(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	bad := `{"id":"x","exploration":[{"role":"user","content":"hi","tag":"not_a_tag"}]}`
	if err := os.WriteFile(filepath.Join(dir, "run_x.json"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.LoadAll(); err == nil {
		t.Error("expected error for malformed tag, got nil")
	}
}
