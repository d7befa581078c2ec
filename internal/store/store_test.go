package store

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "k", "v1"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.Put(ctx, "k", "v2"); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	value, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected present key, got ok=%v err=%v", ok, err)
	}
	if value != "v2" {
		t.Errorf("expected upserted value v2, got %q", value)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected key gone after delete")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting absent key should not error: %v", err)
	}
}

func TestDrafts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const key = "media_review_3_12"

	if err := s.SetDraft(ctx, key, "half-written thought"); err != nil {
		t.Fatalf("set draft failed: %v", err)
	}
	draft, err := s.Draft(ctx, key)
	if err != nil {
		t.Fatalf("get draft failed: %v", err)
	}
	if draft != "half-written thought" {
		t.Errorf("unexpected draft: %q", draft)
	}

	// An empty draft clears the entry.
	if err := s.SetDraft(ctx, key, ""); err != nil {
		t.Fatalf("clear draft failed: %v", err)
	}
	if draft, _ := s.Draft(ctx, key); draft != "" {
		t.Errorf("expected cleared draft, got %q", draft)
	}
}

func TestExpanded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const key = "character_rating_4_7"

	if expanded, _ := s.Expanded(ctx, key); expanded {
		t.Error("expected collapsed by default")
	}

	if err := s.SetExpanded(ctx, key, true); err != nil {
		t.Fatalf("set expanded failed: %v", err)
	}
	if expanded, _ := s.Expanded(ctx, key); !expanded {
		t.Error("expected expanded after set")
	}

	if err := s.SetExpanded(ctx, key, false); err != nil {
		t.Fatalf("collapse failed: %v", err)
	}
	if expanded, _ := s.Expanded(ctx, key); expanded {
		t.Error("expected collapsed after unset")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cursor, err := s.Cursor(ctx, "activity-stream")
	if err != nil {
		t.Fatalf("cursor failed: %v", err)
	}
	if cursor != 0 {
		t.Errorf("expected zero cursor before save, got %d", cursor)
	}

	if err := s.SetCursor(ctx, "activity-stream", 123456789); err != nil {
		t.Fatalf("set cursor failed: %v", err)
	}
	cursor, err = s.Cursor(ctx, "activity-stream")
	if err != nil {
		t.Fatalf("cursor failed: %v", err)
	}
	if cursor != 123456789 {
		t.Errorf("expected cursor 123456789, got %d", cursor)
	}

	// Cursors are scoped per service.
	if other, _ := s.Cursor(ctx, "other-stream"); other != 0 {
		t.Errorf("expected independent cursor for other service, got %d", other)
	}
}
