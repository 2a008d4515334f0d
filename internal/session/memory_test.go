package session

import (
	"context"
	"testing"
	"time"

	"taskdeck.app/agent/common/llm"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("unknown session history = %+v, want empty", history)
	}

	messages := []llm.Message{
		{Role: "user", Content: "list my spaces"},
		{Role: "assistant", Content: "You have two spaces."},
	}
	if err := store.Save(ctx, "s1", messages); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	history, err = store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 2 || history[1].Content != "You have two spaces." {
		t.Errorf("history = %+v", history)
	}

	// Mutating the returned slice must not affect the stored transcript.
	history[0].Content = "tampered"
	again, _ := store.History(ctx, "s1")
	if again[0].Content != "list my spaces" {
		t.Error("stored transcript aliased the returned slice")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	ctx := context.Background()
	if err := store.Save(ctx, "s1", []llm.Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expired session history = %+v, want empty", history)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	store.Save(ctx, "s1", []llm.Message{{Role: "user", Content: "hi"}})
	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	history, _ := store.History(ctx, "s1")
	if len(history) != 0 {
		t.Errorf("history after Clear = %+v", history)
	}
}
