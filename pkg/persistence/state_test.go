package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateStore(t *testing.T) {
	t.Run("NewStateStore", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStateStore(filepath.Join(dir, "state.json"))
		if store == nil {
			t.Fatal("NewStateStore() returned nil")
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStateStore(filepath.Join(dir, "state.json"))

		state := &ServerState{
			LastMessage:   "lights on",
			LastMessageAt: time.Now(),
			RequestCount:  7,
		}

		if err := store.Save(state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if got.Version != StateVersion {
			t.Errorf("Version = %d, want %d", got.Version, StateVersion)
		}
		if got.LastMessage != "lights on" {
			t.Errorf("LastMessage = %q, want %q", got.LastMessage, "lights on")
		}
		if got.RequestCount != 7 {
			t.Errorf("RequestCount = %d, want 7", got.RequestCount)
		}
		if got.SavedAt.IsZero() {
			t.Error("SavedAt was not set")
		}
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStateStore(filepath.Join(dir, "nonexistent.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		// Should return nil (empty state) for non-existent file
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
	})

	t.Run("CreatesParentDirectory", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStateStore(filepath.Join(dir, "nested", "deeper", "state.json"))

		if err := store.Save(&ServerState{LastMessage: "hi"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.LastMessage != "hi" {
			t.Errorf("LastMessage = %q, want %q", got.LastMessage, "hi")
		}
	})

	t.Run("RecordMessage", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStateStore(filepath.Join(dir, "state.json"))

		for i, msg := range []string{"first", "second", "third"} {
			if err := store.RecordMessage(msg); err != nil {
				t.Fatalf("RecordMessage(%d) error = %v", i, err)
			}
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.LastMessage != "third" {
			t.Errorf("LastMessage = %q, want %q", got.LastMessage, "third")
		}
		if got.RequestCount != 3 {
			t.Errorf("RequestCount = %d, want 3", got.RequestCount)
		}
	})

	t.Run("RecordMessageOverwritesCorruptState", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "state.json")
		if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
			t.Fatal(err)
		}

		store := NewStateStore(path)
		if err := store.RecordMessage("fresh"); err != nil {
			t.Fatalf("RecordMessage() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.LastMessage != "fresh" || got.RequestCount != 1 {
			t.Errorf("state = %+v, want fresh start", got)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStateStore(filepath.Join(dir, "state.json"))

		if err := store.Save(&ServerState{LastMessage: "bye"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() after Clear() = %v, want nil", got)
		}

		// Clearing again is a no-op.
		if err := store.Clear(); err != nil {
			t.Fatalf("second Clear() error = %v", err)
		}
	})
}
