package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sheetbook/sheetbook/pkg/ledger"
)

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.WatcherEnabled() {
		t.Error("watcher must default to disabled")
	}
	if _, ok := s.Cursor("u", "sheet-1"); ok {
		t.Error("expected no cursor initially")
	}

	if err := s.SetWatcherEnabled(true); err != nil {
		t.Fatalf("SetWatcherEnabled failed: %v", err)
	}
	cur := Cursor{Hash: "abc123", SyncedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	if err := s.SetCursor("u", "sheet-1", cur); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}
	if err := s.SetSharedLedgers([]ledger.SharedLedger{{ID: "family", Owner: "alice", Members: []string{"bob"}}}); err != nil {
		t.Fatalf("SetSharedLedgers failed: %v", err)
	}

	// reload from disk: everything must survive a restart
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.WatcherEnabled() {
		t.Error("watcher flag lost on reload")
	}
	got, ok := reloaded.Cursor("u", "sheet-1")
	if !ok || got.Hash != "abc123" || !got.SyncedAt.Equal(cur.SyncedAt) {
		t.Errorf("cursor lost on reload: %+v ok=%v", got, ok)
	}
	shared := reloaded.SharedLedgers()
	if len(shared) != 1 || shared[0].ID != "family" {
		t.Errorf("memberships lost on reload: %+v", shared)
	}
}
