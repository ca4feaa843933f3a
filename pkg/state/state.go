package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sheetbook/sheetbook/pkg/ledger"
)

// Cursor is the last observed content hash of an external source for one
// ledger, plus the time of the last successful sync. Losing it is harmless:
// the worst case is one redundant import.
type Cursor struct {
	Hash     string    `yaml:"hash"`
	SyncedAt time.Time `yaml:"synced_at"`
}

type document struct {
	WatcherEnabled bool                  `yaml:"watcher_enabled"`
	Cursors        map[string]Cursor     `yaml:"cursors"`
	SharedLedgers  []ledger.SharedLedger `yaml:"shared_ledgers"`
}

// State is the small durable settings blob the background sync machinery
// needs across restarts: the watcher's enabled flag, per-source cursors and
// shared-ledger membership. Stored as one YAML file.
type State struct {
	path string

	mu  sync.Mutex
	doc document
}

// Load reads the state file, returning defaults when it does not exist yet.
// The watcher starts disabled until explicitly enabled.
func Load(path string) (*State, error) {
	s := &State{path: path, doc: document{Cursors: make(map[string]Cursor)}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if s.doc.Cursors == nil {
		s.doc.Cursors = make(map[string]Cursor)
	}
	return s, nil
}

func cursorKey(ledgerID, sourceRef string) string {
	return ledgerID + "|" + sourceRef
}

// Cursor returns the stored cursor for a (ledger, source) pair.
func (s *State) Cursor(ledgerID, sourceRef string) (Cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.doc.Cursors[cursorKey(ledgerID, sourceRef)]
	return c, ok
}

// SetCursor stores a new cursor and persists immediately.
func (s *State) SetCursor(ledgerID, sourceRef string, c Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Cursors[cursorKey(ledgerID, sourceRef)] = c
	return s.save()
}

// WatcherEnabled reports the persisted watcher flag.
func (s *State) WatcherEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.WatcherEnabled
}

// SetWatcherEnabled flips and persists the watcher flag.
func (s *State) SetWatcherEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.WatcherEnabled = enabled
	return s.save()
}

// SharedLedgers implements ledger.MembershipSource.
func (s *State) SharedLedgers() []ledger.SharedLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.SharedLedger, len(s.doc.SharedLedgers))
	copy(out, s.doc.SharedLedgers)
	return out
}

// SetSharedLedgers replaces the membership snapshot. Membership management
// itself lives outside this module; this is the write-through for whatever
// system owns it.
func (s *State) SetSharedLedgers(shared []ledger.SharedLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SharedLedgers = shared
	return s.save()
}

// save writes to a temp file and renames it into place. Caller holds s.mu.
func (s *State) save() error {
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
