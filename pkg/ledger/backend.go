package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sheetbook/sheetbook/pkg/models"
)

// Backend persists the authoritative record set of a ledger. Implementations
// must return an empty slice, not an error, for a ledger that has no records
// yet — "no records" and "storage unreachable" are different states and the
// store keeps them apart.
type Backend interface {
	Load(ledgerID string) ([]models.Record, error)
	Save(ledgerID string, records []models.Record) error
}

// MemoryBackend keeps record sets in process memory. Used by tests and as a
// scratch store for one-shot CLI runs.
type MemoryBackend struct {
	mu      sync.RWMutex
	ledgers map[string][]models.Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{ledgers: make(map[string][]models.Record)}
}

func (b *MemoryBackend) Load(ledgerID string) ([]models.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	records := make([]models.Record, len(b.ledgers[ledgerID]))
	copy(records, b.ledgers[ledgerID])
	return records, nil
}

func (b *MemoryBackend) Save(ledgerID string, records []models.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]models.Record, len(records))
	copy(stored, records)
	b.ledgers[ledgerID] = stored
	return nil
}

// FileBackend stores each ledger as one YAML file under a directory, giving
// record sets durability across process restarts.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(ledgerID string) string {
	return filepath.Join(b.dir, ledgerID+".yaml")
}

func (b *FileBackend) Load(ledgerID string) ([]models.Record, error) {
	data, err := os.ReadFile(b.path(ledgerID))
	if os.IsNotExist(err) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	var records []models.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}
	return records, nil
}

func (b *FileBackend) Save(ledgerID string, records []models.Record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	tmp := b.path(ledgerID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tmp, b.path(ledgerID)); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
