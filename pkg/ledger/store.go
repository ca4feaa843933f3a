package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheetbook/sheetbook/pkg/models"
)

var (
	// ErrEmptyDescription is returned when a record's description is blank
	// after trimming.
	ErrEmptyDescription = errors.New("record description is empty")
	// ErrNegativeAmount is returned when either amount of a record is
	// negative.
	ErrNegativeAmount = errors.New("record amount is negative")
	// ErrNotFound is returned for operations on unknown record ids.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable wraps backend failures. Subscribers receive it instead
	// of an empty view so an unreachable store is never mistaken for an
	// empty ledger.
	ErrUnavailable = errors.New("ledger store unavailable")
)

// Subscriber receives a freshly derived view after every mutation of the
// ledger it watches. When the backing store is unreachable the error is
// non-nil and the view must be ignored.
type Subscriber func(view models.View, err error)

// Store holds the authoritative record sets and computes derived views on
// read. Ref and balance are never cached: every view is recomputed from the
// current record set, so concurrent writers converge to the same ordering no
// matter how their writes interleave.
type Store struct {
	logger  *log.Logger
	backend Backend

	mu      sync.Mutex
	loaded  map[string][]models.Record
	subs    map[string]map[int]Subscriber
	nextSub int
	seq     uint64
}

func NewStore(backend Backend, logger *log.Logger) *Store {
	return &Store{
		logger:  logger,
		backend: backend,
		loaded:  make(map[string][]models.Record),
		subs:    make(map[string]map[int]Subscriber),
	}
}

func validate(description string, in, out decimal.Decimal) error {
	if description == "" {
		return ErrEmptyDescription
	}
	if in.IsNegative() || out.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Append validates and stores a new record, assigning its id and creation
// timestamp. Ref and balance are not assigned here; they exist only in
// derived views.
func (s *Store) Append(ledgerID string, rec models.Record) (string, error) {
	rec = rec.Normalize()
	if err := validate(rec.Description, rec.In, rec.Out); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ensureLoaded(ledgerID)
	if err != nil {
		return "", err
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	rec.Seq = s.nextSeq()

	next := append(append([]models.Record{}, records...), rec)
	if err := s.commit(ledgerID, next); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Update replaces the editable fields of an existing record. The original
// creation timestamp and sequence are kept so the record's tie-break position
// is stable across edits.
func (s *Store) Update(ledgerID, recordID string, patch models.Patch) error {
	patch.Description = strings.TrimSpace(patch.Description)
	if err := validate(patch.Description, patch.In, patch.Out); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ensureLoaded(ledgerID)
	if err != nil {
		return err
	}

	next := make([]models.Record, len(records))
	copy(next, records)
	for i := range next {
		if next[i].ID != recordID {
			continue
		}
		next[i].OccurredOn = patch.OccurredOn
		next[i].Description = patch.Description
		next[i].Category = patch.Category
		next[i].In = patch.In
		next[i].Out = patch.Out
		next[i] = next[i].Normalize()
		return s.commit(ledgerID, next)
	}
	return ErrNotFound
}

// Remove hard-deletes a record.
func (s *Store) Remove(ledgerID, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ensureLoaded(ledgerID)
	if err != nil {
		return err
	}

	next := make([]models.Record, 0, len(records))
	found := false
	for _, rec := range records {
		if rec.ID == recordID {
			found = true
			continue
		}
		next = append(next, rec)
	}
	if !found {
		return ErrNotFound
	}
	return s.commit(ledgerID, next)
}

// View derives the ordered projection of the ledger. Correct for zero
// records (an empty view) and recomputed from scratch on every call.
func (s *Store) View(ledgerID string) (models.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ensureLoaded(ledgerID)
	if err != nil {
		return models.View{}, err
	}
	return models.DeriveView(ledgerID, records), nil
}

// Subscribe registers a callback invoked with a fresh view after every
// mutation of the ledger, from any source. The returned function cancels the
// subscription.
func (s *Store) Subscribe(ledgerID string, fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[ledgerID] == nil {
		s.subs[ledgerID] = make(map[int]Subscriber)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[ledgerID][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[ledgerID], id)
	}
}

// ensureLoaded returns the cached record set, loading it through the backend
// on first use. Backend failures notify subscribers and surface as
// ErrUnavailable.
func (s *Store) ensureLoaded(ledgerID string) ([]models.Record, error) {
	if records, ok := s.loaded[ledgerID]; ok {
		return records, nil
	}
	records, err := s.backend.Load(ledgerID)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrUnavailable, err)
		s.notify(ledgerID, models.View{}, wrapped)
		return nil, wrapped
	}
	for _, rec := range records {
		if rec.Seq >= s.seq {
			s.seq = rec.Seq + 1
		}
	}
	s.loaded[ledgerID] = records
	return records, nil
}

// commit saves through the backend first and only then replaces the cached
// set, so a failed save leaves state untouched.
func (s *Store) commit(ledgerID string, records []models.Record) error {
	if err := s.backend.Save(ledgerID, records); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrUnavailable, err)
		s.notify(ledgerID, models.View{}, wrapped)
		return wrapped
	}
	s.loaded[ledgerID] = records
	s.notify(ledgerID, models.DeriveView(ledgerID, records), nil)
	return nil
}

// notify runs with s.mu held; subscriber callbacks must not call back into
// the store synchronously.
func (s *Store) notify(ledgerID string, view models.View, err error) {
	for _, fn := range s.subs[ledgerID] {
		fn(view, err)
	}
}

func (s *Store) nextSeq() uint64 {
	seq := s.seq
	s.seq++
	return seq
}
