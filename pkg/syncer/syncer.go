package syncer

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sheetbook/sheetbook/pkg/ledger"
	"github.com/sheetbook/sheetbook/pkg/models"
)

const pushTimeout = 10 * time.Second

// Target receives the full current ledger view, replacing whatever it held
// before. One-way, last writer wins.
type Target interface {
	Name() string
	Push(ctx context.Context, view models.View) error
}

// Syncer pushes the derived ledger to an external endpoint. The background
// path is strictly best-effort: a failed push is logged and never surfaces to
// the caller whose write triggered it.
type Syncer struct {
	logger *log.Logger
	store  *ledger.Store
	target Target
}

func New(store *ledger.Store, target Target, logger *log.Logger) *Syncer {
	return &Syncer{logger: logger, store: store, target: target}
}

// Push reads the current view and sends it synchronously. With no target
// configured it is a no-op success.
func (s *Syncer) Push(ctx context.Context, ledgerID string) error {
	if s.target == nil {
		s.logger.Debug("no sync target configured, skipping push", "ledger", ledgerID)
		return nil
	}
	view, err := s.store.View(ledgerID)
	if err != nil {
		return err
	}
	if err := s.target.Push(ctx, view); err != nil {
		return err
	}
	s.logger.Info("ledger pushed", "ledger", ledgerID, "target", s.target.Name(), "entries", view.Len())
	return nil
}

// PushAsync fires the push on its own goroutine with its own timeout. Errors
// drain into the log; the caller's primary write never blocks or fails on
// this path.
func (s *Syncer) PushAsync(ledgerID string) {
	if s.target == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := s.Push(ctx, ledgerID); err != nil {
			s.logger.Warn("background push failed", "ledger", ledgerID, "err", err)
		}
	}()
}

// WatchLedger subscribes the syncer to store changes so every local mutation
// triggers a best-effort push. Returns the unsubscribe function.
func (s *Syncer) WatchLedger(ledgerID string) func() {
	return s.store.Subscribe(ledgerID, func(view models.View, err error) {
		if err != nil {
			s.logger.Warn("ledger unavailable, skipping push", "ledger", ledgerID, "err", err)
			return
		}
		s.PushAsync(ledgerID)
	})
}
