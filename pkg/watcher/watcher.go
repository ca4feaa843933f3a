package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sheetbook/sheetbook/pkg/importer"
	"github.com/sheetbook/sheetbook/pkg/ledger"
	"github.com/sheetbook/sheetbook/pkg/sheets"
	"github.com/sheetbook/sheetbook/pkg/state"
)

// DefaultInterval is the polling cadence for upstream change detection.
const DefaultInterval = 60 * time.Second

// Watcher polls a spreadsheet export on a fixed interval and triggers a
// reconciliation import when its content hash changes. One instance per
// process; the enabled flag and the last-seen cursor are persisted, so the
// watcher survives restarts (disabled until first explicitly enabled).
type Watcher struct {
	logger   *log.Logger
	importer *importer.Importer
	fetcher  sheets.Fetcher
	state    *state.State
	resolver *ledger.Resolver

	userID   string
	source   sheets.Source
	interval time.Duration

	// tickMu is the only mutual exclusion: a tick already in flight
	// suppresses a new one rather than queuing it.
	tickMu sync.Mutex

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(imp *importer.Importer, fetcher sheets.Fetcher, st *state.State, resolver *ledger.Resolver, userID string, source sheets.Source, interval time.Duration, logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		logger:   logger,
		importer: imp,
		fetcher:  fetcher,
		state:    st,
		resolver: resolver,
		userID:   userID,
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. The context is the process-level
// cancellation for imports triggered by ticks.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop halts the loop and waits for it to exit. An import already in flight
// runs to completion.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// Enable persists the enabled flag. Ticks are gated on it, so enabling takes
// effect on the next tick without restarting the loop.
func (w *Watcher) Enable() error { return w.state.SetWatcherEnabled(true) }

// Disable persists the disabled flag.
func (w *Watcher) Disable() error { return w.state.SetWatcherEnabled(false) }

// Enabled reports the persisted flag.
func (w *Watcher) Enabled() bool { return w.state.WatcherEnabled() }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watcher started", "interval", w.interval, "enabled", w.Enabled())
	for {
		select {
		case <-ticker.C:
			w.Tick(ctx)
		case <-w.stop:
			w.logger.Info("watcher stopped")
			return
		case <-ctx.Done():
			w.logger.Info("watcher context cancelled")
			return
		}
	}
}

// Tick performs one poll cycle. A failed fetch or import is logged and does
// not prevent future ticks.
func (w *Watcher) Tick(ctx context.Context) {
	if !w.state.WatcherEnabled() {
		return
	}
	if w.source.Ref == "" || w.source.Kind != sheets.KindExport {
		return
	}

	if !w.tickMu.TryLock() {
		w.logger.Debug("tick already in flight, skipping")
		return
	}
	defer w.tickMu.Unlock()

	url, err := w.source.ExportURL()
	if err != nil {
		w.logger.Warn("cannot resolve export url", "err", err)
		return
	}
	text, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		w.logger.Warn("export fetch failed", "source", w.source.Ref, "err", err)
		return
	}

	hash := contentHash(text)
	ledgerID := w.resolver.Resolve(w.userID)

	if cur, ok := w.state.Cursor(ledgerID, w.source.Ref); ok && cur.Hash == hash {
		w.logger.Debug("source unchanged", "ledger", ledgerID, "hash", hash[:8])
		return
	}

	w.logger.Info("source changed, importing", "ledger", ledgerID, "hash", hash[:8])
	count, err := w.importer.Import(ctx, w.source, ledgerID, nil)
	if err != nil {
		w.logger.Warn("background import failed", "ledger", ledgerID, "err", err)
		return
	}

	if err := w.state.SetCursor(ledgerID, w.source.Ref, state.Cursor{Hash: hash, SyncedAt: time.Now().UTC()}); err != nil {
		w.logger.Warn("failed to persist cursor", "ledger", ledgerID, "err", err)
	}
	w.logger.Info("background import complete", "ledger", ledgerID, "imported", count)
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
