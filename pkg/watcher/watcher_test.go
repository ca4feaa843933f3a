package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetbook/sheetbook/pkg/importer"
	"github.com/sheetbook/sheetbook/pkg/ledger"
	"github.com/sheetbook/sheetbook/pkg/sheets"
	"github.com/sheetbook/sheetbook/pkg/state"
)

// fakeFetcher serves a mutable body and counts fetches.
type fakeFetcher struct {
	mu      sync.Mutex
	body    string
	fetches int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.body, nil
}

func (f *fakeFetcher) set(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

func newTestWatcher(t *testing.T, fetcher sheets.Fetcher) (*Watcher, *ledger.Store, *state.State) {
	t.Helper()
	logger := log.Default()
	store := ledger.NewStore(ledger.NewMemoryBackend(), logger)
	st, err := state.Load(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	imp := importer.New(store, fetcher, logger)
	src := sheets.New("https://example.com/export.csv", sheets.KindExport)
	w := New(imp, fetcher, st, ledger.NewResolver(st), "alice", src, time.Minute, logger)
	return w, store, st
}

const exportV1 = `Date,Description,In,Out
01/02/2024,Coffee,,3.50`

const exportV2 = `Date,Description,In,Out
01/02/2024,Coffee,,3.50
01/03/2024,Lunch,,12.00`

func TestTickDisabledByDefault(t *testing.T) {
	fetcher := &fakeFetcher{body: exportV1}
	w, store, _ := newTestWatcher(t, fetcher)

	w.Tick(context.Background())
	assert.Equal(t, 0, fetcher.fetches, "disabled watcher must not fetch")

	view, _ := store.View("alice")
	assert.Empty(t, view.Entries)
}

func TestTickImportsOnChange(t *testing.T) {
	fetcher := &fakeFetcher{body: exportV1}
	w, store, st := newTestWatcher(t, fetcher)
	require.NoError(t, w.Enable())

	w.Tick(context.Background())

	view, err := store.View("alice")
	require.NoError(t, err)
	assert.Len(t, view.Entries, 1)

	cur, ok := st.Cursor("alice", "https://example.com/export.csv")
	require.True(t, ok, "cursor must be stored after a successful import")
	assert.NotEmpty(t, cur.Hash)
}

func TestTickUnchangedSourceDoesNotReimport(t *testing.T) {
	fetcher := &fakeFetcher{body: exportV1}
	w, store, _ := newTestWatcher(t, fetcher)
	require.NoError(t, w.Enable())

	w.Tick(context.Background())
	w.Tick(context.Background())

	// two polls of an unchanged source: at most one import
	view, _ := store.View("alice")
	assert.Len(t, view.Entries, 1)
}

func TestTickChangedSourceTriggersOneImport(t *testing.T) {
	fetcher := &fakeFetcher{body: exportV1}
	w, store, _ := newTestWatcher(t, fetcher)
	require.NoError(t, w.Enable())

	w.Tick(context.Background())
	fetcher.set(exportV2)
	w.Tick(context.Background())

	// second import writes both rows of v2 on top of v1's single row
	view, _ := store.View("alice")
	assert.Len(t, view.Entries, 3)

	// a third tick with no change does nothing
	w.Tick(context.Background())
	view, _ = store.View("alice")
	assert.Len(t, view.Entries, 3)
}

func TestTickSkipsNonExportSource(t *testing.T) {
	fetcher := &fakeFetcher{body: exportV1}
	logger := log.Default()
	store := ledger.NewStore(ledger.NewMemoryBackend(), logger)
	st, err := state.Load(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	require.NoError(t, st.SetWatcherEnabled(true))

	src := sheets.New("https://script.google.com/macros/s/X/exec", "")
	w := New(importer.New(store, fetcher, logger), fetcher, st, ledger.NewResolver(st), "alice", src, time.Minute, logger)

	w.Tick(context.Background())
	assert.Equal(t, 0, fetcher.fetches, "push-style sources are never polled")
}

func TestStartStop(t *testing.T) {
	fetcher := &fakeFetcher{body: exportV1}
	w, _, _ := newTestWatcher(t, fetcher)

	w.Start(context.Background())
	w.Stop()
}
