package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetbook/sheetbook/pkg/ledger"
	"github.com/sheetbook/sheetbook/pkg/sheets"
)

func exportServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
}

func newTestImporter() (*Importer, *ledger.Store) {
	store := ledger.NewStore(ledger.NewMemoryBackend(), log.Default())
	return New(store, sheets.NewHTTPFetcher(0), log.Default()), store
}

func TestImportCountsAndSkips(t *testing.T) {
	// one real expense, two zero-amount rows
	srv := exportServer(t, `Date,Description,Category,In,Out
01/02/2024,Coffee,Dining,,$50.00
01/03/2024,Nothing,,,
01/04/2024,Also nothing,Misc,,`)
	defer srv.Close()

	imp, store := newTestImporter()
	count, err := imp.Import(context.Background(), sheets.New(srv.URL, sheets.KindExport), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	view, err := store.View("alice")
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "Coffee", view.Entries[0].Description)
	assert.True(t, view.Entries[0].Out.Equal(decimal.NewFromFloat(50.0)))
}

func TestImportHeaderSynonyms(t *testing.T) {
	srv := exportServer(t, `DATE,Desc,Cat,Income,Expense
2024-02-01,Salary,,1000,
2024-02-02,Rent,Housing,,800`)
	defer srv.Close()

	imp, store := newTestImporter()
	count, err := imp.Import(context.Background(), sheets.New(srv.URL, sheets.KindExport), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	view, _ := store.View("alice")
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "Salary", view.Entries[0].Description)
	// missing category falls back to the default
	assert.Equal(t, "Other", view.Entries[0].Category)
	assert.Equal(t, "Housing", view.Entries[1].Category)
}

func TestImportRowFailureDoesNotAbort(t *testing.T) {
	// second row has an empty description: store rejects it, rest continues
	srv := exportServer(t, `Date,Description,In,Out
01/02/2024,First,5,
01/03/2024,,7,
01/04/2024,Third,9,`)
	defer srv.Close()

	imp, store := newTestImporter()
	count, err := imp.Import(context.Background(), sheets.New(srv.URL, sheets.KindExport), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	view, _ := store.View("alice")
	assert.Len(t, view.Entries, 2)
}

func TestImportProgress(t *testing.T) {
	srv := exportServer(t, `Date,Description,In,Out
01/02/2024,a,1,
01/03/2024,b,2,
01/04/2024,c,3,`)
	defer srv.Close()

	imp, _ := newTestImporter()
	var calls [][2]int
	_, err := imp.Import(context.Background(), sheets.New(srv.URL, sheets.KindExport), "alice", func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, [2]int{1, 3}, calls[0])
	assert.Equal(t, [2]int{3, 3}, calls[2])
}

func TestImportCancellation(t *testing.T) {
	srv := exportServer(t, `Date,Description,In,Out
01/02/2024,r1,1,
01/03/2024,r2,2,
01/04/2024,r3,3,
01/05/2024,r4,4,
01/06/2024,r5,5,`)
	defer srv.Close()

	imp, store := newTestImporter()
	ctx, cancel := context.WithCancel(context.Background())

	count, err := imp.Import(ctx, sheets.New(srv.URL, sheets.KindExport), "alice", func(done, total int) {
		if done == 2 {
			cancel()
		}
	})
	// cancellation is a distinguishable outcome, not a generic failure
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 2, count)

	// already-written rows stay written, no rollback
	view, viewErr := store.View("alice")
	require.NoError(t, viewErr)
	assert.Len(t, view.Entries, 2)
}

func TestImportFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	imp, _ := newTestImporter()
	_, err := imp.Import(context.Background(), sheets.New(srv.URL, sheets.KindExport), "alice", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestImportFileCSV(t *testing.T) {
	imp, store := newTestImporter()

	dir := t.TempDir()
	path := dir + "/export.csv"
	content := "Date,Description,In,Out\n01/02/2024,From file,12,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	count, err := imp.ImportFile(context.Background(), path, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	view, _ := store.View("alice")
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "From file", view.Entries[0].Description)
}
