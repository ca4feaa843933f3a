package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sheetbook/sheetbook/pkg/ledger"
	"github.com/sheetbook/sheetbook/pkg/models"
	"github.com/sheetbook/sheetbook/pkg/parse"
	"github.com/sheetbook/sheetbook/pkg/sheets"
)

// ErrCancelled marks a cooperatively cancelled import. It is an outcome, not
// a failure: rows written before the cancellation stay written.
var ErrCancelled = errors.New("import cancelled")

// Progress is invoked after every successfully written row.
type Progress func(imported, total int)

// Importer brings spreadsheet rows into a ledger. It is decoupled from CLI
// and HTTP details so both layers, plus the background watcher, reuse it.
type Importer struct {
	logger  *log.Logger
	store   *ledger.Store
	fetcher sheets.Fetcher
}

func New(store *ledger.Store, fetcher sheets.Fetcher, logger *log.Logger) *Importer {
	return &Importer{logger: logger, store: store, fetcher: fetcher}
}

// Import fetches a spreadsheet export and writes its rows into the ledger.
// A fetch failure is a hard error; per-row failures are logged, counted as
// skipped and never abort the rest — spreadsheet data is assumed noisy.
// Returns the number of rows actually written.
func (i *Importer) Import(ctx context.Context, src sheets.Source, ledgerID string, onProgress Progress) (int, error) {
	url, err := src.ExportURL()
	if err != nil {
		return 0, err
	}
	text, err := i.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	i.logger.Debug("fetched export", "source", src.Ref, "bytes", len(text))
	return i.importRows(ctx, parse.Table(text), ledgerID, onProgress)
}

// ImportFile imports a local export file. CSV and legacy .xls exports are
// supported; the file extension decides.
func (i *Importer) ImportFile(ctx context.Context, path, ledgerID string, onProgress Progress) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read export file: %w", err)
	}
	return i.ImportBytes(ctx, data, filepath.Ext(path), ledgerID, onProgress)
}

// ImportBytes imports an in-memory export, selecting the parser by the given
// file extension.
func (i *Importer) ImportBytes(ctx context.Context, data []byte, ext, ledgerID string, onProgress Progress) (int, error) {
	var rows []parse.Row
	if strings.EqualFold(ext, ".xls") {
		parsed, err := parse.TableXLS(data)
		if err != nil {
			return 0, fmt.Errorf("failed to parse xls export: %w", err)
		}
		rows = parsed
	} else {
		rows = parse.Table(string(data))
	}
	return i.importRows(ctx, rows, ledgerID, onProgress)
}

func (i *Importer) importRows(ctx context.Context, rows []parse.Row, ledgerID string, onProgress Progress) (int, error) {
	imported := 0
	skipped := 0

	for idx, row := range rows {
		// cooperative cancellation, checked at each row boundary
		if ctx.Err() != nil {
			i.logger.Info("import cancelled", "ledger", ledgerID, "imported", imported, "remaining", len(rows)-idx)
			return imported, fmt.Errorf("%w after %d of %d rows", ErrCancelled, imported, len(rows))
		}

		rec, ok := i.recordFromRow(row, idx)
		if !ok {
			skipped++
			continue
		}

		if _, err := i.store.Append(ledgerID, rec); err != nil {
			i.logger.Warn("row rejected by store, skipping", "ledger", ledgerID, "row", idx, "err", err)
			skipped++
			continue
		}
		imported++
		if onProgress != nil {
			onProgress(imported, len(rows))
		}
	}

	i.logger.Info("import complete", "ledger", ledgerID, "imported", imported, "skipped", skipped)
	return imported, nil
}

// recordFromRow maps known header synonyms onto a candidate record. Rows
// where both amounts resolve to zero carry no financial event and are
// skipped.
func (i *Importer) recordFromRow(row parse.Row, idx int) (models.Record, bool) {
	dateRaw, _ := row.Field("Date")
	occurredOn, recognized := parse.Date(dateRaw)
	if !recognized {
		i.logger.Debug("unrecognized date, using sentinel", "row", idx, "date", dateRaw)
	}

	description, _ := row.Field("Description", "Desc")
	category, _ := row.Field("Category", "Cat")
	inRaw, _ := row.Field("In", "Income")
	outRaw, _ := row.Field("Out", "Expense")

	in := parse.Amount(inRaw)
	out := parse.Amount(outRaw)
	if in.IsZero() && out.IsZero() {
		i.logger.Debug("zero-amount row, skipping", "row", idx)
		return models.Record{}, false
	}

	return models.Record{
		OccurredOn:  occurredOn,
		Description: description,
		Category:    category,
		In:          in,
		Out:         out,
	}, true
}
