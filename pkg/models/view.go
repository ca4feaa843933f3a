package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Entry is one row of a derived ledger view: a record plus its display
// sequence number and the running balance up to and including it.
type Entry struct {
	Record  `yaml:",inline"`
	Ref     int             `json:"ref" yaml:"ref"`
	Balance decimal.Decimal `json:"balance" yaml:"balance"`
}

// View is the ordered projection of one ledger's record set. Entries are held
// in computation order (oldest first); callers that show the ledger to a user
// want Display order instead.
type View struct {
	LedgerID string  `json:"ledger_id"`
	Entries  []Entry `json:"entries"`
}

// DeriveView computes the ordered view from an unordered record set. It is a
// pure function of the set: re-deriving from the same records always yields
// the same output, regardless of insertion order. Refs are contiguous from 1
// and the balance at ref k is the sum of In-Out over refs 1..k.
func DeriveView(ledgerID string, records []Record) View {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.OccurredOn.Equal(b.OccurredOn) {
			return a.OccurredOn.Before(b.OccurredOn)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Seq < b.Seq
	})

	entries := make([]Entry, 0, len(sorted))
	balance := decimal.Zero
	for i, rec := range sorted {
		balance = balance.Add(rec.Net())
		entries = append(entries, Entry{Record: rec, Ref: i + 1, Balance: balance})
	}
	return View{LedgerID: ledgerID, Entries: entries}
}

// Display returns the entries most-recent-first. This is a presentation
// choice only; refs and balances are unchanged.
func (v View) Display() []Entry {
	out := make([]Entry, len(v.Entries))
	for i, e := range v.Entries {
		out[len(v.Entries)-1-i] = e
	}
	return out
}

// Balance returns the final running balance, zero for an empty ledger.
func (v View) Balance() decimal.Decimal {
	if len(v.Entries) == 0 {
		return decimal.Zero
	}
	return v.Entries[len(v.Entries)-1].Balance
}

// Len returns the number of entries.
func (v View) Len() int { return len(v.Entries) }
