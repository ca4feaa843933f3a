package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to records imported without a category column.
const DefaultCategory = "Other"

// Record represents a single ledger transaction: one income or expense event.
// Ref and balance are never stored on the record; they are derived on read
// from the full record set (see DeriveView).
type Record struct {
	ID          string          `json:"id" yaml:"id"`
	OccurredOn  time.Time       `json:"occurred_on" yaml:"occurred_on"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	In          decimal.Decimal `json:"in" yaml:"in"`
	Out         decimal.Decimal `json:"out" yaml:"out"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	// Seq is a monotonic insertion counter, the final ordering tiebreak for
	// records created within the same instant.
	Seq uint64 `json:"seq" yaml:"seq"`
}

// Net returns the signed effect of the record on the running balance.
func (r Record) Net() decimal.Decimal {
	return r.In.Sub(r.Out)
}

// Normalize trims free-text fields and fills in the default category.
func (r Record) Normalize() Record {
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	return r
}

// Patch carries the editable fields of a record. An update replaces all of
// them at once; there is no field-level merge.
type Patch struct {
	OccurredOn  time.Time       `json:"occurred_on"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	In          decimal.Decimal `json:"in"`
	Out         decimal.Decimal `json:"out"`
}
