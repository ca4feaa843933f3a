package syncer

import (
	"context"
	"fmt"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/shopspring/decimal"

	"github.com/sheetbook/sheetbook/pkg/models"
)

var milli = decimal.NewFromInt(1000)

// YNABTarget pushes ledger entries into a YNAB account. Unlike the webhook,
// YNAB keeps history, so only entries missing remotely are created; matching
// is by date, description and milli-unit amount.
type YNABTarget struct {
	client    ynab.ClientServicer
	budgetID  string
	accountID string
}

func NewYNABTarget(token, budgetID, accountID string) *YNABTarget {
	return &YNABTarget{client: ynab.NewClient(token), budgetID: budgetID, accountID: accountID}
}

func (t *YNABTarget) Name() string { return "ynab" }

func (t *YNABTarget) Push(ctx context.Context, view models.View) error {
	remote, err := t.client.Transaction().GetTransactionsByAccount(t.budgetID, t.accountID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch remote transactions: %w", err)
	}

	existing := make(map[string]bool, len(remote))
	for _, rt := range remote {
		payee := ""
		if rt.PayeeName != nil {
			payee = *rt.PayeeName
		}
		existing[remoteKey(rt.Date.Format("2006-01-02"), payee, rt.Amount)] = true
	}

	payloads := make([]transaction.PayloadTransaction, 0, view.Len())
	for _, e := range view.Entries {
		amount := milliunits(e.Record)
		if existing[remoteKey(e.OccurredOn.Format("2006-01-02"), e.Description, amount)] {
			continue
		}
		payee := e.Description
		memo := e.Category
		payloads = append(payloads, transaction.PayloadTransaction{
			AccountID: t.accountID,
			Date:      api.Date{Time: e.OccurredOn},
			Amount:    amount,
			Cleared:   transaction.ClearingStatusCleared,
			Approved:  true,
			PayeeName: &payee,
			Memo:      &memo,
		})
	}

	if len(payloads) == 0 {
		return nil
	}
	if _, err := t.client.Transaction().CreateTransactions(t.budgetID, payloads); err != nil {
		return fmt.Errorf("failed to create transactions: %w", err)
	}
	return nil
}

func remoteKey(date, payee string, amount int64) string {
	return fmt.Sprintf("%s|%s|%d", date, payee, amount)
}

// milliunits converts the record's signed net amount to YNAB's milli-unit
// integers (expenses negative).
func milliunits(r models.Record) int64 {
	return r.Net().Mul(milli).IntPart()
}
