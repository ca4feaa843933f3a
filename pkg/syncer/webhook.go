package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sheetbook/sheetbook/pkg/models"
)

// webhookExpense is the endpoint's fixed column shape. Dates are MM/DD/YYYY,
// amounts bare numbers with zero for the absent side.
type webhookExpense struct {
	Ref         int     `json:"ref"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	In          float64 `json:"in"`
	Out         float64 `json:"out"`
	Balance     float64 `json:"balance"`
}

type webhookPayload struct {
	Action   string           `json:"action"`
	Expenses []webhookExpense `json:"expenses"`
}

type webhookResponse struct {
	Success bool `json:"success"`
}

// WebhookTarget POSTs the full ledger as one batch to a configured webhook
// URL, replacing the endpoint's existing content.
type WebhookTarget struct {
	url    string
	client *http.Client
}

func NewWebhookTarget(url string, timeout time.Duration) *WebhookTarget {
	if timeout <= 0 {
		timeout = pushTimeout
	}
	return &WebhookTarget{url: url, client: &http.Client{Timeout: timeout}}
}

func (t *WebhookTarget) Name() string { return "webhook" }

func (t *WebhookTarget) Push(ctx context.Context, view models.View) error {
	payload := webhookPayload{Action: "batch", Expenses: make([]webhookExpense, 0, view.Len())}
	for _, e := range view.Entries {
		payload.Expenses = append(payload.Expenses, webhookExpense{
			Ref:         e.Ref,
			Date:        e.OccurredOn.Format("01/02/2006"),
			Description: e.Description,
			Category:    e.Category,
			In:          e.In.InexactFloat64(),
			Out:         e.Out.InexactFloat64(),
			Balance:     e.Balance.InexactFloat64(),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push returned status %d", resp.StatusCode)
	}
	var parsed webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("malformed push response: %w", err)
	}
	if !parsed.Success {
		return fmt.Errorf("endpoint rejected the batch")
	}
	return nil
}
