// Package ledger talks to the external certificate ledger. The ledger is a
// remote service with a publish/confirm contract; everything that can go
// wrong with it is retryable, never a permanent rejection.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"eqboard/pkg/platform/sentinel"
)

// Transaction is the payload published for one certificate. Nonce is the
// idempotency key so a replayed publish cannot double-enter the chain.
type Transaction struct {
	EquationID    string `json:"equation_id"`
	ContentHash   string `json:"content_hash"`
	Signature     string `json:"signature"`
	SubmitterHash string `json:"submitter_hash"`
	Nonce         string `json:"nonce"`
}

// Client publishes certificate transactions over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// mineResponse is what the ledger returns once a block is mined.
type mineResponse struct {
	Index     int    `json:"index"`
	BlockHash string `json:"block_hash"`
}

// Publish submits the transaction and asks the ledger to mine it, returning
// the ledger reference. Unreachable hosts and non-2xx statuses come back
// wrapping sentinel.ErrUnavailable so callers know to retry.
func (c *Client) Publish(ctx context.Context, tx Transaction) (string, error) {
	if err := c.post(ctx, "/add_transaction", tx, nil); err != nil {
		return "", err
	}

	var mined mineResponse
	if err := c.post(ctx, "/mine_block", struct{}{}, &mined); err != nil {
		return "", err
	}
	if mined.BlockHash == "" {
		return "", fmt.Errorf("ledger returned no block hash: %w", sentinel.ErrUnavailable)
	}
	return fmt.Sprintf("block-%d:%s", mined.Index, mined.BlockHash), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ledger payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s: %v: %w", path, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ledger %s returned %d: %w", path, resp.StatusCode, sentinel.ErrUnavailable)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode ledger %s response: %v: %w", path, err, sentinel.ErrUnavailable)
		}
	}
	return nil
}
