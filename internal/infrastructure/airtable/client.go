package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"newsreview/internal/config"
)

const maxGetRetries = 3

// Client talks to an Airtable-style record API: bearer auth, JSON records
// with a fields object, offset-token pagination. It backs all three
// repository ports.
type Client struct {
	baseURL        string
	baseID         string
	token          string
	articlesTable  string
	reviewsTable   string
	reviewersTable string
	http           *http.Client
	logger         *slog.Logger
}

// New builds a client from configuration.
func New(cfg config.AirtableConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		baseID:         cfg.BaseID,
		token:          cfg.Token,
		articlesTable:  cfg.ArticlesTable,
		reviewsTable:   cfg.ReviewsTable,
		reviewersTable: cfg.ReviewersTable,
		http:           &http.Client{Timeout: 10 * time.Second},
		logger:         logger,
	}
}

type record struct {
	ID          string          `json:"id"`
	CreatedTime time.Time       `json:"createdTime"`
	Fields      json.RawMessage `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

// apiError carries the HTTP status of a rejected request so callers can
// tell a missing record apart from an unavailable store.
type apiError struct {
	status int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("record api returned %d %s", e.status, http.StatusText(e.status))
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
}

// listRecords follows the offset token until the store reports no more
// pages, accumulating every record. A single page must never be assumed
// to cover the collection.
func (c *Client) listRecords(ctx context.Context, table string, params url.Values) ([]record, error) {
	var records []record
	offset := ""

	for {
		page := url.Values{}
		for key, values := range params {
			page[key] = values
		}
		if offset != "" {
			page.Set("offset", offset)
		}

		target := c.tableURL(table)
		if encoded := page.Encode(); encoded != "" {
			target += "?" + encoded
		}

		var resp listResponse
		if err := c.getJSON(ctx, target, &resp); err != nil {
			return nil, err
		}

		records = append(records, resp.Records...)
		if resp.Offset == "" {
			return records, nil
		}
		offset = resp.Offset
	}
}

// getJSON performs an idempotent GET with bounded exponential backoff.
// Client errors from the store are permanent; transport failures and 5xx
// responses are retried.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request records: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("record api returned %s", resp.Status)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return backoff.Permanent(&apiError{status: resp.StatusCode})
		}

		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxGetRetries), ctx)
	return backoff.Retry(op, policy)
}

// send performs a non-idempotent write. Writes are never retried here: a
// lost acknowledgment is reported as sent=true so callers can classify
// the outcome as ambiguous instead of risking a duplicate record.
func (c *Client) send(ctx context.Context, method, rawURL string, payload, v any) (sent bool, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("record api returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
	}
	return false, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// escapeFormulaString quotes a value for use inside a filterByFormula
// single-quoted literal.
func escapeFormulaString(value string) string {
	return strings.ReplaceAll(value, "'", "\\'")
}
