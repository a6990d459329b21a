// Package neverbounce provides a batch email verification client. It is a
// pure request/response mapper with no persistence.
package neverbounce

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/resilience"
)

// Default base URL for the verification API.
const defaultBaseURL = "https://api.neverbounce.com/v4"

// Client defines the batch verification operation.
type Client interface {
	// VerifyBatch verifies emails and returns one result per email the
	// provider reported on. Emails absent from the provider response are
	// not emitted; callers treat them as UNKNOWN.
	VerifyBatch(ctx context.Context, emails []string) ([]VerificationResult, error)
}

// VerificationResult is a normalized provider verdict for one email.
type VerificationResult struct {
	Email  string
	Status model.VerificationStatus
	Detail json.RawMessage
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMaxRetries sets the transient-failure retry budget (default 2).
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		c.maxRetries = n
	}
}

// WithRetrySleep overrides the backoff sleep function (for testing).
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *httpClient) {
		c.retrySleep = sleep
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	maxRetries int
	retrySleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a verification client.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	c := &httpClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		maxRetries: 2,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if apiKey == "" {
		return nil, apperr.Configuration("neverbounce: api key is required")
	}
	if c.maxRetries < 0 {
		return nil, apperr.Validation("neverbounce: max retries must be >= 0, got %d", c.maxRetries)
	}

	return c, nil
}

// verifyRequest is the body for POST /bulk/verify.
type verifyRequest struct {
	Key    string   `json:"key"`
	Emails []string `json:"emails"`
}

// verifyResponse is the provider's result envelope.
type verifyResponse struct {
	Results []resultRow `json:"results"`
}

type resultRow struct {
	Email  string          `json:"email"`
	Result string          `json:"result"`
	Detail json.RawMessage `json:"flags,omitempty"`
}

func (c *httpClient) VerifyBatch(ctx context.Context, emails []string) ([]VerificationResult, error) {
	emails = canonicalize(emails)
	if len(emails) == 0 {
		return []VerificationResult{}, nil
	}

	body, err := json.Marshal(verifyRequest{Key: c.apiKey, Emails: emails})
	if err != nil {
		return nil, eris.Wrap(err, "neverbounce: marshal request")
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts: c.maxRetries + 1,
		OnRetry:     resilience.RetryLogger("neverbounce", "bulk_verify"),
		Sleep:       c.retrySleep,
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*verifyResponse, error) {
		return c.doVerify(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	results := make([]VerificationResult, 0, len(resp.Results))
	for _, row := range resp.Results {
		if row.Email == "" {
			continue
		}
		results = append(results, VerificationResult{
			Email:  strings.ToLower(strings.TrimSpace(row.Email)),
			Status: NormalizeStatus(row.Result),
			Detail: row.Detail,
		})
	}
	return results, nil
}

func (c *httpClient) doVerify(ctx context.Context, body []byte) (*verifyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bulk/verify", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "neverbounce: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "neverbounce: bulk verify request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "neverbounce: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("neverbounce: status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var parsed verifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrap(err, "neverbounce: unmarshal response")
	}
	return &parsed, nil
}

// NormalizeStatus maps a provider status string onto the closed
// verification enum. Unrecognized statuses map to UNKNOWN.
func NormalizeStatus(raw string) model.VerificationStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "valid", "verified":
		return model.VerificationVerified
	case "invalid":
		return model.VerificationInvalid
	case "risky", "accept_all", "catch_all":
		return model.VerificationRisky
	default:
		return model.VerificationUnknown
	}
}

// canonicalize lowercases, trims, and de-duplicates emails, preserving
// first-occurrence order and dropping empties.
func canonicalize(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
