// Package pdl provides a rate-limited, paginated client for the People
// Data Labs person search API.
package pdl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/resilience"
)

// Default base URL for the PDL v5 API.
const defaultBaseURL = "https://api.peopledatalabs.com/v5"

const (
	maxPageSize   = 100
	maxRetryCap   = 10
	defaultSize   = 100
	defaultTries  = 3
	searchTimeout = 30 * time.Second
)

// Client defines the person search operations.
type Client interface {
	// SearchPage fetches one page of people matching filters. An empty
	// cursor starts a new search; the returned cursor is empty on the
	// last page.
	SearchPage(ctx context.Context, filters SearchFilters, cursor string, pageSize int) (*SearchPageResult, error)

	// FetchAllCandidates pages through search results until limit records
	// are accumulated or the provider is exhausted, then truncates to limit.
	FetchAllCandidates(ctx context.Context, filters SearchFilters, limit int) ([]Person, error)
}

// SearchFilters describes the targeting criteria sent to the provider.
type SearchFilters struct {
	JobTitles    []string `json:"job_titles,omitempty"`
	JobLevels    []string `json:"job_levels,omitempty"`
	Industries   []string `json:"industries,omitempty"`
	Locations    []string `json:"locations,omitempty"`
	CompanySizes []string `json:"company_sizes,omitempty"`
}

// SearchPageResult holds one page of results plus the pagination cursor.
type SearchPageResult struct {
	Items      []Person
	NextCursor string
}

// Person is the normalized record mapped from a provider result row.
// Fields the provider omits or sends with the wrong type are left zero.
type Person struct {
	ID             string
	WorkEmail      string
	FirstName      string
	LastName       string
	JobTitle       string
	JobCompanyID   string
	JobCompanyName string
	LinkedinURL    string
	Likelihood     *float64
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

// WithPageSize sets the page size used by FetchAllCandidates. Must be in [1,100].
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

// WithMaxRetries sets the transient-failure retry budget. Must be in [0,10].
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		c.maxRetries = n
		c.maxRetriesSet = true
	}
}

// WithMinRequestInterval enforces a minimum delay between requests,
// independent of retry backoff. Zero disables throttling.
func WithMinRequestInterval(d time.Duration) Option {
	return func(c *httpClient) {
		c.minInterval = d
		c.limiter = nil
	}
}

// WithLimiter injects a shared rate limiter so multiple clients for the
// same connector throttle together. Overrides WithMinRequestInterval.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRetrySleep overrides the backoff sleep function (for testing).
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *httpClient) {
		c.retrySleep = sleep
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	http          *http.Client
	pageSize      int
	maxRetries    int
	maxRetriesSet bool
	minInterval   time.Duration
	limiter       *rate.Limiter
	retrySleep    func(ctx context.Context, d time.Duration) error
}

// NewClient creates a PDL client. Option values are validated up front:
// page size in [1,100], retry budget in [0,10], non-negative interval.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	c := &httpClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		pageSize:   defaultSize,
		maxRetries: defaultTries,
		http: &http.Client{
			Timeout: searchTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if apiKey == "" {
		return nil, apperr.Configuration("pdl: api key is required")
	}
	if c.pageSize < 1 || c.pageSize > maxPageSize {
		return nil, apperr.Validation("pdl: page size must be in [1,%d], got %d", maxPageSize, c.pageSize)
	}
	if c.maxRetries < 0 || c.maxRetries > maxRetryCap {
		return nil, apperr.Validation("pdl: max retries must be in [0,%d], got %d", maxRetryCap, c.maxRetries)
	}
	if c.minInterval < 0 {
		return nil, apperr.Validation("pdl: min request interval must be >= 0, got %s", c.minInterval)
	}

	if c.limiter == nil {
		if c.minInterval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(c.minInterval), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}

	return c, nil
}

// searchRequest is the body for POST /person/search.
type searchRequest struct {
	Query       map[string]any `json:"query"`
	Size        int            `json:"size"`
	ScrollToken string         `json:"scroll_token,omitempty"`
}

// searchResponse is the provider's page envelope.
type searchResponse struct {
	Status      int               `json:"status"`
	Data        []json.RawMessage `json:"data"`
	ScrollToken string            `json:"scroll_token"`
	Total       int               `json:"total"`
}

func (c *httpClient) SearchPage(ctx context.Context, filters SearchFilters, cursor string, pageSize int) (*SearchPageResult, error) {
	if pageSize == 0 {
		pageSize = c.pageSize
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return nil, apperr.Validation("pdl: page size must be in [1,%d], got %d", maxPageSize, pageSize)
	}

	body, err := json.Marshal(searchRequest{
		Query:       buildQuery(filters),
		Size:        pageSize,
		ScrollToken: cursor,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pdl: marshal search request")
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts: c.maxRetries + 1,
		OnRetry:     resilience.RetryLogger("pdl", "person_search"),
		Sleep:       c.retrySleep,
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*searchResponse, error) {
		return c.doSearch(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	items := make([]Person, 0, len(resp.Data))
	for _, raw := range resp.Data {
		items = append(items, parsePerson(raw))
	}

	zap.L().Debug("pdl page fetched",
		zap.Int("items", len(items)),
		zap.Bool("has_next", resp.ScrollToken != ""),
	)

	return &SearchPageResult{Items: items, NextCursor: resp.ScrollToken}, nil
}

// doSearch performs one throttled HTTP attempt. The rate limiter gates
// every attempt, so retries still respect the request interval.
func (c *httpClient) doSearch(ctx context.Context, body []byte) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pdl: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/person/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "pdl: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pdl: person search request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pdl: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("pdl: status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrap(err, "pdl: unmarshal search response")
	}
	return &parsed, nil
}

func (c *httpClient) FetchAllCandidates(ctx context.Context, filters SearchFilters, limit int) ([]Person, error) {
	if limit < 1 {
		return nil, apperr.Validation("pdl: limit must be a positive integer, got %d", limit)
	}

	var (
		all    []Person
		cursor string
	)
	for len(all) < limit {
		page, err := c.SearchPage(ctx, filters, cursor, c.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// buildQuery maps filters into the provider's bool/term query shape.
func buildQuery(filters SearchFilters) map[string]any {
	var must []map[string]any
	addTerms := func(field string, values []string) {
		if len(values) > 0 {
			must = append(must, map[string]any{"terms": map[string]any{field: values}})
		}
	}
	addTerms("job_title", filters.JobTitles)
	addTerms("job_title_levels", filters.JobLevels)
	addTerms("industry", filters.Industries)
	addTerms("location_name", filters.Locations)
	addTerms("job_company_size", filters.CompanySizes)

	// Only people with a work email are useful downstream.
	must = append(must, map[string]any{"exists": map[string]any{"field": "work_email"}})

	return map[string]any{"bool": map[string]any{"must": must}}
}
