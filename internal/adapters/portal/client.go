// Package portal implements the paid rental-listings API adapter. Every call
// spends against a hard monthly budget tracked by the ledger, so the client
// gates each request on the remaining budget and only records spend after a
// successful response.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rentradar/internal/adapters/ledger"
	"rentradar/internal/pool"
	"rentradar/pkg/logger"
	"rentradar/pkg/metrics"
)

// Source tag carried on listings produced by this adapter.
const Source = "portal"

// Default client configuration constants.
const (
	defaultBaseURL     = "https://api.rentcast.io/v1"
	defaultTimeout     = 10 * time.Second
	defaultPageLimit   = 500
	defaultMinInterval = 5 * time.Second
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPageLimit caps the per-request result size.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithRateLimiter sets a shared limiter for the minimum interval between
// upstream requests.
func WithRateLimiter(rl *pool.RateLimiter) Option {
	return func(c *Client) {
		if rl != nil {
			c.limiter = rl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client calls the rental-listings API with budget and rate-limit gating.
type Client struct {
	baseURL   string
	apiKey    string
	timeout   time.Duration
	pageLimit int
	client    *http.Client
	limiter   *pool.RateLimiter
	ledger    ledger.Ledger
	log       logger.Logger
}

// NewClient creates an API client. The ledger is required: it enforces the
// monthly budget across restarts.
func NewClient(apiKey string, budget ledger.Ledger, opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		apiKey:    apiKey,
		timeout:   defaultTimeout,
		pageLimit: defaultPageLimit,
		ledger:    budget,
		log:       logger.Named("portal"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	if c.limiter == nil {
		c.limiter = pool.NewRateLimiter(defaultMinInterval)
	}
	return c
}

// BudgetRemaining returns how many calls are left in the current period.
func (c *Client) BudgetRemaining(ctx context.Context) (int, error) {
	count, err := c.ledger.Count(ctx, ledger.CurrentPeriod())
	if err != nil {
		return 0, err
	}
	remaining := c.ledger.Cap() - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// FetchCity queries active long-term rentals for one city. Returns
// ErrBudgetExhausted without touching the network when the budget is spent;
// network and upstream errors return ErrRequest without spending budget.
func (c *Client) FetchCity(ctx context.Context, city, state string, minPrice, maxPrice int) ([]Record, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	period := ledger.CurrentPeriod()
	count, err := c.ledger.Count(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("budget check: %w", err)
	}
	if count >= c.ledger.Cap() {
		metrics.RecordBudgetRejection()
		c.log.Error(ctx, "monthly api budget exhausted; serving cached data only",
			logger.Int("count", count), logger.Int("cap", c.ledger.Cap()))
		return nil, ErrBudgetExhausted
	}

	c.limiter.Wait("portal")
	metrics.RecordSourceFetch(Source)
	start := time.Now()

	raw, err := c.request(ctx, city, state, minPrice, maxPrice)
	if err != nil {
		metrics.RecordSourceFetchError(Source)
		return nil, err
	}
	metrics.RecordFetchDuration(Source, float64(time.Since(start).Milliseconds()))

	// Spend only after a successful response. A false return means another
	// worker took the last slot mid-flight; the response is still usable.
	ok, err := c.ledger.TryIncrement(ctx, period)
	if err != nil {
		c.log.Warn(ctx, "failed to record budget spend", logger.Error(err))
	} else if ok {
		metrics.RecordBudgetSpend()
		if remaining, err := c.BudgetRemaining(ctx); err == nil {
			metrics.UpdateBudgetRemaining(remaining)
		}
	} else {
		c.log.Warn(ctx, "budget cap reached while request was in flight")
	}

	listed := raw[:0]
	for _, item := range raw {
		if item.publiclyListed() {
			listed = append(listed, item)
		}
	}
	metrics.RecordListingsIngested(Source, len(listed))
	return listed, nil
}

func (c *Client) request(ctx context.Context, city, state string, minPrice, maxPrice int) ([]Record, error) {
	params := url.Values{}
	params.Set("city", city)
	params.Set("state", state)
	params.Set("price", fmt.Sprintf("%d:%d", minPrice, maxPrice))
	params.Set("status", "Active")
	params.Set("limit", strconv.Itoa(c.pageLimit))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/listings/rental/long-term?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRequest, resp.StatusCode)
	}

	return decodeEnvelope(resp.Body)
}

// decodeEnvelope accepts either a bare JSON array or an object wrapping the
// array under data, results, or listings.
func decodeEnvelope(r io.Reader) ([]Record, error) {
	var body json.RawMessage
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrRequest, err)
	}

	var list []Record
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope struct {
		Data     []Record `json:"data"`
		Results  []Record `json:"results"`
		Listings []Record `json:"listings"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrRequest, err)
	}
	switch {
	case len(envelope.Data) > 0:
		return envelope.Data, nil
	case len(envelope.Results) > 0:
		return envelope.Results, nil
	default:
		return envelope.Listings, nil
	}
}
