package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api.rentcast.io/v1"
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 2 // requests per second
	defaultRetryWait = 2 * time.Second
)

var (
	ErrMissingAPIKey    = errors.New("rentcast api key is not configured")
	ErrQuotaExhausted   = errors.New("rentcast quota exhausted")
	ErrPropertyNotFound = errors.New("property not found")
	ErrServerError      = errors.New("rentcast server error")
	ErrUnavailable      = errors.New("rentcast unreachable")
)

// Options configures a Client. Zero values take the defaults.
type Options struct {
	APIKey     string
	BaseURL    string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	RetryDelay time.Duration
}

// Client is a rate-limited, cache-first client for the RentCast API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   failsafe.Executor[*rawResponse]
	cache      *responseCache
	log        *logrus.Logger
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// NewClient creates a RentCast client. A 5xx response is retried once.
func NewClient(opts Options, log *logrus.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryWait
	}

	retryPolicy := retrypolicy.NewBuilder[*rawResponse]().
		HandleIf(func(resp *rawResponse, err error) bool {
			return err == nil && resp != nil && resp.status >= 500
		}).
		WithDelay(opts.RetryDelay).
		WithMaxRetries(1).
		Build()

	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		executor: failsafe.With[*rawResponse](retryPolicy),
		cache:    newResponseCache(cacheCapacity, staleWindow),
		log:      log,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type endpoint struct {
	name string
	path string
	ttl  time.Duration
}

var (
	propertyEndpoint = endpoint{"property", "/properties", propertyTTL}
	rentEndpoint     = endpoint{"rent", "/avm/rent/long-term", rentTTL}
	valueEndpoint    = endpoint{"value", "/avm/value", valueTTL}
	compsEndpoint    = endpoint{"comps", "/listings/rental/long-term", compsTTL}
	marketEndpoint   = endpoint{"market", "/markets", marketTTL}
)

// LookupProperty returns the property record for an address.
func (c *Client) LookupProperty(ctx context.Context, address string) (Property, error) {
	params := url.Values{"address": {address}, "limit": {"1"}}
	return fetch(ctx, c, propertyEndpoint, address, params, func(p payload) Property {
		return normalizeProperty(p, address)
	})
}

// RentEstimate returns the long-term rent valuation for an address.
func (c *Client) RentEstimate(ctx context.Context, address string) (RentEstimate, error) {
	return fetch(ctx, c, rentEndpoint, address, url.Values{"address": {address}}, normalizeRentEstimate)
}

// ValueEstimate returns the value valuation for an address.
func (c *Client) ValueEstimate(ctx context.Context, address string) (ValueEstimate, error) {
	return fetch(ctx, c, valueEndpoint, address, url.Values{"address": {address}}, normalizeValueEstimate)
}

// RentalComps returns rental listings within radius miles of an address.
func (c *Client) RentalComps(ctx context.Context, address string, radius float64) ([]RentalComp, error) {
	r := strconv.FormatFloat(radius, 'f', -1, 64)
	params := url.Values{"address": {address}, "radius": {r}}
	return fetch(ctx, c, compsEndpoint, address+":"+r, params, normalizeRentalComps)
}

// MarketStats returns zip-level market statistics.
func (c *Client) MarketStats(ctx context.Context, zip string) (MarketStats, error) {
	return fetch(ctx, c, marketEndpoint, zip, url.Values{"zipCode": {zip}}, func(p payload) MarketStats {
		return normalizeMarketStats(p, zip)
	})
}

// fetch serves from cache when fresh, otherwise calls the provider. When
// the provider is rate limited or failing, an expired entry is served.
func fetch[T any](ctx context.Context, c *Client, ep endpoint, id string, params url.Values, normalize func(payload) T) (T, error) {
	var zero T
	key := cacheKey(ep.name, id)

	if v, ok := c.cache.Get(key); ok {
		c.logCall(ep.path, http.StatusOK, true, 0)
		return v.(T), nil
	}

	p, err := c.request(ctx, ep.path, params)
	if err != nil {
		if errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrServerError) {
			if v, ok := c.cache.Stale(key); ok {
				c.log.WithFields(logrus.Fields{
					"service":  "rentcast",
					"endpoint": ep.path,
					"reason":   err.Error(),
				}).Warn("serving stale cache entry")
				return v.(T), nil
			}
		}
		return zero, err
	}

	v := normalize(p)
	c.cache.Set(key, v, ep.ttl)
	return v, nil
}

func (c *Client) request(ctx context.Context, path string, params url.Values) (payload, error) {
	if !c.Enabled() {
		return nil, ErrMissingAPIKey
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s: %w", path, err)
	}
	u.RawQuery = params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %v", ErrUnavailable, err)
	}

	start := time.Now()
	var (
		last         *rawResponse
		transportErr error
	)
	attempt := 0
	resp, err := c.executor.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[*rawResponse]) (*rawResponse, error) {
		attempt++
		if attempt > 1 {
			c.log.WithFields(logrus.Fields{
				"service":     "rentcast",
				"endpoint":    path,
				"status_code": last.status,
			}).Warn("retrying after server error")
		}
		r, err := c.doRequest(ctx, u.String())
		transportErr = err
		if err == nil {
			last = r
		}
		return r, err
	})
	elapsed := time.Since(start)

	if transportErr != nil || (err != nil && last == nil) {
		cause := transportErr
		if cause == nil {
			cause = err
		}
		c.logCall(path, 0, false, elapsed)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, cause)
	}
	if err != nil {
		// Retries exhausted on a server error.
		resp = last
	}

	switch {
	case resp.status == http.StatusTooManyRequests:
		c.log.WithFields(logrus.Fields{
			"service":         "rentcast",
			"endpoint":        path,
			"status_code":     resp.status,
			"remaining_quota": remainingQuota(resp.header),
			"elapsed":         elapsed,
		}).Warn("rentcast rate limited")
		return nil, ErrQuotaExhausted
	case resp.status == http.StatusNotFound:
		c.logCall(path, resp.status, false, elapsed)
		return nil, ErrPropertyNotFound
	case resp.status >= 500:
		c.logCall(path, resp.status, false, elapsed)
		return nil, fmt.Errorf("%w: status %d after retry", ErrServerError, resp.status)
	case resp.status >= 400:
		c.logCall(path, resp.status, false, elapsed)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrServerError, resp.status)
	}

	c.logCall(path, resp.status, false, elapsed)
	return decodePayload(resp.body)
}

func (c *Client) doRequest(ctx context.Context, urlStr string) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &rawResponse{status: httpResp.StatusCode, header: httpResp.Header, body: body}, nil
}

// decodePayload keeps numbers as json.Number so decimals are parsed from
// their literal text.
func decodePayload(body []byte) (payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: invalid response payload: %v", ErrServerError, err)
	}

	switch t := v.(type) {
	case map[string]interface{}:
		return t, nil
	case []interface{}:
		return payload{"items": t}, nil
	}
	return nil, fmt.Errorf("%w: unsupported response payload", ErrServerError)
}

func remainingQuota(h http.Header) string {
	for _, k := range []string{"X-RateLimit-Remaining", "RateLimit-Remaining", "X-RateLimit-Remaining-Monthly"} {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) logCall(path string, status int, cacheHit bool, elapsed time.Duration) {
	c.log.WithFields(logrus.Fields{
		"service":     "rentcast",
		"endpoint":    path,
		"status_code": status,
		"cache_hit":   cacheHit,
		"elapsed":     elapsed,
	}).Info("rentcast call")
}
