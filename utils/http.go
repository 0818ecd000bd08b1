package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"expansion-evaluator/internal/types"
)

// maxBodyBytes caps how much of a page we keep in memory
const maxBodyBytes = 10 << 20

// Response is a fetched page
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// FetchOptions tune a single request
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// Fetcher is the HTTP fetch capability every extraction strategy depends on.
// Errors are always *FetchError except for caller context cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*Response, error)
}

// HTTPClient provides HTTP functionality with rate limiting, user agent rotation and TLS fallback
type HTTPClient struct {
	client    *http.Client
	insecure  *http.Client
	config    *types.Config
	logger    types.Logger
	limiter   *rate.Limiter
	userAgent string
	headers   map[string]string
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	return &HTTPClient{
		client:   &http.Client{Transport: newTransport(false)},
		insecure: &http.Client{Transport: newTransport(true)},
		config:   config,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

func newTransport(skipVerify bool) *http.Transport {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if skipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // fallback for stores with broken certificates
	}
	return t
}

// WithUserAgent returns a client sharing transports and limiter that always sends ua
func (h *HTTPClient) WithUserAgent(ua string) *HTTPClient {
	clone := *h
	clone.userAgent = ua
	return &clone
}

// WithHeaders returns a client sharing transports and limiter that adds headers to every request
func (h *HTTPClient) WithHeaders(headers map[string]string) *HTTPClient {
	clone := *h
	clone.headers = make(map[string]string, len(h.headers)+len(headers))
	for k, v := range h.headers {
		clone.headers[k] = v
	}
	for k, v := range headers {
		clone.headers[k] = v
	}
	return &clone
}

// Fetch performs a GET request. Timeouts and connection failures are retried
// up to MaxRetries times with exponential backoff; blocked and status
// responses are returned immediately.
func (h *HTTPClient) Fetch(ctx context.Context, url string, opts FetchOptions) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			h.logger.Debugf("Retrying %s in %v (attempt %d/%d)", url, backoff, attempt+1, h.config.MaxRetries+1)
			if err := Sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if err := h.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("rate limiter: %w", err)}
		}

		if err := Sleep(ctx, h.politenessDelay()); err != nil {
			return nil, err
		}

		h.logger.Debugf("Making request to %s (attempt %d/%d)", url, attempt+1, h.config.MaxRetries+1)
		resp, fetchErr := h.do(ctx, h.client, url, opts)
		if fetchErr != nil && fetchErr.Kind == KindTLS {
			h.logger.Warnf("TLS verification failed for %s, retrying without verification", url)
			resp, fetchErr = h.do(ctx, h.insecure, url, opts)
		}
		if fetchErr == nil {
			h.logger.Debugf("Successfully retrieved %d bytes from %s", len(resp.Body), url)
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = fetchErr
		if fetchErr.Kind != KindTimeout && fetchErr.Kind != KindNetwork {
			h.logger.Debugf("Request to %s failed: %v", url, fetchErr)
			return nil, fetchErr
		}
		h.logger.Warnf("Request failed (attempt %d): %v", attempt+1, fetchErr)
	}

	return nil, lastErr
}

// Get fetches url with the secondary timeout and returns the body
func (h *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := h.Fetch(ctx, url, FetchOptions{Timeout: h.config.Timeouts.Secondary})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (h *HTTPClient) do(ctx context.Context, client *http.Client, url string, opts FetchOptions) (*Response, *FetchError) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = h.config.Timeouts.Secondary
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	h.setHeaders(req, opts)

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransport(url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(url, fmt.Errorf("failed to read response body: %w", err))
	}

	if fe := classifyStatus(url, resp.StatusCode, body); fe != nil {
		return nil, fe
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Response{URL: finalURL, StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (h *HTTPClient) setHeaders(req *http.Request, opts FetchOptions) {
	ua := opts.UserAgent
	if ua == "" {
		ua = h.userAgent
	}
	if ua == "" {
		ua = h.pickUserAgent()
	}

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("DNT", "1")

	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
}

func (h *HTTPClient) pickUserAgent() string {
	agents := h.config.UserAgents
	if len(agents) == 0 {
		return types.DefaultUserAgents[0]
	}
	return agents[rand.Intn(len(agents))]
}

func (h *HTTPClient) politenessDelay() time.Duration {
	delay := h.config.RequestDelay
	if h.config.RequestJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(h.config.RequestJitter)))
	}
	return delay
}

// Close releases idle connections
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
	h.insecure.CloseIdleConnections()
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
