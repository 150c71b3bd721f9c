// Package pinata uploads images and token metadata to the Pinata IPFS
// pinning service.
package pinata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Pinata API endpoint.
	DefaultBaseURL = "https://api.pinata.cloud"
	// DefaultTimeout is the HTTP client timeout.
	DefaultTimeout = 60 * time.Second
	// DefaultRate is the request rate allowed against the API, per second.
	DefaultRate = 3
)

// ErrMissingCredentials is returned when the API key or secret is empty.
var ErrMissingCredentials = errors.New("pinata: API key and secret are required")

// PinResponse is the pinning endpoints' response body.
type PinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`

	// Cached is set when the hash came from the local pin cache and no
	// request was made.
	Cached bool `json:"-"`
}

// URI returns the ipfs:// URI of the pinned content.
func (r *PinResponse) URI() string {
	return "ipfs://" + r.IpfsHash
}

// APIError represents a non-2xx response from Pinata.
type APIError struct {
	StatusCode int
	Reason     string
	Details    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("pinata: HTTP %d", e.StatusCode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// IsUnauthorized returns true if the credentials were rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRateLimited returns true if the request was throttled.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Client is a Pinata API client.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	metrics    *Metrics
	logger     *slog.Logger
	workers    int
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets the request rate. A zero limit disables limiting.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit == 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithCache skips uploads of content that was pinned before.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithMetrics records upload counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithConcurrency sets how many files StoreImages uploads at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewClient creates a Pinata client.
func NewClient(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(DefaultRate, 1),
		logger:  slog.Default(),
		workers: 4,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// PinFileToIPFS uploads one file under the given pin name.
func (c *Client) PinFileToIPFS(ctx context.Context, name string, r io.Reader) (*PinResponse, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	key := cacheKey("file", content)
	if resp, ok := c.cached(key); ok {
		c.logger.Debug("pin cache hit", slog.String("name", name), slog.String("ipfs_hash", resp.IpfsHash))
		return resp, nil
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	meta, err := json.Marshal(pinMetadata{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	var resp PinResponse
	if err := c.do(ctx, "/pinning/pinFileToIPFS", w.FormDataContentType(), &body, &resp); err != nil {
		c.metrics.failed("file")
		return nil, err
	}
	c.metrics.pinned("file")
	c.store(key, &resp)
	return &resp, nil
}

// PinJSONToIPFS uploads content as a JSON document under the given pin name.
func (c *Client) PinJSONToIPFS(ctx context.Context, name string, content interface{}) (*PinResponse, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}

	key := cacheKey("json", raw)
	if resp, ok := c.cached(key); ok {
		c.logger.Debug("pin cache hit", slog.String("name", name), slog.String("ipfs_hash", resp.IpfsHash))
		return resp, nil
	}

	body, err := json.Marshal(pinJSONRequest{
		PinataContent:  raw,
		PinataMetadata: pinMetadata{Name: name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp PinResponse
	if err := c.do(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(body), &resp); err != nil {
		c.metrics.failed("json")
		return nil, err
	}
	c.metrics.pinned("json")
	c.store(key, &resp)
	return &resp, nil
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinJSONRequest struct {
	PinataContent  json.RawMessage `json:"pinataContent"`
	PinataMetadata pinMetadata     `json:"pinataMetadata"`
}

// do performs an authenticated POST.
func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.apiSecret)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nftctl/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseAPIError accepts both {"error": "msg"} and
// {"error": {"reason": ..., "details": ...}} bodies.
func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}

	var wrapped struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || len(wrapped.Error) == 0 {
		apiErr.Reason = string(bytes.TrimSpace(body))
		return apiErr
	}

	var detail struct {
		Reason  string `json:"reason"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(wrapped.Error, &detail); err == nil {
		apiErr.Reason = detail.Reason
		apiErr.Details = detail.Details
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(wrapped.Error, &msg); err == nil {
		apiErr.Reason = msg
		return apiErr
	}
	apiErr.Reason = string(wrapped.Error)
	return apiErr
}

func cacheKey(kind string, content []byte) string {
	sum := sha256.Sum256(content)
	return kind + ":" + hex.EncodeToString(sum[:])
}

func (c *Client) cached(key string) (*PinResponse, bool) {
	if c.cache == nil {
		return nil, false
	}
	hash, ok, err := c.cache.Get(key)
	if err != nil {
		c.logger.Warn("pin cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	c.metrics.cacheHit()
	return &PinResponse{IpfsHash: hash, Cached: true}, true
}

func (c *Client) store(key string, resp *PinResponse) {
	if c.cache == nil || resp.IpfsHash == "" {
		return
	}
	if err := c.cache.Put(key, resp.IpfsHash); err != nil {
		c.logger.Warn("pin cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
