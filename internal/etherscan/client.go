// Package etherscan submits contract source verification to Etherscan.
package etherscan

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the multichain Etherscan API endpoint.
	DefaultBaseURL = "https://api.etherscan.io/v2/api"
	// DefaultTimeout is the HTTP client timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultPollInterval is the delay between verification status checks.
	DefaultPollInterval = 5 * time.Second
)

// Sentinel errors
var (
	ErrMissingAPIKey      = errors.New("etherscan: API key is required")
	ErrAlreadyVerified    = errors.New("etherscan: contract already verified")
	ErrVerificationFailed = errors.New("etherscan: verification failed")
)

// Request describes one contract to verify.
type Request struct {
	Address common.Address
	// ContractName is fully qualified, e.g. contracts/RandomIpfsNft.sol:RandomIpfsNft.
	ContractName string
	// CompilerVersion is the long solc version, e.g. v0.8.7+commit.e28d00a7.
	CompilerVersion string
	// SourceCode is the solc standard JSON input.
	SourceCode string
	// ConstructorArgs is the ABI encoded constructor arguments.
	ConstructorArgs []byte
}

// APIError is an Etherscan response with status "0".
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("etherscan: %s: %s", e.Message, e.Result)
}

// Client talks to the Etherscan API.
type Client struct {
	apiKey       string
	chainID      uint64
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithPollInterval sets the delay between status checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithRateLimit sets the request rate.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the given chain.
func NewClient(apiKey string, chainID uint64, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:       apiKey,
		chainID:      chainID,
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		limiter:      rate.NewLimiter(5, 1),
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Verify submits the source and waits for the verdict. A contract that is
// already verified is not an error.
func (c *Client) Verify(ctx context.Context, req Request) error {
	c.logger.Info("verifying contract",
		slog.String("address", req.Address.Hex()),
		slog.String("contract", req.ContractName),
	)

	guid, err := c.Submit(ctx, req)
	if errors.Is(err, ErrAlreadyVerified) {
		c.logger.Info("contract already verified", slog.String("address", req.Address.Hex()))
		return nil
	}
	if err != nil {
		return err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		done, err := c.CheckStatus(ctx, guid)
		if errors.Is(err, ErrAlreadyVerified) {
			c.logger.Info("contract already verified", slog.String("address", req.Address.Hex()))
			return nil
		}
		if err != nil {
			return err
		}
		if done {
			c.logger.Info("contract verified", slog.String("address", req.Address.Hex()))
			return nil
		}
	}
}

// Submit sends the verification request and returns its guid.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	form := url.Values{}
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address.Hex())
	form.Set("sourceCode", req.SourceCode)
	form.Set("codeformat", "solidity-standard-json-input")
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", req.CompilerVersion)
	// the misspelling is part of the API
	form.Set("constructorArguements", hex.EncodeToString(req.ConstructorArgs))

	return c.do(ctx, http.MethodPost, form)
}

// CheckStatus reports whether a submitted verification passed. It returns
// false while the request is still queued.
func (c *Client) CheckStatus(ctx context.Context, guid string) (bool, error) {
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "checkverifystatus")
	q.Set("guid", guid)

	result, err := c.do(ctx, http.MethodGet, q)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Result), "pending") {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(result, "Pass"), nil
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func (c *Client) do(ctx context.Context, method string, params url.Values) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	params.Set("apikey", c.apiKey)
	params.Set("chainid", strconv.FormatUint(c.chainID, 10))

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+"?chainid="+params.Get("chainid"), strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+"?"+params.Encode(), nil)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "nftctl/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{Message: fmt.Sprintf("HTTP %d", resp.StatusCode), Result: string(body)}
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if r.Status != "1" {
		lower := strings.ToLower(r.Result)
		if strings.Contains(lower, "already verified") {
			return "", ErrAlreadyVerified
		}
		if strings.HasPrefix(lower, "fail") {
			return "", fmt.Errorf("%w: %s", ErrVerificationFailed, r.Result)
		}
		return "", &APIError{Message: r.Message, Result: r.Result}
	}
	return r.Result, nil
}
