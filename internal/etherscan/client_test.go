package etherscan

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient("apikey", 11155111,
		WithBaseURL(url),
		WithPollInterval(time.Millisecond),
		WithRateLimit(rate.Inf, 1),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return c
}

var testRequest = Request{
	Address:         common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
	ContractName:    "contracts/RandomIpfsNft.sol:RandomIpfsNft",
	CompilerVersion: "v0.8.7+commit.e28d00a7",
	SourceCode:      `{"language":"Solidity"}`,
	ConstructorArgs: []byte{0xab, 0xcd},
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", 1)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClient_Verify(t *testing.T) {
	var checks atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "apikey", r.Form.Get("apikey"))
		assert.Equal(t, "11155111", r.Form.Get("chainid"))

		switch r.Form.Get("action") {
		case "verifysourcecode":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, testRequest.Address.Hex(), r.PostForm.Get("contractaddress"))
			assert.Equal(t, "solidity-standard-json-input", r.PostForm.Get("codeformat"))
			assert.Equal(t, "abcd", r.PostForm.Get("constructorArguements"))
			assert.Equal(t, testRequest.ContractName, r.PostForm.Get("contractname"))
			w.Write([]byte(`{"status":"1","message":"OK","result":"guid-1"}`))
		case "checkverifystatus":
			assert.Equal(t, "guid-1", r.Form.Get("guid"))
			if checks.Add(1) == 1 {
				w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Pending in queue"}`))
				return
			}
			w.Write([]byte(`{"status":"1","message":"OK","result":"Pass - Verified"}`))
		default:
			t.Errorf("unexpected action %q", r.Form.Get("action"))
		}
	}))
	defer server.Close()

	err := newTestClient(t, server.URL).Verify(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, int32(2), checks.Load())
}

func TestClient_VerifyAlreadyVerified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Contract source code already verified"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Submit(context.Background(), testRequest)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	assert.NoError(t, c.Verify(context.Background(), testRequest))
}

func TestClient_VerifyFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("action") == "verifysourcecode" {
			w.Write([]byte(`{"status":"1","message":"OK","result":"guid-2"}`))
			return
		}
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Fail - Unable to verify"}`))
	}))
	defer server.Close()

	err := newTestClient(t, server.URL).Verify(context.Background(), testRequest)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "notok", status: http.StatusOK, body: `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`},
		{name: "http", status: http.StatusBadGateway, body: "bad gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Submit(context.Background(), testRequest)
			var apiErr *APIError
			assert.ErrorAs(t, err, &apiErr)
		})
	}
}

func TestClient_VerifyContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("action") == "verifysourcecode" {
			w.Write([]byte(`{"status":"1","message":"OK","result":"guid-3"}`))
			return
		}
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Pending in queue"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := newTestClient(t, server.URL).Verify(ctx, testRequest)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
