package pinata

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []Option{WithBaseURL(url), WithLogger(logger), WithRateLimit(0, 0)}
	c, err := NewClient("key", "secret", append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func newMemCache(t *testing.T) *BadgerCache {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	cache := NewBadgerCache(db)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient("", "secret")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = NewClient("key", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_PinFileToIPFS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "pug.png", header.Filename)
		assert.Equal(t, "png-bytes", string(content))

		var meta map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("pinataMetadata")), &meta))
		assert.Equal(t, "pug.png", meta["name"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"IpfsHash":"QmPug","PinSize":9,"Timestamp":"2024-01-01T00:00:00Z"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.PinFileToIPFS(context.Background(), "pug.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "QmPug", resp.IpfsHash)
	assert.Equal(t, int64(9), resp.PinSize)
	assert.Equal(t, "ipfs://QmPug", resp.URI())
	assert.False(t, resp.Cached)
}

func TestClient_PinJSONToIPFS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			PinataContent  map[string]interface{} `json:"pinataContent"`
			PinataMetadata map[string]string      `json:"pinataMetadata"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pug", body.PinataContent["name"])
		assert.Equal(t, "pug", body.PinataMetadata["name"])

		w.Write([]byte(`{"IpfsHash":"QmMeta","PinSize":120}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.StoreTokenURIMetadata(context.Background(), "pug", map[string]string{"name": "pug"})
	require.NoError(t, err)
	assert.Equal(t, "QmMeta", resp.IpfsHash)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{
			name:       "structured",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"reason":"INVALID_CREDENTIALS","details":"bad key"}}`,
			wantReason: "INVALID_CREDENTIALS",
		},
		{
			name:       "string",
			status:     http.StatusBadRequest,
			body:       `{"error":"Invalid request format."}`,
			wantReason: "Invalid request format.",
		},
		{
			name:       "plain text",
			status:     http.StatusTooManyRequests,
			body:       "slow down",
			wantReason: "slow down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			m := NewMetrics(nil)
			c := newTestClient(t, server.URL, WithMetrics(m))
			_, err := c.PinJSONToIPFS(context.Background(), "x", map[string]int{"a": 1})

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantReason, apiErr.Reason)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Failed.WithLabelValues("json")))
		})
	}

	assert.True(t, (&APIError{StatusCode: http.StatusUnauthorized}).IsUnauthorized())
	assert.True(t, (&APIError{StatusCode: http.StatusTooManyRequests}).IsRateLimited())
}

func writeImages(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("image "+name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	return dir
}

func TestClient_StoreImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		if header.Filename == "shiba-inu.png" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
		json.NewEncoder(w).Encode(PinResponse{IpfsHash: "Qm" + header.Filename})
	}))
	defer server.Close()

	dir := writeImages(t, "st-bernard.png", "pug.png", "shiba-inu.png")
	m := NewMetrics(nil)
	c := newTestClient(t, server.URL, WithMetrics(m), WithConcurrency(2))

	uploads, files, err := c.StoreImages(context.Background(), dir)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"pug.png", "shiba-inu.png", "st-bernard.png"}, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	want := []Upload{
		{File: "pug.png", IpfsHash: "Qmpug.png"},
		{File: "st-bernard.png", IpfsHash: "Qmst-bernard.png"},
	}
	if diff := cmp.Diff(want, uploads); diff != "" {
		t.Errorf("uploads mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Pinned.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failed.WithLabelValues("file")))
}

func TestClient_StoreImagesUnreadableFile(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"IpfsHash":"QmOk"}`))
	}))
	defer server.Close()

	dir := writeImages(t, "pug.png")
	// a dangling symlink fails to open regardless of the test user
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "broken.png")))

	c := newTestClient(t, server.URL)
	uploads, files, err := c.StoreImages(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	require.Len(t, uploads, 1)
	assert.Equal(t, "pug.png", uploads[0].File)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_StoreImagesSkipsDirectories(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"IpfsHash":"QmOk"}`))
	}))
	defer server.Close()

	dir := writeImages(t, "pug.png")
	require.NoError(t, os.Symlink(filepath.Join(dir, "nested"), filepath.Join(dir, "linked")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "pug.png"), filepath.Join(dir, "pug-link.png")))

	c := newTestClient(t, server.URL)
	uploads, files, err := c.StoreImages(context.Background(), dir)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"pug-link.png", "pug.png"}, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, uploads, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_StoreImagesMissingDir(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	_, _, err := c.StoreImages(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestClient_StoreImagesCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"IpfsHash":"QmOk"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, server.URL)
	_, _, err := c.StoreImages(ctx, writeImages(t, "pug.png"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_CacheSkipsRepeatUploads(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Write([]byte(`{"IpfsHash":"QmSame"}`))
	}))
	defer server.Close()

	m := NewMetrics(nil)
	c := newTestClient(t, server.URL, WithCache(newMemCache(t)), WithMetrics(m))
	ctx := context.Background()

	first, err := c.PinFileToIPFS(ctx, "pug.png", strings.NewReader("same"))
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.PinFileToIPFS(ctx, "renamed.png", strings.NewReader("same"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "QmSame", second.IpfsHash)

	// JSON uploads are keyed separately from files
	_, err = c.PinJSONToIPFS(ctx, "doc", "same")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
}

func TestBadgerCache(t *testing.T) {
	cache := newMemCache(t)

	_, ok, err := cache.Get("file:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put("file:abc", "QmX"))
	hash, ok, err := cache.Get("file:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "QmX", hash)
}
