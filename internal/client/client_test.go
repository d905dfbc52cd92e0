package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/resilience"
)

func testConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestUpload(t *testing.T) {
	var got []byte
	var name string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/components", r.URL.Path)
		f, fh, err := r.FormFile("bundle")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		name = fh.Filename
		got, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "wc.bundle")
	require.NoError(t, os.WriteFile(path, []byte("PK-bundle"), 0o644))

	c := New(srv.URL, testConfig())
	require.NoError(t, c.UploadFile(context.Background(), path))
	assert.Equal(t, "wc.bundle", name)
	assert.Equal(t, []byte("PK-bundle"), got)
}

func TestUploadErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load failed"})
	}))
	defer srv.Close()

	c := New(srv.URL, testConfig())
	err := c.Upload(context.Background(), "wc.bundle", bytes.NewReader([]byte("x")))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "load failed", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUploadUnsupportedMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "unsupported"})
	}))
	defer srv.Close()

	err := New(srv.URL, testConfig()).Upload(context.Background(), "notes.txt", bytes.NewReader(nil))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnsupportedMediaType, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "415")
}

func TestListRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"components": []Component{{Name: "wordCount", Version: "1.0", External: true}},
			"count":      1,
		})
	}))
	defer srv.Close()

	components, err := New(srv.URL, testConfig()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "wordCount", components[0].Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/components/wordCount" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "component not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"alias":    "wordCount",
			"versions": []Component{{Version: "2.0"}, {Version: "1.0"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, testConfig())
	versions, err := c.Versions(context.Background(), "wordCount")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "2.0", versions[0].Version)

	_, err = c.Versions(context.Background(), "other")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "component not found", apiErr.Message)
}

func TestDownload(t *testing.T) {
	payload := []byte("PK\x03\x04bundle-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/topologies/wordCount/versions/latest/bundle":
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("Content-Disposition", "attachment; filename=wc.bundle")
			w.Header().Set("ETag", `"abc123"`)
			_, _ = w.Write(payload)
		case "/api/v1/topologies/greeter/versions/1.0/bundle":
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "not a topology"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, testConfig())

	var buf bytes.Buffer
	info, err := c.Download(context.Background(), "wordCount", "latest", &buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf.Bytes())
	assert.Equal(t, "wc.bundle", info.Filename)
	assert.Equal(t, "abc123", info.Checksum)
	assert.Equal(t, int64(len(payload)), info.Size)

	tests := []struct {
		alias, version string
		status         int
		message        string
	}{
		{"greeter", "1.0", http.StatusBadRequest, "not a topology"},
		{"missing", "1.0", http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			var out bytes.Buffer
			_, err := c.Download(context.Background(), tt.alias, tt.version, &out)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Zero(t, out.Len())
		})
	}
}

func TestDownloadFilenameFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("zip"))
	}))
	defer srv.Close()

	info, err := New(srv.URL, testConfig()).Download(context.Background(), "wc", "1.0", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "wc-1.0.bundle", info.Filename)
	assert.Empty(t, info.Checksum)
}

func TestBreakerOpensOnServerFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load failed"})
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Breaker = resilience.Settings{Threshold: 2, Cooldown: time.Minute}
	c := New(srv.URL, cfg)

	// 4xx responses do not trip the breaker.
	for range 3 {
		_, err := c.Versions(context.Background(), "missing")
		require.Error(t, err)
	}

	for range 2 {
		require.Error(t, c.Upload(context.Background(), "a.bundle", bytes.NewReader([]byte("x"))))
	}
	err := c.Upload(context.Background(), "a.bundle", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), calls.Load())
}
