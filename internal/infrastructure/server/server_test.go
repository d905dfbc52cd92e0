package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/config"
	"github.com/GriffinCanCode/bundlehost/internal/testutil"
)

func testConfig(t *testing.T) (*config.Config, string, string) {
	t.Helper()

	dir := t.TempDir()
	shipped := filepath.Join(dir, "shipped")
	uploads := filepath.Join(dir, "uploads")

	props := filepath.Join(dir, "bundlehost.yaml")
	require.NoError(t, os.WriteFile(props, []byte(`
rest:
  extensions:
    management:
      components:
        path: `+uploads+`
`), 0o644))

	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Components.Paths = []string{shipped}
	cfg.RateLimit.Enabled = false
	cfg.File = props
	return cfg, shipped, uploads
}

func uploadRequest(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("bundle", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/components", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestBootstrapScansConfiguredRoots(t *testing.T) {
	cfg, shipped, _ := testConfig(t)
	testutil.WriteBundle(t, shipped, "wc.bundle", testutil.TopologyBundle("WordCount", "1.0"))
	testutil.WriteBundle(t, shipped, "broken.bundle", map[string]string{"index.js": "throw new Error('x')"})

	s, err := NewServer(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Bootstrap(context.Background()))

	_, ok := s.Factory().FindDescriptorByAlias("wordCount", component.ByVersion("1.0"))
	assert.True(t, ok)
	_, ok = s.Factory().FindDescriptorByAlias("passthrough")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Factory().Size())

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUploadsSurviveRestart(t *testing.T) {
	cfg, _, uploads := testConfig(t)

	s, err := NewServer(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Bootstrap(context.Background()))

	bundle := testutil.BundleBytes(t, testutil.TopologyBundle("WordCount", "2.0"))
	w := serve(s, uploadRequest(t, "wc.bundle", bundle))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	matches, err := filepath.Glob(filepath.Join(uploads, "uploaded-*", "wc.bundle"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	restarted, err := NewServer(cfg)
	require.NoError(t, err)
	require.NoError(t, restarted.Bootstrap(context.Background()))

	w = serve(restarted, httptest.NewRequest(http.MethodGet, "/api/v1/topologies/wordCount/versions/2.0/bundle", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bundle, w.Body.Bytes())
}

func TestUploadRateLimited(t *testing.T) {
	cfg, _, _ := testConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	s, err := NewServer(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Bootstrap(context.Background()))

	data := testutil.BundleBytes(t, testutil.TopologyBundle("Limited", "1"))
	assert.Equal(t, http.StatusNoContent, serve(s, uploadRequest(t, "a.bundle", data)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(s, uploadRequest(t, "b.bundle", data)).Code)

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/components", nil)).Code)
	}
}

func TestDisabledUploadExtension(t *testing.T) {
	cfg, _, _ := testConfig(t)
	props := filepath.Join(t.TempDir(), "props.yaml")
	require.NoError(t, os.WriteFile(props, []byte(`
rest.extensions.management.components.enable: false
`), 0o644))
	cfg.File = props

	s, err := NewServer(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Bootstrap(context.Background()))

	w := serve(s, uploadRequest(t, "a.bundle", testutil.BundleBytes(t, testutil.TopologyBundle("T", "1"))))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, float64(1), health["components"])
}

func TestNewServerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"policy", func(c *config.Config) { c.Components.Policy = "sometimes" }},
		{"pattern", func(c *config.Config) { c.Components.Patterns = []string{"[*.bundle"} }},
		{"properties file", func(c *config.Config) { c.File = filepath.Join(t.TempDir(), "missing.yaml") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, _ := testConfig(t)
			tt.mutate(cfg)
			_, err := NewServer(cfg)
			assert.Error(t, err)
		})
	}
}
