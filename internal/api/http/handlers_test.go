package http

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/GriffinCanCode/bundlehost/internal/domain/builtin"
	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/domain/loader"
	"github.com/GriffinCanCode/bundlehost/internal/domain/registry"
	"github.com/GriffinCanCode/bundlehost/internal/domain/transfer"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/config"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/bundlehost/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	factory *registry.Factory
	root    string
}

func setupTestRouter(t *testing.T, props map[string]string) *testServer {
	t.Helper()

	metrics := monitoring.NewMetrics()
	factory := registry.NewFactory(zap.NewNop(), registry.WithMetrics(metrics))
	require.NoError(t, builtin.Register(factory))

	policy := registry.DefaultExtensionPolicy()
	scanner := registry.NewScanner(factory, loader.New(zap.NewNop()), policy, zap.NewNop(), metrics)
	root := filepath.Join(t.TempDir(), "components")

	h := NewHandlers(
		factory,
		transfer.NewUploader(root, policy, scanner, 0, zap.NewNop(), metrics),
		transfer.NewDownloader(factory, component.TopologyProvider, zap.NewNop(), metrics),
		metrics,
		zap.NewNop(),
	).WithMaxUploadBytes(1 << 20)

	router := gin.New()
	RegisterRoutes(router, h, RouteOptions{Extensions: config.NewExtensions(config.NewProperties(props))})
	return &testServer{router: router, factory: factory, root: root}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, field, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/components", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRootAndHealth(t *testing.T) {
	s := setupTestRouter(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", decode(t, w)["status"])

	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, float64(1), resp["components"])
	assert.Equal(t, true, resp["uploads"])
	assert.Contains(t, resp, "metrics")
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestRouter(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bundlehost_components_registered")
}

func TestUploadThenDownload(t *testing.T) {
	s := setupTestRouter(t, nil)
	bundle := testutil.BundleBytes(t, testutil.TopologyBundle("WordCountTopology", "1.0"))

	w := s.upload(t, FormField, "wordcount.bundle", bundle)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	d, ok := s.factory.FindDescriptorByAlias("wordCountTopology", component.ByVersion("1.0"))
	require.True(t, ok)
	assert.True(t, d.External())

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/topologies/wordCountTopology/versions/1.0/bundle", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=wordcount.bundle`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, bundle, w.Body.Bytes())

	sum := blake2b.Sum256(bundle)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	assert.Equal(t, etag, w.Header().Get("ETag"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/topologies/wordCountTopology/versions/latest/bundle", nil)
	req.Header.Set("If-None-Match", etag)
	w = s.do(req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		file   string
		data   []byte
		status int
	}{
		{"unsupported extension", FormField, "notes.txt", []byte("hello"), http.StatusUnsupportedMediaType},
		{"missing field", "other", "x.bundle", []byte("x"), http.StatusBadRequest},
		{"corrupt bundle", FormField, "broken.bundle", []byte("not a zip"), http.StatusInternalServerError},
		{"too large", FormField, "big.bundle", bytes.Repeat([]byte("a"), 2<<20), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestRouter(t, nil)
			w := s.upload(t, tt.field, tt.file, tt.data)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w), "error")
			assert.Equal(t, 1, s.factory.Size())
		})
	}
}

func TestDownloadErrors(t *testing.T) {
	s := setupTestRouter(t, nil)
	require.Equal(t, http.StatusNoContent,
		s.upload(t, FormField, "plain.bundle", testutil.BundleBytes(t, testutil.PlainBundle("Greeter", "1.0"))).Code)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown alias", "/api/v1/topologies/Missing/versions/1.0/bundle", http.StatusNotFound},
		{"unknown version", "/api/v1/topologies/greeter/versions/9.9/bundle", http.StatusNotFound},
		{"not a topology", "/api/v1/topologies/greeter/versions/1.0/bundle", http.StatusBadRequest},
		{"built-in topology", "/api/v1/topologies/passthrough/versions/1.0/bundle", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestListComponents(t *testing.T) {
	s := setupTestRouter(t, nil)
	require.Equal(t, http.StatusNoContent,
		s.upload(t, FormField, "wc.bundle", testutil.BundleBytes(t, testutil.TopologyBundle("WordCountTopology", "1.0"))).Code)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/components", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Components []ComponentView `json:"components"`
		Count      int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	byName := map[string]ComponentView{}
	for _, v := range resp.Components {
		byName[v.Name] = v
	}
	wc := byName["wordCountTopology"]
	assert.True(t, wc.External)
	assert.True(t, wc.Downloadable)
	assert.Equal(t, "wc.bundle", wc.Bundle)
	assert.NotEmpty(t, wc.Checksum)

	pt := byName["passthroughTopology"]
	assert.False(t, pt.External)
	assert.False(t, pt.Downloadable)
	assert.Equal(t, "host", pt.Module)
}

func TestComponentVersions(t *testing.T) {
	s := setupTestRouter(t, nil)
	for _, v := range []string{"1.2", "1.10", "1.9"} {
		require.Equal(t, http.StatusNoContent,
			s.upload(t, FormField, "wc.bundle", testutil.BundleBytes(t, testutil.TopologyBundle("WordCountTopology", v))).Code)
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/components/wordCountTopology", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Versions []ComponentView `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Versions, 3)
	assert.Equal(t, "1.10", resp.Versions[0].Version)
	assert.Equal(t, "1.9", resp.Versions[1].Version)
	assert.Equal(t, "1.2", resp.Versions[2].Version)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/components/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDisabledExtensions(t *testing.T) {
	s := setupTestRouter(t, map[string]string{
		"rest.extensions.management.components.enable":         "false",
		"rest.extensions.management.topologies.bundles.enable": "false",
	})

	w := s.upload(t, FormField, "wc.bundle", testutil.BundleBytes(t, testutil.TopologyBundle("T", "1")))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/topologies/passthrough/versions/1.0/bundle", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/components", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadMiddlewareOnlyOnUpload(t *testing.T) {
	metrics := monitoring.NewMetrics()
	factory := registry.NewFactory(zap.NewNop())
	h := NewHandlers(factory, transfer.NewUploader(t.TempDir(), registry.DefaultExtensionPolicy(), nil, 0, nil, nil), nil, metrics, nil)

	router := gin.New()
	RegisterRoutes(router, h, RouteOptions{UploadMiddleware: []gin.HandlerFunc{func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "slow down"})
	}}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/components", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/components", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/topologies/x/versions/1/bundle", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
