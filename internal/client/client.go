// Package client is a Go client for the bundlehost management API.
//
// Idempotent GET requests are retried with exponential backoff on
// connection errors and 5xx responses. Uploads are never retried once the
// server has answered.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/resilience"
)

const (
	apiPrefix = "/api/v1"
	formField = "bundle"
	userAgent = "bundlectl/1.0"
)

// Component is a registered component as reported by the server.
type Component struct {
	Name         string            `json:"name"`
	Aliases      []string          `json:"aliases"`
	Version      string            `json:"version"`
	Scope        string            `json:"scope"`
	Tags         map[string]string `json:"tags,omitempty"`
	Type         string            `json:"type"`
	Module       string            `json:"module"`
	External     bool              `json:"external"`
	Bundle       string            `json:"bundle,omitempty"`
	Checksum     string            `json:"checksum,omitempty"`
	Downloadable bool              `json:"downloadable"`
}

// DownloadInfo describes a downloaded bundle.
type DownloadInfo struct {
	Filename string
	Checksum string
	Size     int64
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

// Config holds client settings.
type Config struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Breaker guards every call; server errors and transport failures
	// count against it, 4xx responses do not.
	Breaker resilience.Settings
}

// DefaultConfig returns the default client settings.
func DefaultConfig() Config {
	return Config{
		Timeout:      60 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		Breaker:      resilience.DefaultSettings(),
	}
}

// Client talks to one bundlehost server.
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
}

// New creates a client for the server at baseURL.
func New(baseURL string, cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = idempotentRetryPolicy
	retryClient.Logger = nil

	hc := retryClient.StandardClient()
	hc.Timeout = cfg.Timeout

	r := resty.NewWithClient(hc).
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetError(&errorBody{})

	breaker := cfg.Breaker
	breaker.IsFailure = isServerFailure
	return &Client{resty: r, breaker: resilience.New(breaker)}
}

// isServerFailure reports whether err says something about the server's
// health rather than about the request.
func isServerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// idempotentRetryPolicy retries GETs per the default policy and other
// methods only when no response was received.
func idempotentRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.Request != nil && resp.Request.Method != http.MethodGet {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Upload sends a bundle under name.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) error {
	return c.breaker.Do(func() error { return c.upload(ctx, name, r) })
}

func (c *Client) upload(ctx context.Context, name string, r io.Reader) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetFileReader(formField, name, r).
		Post(apiPrefix + "/components")
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// UploadFile uploads the bundle at path under its base name.
func (c *Client) UploadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Upload(ctx, filepath.Base(path), f)
}

// List returns every registered component.
func (c *Client) List(ctx context.Context) (components []Component, err error) {
	err = c.breaker.Do(func() error {
		components, err = c.list(ctx)
		return err
	})
	return components, err
}

func (c *Client) list(ctx context.Context) ([]Component, error) {
	var out struct {
		Components []Component `json:"components"`
	}
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		Get(apiPrefix + "/components")
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return out.Components, nil
}

// Versions returns the versions registered under alias, highest first.
func (c *Client) Versions(ctx context.Context, alias string) (versions []Component, err error) {
	err = c.breaker.Do(func() error {
		versions, err = c.versions(ctx, alias)
		return err
	})
	return versions, err
}

func (c *Client) versions(ctx context.Context, alias string) ([]Component, error) {
	var out struct {
		Versions []Component `json:"versions"`
	}
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("alias", alias).
		Get(apiPrefix + "/components/{alias}")
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", alias, err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return out.Versions, nil
}

// Download streams the bundle of topology alias at version into w. Use
// "latest" for the highest registered version.
func (c *Client) Download(ctx context.Context, alias, version string, w io.Writer) (info *DownloadInfo, err error) {
	err = c.breaker.Do(func() error {
		info, err = c.download(ctx, alias, version, w)
		return err
	})
	return info, err
}

func (c *Client) download(ctx context.Context, alias, version string, w io.Writer) (*DownloadInfo, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetPathParams(map[string]string{"type": alias, "version": version}).
		Get(apiPrefix + "/topologies/{type}/versions/{version}/bundle")
	if err != nil {
		return nil, fmt.Errorf("download %s@%s: %w", alias, version, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: errorMessage(c.resty, msg)}
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return nil, fmt.Errorf("download %s@%s: %w", alias, version, err)
	}

	info := &DownloadInfo{Size: n, Checksum: unquote(resp.Header().Get("ETag"))}
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil {
		info.Filename = params["filename"]
	}
	if info.Filename == "" {
		info.Filename = url.PathEscape(alias) + "-" + url.PathEscape(version) + ".bundle"
	}
	return info, nil
}

func apiError(resp *resty.Response) error {
	e := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		e.Message = body.Error
	}
	return e
}

func errorMessage(r *resty.Client, raw []byte) string {
	var body errorBody
	if err := r.JSONUnmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return string(raw)
}

func unquote(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag[1 : len(etag)-1]
	}
	return etag
}
