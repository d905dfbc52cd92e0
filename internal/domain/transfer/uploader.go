package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/domain/registry"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/monitoring"
)

// NamespacePrefix prefixes every upload directory.
const NamespacePrefix = "uploaded-"

const maxNamespaceAttempts = 1000

// PathScanner loads the bundles at a path into the registry.
type PathScanner interface {
	ScanPath(ctx context.Context, path string) (*registry.ScanReport, error)
}

// UploadResult describes a persisted upload.
type UploadResult struct {
	Path       string
	Namespace  string
	Size       int64
	Registered []*component.Descriptor
}

// Uploader persists uploaded bundles and registers their components.
type Uploader struct {
	root     string
	policy   registry.ExtensionPolicy
	scanner  PathScanner
	maxBytes int64
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// NewUploader creates an uploader storing bundles under root. maxBytes <= 0
// disables the size limit.
func NewUploader(root string, policy registry.ExtensionPolicy, scanner PathScanner, maxBytes int64, logger *zap.Logger, metrics *monitoring.Metrics) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		root:     root,
		policy:   policy,
		scanner:  scanner,
		maxBytes: maxBytes,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Root is the directory holding upload namespaces.
func (u *Uploader) Root() string { return u.root }

// Upload stores the bundle read from r under a fresh namespace and scans it.
// The extension is checked before anything touches the disk. Once the file
// is persisted it stays in place even if loading it fails.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	timer := monitoring.NewTimer(u.metrics, "upload")

	result, err := u.upload(ctx, name, r)

	status := monitoring.StatusSuccess
	switch {
	case errors.Is(err, ErrUnsupportedMedia), errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrTooLarge):
		status = monitoring.StatusRejected
	case err != nil:
		status = monitoring.StatusFailure
	}
	u.metrics.RecordUpload(status)
	elapsed := timer.Stop(status)

	if err != nil {
		u.logger.Warn("Bundle upload failed",
			zap.String("file", name),
			zap.String("status", status),
			zap.Error(err))
		return result, err
	}
	u.logger.Info("Bundle uploaded",
		zap.String("path", result.Path),
		zap.Int64("size", result.Size),
		zap.Int("components", len(result.Registered)),
		zap.Duration("duration", elapsed))
	return result, nil
}

func (u *Uploader) upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	base, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}
	if !u.policy.Accepts(base) {
		return nil, fmt.Errorf("%w: %s (accepted: %s)", ErrUnsupportedMedia, base, strings.Join(u.policy.Patterns(), ", "))
	}

	if err := os.MkdirAll(u.root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create upload root: %w", ErrInternal, err)
	}
	ns, err := u.allocateNamespace()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	path := filepath.Join(ns, base)
	size, err := u.persist(ns, base, r)
	if err != nil {
		_ = os.Remove(ns)
		return nil, err
	}

	result := &UploadResult{Path: path, Namespace: ns, Size: size}

	report, err := u.scanner.ScanPath(ctx, path)
	if report != nil {
		result.Registered = report.Registered
	}
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return result, nil
}

// allocateNamespace creates a new, empty uploaded-<millis> directory. A
// collision moves on to the next millisecond value.
func (u *Uploader) allocateNamespace() (string, error) {
	ts := u.now().UnixMilli()
	for i := 0; i < maxNamespaceAttempts; i++ {
		dir := filepath.Join(u.root, NamespacePrefix+strconv.FormatInt(ts+int64(i), 10))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create namespace: %w", err)
		}
	}
	return "", fmt.Errorf("failed to allocate a namespace under %s", u.root)
}

// persist writes r to a hidden partial file and renames it into place once
// it is fully flushed.
func (u *Uploader) persist(dir, base string, r io.Reader) (int64, error) {
	partial := filepath.Join(dir, "."+base+".partial")
	f, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	size, err := u.copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(partial, filepath.Join(dir, base))
	}
	if err != nil {
		_ = os.Remove(partial)
		if errors.Is(err, ErrTooLarge) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: failed to write bundle: %w", ErrInternal, err)
	}
	return size, nil
}

func (u *Uploader) copy(w io.Writer, r io.Reader) (int64, error) {
	if u.maxBytes <= 0 {
		return io.Copy(w, r)
	}
	n, err := io.Copy(w, io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return n, err
	}
	if n > u.maxBytes {
		return n, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, u.maxBytes)
	}
	return n, nil
}

// sanitizeName keeps only the base name of a client-supplied file name.
func sanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := filepath.Base(filepath.FromSlash(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: invalid file name %q", ErrInvalidRequest, name)
	}
	return base, nil
}
