package loader

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/shared/id"
)

const zipMIME = "application/zip"

// Inflation limits for bundle archives.
const (
	DefaultMaxEntryBytes   int64 = 32 << 20
	DefaultMaxArchiveBytes int64 = 256 << 20
)

// Loader loads bundle files into isolated modules.
type Loader struct {
	logger *zap.Logger
	ids    *id.Generator

	maxEntryBytes   int64
	maxArchiveBytes int64

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a loader.
func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		logger:          logger,
		ids:             id.Default(),
		maxEntryBytes:   DefaultMaxEntryBytes,
		maxArchiveBytes: DefaultMaxArchiveBytes,
		inflight:        make(map[string]struct{}),
	}
}

// WithMaxEntryBytes caps the inflated size of a single archive entry. The
// archive total is capped at eight entries' worth.
func (l *Loader) WithMaxEntryBytes(n int64) *Loader {
	if n > 0 {
		l.maxEntryBytes = n
		l.maxArchiveBytes = 8 * n
	}
	return l
}

// Load reads the bundle at path into a new Module. Every failure is a
// *component.LoadError. Loading the same path twice yields two unrelated
// modules; loading it concurrently fails with ErrLoadInProgress.
func (l *Loader) Load(ctx context.Context, path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, component.NewLoadError(path, err)
	}

	if !l.acquire(abs) {
		return nil, component.NewLoadError(abs, ErrLoadInProgress)
	}
	defer l.release(abs)

	if err := ctx.Err(); err != nil {
		return nil, component.NewLoadError(abs, err)
	}

	start := time.Now()
	m, err := l.load(ctx, abs)
	if err != nil {
		l.logger.Warn("Failed to load bundle",
			zap.String("path", abs),
			zap.Error(err))
		return nil, component.NewLoadError(abs, err)
	}

	l.logger.Info("Loaded bundle",
		zap.String("path", abs),
		zap.String("module", m.ID()),
		zap.Int("units", len(m.units)),
		zap.Duration("duration", time.Since(start)))
	return m, nil
}

func (l *Loader) acquire(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inflight[path]; busy {
		return false
	}
	l.inflight[path] = struct{}{}
	return true
}

func (l *Loader) release(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, path)
}

func (l *Loader) load(ctx context.Context, path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	if mt := mimetype.Detect(data); !isZip(mt) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotBundle, mt.String())
	}

	files, err := l.readArchive(data)
	if err != nil {
		return nil, err
	}

	manifest, err := parseManifest(files)
	if err != nil {
		return nil, err
	}

	sum := blake2b.Sum256(data)
	m := newModule(l.ids.NewModuleID(), path, hex.EncodeToString(sum[:]), int64(len(data)), manifest, files, l.logger)
	if err := m.init(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func isZip(mt *mimetype.MIME) bool {
	for ; mt != nil; mt = mt.Parent() {
		if mt.Is(zipMIME) {
			return true
		}
	}
	return false
}

// readArchive extracts the regular files of a bundle into memory, keyed by
// their normalized slash path.
func (l *Loader) readArchive(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotBundle, err)
	}

	files := make(map[string][]byte, len(zr.File))
	var total int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		limit := min(l.maxEntryBytes, l.maxArchiveBytes-total)
		content, err := readEntry(f, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		total += int64(len(content))
		files[cleanName(f.Name)] = content
	}
	return files, nil
}

// readEntry inflates f, failing once more than limit bytes come out.
func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: declares %d bytes, limit %d", ErrEntryTooLarge, f.UncompressedSize64, limit)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: limit %d", ErrEntryTooLarge, limit)
	}
	return content, nil
}
