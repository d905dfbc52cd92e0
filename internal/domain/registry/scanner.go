package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/domain/loader"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/monitoring"
)

// DefaultPattern selects bundle files.
const DefaultPattern = "*.bundle"

// ExtensionPolicy decides which file names are bundle candidates. Patterns
// are doublestar globs matched case-insensitively against the base name.
type ExtensionPolicy struct {
	patterns []string
}

// NewExtensionPolicy validates patterns; none means DefaultPattern.
func NewExtensionPolicy(patterns ...string) (ExtensionPolicy, error) {
	var clean []string
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return ExtensionPolicy{}, fmt.Errorf("invalid bundle pattern: %q", p)
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		clean = []string{DefaultPattern}
	}
	return ExtensionPolicy{patterns: clean}, nil
}

// DefaultExtensionPolicy accepts *.bundle files.
func DefaultExtensionPolicy() ExtensionPolicy {
	return ExtensionPolicy{patterns: []string{DefaultPattern}}
}

// Accepts reports whether name (a path or base name) is a bundle candidate.
func (p ExtensionPolicy) Accepts(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	patterns := p.patterns
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Patterns returns the normalized patterns.
func (p ExtensionPolicy) Patterns() []string {
	return slices.Clone(p.patterns)
}

// ScanReport summarizes a scan.
type ScanReport struct {
	Modules    []*loader.Module
	Registered []*component.Descriptor
	Failures   []error
}

// Err joins the failures; nil when every bundle loaded.
func (r *ScanReport) Err() error {
	return errors.Join(r.Failures...)
}

// Scanner discovers bundles on disk, loads them and registers their
// components.
type Scanner struct {
	factory *Factory
	loader  *loader.Loader
	policy  ExtensionPolicy
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewScanner creates a scanner feeding factory.
func NewScanner(factory *Factory, l *loader.Loader, policy ExtensionPolicy, logger *zap.Logger, metrics *monitoring.Metrics) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		factory: factory,
		loader:  l,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// Policy returns the extension policy.
func (s *Scanner) Policy() ExtensionPolicy { return s.policy }

// ScanPath loads a single bundle file, or every accepted file directly
// inside a directory. A failing bundle never prevents the others from being
// registered; failures are joined into the returned error.
func (s *Scanner) ScanPath(ctx context.Context, path string) (*ScanReport, error) {
	report := &ScanReport{}

	info, err := os.Stat(path)
	if err != nil {
		return report, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	var candidates []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return report, fmt.Errorf("failed to scan %s: %w", path, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && s.policy.Accepts(e.Name()) {
				candidates = append(candidates, filepath.Join(path, e.Name()))
			}
		}
	} else {
		candidates = []string{path}
	}

	s.logger.Info("Scanning component path",
		zap.String("path", path),
		zap.Int("candidates", len(candidates)))

	s.loadAll(ctx, candidates, report)
	return report, report.Err()
}

// ScanRoots walks each root recursively and loads every accepted file, root
// by root in the given order and in lexical path order within a root, so
// later roots shadow earlier ones. Missing roots are skipped.
func (s *Scanner) ScanRoots(ctx context.Context, roots []string) (*ScanReport, error) {
	report := &ScanReport{}
	var candidates []string
	seen := make(map[string]bool)
	add := func(paths ...string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				candidates = append(candidates, p)
			}
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Component root not found", zap.String("root", root))
			continue
		}
		if err != nil {
			report.Failures = append(report.Failures, fmt.Errorf("failed to scan %s: %w", root, err))
			continue
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		found, err := s.walk(root)
		if err != nil {
			report.Failures = append(report.Failures, fmt.Errorf("failed to walk %s: %w", root, err))
		}
		slices.Sort(found)
		add(found...)
	}

	s.logger.Info("Scanning component roots",
		zap.Strings("roots", roots),
		zap.Int("candidates", len(candidates)))

	s.loadAll(ctx, candidates, report)
	return report, report.Err()
}

func (s *Scanner) walk(root string) ([]string, error) {
	var (
		mu    sync.Mutex
		found []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() || !s.policy.Accepts(d.Name()) {
			return nil
		}
		mu.Lock()
		found = append(found, path)
		mu.Unlock()
		return nil
	})
	return found, err
}

func (s *Scanner) loadAll(ctx context.Context, candidates []string, report *ScanReport) {
	var loaded, failed int
	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, fmt.Errorf("scan interrupted before %s: %w", path, err))
			break
		}
		if s.loadOne(ctx, path, report) {
			loaded++
		} else {
			failed++
		}
	}

	s.logger.Info("Component scan complete",
		zap.Int("loaded", loaded),
		zap.Int("failed", failed),
		zap.Int("registered", s.factory.Size()))
}

// loadOne loads a bundle and registers its units. It reports whether the
// bundle loaded.
func (s *Scanner) loadOne(ctx context.Context, path string, report *ScanReport) bool {
	start := time.Now()
	m, err := s.loader.Load(ctx, path)
	if err != nil {
		s.metrics.RecordBundleLoad(monitoring.StatusFailure, time.Since(start))
		report.Failures = append(report.Failures, err)
		return false
	}
	s.metrics.RecordBundleLoad(monitoring.StatusSuccess, time.Since(start))
	report.Modules = append(report.Modules, m)

	for _, u := range m.Units() {
		d, err := s.factory.NewDescriptor(u.Type, component.Options{
			Name:     u.Name,
			Aliases:  u.Aliases,
			Version:  u.Version,
			Scope:    u.Scope,
			Tags:     u.Tags,
			Origin:   m.Location(),
			Checksum: m.Checksum(),
		})
		if err == nil {
			err = s.factory.Register(d)
		}
		if err != nil {
			s.logger.Warn("Failed to register component",
				zap.String("path", path),
				zap.String("type", u.Type.SimpleName()),
				zap.Error(err))
			report.Failures = append(report.Failures, component.NewLoadError(m.Location(), err))
			continue
		}
		report.Registered = append(report.Registered, d)
	}
	return true
}
