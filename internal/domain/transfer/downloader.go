package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/monitoring"
)

// ContentType of every downloaded bundle.
const ContentType = "application/zip"

// LatestVersion selects the highest registered version.
const LatestVersion = "latest"

// DescriptorFinder looks descriptors up by alias.
type DescriptorFinder interface {
	FindDescriptorByAlias(alias string, qualifiers ...component.Qualifier) (*component.Descriptor, bool)
}

// Download is an open bundle. The caller must Close it.
type Download struct {
	*os.File
	Name        string
	Size        int64
	Checksum    string
	ContentType string
	Descriptor  *component.Descriptor
}

// Downloader serves the bundles registered topologies came from.
type Downloader struct {
	finder   DescriptorFinder
	contract component.Contract
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewDownloader creates a downloader for components satisfying contract.
func NewDownloader(finder DescriptorFinder, contract component.Contract, logger *zap.Logger, metrics *monitoring.Metrics) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{finder: finder, contract: contract, logger: logger, metrics: metrics}
}

// Open resolves (alias, version) and opens the originating bundle.
func (d *Downloader) Open(alias, version string) (*Download, error) {
	dl, err := d.open(alias, version)
	if err != nil {
		d.metrics.RecordDownload(monitoring.StatusFailure)
		d.logger.Debug("Bundle download refused",
			zap.String("alias", alias),
			zap.String("version", version),
			zap.Error(err))
		return nil, err
	}
	d.metrics.RecordDownload(monitoring.StatusSuccess)
	return dl, nil
}

func (d *Downloader) open(alias, version string) (*Download, error) {
	q := component.ByVersion(version)
	if v := strings.TrimSpace(version); v == "" || strings.EqualFold(v, LatestVersion) {
		q = component.ByLatestVersion()
	}

	desc, ok := d.finder.FindDescriptorByAlias(alias, q)
	if !ok {
		return nil, fmt.Errorf("%w: no component for type %s and version %s", ErrNotFound, alias, version)
	}
	if !desc.Type().Satisfies(d.contract) {
		return nil, fmt.Errorf("%w: %s is not a %s", ErrInvalidRequest, desc, d.contract.Name)
	}
	if !desc.External() {
		return nil, fmt.Errorf("%w: %s was not loaded from a bundle", ErrInvalidRequest, desc)
	}

	f, err := os.Open(desc.Origin())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bundle: %w", ErrInternal, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: failed to stat bundle: %w", ErrInternal, err)
	}

	return &Download{
		File:        f,
		Name:        filepath.Base(desc.Origin()),
		Size:        info.Size(),
		Checksum:    desc.Checksum(),
		ContentType: ContentType,
		Descriptor:  desc,
	}, nil
}
