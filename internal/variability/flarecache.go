package variability

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/star/catsim/internal/lightcurve"
	"github.com/star/catsim/internal/metrics"
)

// FlareCacheStats reports flare archive cache usage.
type FlareCacheStats struct {
	Archive    string `json:"archive"`
	TimeGrids  int    `json:"time_grids"`
	FluxGrids  int    `json:"flux_grids"`
	ArchiveSet bool   `json:"archive_open"`
}

// FlareCache keeps the flare light curve archive open and memoizes the
// arrays read from it. Opening a different archive path drops everything
// read from the previous one.
type FlareCache struct {
	logger *slog.Logger

	mu      sync.Mutex
	path    string
	archive *lightcurve.Archive
	times   map[string][]float64
	fluxes  map[string][]float64
}

// NewFlareCache returns an empty cache.
func NewFlareCache(logger *slog.Logger) *FlareCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlareCache{
		logger: logger,
		times:  make(map[string][]float64),
		fluxes: make(map[string][]float64),
	}
}

// ensureLocked opens path unless it is already the open archive.
func (c *FlareCache) ensureLocked(path string) error {
	if c.archive != nil && c.path == path {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: flare light curve archive %s", ErrMissingData, path)
		}
		return fmt.Errorf("checking flare archive: %w", err)
	}

	a, err := lightcurve.OpenArchive(path)
	if err != nil {
		return err
	}
	c.closeLocked()
	c.archive = a
	c.path = path
	metrics.IncLightCurveLoads("archive")
	c.logger.Info("flare archive opened", "path", path, "arrays", len(a.Names()))
	return nil
}

func (c *FlareCache) closeLocked() {
	if c.archive != nil {
		if err := c.archive.Close(); err != nil {
			c.logger.Warn("closing flare archive", "path", c.path, "error", err)
		}
	}
	c.archive = nil
	c.path = ""
	c.times = make(map[string][]float64)
	c.fluxes = make(map[string][]float64)
}

// TimeGrid returns the raw time grid of light curve lc from the archive at
// path.
func (c *FlareCache) TimeGrid(path, lc string) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(path); err != nil {
		return nil, err
	}
	if v, ok := c.times[lc]; ok {
		return v, nil
	}
	v, err := c.archive.Array(lc + "_time")
	if err != nil {
		return nil, err
	}
	c.times[lc] = v
	return v, nil
}

// FluxGrid returns the flux of light curve lc in band from the archive at
// path.
func (c *FlareCache) FluxGrid(path, lc, band string) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(path); err != nil {
		return nil, err
	}
	name := lc + "_" + band
	if v, ok := c.fluxes[name]; ok {
		return v, nil
	}
	v, err := c.archive.Array(name)
	if err != nil {
		return nil, err
	}
	c.fluxes[name] = v
	return v, nil
}

// Reset closes the archive and drops every memoized array.
func (c *FlareCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Stats returns cache statistics.
func (c *FlareCache) Stats() FlareCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FlareCacheStats{
		Archive:    c.path,
		TimeGrids:  len(c.times),
		FluxGrids:  len(c.fluxes),
		ArchiveSet: c.archive != nil,
	}
}
