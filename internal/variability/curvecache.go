package variability

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/star/catsim/internal/lightcurve"
	"github.com/star/catsim/internal/metrics"
	"github.com/star/catsim/internal/photometry"
)

// periodicCurve is a light curve fitted once per file.
type periodicCurve struct {
	period float64
	bands  [photometry.NumBands]Interpolant
}

// magnificationCurve is a black hole microlensing magnification curve.
type magnificationCurve struct {
	min, max float64
	fit      Interpolant
}

// CurveCacheStats reports light curve cache usage.
type CurveCacheStats struct {
	Periodic      int   `json:"periodic"`
	Magnification int   `json:"magnification"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
}

// CurveCache holds fitted light curves keyed by file name. With caching
// disabled every request reads and fits its file again.
type CurveCache struct {
	dataDir string
	enabled bool

	mu            sync.Mutex
	periodic      map[string]*periodicCurve
	magnification map[string]*magnificationCurve

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCurveCache returns a cache reading light curves relative to dataDir.
func NewCurveCache(dataDir string, enabled bool) *CurveCache {
	return &CurveCache{
		dataDir:       dataDir,
		enabled:       enabled,
		periodic:      make(map[string]*periodicCurve),
		magnification: make(map[string]*magnificationCurve),
	}
}

// DataDir returns the light curve directory.
func (c *CurveCache) DataDir() string {
	return c.dataDir
}

// Stats returns cache statistics.
func (c *CurveCache) Stats() CurveCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CurveCacheStats{
		Periodic:      len(c.periodic),
		Magnification: len(c.magnification),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
	}
}

// Reset drops every cached curve.
func (c *CurveCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.periodic = make(map[string]*periodicCurve)
	c.magnification = make(map[string]*magnificationCurve)
}

func (c *CurveCache) load(filename string, minCols int) (*lightcurve.Table, error) {
	if c.dataDir == "" {
		return nil, ErrNoDataDir
	}
	path := filepath.Join(c.dataDir, filename)
	tbl, err := lightcurve.LoadTable(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingData, path)
		}
		return nil, err
	}
	metrics.IncLightCurveLoads("table")
	if tbl.NumColumns() < minCols {
		return nil, fmt.Errorf("%w: %s has %d columns, need %d", lightcurve.ErrMalformedTable, path, tbl.NumColumns(), minCols)
	}
	if tbl.NumRows() < 2 {
		return nil, fmt.Errorf("%w: %s has %d rows, need at least 2", lightcurve.ErrMalformedTable, path, tbl.NumRows())
	}
	return tbl, nil
}

// Periodic returns the fitted curve for filename. When the file is not
// cached, the period is inPeriod if given and otherwise inferred from the
// time grid; with inDays the grid is divided by the period before
// fitting.
func (c *CurveCache) Periodic(filename string, inPeriod *float64, inDays bool, factory InterpFactory) (*periodicCurve, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pc, ok := c.periodic[filename]; ok {
		c.hits.Add(1)
		return pc, nil
	}
	c.misses.Add(1)

	tbl, err := c.load(filename, 1+photometry.NumBands)
	if err != nil {
		return nil, err
	}
	t := tbl.Column(0)

	var period float64
	if inPeriod != nil {
		period = *inPeriod
	} else {
		period = t[len(t)-1] + (t[1] - t[0])
	}
	if period == 0 {
		return nil, fmt.Errorf("%w: light curve %s has zero period", ErrParameter, filename)
	}
	if inDays {
		for i := range t {
			t[i] /= period
		}
	}

	pc := &periodicCurve{period: period}
	for b := 0; b < photometry.NumBands; b++ {
		fit, err := factory(t, tbl.Column(b+1))
		if err != nil {
			return nil, fmt.Errorf("fitting %s band %s: %w", filename, photometry.Bands[b], err)
		}
		pc.bands[b] = fit
	}
	if c.enabled {
		c.periodic[filename] = pc
	}
	return pc, nil
}

// Magnification returns the black hole microlensing curve for filename.
// The time column is in years and is converted to days.
func (c *CurveCache) Magnification(filename string) (*magnificationCurve, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mc, ok := c.magnification[filename]; ok {
		c.hits.Add(1)
		return mc, nil
	}
	c.misses.Add(1)

	tbl, err := c.load(filename, 2)
	if err != nil {
		return nil, err
	}
	t := tbl.Column(0)
	for i := range t {
		t[i] *= 365
	}
	fit, err := SplineInterp(t, tbl.Column(1))
	if err != nil {
		return nil, fmt.Errorf("fitting %s: %w", filename, err)
	}
	mc := &magnificationCurve{min: t[0], max: t[len(t)-1], fit: fit}
	if c.enabled {
		c.magnification[filename] = mc
	}
	return mc, nil
}
