package variability

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/star/catsim/internal/astrotime"
	"github.com/star/catsim/internal/photometry"
)

const (
	auPerParsec = 1.0 / 206265.0
	cmPerParsec = 3.08576e16
)

// FlareOptions configures the M/L/T dwarf flare model.
type FlareOptions struct {
	// ArchivePath is the .npz archive of flare light curves.
	ArchivePath string
	// PhotParams supplies the mirror effective area. Required.
	PhotParams *photometry.PhotParams
	// Bandpasses are needed to build the flare dust table.
	Bandpasses map[string]*photometry.Bandpass
	// Bands limits the computed bands; nil means all six.
	Bands []string
	// Cache holds the open archive. A private cache is used when nil.
	Cache *FlareCache
}

// flareModel adds tabulated flare flux, scaled by distance and reddened by
// dust, to each star's quiescent flux.
type flareModel struct {
	opts FlareOptions

	dustMu sync.Mutex
	dust   *photometry.DustTable
}

func newFlareModel(opts FlareOptions) *flareModel {
	if opts.Cache == nil {
		opts.Cache = NewFlareCache(nil)
	}
	return &flareModel{opts: opts}
}

func (m *flareModel) activeBands() ([]int, error) {
	if m.opts.Bands == nil {
		all := make([]int, photometry.NumBands)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	out := make([]int, 0, len(m.opts.Bands))
	for _, name := range m.opts.Bands {
		b, ok := photometry.BandIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown band %q", ErrParameter, name)
		}
		out = append(out, b)
	}
	sort.Ints(out)
	return out, nil
}

func (m *flareModel) dustTable() (*photometry.DustTable, error) {
	m.dustMu.Lock()
	defer m.dustMu.Unlock()
	if m.dust != nil {
		return m.dust, nil
	}
	if len(m.opts.Bandpasses) == 0 {
		return nil, fmt.Errorf("%w: flare dust model needs the survey bandpasses", ErrMissingPrerequisite)
	}
	d, err := photometry.BuildFlareDustTable(m.opts.Bandpasses)
	if err != nil {
		return nil, fmt.Errorf("%w: building flare dust table: %v", ErrMissingPrerequisite, err)
	}
	m.dust = d
	return d, nil
}

// flareCurveName maps a catalog light curve name to its archive prefix.
// Stars labelled late_inactive use the late_active curves.
func flareCurveName(raw string) string {
	name := strings.ReplaceAll(raw, ".txt", "")
	if strings.Contains(name, "late") {
		name = strings.ReplaceAll(name, "in", "")
	}
	return name
}

func hostColumn(h Host, name string, n int) ([]float64, error) {
	col, err := h.Column(name)
	if err != nil {
		return nil, err
	}
	if len(col) != n {
		return nil, fmt.Errorf("%w: column %q has %d values for %d objects", ErrMissingPrerequisite, name, len(col), n)
	}
	return col, nil
}

func (m *flareModel) Evaluate(req *Request) (*Tensor, error) {
	out := NewTensor(req.N, req.Epochs)

	// Read before the empty check so dependency discovery records them.
	parallax, err := req.Host.Column("parallax")
	if err != nil {
		return nil, err
	}
	ebv, err := req.Host.Column("ebv")
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return out, nil
	}
	if len(parallax) != req.N || len(ebv) != req.N {
		return nil, fmt.Errorf("%w: parallax and ebv need %d values, have %d and %d",
			ErrMissingPrerequisite, req.N, len(parallax), len(ebv))
	}

	bands, err := m.activeBands()
	if err != nil {
		return nil, err
	}
	quiescent := make(map[int][]float64, len(bands))
	for _, b := range bands {
		col, err := hostColumn(req.Host, "quiescent_lsst_"+photometry.Bands[b], req.N)
		if err != nil {
			return nil, err
		}
		quiescent[b] = col
	}

	if m.opts.PhotParams == nil || m.opts.PhotParams.EffArea <= 0 {
		return nil, fmt.Errorf("%w: flare model needs the mirror effective area", ErrMissingPrerequisite)
	}
	if m.opts.ArchivePath == "" {
		return nil, fmt.Errorf("%w: no flare light curve archive configured", ErrMissingData)
	}
	dust, err := m.dustTable()
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]int)
	var names []string
	for _, ix := range req.Valid {
		raw, err := req.Params.String("lc", ix)
		if err != nil {
			return nil, err
		}
		if strings.Contains(raw, NullModel) {
			continue
		}
		if _, ok := groups[raw]; !ok {
			names = append(names, raw)
		}
		groups[raw] = append(groups[raw], ix)
	}
	sort.Strings(names)

	for _, raw := range names {
		if err := m.evaluateCurve(req, out, flareCurveName(raw), groups[raw], bands, parallax, ebv, quiescent, dust); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *flareModel) evaluateCurve(req *Request, out *Tensor, lc string, objs, bands []int,
	parallax, ebv []float64, quiescent map[int][]float64, dust *photometry.DustTable) error {

	raw, err := m.opts.Cache.TimeGrid(m.opts.ArchivePath, lc)
	if err != nil {
		return err
	}
	times := make([]float64, len(raw))
	tmin, tmax := math.Inf(1), math.Inf(-1)
	for i, v := range raw {
		times[i] = astrotime.SurveyStartMJD + v
		tmin = math.Min(tmin, times[i])
		tmax = math.Max(tmax, times[i])
	}
	duration := tmax - tmin
	if !(duration > 0) {
		return fmt.Errorf("%w: flare light curve %s spans no time", ErrMissingData, lc)
	}

	// Offsets into the light curve, wrapped back into its span.
	tInterp := make([][]float64, len(objs))
	for j, ix := range objs {
		t0, err := req.Params.Float("t0", ix)
		if err != nil {
			return err
		}
		row := make([]float64, out.Times())
		for k := range row {
			v := req.Epochs.MJD(k) + t0
			for v > tmax {
				v -= duration
			}
			row[k] = v
		}
		tInterp[j] = row
	}

	effArea := m.opts.PhotParams.EffArea
	for _, b := range bands {
		band := photometry.Bands[b]
		flux, err := m.opts.Cache.FluxGrid(m.opts.ArchivePath, lc, band)
		if err != nil {
			return err
		}
		curve, err := LinearInterp(times, flux)
		if err != nil {
			return fmt.Errorf("flare light curve %s band %s: %w", lc, band, err)
		}

		for j, ix := range objs {
			dd := auPerParsec / parallax[ix]
			r := dd * cmPerParsec
			factor := effArea / (4 * math.Pi * r * r)
			dustFactor, err := dust.FactorAt(band, ebv[ix])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMissingPrerequisite, err)
			}
			q := quiescent[b][ix]
			base := photometry.FluxFromMag(q)
			for k, ti := range tInterp[j] {
				dflux := curve.Predict(ti) * factor * dustFactor
				out.Set(b, ix, k, photometry.MagFromFlux(base+dflux)-q)
			}
		}
	}
	return nil
}
