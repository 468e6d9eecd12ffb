package variability

import (
	"fmt"
	"math"

	"github.com/star/catsim/internal/photometry"
)

// periodicModel evaluates a tabulated periodic light curve (RR Lyrae,
// Cepheids, eclipsing binaries) at the phase of each epoch.
type periodicModel struct {
	curves      *CurveCache
	filenameKey string
	t0Key       string
	inDays      bool
	factory     InterpFactory
}

func (m *periodicModel) Evaluate(req *Request) (*Tensor, error) {
	out := NewTensor(req.N, req.Epochs)
	if req.Empty() {
		return out, nil
	}

	factory := m.factory
	if factory == nil {
		factory = LinearInterp
	}

	for _, ix := range req.Valid {
		filename, err := req.Params.String(m.filenameKey, ix)
		if err != nil {
			return nil, err
		}
		t0, err := req.Params.Float(m.t0Key, ix)
		if err != nil {
			return nil, err
		}
		var inPeriod *float64
		if col, ok := req.Params["period"]; ok && !col[ix].IsNull() {
			p, err := req.Params.Float("period", ix)
			if err != nil {
				return nil, err
			}
			inPeriod = &p
		}

		curve, err := m.curves.Periodic(filename, inPeriod, m.inDays, factory)
		if err != nil {
			return nil, err
		}

		for k := 0; k < out.Times(); k++ {
			phase := phaseOf(req.Epochs.MJD(k)-t0, curve.period)
			for b := 0; b < photometry.NumBands; b++ {
				out.Set(b, ix, k, curve.bands[b].Predict(phase))
			}
		}
	}
	return out, nil
}

// phaseOf returns x/period reduced into [0, 1).
func phaseOf(epoch, period float64) float64 {
	x := epoch / period
	phase := x - math.Floor(x)
	if phase >= 1 || phase < 0 {
		return 0
	}
	return phase
}

// eclipsingModel converts the flux ratio curve of an eclipsing binary into
// magnitude offsets.
type eclipsingModel struct {
	flux *periodicModel
}

func (m *eclipsingModel) Evaluate(req *Request) (*Tensor, error) {
	out, err := m.flux.Evaluate(req)
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return out, nil
	}
	if lo := out.Min(); lo < 0 {
		return nil, fmt.Errorf("%w: minimum %g", ErrNegativeFlux, lo)
	}
	out.Apply(func(f float64) float64 {
		dm := -2.5 * math.Log10(f)
		if math.IsNaN(dm) || math.IsInf(dm, 0) {
			return 0
		}
		return dm
	})
	return out, nil
}
