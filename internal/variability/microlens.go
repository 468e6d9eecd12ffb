package variability

import (
	"math"

	"github.com/star/catsim/internal/photometry"
)

// microlensModel is the achromatic point-lens magnification curve.
type microlensModel struct{}

func (microlensModel) Evaluate(req *Request) (*Tensor, error) {
	out := NewTensor(req.N, req.Epochs)
	if req.Empty() {
		return out, nil
	}

	t0, err := req.Params.Floats("t0", req.Valid)
	if err != nil {
		return nil, err
	}
	umin, err := req.Params.Floats("umin", req.Valid)
	if err != nil {
		return nil, err
	}
	that, err := req.Params.Floats("that", req.Valid)
	if err != nil {
		return nil, err
	}

	for j, ix := range req.Valid {
		for k := 0; k < out.Times(); k++ {
			dm := -2.5 * math.Log10(pointLensMagnification(req.Epochs.MJD(k)-t0[j], umin[j], that[j]))
			for b := 0; b < photometry.NumBands; b++ {
				out.Set(b, ix, k, dm)
			}
		}
	}
	return out, nil
}

// pointLensMagnification is A(u) for impact parameter
// u = sqrt(umin² + (2·epoch/that)²).
func pointLensMagnification(epoch, umin, that float64) float64 {
	x := 2 * epoch / that
	u := math.Sqrt(umin*umin + x*x)
	return (u*u + 2) / (u * math.Sqrt(u*u+4))
}

// bhMicrolensModel evaluates tabulated black hole microlensing curves.
// Outside the tabulated range the magnification is 1.
type bhMicrolensModel struct {
	curves *CurveCache
}

func (m *bhMicrolensModel) Evaluate(req *Request) (*Tensor, error) {
	out := NewTensor(req.N, req.Epochs)
	if req.Empty() {
		return out, nil
	}

	for _, ix := range req.Valid {
		filename, err := req.Params.String("filename", ix)
		if err != nil {
			return nil, err
		}
		t0, err := req.Params.Float("t0", ix)
		if err != nil {
			return nil, err
		}
		curve, err := m.curves.Magnification(filename)
		if err != nil {
			return nil, err
		}
		for k := 0; k < out.Times(); k++ {
			epoch := req.Epochs.MJD(k) - t0
			mag := 1.0
			if epoch >= curve.min && epoch <= curve.max {
				mag = curve.fit.Predict(epoch)
			}
			// Natural log, not log10.
			dm := -2.5 * math.Log(mag)
			if math.IsNaN(dm) || math.IsInf(dm, 0) {
				dm = 0
			}
			for b := 0; b < photometry.NumBands; b++ {
				out.Set(b, ix, k, dm)
			}
		}
	}
	return out, nil
}
