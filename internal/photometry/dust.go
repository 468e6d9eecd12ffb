package photometry

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Flare dust model constants; flares are treated as 9000 K blackbodies.
const (
	flareTemperature = 9000.0 // K
	hcOverK          = 1.4387e7 // nm*K
	rv               = 3.1
	ebvStep          = 0.01
	ebvMax           = 7.0
)

// DustTable maps E(B-V) to the factor by which dust dims a flare's flux in
// each band.
type DustTable struct {
	EBV    []float64
	Factor map[string][]float64

	fits map[string]*interp.PiecewiseLinear
}

// FactorAt interpolates the dimming factor for band at the given E(B-V),
// clamped to the ends of the grid.
func (d *DustTable) FactorAt(band string, ebv float64) (float64, error) {
	pl, ok := d.fits[band]
	if !ok {
		return 0, fmt.Errorf("dust table has no band %q", band)
	}
	return pl.Predict(ebv), nil
}

// BuildFlareDustTable computes, for every band present in bandpasses, the
// ratio of reddened to unreddened flux of a 9000 K blackbody using the
// Cardelli, Clayton & Mathis extinction law with R_V = 3.1.
func BuildFlareDustTable(bandpasses map[string]*Bandpass) (*DustTable, error) {
	if len(bandpasses) == 0 {
		return nil, errors.New("no bandpasses supplied")
	}

	var wavelen []float64
	for w := 200.0; w < 1500.0; w += 0.1 {
		wavelen = append(wavelen, w)
	}

	flambda := make([]float64, len(wavelen))
	extinction := make([]float64, len(wavelen)) // A_lambda / E(B-V)
	for i, w := range wavelen {
		expTerm := 1.0 / (math.Exp(hcOverK/(flareTemperature*w)) - 1.0)
		flambda[i] = math.Exp(-5.0*math.Log(w) + math.Log(expTerm))

		a, b := ccmAB(1000.0 / w)
		extinction[i] = (a + b/rv) * rv
	}

	names := make([]string, 0, len(bandpasses))
	for name := range bandpasses {
		names = append(names, name)
	}
	sort.Strings(names)

	weights := make(map[string][]float64, len(names))
	base := make(map[string]float64, len(names))
	for _, name := range names {
		sb, err := bandpasses[name].resample(wavelen)
		if err != nil {
			return nil, fmt.Errorf("bandpass %s: %w", name, err)
		}
		flux := relativeFlux(wavelen, flambda, sb)
		if flux <= 0 {
			return nil, fmt.Errorf("bandpass %s has no throughput between 200 and 1500 nm", name)
		}
		w := make([]float64, len(wavelen))
		for i := range wavelen {
			w[i] = flambda[i] * wavelen[i] * sb[i]
		}
		weights[name] = w
		base[name] = flux
	}

	n := int(math.Round(ebvMax/ebvStep)) + 1
	table := &DustTable{
		EBV:    make([]float64, n),
		Factor: make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		table.Factor[name] = make([]float64, n)
	}

	dim := make([]float64, len(wavelen))
	for k := 0; k < n; k++ {
		ebv := float64(k) * ebvStep
		table.EBV[k] = ebv
		for i := range wavelen {
			dim[i] = math.Pow(10, -0.4*extinction[i]*ebv)
		}
		for _, name := range names {
			var sum float64
			for i, w := range weights[name] {
				sum += w * dim[i]
			}
			table.Factor[name][k] = sum / base[name]
		}
	}

	table.fits = make(map[string]*interp.PiecewiseLinear, len(names))
	for _, name := range names {
		pl := &interp.PiecewiseLinear{}
		if err := pl.Fit(table.EBV, table.Factor[name]); err != nil {
			return nil, fmt.Errorf("dust factors for %s: %w", name, err)
		}
		table.fits[name] = pl
	}

	return table, nil
}

// ccmAB returns the CCM a(x) and b(x) coefficients for inverse wavelength
// x in 1/micron, using the O'Donnell (1994) optical polynomial.
func ccmAB(x float64) (float64, float64) {
	switch {
	case x < 0.3:
		return 0, 0
	case x < 1.1:
		p := math.Pow(x, 1.61)
		return 0.574 * p, -0.527 * p
	case x < 3.3:
		y := x - 1.82
		a := 1 + 0.104*y - 0.609*y*y + 0.701*math.Pow(y, 3) + 1.137*math.Pow(y, 4) -
			1.718*math.Pow(y, 5) - 0.827*math.Pow(y, 6) + 1.647*math.Pow(y, 7) - 0.505*math.Pow(y, 8)
		b := 1.952*y + 2.908*y*y - 3.989*math.Pow(y, 3) - 7.985*math.Pow(y, 4) +
			11.102*math.Pow(y, 5) + 5.491*math.Pow(y, 6) - 10.805*math.Pow(y, 7) + 3.347*math.Pow(y, 8)
		return a, b
	case x < 8.0:
		var fa, fb float64
		if x >= 5.9 {
			d := x - 5.9
			fa = -0.04473*d*d - 0.009779*d*d*d
			fb = 0.2130*d*d + 0.1207*d*d*d
		}
		a := 1.752 - 0.316*x - 0.104/((x-4.67)*(x-4.67)+0.341) + fa
		b := -3.090 + 1.825*x + 1.206/((x-4.62)*(x-4.62)+0.263) + fb
		return a, b
	default:
		d := x - 8.0
		a := -1.073 - 0.628*d + 0.137*d*d - 0.070*d*d*d
		b := 13.670 + 4.257*d - 0.420*d*d + 0.374*d*d*d
		return a, b
	}
}
