package photometry

import (
	"errors"
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/interp"

	"github.com/star/catsim/internal/lightcurve"
)

// Bandpass is a total system throughput curve.
type Bandpass struct {
	Wavelen []float64 // nm, strictly increasing
	Sb      []float64 // throughput, 0..1
}

// LoadBandpass reads a two-column (wavelength nm, throughput) text file.
func LoadBandpass(path string) (*Bandpass, error) {
	tbl, err := lightcurve.LoadTable(path)
	if err != nil {
		return nil, err
	}
	if tbl.NumColumns() < 2 {
		return nil, fmt.Errorf("bandpass %s: need 2 columns, got %d", path, tbl.NumColumns())
	}
	bp := &Bandpass{Wavelen: tbl.Column(0), Sb: tbl.Column(1)}
	if err := bp.validate(); err != nil {
		return nil, fmt.Errorf("bandpass %s: %w", path, err)
	}
	return bp, nil
}

// LoadBandpasses reads total_<band>.dat for every survey filter in dir.
func LoadBandpasses(dir string) (map[string]*Bandpass, error) {
	out := make(map[string]*Bandpass, NumBands)
	for _, b := range Bands {
		bp, err := LoadBandpass(filepath.Join(dir, "total_"+b+".dat"))
		if err != nil {
			return nil, err
		}
		out[b] = bp
	}
	return out, nil
}

func (b *Bandpass) validate() error {
	if len(b.Wavelen) < 2 || len(b.Wavelen) != len(b.Sb) {
		return errors.New("wavelength and throughput grids must match and hold at least 2 samples")
	}
	for i := 1; i < len(b.Wavelen); i++ {
		if b.Wavelen[i] <= b.Wavelen[i-1] {
			return fmt.Errorf("wavelength grid not increasing at sample %d", i)
		}
	}
	return nil
}

// resample evaluates the throughput on wavelen, zero outside the curve.
func (b *Bandpass) resample(wavelen []float64) ([]float64, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(b.Wavelen, b.Sb); err != nil {
		return nil, err
	}

	lo, hi := b.Wavelen[0], b.Wavelen[len(b.Wavelen)-1]
	out := make([]float64, len(wavelen))
	for i, w := range wavelen {
		if w < lo || w > hi {
			continue
		}
		out[i] = pl.Predict(w)
	}
	return out, nil
}

// relativeFlux integrates f_nu (up to a constant) through the throughput
// already resampled onto the SED's uniform wavelength grid.
func relativeFlux(wavelen, flambda, sb []float64) float64 {
	var sum float64
	for i := range wavelen {
		// f_nu ~ f_lambda * lambda^2; photon weighting divides by lambda.
		sum += flambda[i] * wavelen[i] * sb[i]
	}
	return sum
}
