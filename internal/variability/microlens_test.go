package variability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicrolensPeak(t *testing.T) {
	e := NewEngine([]Capability{StellarModels{}})
	blobs := []string{
		`{"m": "applyMicrolens", "p": {"t0": 60000, "umin": 1, "that": 40}}`,
		`{"m": "applyMicrolensing", "p": {"t0": 60000, "umin": 1, "that": 40}}`,
	}
	out, err := e.Apply(blobs, Series(60000, 60020, 59980))
	require.NoError(t, err)

	peak := -2.5 * math.Log10(3/math.Sqrt(5))
	for b := 0; b < 6; b++ {
		assert.InDelta(t, peak, out.At(b, 0, 0), 1e-12)
		assert.InDelta(t, peak, out.At(b, 1, 0), 1e-12)
		// Symmetric about t0 and fainter away from it.
		assert.InDelta(t, out.At(b, 0, 1), out.At(b, 0, 2), 1e-12)
		assert.Greater(t, out.At(b, 0, 1), peak)
	}
}

func TestPointLensMagnification(t *testing.T) {
	// u = sqrt(0.3² + 0.4²) = 0.5
	u := 0.5
	want := (u*u + 2) / (u * math.Sqrt(u*u+4))
	assert.InDelta(t, want, pointLensMagnification(4, 0.3, 20), 1e-12)
	assert.InDelta(t, 1.0, pointLensMagnification(1e9, 0.1, 1), 1e-9)
}

func TestBHMicrolens(t *testing.T) {
	dir := t.TempDir()
	// Magnification 1 + t(years), tabulated over 0..2 years.
	var rows [][]float64
	for i := 0; i <= 8; i++ {
		yrs := float64(i) * 0.25
		rows = append(rows, []float64{yrs, 1 + yrs})
	}
	writeCurve(t, dir, "bh.dat", rows)
	e, curves := stellarEngine(t, dir)

	blob := `{"m": "applyBHMicrolens", "p": {"filename": "bh.dat", "t0": 50000}}`
	out, err := e.Apply([]string{blob, blob}, Series(50000+182.5, 50000+1000, 49990))
	require.NoError(t, err)

	for b := 0; b < 6; b++ {
		assert.InDelta(t, -2.5*math.Log(1.5), out.At(b, 0, 0), 1e-9)
		assert.Zero(t, out.At(b, 0, 1))
		assert.Zero(t, out.At(b, 1, 2))
	}
	assert.Equal(t, 1, curves.Stats().Magnification)
}

func TestBHMicrolensNonPositiveMagnification(t *testing.T) {
	dir := t.TempDir()
	mags := []float64{1, 1, 1, 1, 0, -0.5, 1, 2, 1}
	var rows [][]float64
	for i, m := range mags {
		rows = append(rows, []float64{float64(i) * 0.25, m})
	}
	writeCurve(t, dir, "bh.dat", rows)
	e, _ := stellarEngine(t, dir)

	blob := `{"m": "applyBHMicrolens", "p": {"filename": "bh.dat", "t0": 50000}}`
	out, err := e.Apply([]string{blob}, Series(50000+365, 50000+456.25, 50000+638.75))
	require.NoError(t, err)

	for b := 0; b < 6; b++ {
		assert.Zero(t, out.At(b, 0, 0), "zero magnification")
		assert.Zero(t, out.At(b, 0, 1), "negative magnification")
		assert.InDelta(t, -2.5*math.Log(2), out.At(b, 0, 2), 1e-9)
	}
}

func TestAmcvnBaseline(t *testing.T) {
	e := NewEngine([]Capability{StellarModels{}})
	blob := `{"m": "applyAmcvn", "p": {"amplitude": 0.3, "t0": 100, "period": 2, "burst_freq": 50,
		"burst_scale": 10, "amp_burst": 2, "color_excess_during_burst": 0.2, "does_burst": 0}}`

	out, err := e.Apply([]string{blob}, At(103))
	require.NoError(t, err)
	want := 0.3 * math.Cos(3.0/2)
	for b := 0; b < 6; b++ {
		assert.InDelta(t, want, out.At(b, 0, 0), 1e-12)
	}
}

func TestAmcvnBurst(t *testing.T) {
	e := NewEngine([]Capability{StellarModels{}})
	blob := `{"m": "applyAmcvn", "p": {"amplitude": 0.3, "t0": 100, "period": 2, "burst_freq": 50,
		"burst_scale": 10, "amp_burst": 2, "color_excess_during_burst": 0.2, "does_burst": 1}}`

	// Before the first outburst only the colour excess is added.
	out, err := e.Apply([]string{blob}, At(100))
	require.NoError(t, err)
	base := 0.3
	assert.InDelta(t, base+0.4, out.At(0, 0, 0), 1e-12)
	assert.InDelta(t, base+0.2, out.At(1, 0, 0), 1e-12)
	assert.InDelta(t, base+0.1, out.At(2, 0, 0), 1e-12)
	assert.InDelta(t, base, out.At(3, 0, 0), 1e-12)

	// Twenty days after the first outburst at t0+50 its decay is
	// exp(-2)/exp(-1) of the burst amplitude.
	epoch := 170.0
	out, err = e.Apply([]string{blob}, At(epoch))
	require.NoError(t, err)
	pulses := burstTimes(100, 50)
	adds := 0.0
	for _, o := range pulses {
		tmp := math.Exp(-(epoch-o)/10) / math.Exp(-1)
		if tmp < 1 {
			adds -= 2 * tmp
		}
	}
	assert.InDelta(t, -2*math.Exp(-1), adds, 1e-3)
	assert.InDelta(t, 0.3*math.Cos(35)+adds, out.At(4, 0, 0), 1e-12)
}

func TestBurstTimes(t *testing.T) {
	pulses := burstTimes(0, 365.25)
	require.Len(t, pulses, 10)
	assert.Equal(t, 365.25, pulses[0])
	assert.Equal(t, 3652.5, pulses[9])

	assert.Len(t, burstTimes(0, 5000), 1)
	assert.Nil(t, burstTimes(0, 0))
}
