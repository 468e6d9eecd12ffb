package photometry

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandIndex(t *testing.T) {
	for want, b := range Bands {
		got, ok := BandIndex(b)
		if !ok || got != want {
			t.Errorf("BandIndex(%q) = %d, %v; want %d, true", b, got, ok, want)
		}
	}
	if _, ok := BandIndex("w"); ok {
		t.Error("BandIndex(\"w\") reported a match")
	}
}

func TestFluxMagRoundTrip(t *testing.T) {
	for _, mag := range []float64{-1, 0, 15.5, 24.2} {
		got := MagFromFlux(FluxFromMag(mag))
		if math.Abs(got-mag) > 1e-12 {
			t.Errorf("MagFromFlux(FluxFromMag(%v)) = %v", mag, got)
		}
	}
	// Zero magnitude is 3631 Jy in the AB system.
	assert.InDelta(t, 3630.78, FluxFromMag(0), 0.01)
}

func TestDefaultPhotParams(t *testing.T) {
	p := DefaultPhotParams()
	assert.InDelta(t, 324015.0, p.EffArea, 1.0)
}

// topHats builds 100 nm wide unit-throughput bandpasses centred across the
// optical range, bluest first.
func topHats() map[string]*Bandpass {
	centres := []float64{360, 480, 620, 750, 870, 1000}
	out := make(map[string]*Bandpass, len(centres))
	for i, c := range centres {
		out[Bands[i]] = &Bandpass{
			Wavelen: []float64{c - 50, c - 49.9, c + 49.9, c + 50},
			Sb:      []float64{0, 1, 1, 0},
		}
	}
	return out
}

func TestBuildFlareDustTable(t *testing.T) {
	table, err := BuildFlareDustTable(topHats())
	require.NoError(t, err)

	require.Len(t, table.EBV, 701)
	assert.Equal(t, 0.0, table.EBV[0])
	assert.InDelta(t, 7.0, table.EBV[700], 1e-9)

	for _, b := range Bands {
		f0, err := table.FactorAt(b, 0)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, f0, 1e-12, "band %s", b)

		prev := f0
		for _, ebv := range []float64{0.1, 0.5, 1, 3} {
			f, err := table.FactorAt(b, ebv)
			require.NoError(t, err)
			assert.Less(t, f, prev, "band %s ebv %v", b, ebv)
			prev = f
		}
	}

	u, _ := table.FactorAt("u", 0.3)
	y, _ := table.FactorAt("y", 0.3)
	assert.Less(t, u, y, "blue light must be dimmed more than red")

	// Outside the grid the end values are held.
	hi, _ := table.FactorAt("g", 7)
	beyond, _ := table.FactorAt("g", 12)
	assert.Equal(t, hi, beyond)

	_, err = table.FactorAt("w", 0.1)
	assert.Error(t, err)
}

func TestDustFactorInterpolatesGrid(t *testing.T) {
	table, err := BuildFlareDustTable(topHats())
	require.NoError(t, err)

	for _, b := range Bands {
		f := table.Factor[b]
		for _, k := range []int{0, 17, 350, 699} {
			mid, err := table.FactorAt(b, (table.EBV[k]+table.EBV[k+1])/2)
			require.NoError(t, err)
			assert.InDelta(t, (f[k]+f[k+1])/2, mid, 1e-12, "band %s k %d", b, k)

			at, err := table.FactorAt(b, table.EBV[k])
			require.NoError(t, err)
			assert.InDelta(t, f[k], at, 1e-12, "band %s k %d", b, k)
		}

		below, err := table.FactorAt(b, -0.5)
		require.NoError(t, err)
		assert.Equal(t, f[0], below)
		above, err := table.FactorAt(b, 9)
		require.NoError(t, err)
		assert.Equal(t, f[len(f)-1], above)
	}
}

func TestBuildFlareDustTableErrors(t *testing.T) {
	_, err := BuildFlareDustTable(nil)
	assert.Error(t, err)

	_, err = BuildFlareDustTable(map[string]*Bandpass{
		"u": {Wavelen: []float64{2000, 2100}, Sb: []float64{1, 1}},
	})
	assert.Error(t, err, "bandpass outside the blackbody grid")
}

func TestCCMOpticalAnchor(t *testing.T) {
	// At V (x = 1.82) the optical polynomial gives a = 1, b = 0.
	a, b := ccmAB(1.82)
	assert.InDelta(t, 1.0, a, 1e-12)
	assert.InDelta(t, 0.0, b, 1e-12)
}

func TestLoadBandpasses(t *testing.T) {
	dir := t.TempDir()
	for i, b := range Bands {
		var sb strings.Builder
		sb.WriteString("# wavelen throughput\n")
		lo := 300.0 + float64(i)*120
		for w := lo; w <= lo+100; w += 10 {
			fmt.Fprintf(&sb, "%.1f %.3f\n", w, 0.5)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "total_"+b+".dat"), []byte(sb.String()), 0o644))
	}

	bps, err := LoadBandpasses(dir)
	require.NoError(t, err)
	assert.Len(t, bps, NumBands)
	assert.Equal(t, 300.0, bps["u"].Wavelen[0])

	require.NoError(t, os.Remove(filepath.Join(dir, "total_y.dat")))
	_, err = LoadBandpasses(dir)
	assert.Error(t, err)
}

func TestLoadBandpassRejectsUnsortedGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	require.NoError(t, os.WriteFile(path, []byte("500 1\n400 1\n"), 0o644))
	_, err := LoadBandpass(path)
	assert.Error(t, err)
}
