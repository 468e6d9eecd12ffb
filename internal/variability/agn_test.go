package variability

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agnBlob(seed int, t0 float64) string {
	return fmt.Sprintf(`{"m": "applyAgn", "p": {"seed": %d, "t0_mjd": %g, "agn_tau": 100,
		"agn_sfu": 0.3, "agn_sfg": 0.25, "agn_sfr": 0.2, "agn_sfi": 0.15, "agn_sfz": 0.1, "agn_sfy": 0.05}}`, seed, t0)
}

func agnEngine(cache *AGNCache) *Engine {
	return NewEngine([]Capability{ExtragalacticModels{Cache: cache}})
}

func TestAGNResumeMatchesSinglePass(t *testing.T) {
	blobs := []string{agnBlob(11, 59580), "None", agnBlob(12, 59580)}

	resumed := agnEngine(NewAGNCache(0, nil))
	_, err := resumed.Apply(blobs, At(59590.5))
	require.NoError(t, err)
	got, err := resumed.Apply(blobs, At(59600.25))
	require.NoError(t, err)

	direct := agnEngine(NewAGNCache(0, nil))
	want, err := direct.Apply(blobs, At(59600.25))
	require.NoError(t, err)

	for b := 0; b < 6; b++ {
		for _, i := range []int{0, 2} {
			assert.InDelta(t, want.At(b, i, 0), got.At(b, i, 0), 1e-9, "band %d object %d", b, i)
		}
		assert.Zero(t, got.At(b, 1, 0))
	}
	assert.NotEqual(t, want.At(0, 0, 0), want.At(0, 2, 0))
}

func TestAGNSeriesMatchesSequentialScalars(t *testing.T) {
	blobs := []string{agnBlob(3, 59580)}

	series := agnEngine(NewAGNCache(0, nil))
	// Out of order on purpose; epochs are walked in ascending order.
	got, err := series.Apply(blobs, Series(59700, 59600, 59650))
	require.NoError(t, err)

	scalar := agnEngine(NewAGNCache(0, nil))
	for _, c := range []struct {
		mjd  float64
		slot int
	}{{59600, 1}, {59650, 2}, {59700, 0}} {
		want, err := scalar.Apply(blobs, At(c.mjd))
		require.NoError(t, err)
		for b := 0; b < 6; b++ {
			assert.InDelta(t, want.At(b, 0, 0), got.At(b, 0, c.slot), 1e-12)
		}
	}
}

func TestAGNDeterministicAcrossCaches(t *testing.T) {
	blobs := []string{agnBlob(99, 59000)}
	a, err := agnEngine(NewAGNCache(0, nil)).Apply(blobs, At(59123.4))
	require.NoError(t, err)
	b, err := agnEngine(NewAGNCache(0, nil)).Apply(blobs, At(59123.4))
	require.NoError(t, err)
	assert.Equal(t, a.Nested(), b.Nested())
}

func TestAGNOrderingViolation(t *testing.T) {
	cache := NewAGNCache(0, nil)
	e := agnEngine(cache)
	blobs := []string{agnBlob(5, 59580)}

	_, err := e.Apply(blobs, At(59700))
	require.NoError(t, err)
	_, err = e.Apply(blobs, At(59650))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEpochOrder))

	// Repeating the last epoch is allowed.
	_, err = e.Apply(blobs, At(59700))
	assert.NoError(t, err)

	cache.Reset()
	_, err = e.Apply(blobs, At(59650))
	assert.NoError(t, err)
}

func TestAGNEpochBeforeStart(t *testing.T) {
	e := agnEngine(NewAGNCache(0, nil))
	_, err := e.Apply([]string{agnBlob(5, 59580)}, At(59579))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEpochBeforeStart))
}

func TestAGNAtStartIsZero(t *testing.T) {
	e := agnEngine(NewAGNCache(0, nil))
	out, err := e.Apply([]string{agnBlob(5, 59580)}, At(59580))
	require.NoError(t, err)
	for b := 0; b < 6; b++ {
		assert.Zero(t, out.At(b, 0, 0))
	}
}

func TestAGNSharedIdentity(t *testing.T) {
	cache := NewAGNCache(0, nil)
	e := agnEngine(cache)
	out, err := e.Apply([]string{agnBlob(8, 59580), agnBlob(8, 59580)}, At(59640))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
	for b := 0; b < 6; b++ {
		assert.Equal(t, out.At(b, 0, 0), out.At(b, 1, 0))
	}
}

func TestAGNCacheCapacity(t *testing.T) {
	cache := NewAGNCache(2, nil)
	e := agnEngine(cache)
	for seed := 1; seed <= 3; seed++ {
		_, err := e.Apply([]string{agnBlob(seed, 59580)}, At(59600))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cache.Len())

	_, err := e.Apply([]string{agnBlob(4, 59580)}, At(59600))
	require.NoError(t, err)
	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Resets)
	assert.Equal(t, 2, stats.Max)
}

func TestAGNProcessID(t *testing.T) {
	p := &agnProcess{seed: 7, tau: 100, t0: 59580, sf: [6]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}}
	assert.Equal(t,
		"7_0.100000000000_0.200000000000_0.300000000000_0.400000000000_0.500000000000_0.600000000000_100.000000000000_59580.000000000000",
		p.id())
}

func TestAGNRejectsBadTau(t *testing.T) {
	e := agnEngine(NewAGNCache(0, nil))
	blob := `{"m": "applyAgn", "p": {"seed": 1, "t0_mjd": 0, "agn_tau": 0,
		"agn_sfu": 0, "agn_sfg": 0, "agn_sfr": 0, "agn_sfi": 0, "agn_sfz": 0, "agn_sfy": 0}}`
	_, err := e.Apply([]string{blob}, At(1))
	assert.True(t, errors.Is(err, ErrParameter))
}
