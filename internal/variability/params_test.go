package variability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlobsLegacyKeys(t *testing.T) {
	blobs := []string{
		`{"varMethodName": "applyMicrolens", "pars": {"t0": 10, "umin": 0.5, "that": 20}}`,
		"None",
		`{"m": "applyMicrolens", "p": {"t0": "11", "umin": 0.25, "that": 30}}`,
		`{"m": "applyAmcvn", "p": {"amplitude": 0.1}}`,
		"",
	}
	tbl, err := ParseBlobs(blobs)
	require.NoError(t, err)

	assert.Equal(t, 5, tbl.N)
	assert.Equal(t, []string{"applyAmcvn", "applyMicrolens"}, tbl.Models())
	assert.Equal(t, []int{0, 2}, tbl.Indices("applyMicrolens"))
	assert.Equal(t, []int{1, 4}, tbl.Indices(NullModel))
	assert.Equal(t, NullModel, tbl.Method(4))

	p := tbl.Params("applyMicrolens")
	for key, col := range p {
		assert.Len(t, col, 5, "column %s", key)
	}
	t0, err := p.Floats("t0", []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, t0)
	assert.True(t, p["t0"][1].IsNull())
}

func TestParseBlobsBackfillsLateParameters(t *testing.T) {
	blobs := []string{
		`{"m": "applyAgn", "p": {"seed": 1}}`,
		`{"m": "applyAgn", "p": {"seed": 2, "agn_tau": 100}}`,
	}
	tbl, err := ParseBlobs(blobs)
	require.NoError(t, err)

	p := tbl.Params("applyAgn")
	require.Len(t, p["agn_tau"], 2)
	assert.True(t, p["agn_tau"][0].IsNull())
	tau, err := p.Float("agn_tau", 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, tau)

	_, err = p.Float("agn_tau", 0)
	assert.True(t, errors.Is(err, ErrParameter))
}

func TestParseBlobsMalformed(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", `{"m": `},
		{"not an object", `[1, 2]`},
		{"no method", `{"p": {}}`},
		{"numeric method", `{"m": 3, "p": {}}`},
		{"params not object", `{"m": "applyRRly", "p": [1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlobs([]string{"None", tt.blob})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedBlob))
			assert.Contains(t, err.Error(), "object 1")
		})
	}
}

func TestParseBlobsNullParams(t *testing.T) {
	tbl, err := ParseBlobs([]string{`{"m": "applyRRly", "p": null}`})
	require.NoError(t, err)
	assert.Equal(t, []string{"applyRRly"}, tbl.Models())
	assert.Empty(t, tbl.Params("applyRRly"))
}

func TestParamAccessors(t *testing.T) {
	tbl, err := ParseBlobs([]string{
		`{"m": "x", "p": {"seed": 42, "big": 9007199254740993, "flag": true, "one": "1", "name": "rrly_1.dat", "f": 2.0, "n": null}}`,
	})
	require.NoError(t, err)
	p := tbl.Params("x")

	seed, err := p.Int("seed", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), seed)

	big, err := p.Int("big", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), big)

	f, err := p.Int("f", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f)

	_, err = p.Int("name", 0)
	assert.True(t, errors.Is(err, ErrParameter))

	s, err := p.String("name", 0)
	require.NoError(t, err)
	assert.Equal(t, "rrly_1.dat", s)

	s, err = p.String("n", 0)
	require.NoError(t, err)
	assert.Equal(t, NullModel, s)

	s, err = p.String("seed", 0)
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	assert.True(t, p.Truthy("flag", 0))
	assert.True(t, p.Truthy("one", 0))
	assert.False(t, p.Truthy("n", 0))
	assert.False(t, p.Truthy("missing", 0))

	_, err = p.Float("missing", 0)
	assert.True(t, errors.Is(err, ErrParameter))
}

func TestIsNullBlob(t *testing.T) {
	for _, blob := range []string{"", "None", "null", "  None "} {
		assert.True(t, IsNullBlob(blob), "%q", blob)
	}
	assert.False(t, IsNullBlob(`{"m": "None"}`))
}
