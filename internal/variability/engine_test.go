package variability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constModel adds a fixed offset to every valid object and counts calls.
type constModel struct {
	offset float64
	calls  int
	empty  int
	column string
}

func (m *constModel) Evaluate(req *Request) (*Tensor, error) {
	m.calls++
	if m.column != "" {
		if _, err := req.Host.Column(m.column); err != nil {
			return nil, err
		}
	}
	out := NewTensor(req.N, req.Epochs)
	if req.Empty() {
		m.empty++
		return out, nil
	}
	for _, ix := range req.Valid {
		for b := 0; b < 6; b++ {
			for k := 0; k < out.Times(); k++ {
				out.Set(b, ix, k, m.offset)
			}
		}
	}
	return out, nil
}

type capFunc func(r *Registry)

func (f capFunc) Register(r *Registry) { f(r) }

func TestTensorShape(t *testing.T) {
	assert.Equal(t, []int{6, 3}, NewTensor(3, At(1)).Shape())
	assert.Equal(t, []int{6, 3, 1}, NewTensor(3, Series(1)).Shape())
	assert.Equal(t, []int{6, 0, 4}, NewTensor(0, Series(1, 2, 3, 4)).Shape())

	a := NewTensor(2, Series(1, 2))
	a.Set(5, 1, 1, 3)
	assert.Equal(t, []float64{0, 3}, a.Series(5, 1))

	err := a.Add(NewTensor(2, At(1)))
	assert.True(t, errors.Is(err, ErrShape))
}

func TestRegistryFirstRegistrationWins(t *testing.T) {
	first := &constModel{offset: 1}
	second := &constModel{offset: 2}
	r := NewRegistry(
		capFunc(func(r *Registry) { r.Register("m", first) }),
		capFunc(func(r *Registry) { r.Register("m", second) }),
	)
	m, err := r.Lookup("m")
	require.NoError(t, err)
	assert.Same(t, first, m)
	assert.Equal(t, 1, r.Len())

	_, err = r.Lookup("nope")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestApplyShapes(t *testing.T) {
	e := NewEngine([]Capability{StellarModels{}, ExtragalacticModels{}})

	out, err := e.Apply(nil, Epochs{})
	require.NoError(t, err)
	assert.Equal(t, []int{6, 0}, out.Shape())

	out, err = e.Apply(nil, Series(59580, 59581))
	require.NoError(t, err)
	assert.Equal(t, []int{6, 0, 2}, out.Shape())

	out, err = e.Apply([]string{"None", "", "null"}, Series(59580, 59581, 59582))
	require.NoError(t, err)
	assert.Equal(t, []int{6, 3, 3}, out.Shape())
	for b := 0; b < 6; b++ {
		for i := 0; i < 3; i++ {
			for k := 0; k < 3; k++ {
				assert.Zero(t, out.At(b, i, k))
			}
		}
	}
}

func TestApplyEmptyBatchInvokesEveryModel(t *testing.T) {
	a := &constModel{column: "parallax"}
	b := &constModel{}
	e := NewEngine([]Capability{capFunc(func(r *Registry) {
		r.Register("a", a)
		r.Register("b", b)
	})})

	_, err := e.Apply([]string{}, At(60000))
	require.NoError(t, err)
	assert.Equal(t, 1, a.empty)
	assert.Equal(t, 1, b.empty)
}

func TestApplyIsAdditive(t *testing.T) {
	a := &constModel{offset: 0.5}
	b := &constModel{offset: -2}
	e := NewEngine([]Capability{capFunc(func(r *Registry) {
		r.Register("a", a)
		r.Register("b", b)
	})})

	out, err := e.Apply([]string{
		`{"m": "a", "p": {"x": 1}}`,
		`{"m": "b", "p": {"x": 1}}`,
		"None",
	}, Epochs{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.At(0, 0, 0))
	assert.Equal(t, -2.0, out.At(3, 1, 0))
	assert.Zero(t, out.At(5, 2, 0))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestApplyUnknownModel(t *testing.T) {
	e := NewEngine([]Capability{StellarModels{}})
	_, err := e.Apply([]string{`{"m": "applySupernova", "p": {}}`}, Epochs{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	var me *ModelError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "applySupernova", me.Model)
}

func TestApplyDefaultsToObservationEpoch(t *testing.T) {
	e := NewEngine([]Capability{StellarModels{}}, WithObservationMJD(60010))
	blobs := []string{`{"m": "applyMicrolens", "p": {"t0": 60000, "umin": 0.5, "that": 30}}`}

	implicit, err := e.Apply(blobs, Epochs{})
	require.NoError(t, err)
	explicit, err := e.Apply(blobs, At(60010))
	require.NoError(t, err)
	assert.Equal(t, explicit.At(2, 0, 0), implicit.At(2, 0, 0))
}

func TestColumnsDiscovery(t *testing.T) {
	res := &Resources{}
	caps, err := res.ForCatalog("stars")
	require.NoError(t, err)

	cols, err := NewEngine(caps).Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{ParamColumn, "ebv", "parallax"}, cols)

	caps, err = res.ForCatalog("agn")
	require.NoError(t, err)
	cols, err = NewEngine(caps).Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{ParamColumn}, cols)

	_, err = res.ForCatalog("asteroids")
	assert.Error(t, err)
}

func TestStellarRegistryNames(t *testing.T) {
	r := NewRegistry(StellarModels{}, FlaringModels{})
	assert.Equal(t, []string{
		"MLT",
		"applyAmcvn",
		"applyBHMicrolens",
		"applyCepheid",
		"applyEb",
		"applyMicrolens",
		"applyMicrolensing",
		"applyRRly",
	}, r.Names())
}
