package variability

import (
	"fmt"
	"math"

	"github.com/star/catsim/internal/photometry"
)

// Epochs is the time argument of an evaluation: either a single MJD or an
// ordered series of MJDs. The zero value means "unspecified" and is
// replaced by the engine's observation epoch.
type Epochs struct {
	mjd    []float64
	series bool
}

// At returns a single-epoch time argument.
func At(mjd float64) Epochs {
	return Epochs{mjd: []float64{mjd}}
}

// Series returns a multi-epoch time argument. The result shape carries a
// time axis even when only one MJD is given.
func Series(mjd ...float64) Epochs {
	cp := make([]float64, len(mjd))
	copy(cp, mjd)
	return Epochs{mjd: cp, series: true}
}

// IsZero reports whether no time was specified.
func (e Epochs) IsZero() bool {
	return !e.series && len(e.mjd) == 0
}

// IsSeries reports whether the offsets carry a time axis.
func (e Epochs) IsSeries() bool {
	return e.series
}

// Len returns the number of epochs.
func (e Epochs) Len() int {
	return len(e.mjd)
}

// MJD returns epoch k.
func (e Epochs) MJD(k int) float64 {
	return e.mjd[k]
}

// Values returns a copy of the epochs.
func (e Epochs) Values() []float64 {
	cp := make([]float64, len(e.mjd))
	copy(cp, e.mjd)
	return cp
}

// Tensor holds magnitude offsets indexed by band (ugrizy), object and,
// for series evaluations, epoch.
type Tensor struct {
	n      int
	t      int
	series bool
	data   []float64
}

// NewTensor returns a zeroed tensor for n objects evaluated at e.
func NewTensor(n int, e Epochs) *Tensor {
	t := 1
	if e.series {
		t = len(e.mjd)
	}
	return &Tensor{
		n:      n,
		t:      t,
		series: e.series,
		data:   make([]float64, photometry.NumBands*n*t),
	}
}

// Shape returns [6, N] for a single epoch and [6, N, T] for a series.
func (m *Tensor) Shape() []int {
	if m.series {
		return []int{photometry.NumBands, m.n, m.t}
	}
	return []int{photometry.NumBands, m.n}
}

// Objects returns N.
func (m *Tensor) Objects() int { return m.n }

// Times returns the length of the time axis (1 for a single epoch).
func (m *Tensor) Times() int { return m.t }

// IsSeries reports whether the tensor has a time axis.
func (m *Tensor) IsSeries() bool { return m.series }

func (m *Tensor) index(band, obj, k int) int {
	return (band*m.n+obj)*m.t + k
}

// At returns the offset for band, object and epoch k (0 for single-epoch).
func (m *Tensor) At(band, obj, k int) float64 {
	return m.data[m.index(band, obj, k)]
}

// Set stores an offset.
func (m *Tensor) Set(band, obj, k int, v float64) {
	m.data[m.index(band, obj, k)] = v
}

// AddAt adds v to an offset.
func (m *Tensor) AddAt(band, obj, k int, v float64) {
	m.data[m.index(band, obj, k)] += v
}

// Series returns the time row of one band and object. The slice aliases
// the tensor.
func (m *Tensor) Series(band, obj int) []float64 {
	i := m.index(band, obj, 0)
	return m.data[i : i+m.t : i+m.t]
}

// Add accumulates o into m.
func (m *Tensor) Add(o *Tensor) error {
	if m.n != o.n || m.t != o.t || m.series != o.series {
		return fmt.Errorf("%w: have %v, adding %v", ErrShape, m.Shape(), o.Shape())
	}
	for i, v := range o.data {
		m.data[i] += v
	}
	return nil
}

// Min returns the smallest offset, or +Inf for an empty tensor.
func (m *Tensor) Min() float64 {
	lo := math.Inf(1)
	for _, v := range m.data {
		if v < lo {
			lo = v
		}
	}
	return lo
}

// Apply replaces every element with fn of itself.
func (m *Tensor) Apply(fn func(float64) float64) {
	for i, v := range m.data {
		m.data[i] = fn(v)
	}
}

// Nested returns the offsets as [][]float64 (single epoch) or
// [][][]float64 (series), suitable for encoding.
func (m *Tensor) Nested() any {
	if !m.series {
		out := make([][]float64, photometry.NumBands)
		for b := range out {
			row := make([]float64, m.n)
			for i := range row {
				row[i] = m.At(b, i, 0)
			}
			out[b] = row
		}
		return out
	}

	out := make([][][]float64, photometry.NumBands)
	for b := range out {
		objs := make([][]float64, m.n)
		for i := range objs {
			objs[i] = append([]float64(nil), m.Series(b, i)...)
		}
		out[b] = objs
	}
	return out
}
