package variability

import (
	"fmt"
	"sort"
)

// Host supplies the per-object catalog columns some models read besides
// their parameter blob (parallax, reddening, quiescent magnitudes).
// Columns are batch length.
type Host interface {
	Column(name string) ([]float64, error)
}

// MapHost is a Host backed by in-memory columns.
type MapHost map[string][]float64

// Column returns the named column.
func (h MapHost) Column(name string) ([]float64, error) {
	col, ok := h[name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q", ErrMissingPrerequisite, name)
	}
	return col, nil
}

type noHost struct{}

func (noHost) Column(name string) ([]float64, error) {
	return nil, fmt.Errorf("%w: column %q requested but the catalog supplies no columns", ErrMissingPrerequisite, name)
}

// RecordingHost answers every request with an empty column and remembers
// what was asked for. The engine uses it to discover column dependencies.
type RecordingHost struct {
	seen map[string]struct{}
}

// Column records name and returns an empty column.
func (h *RecordingHost) Column(name string) ([]float64, error) {
	if h.seen == nil {
		h.seen = make(map[string]struct{})
	}
	h.seen[name] = struct{}{}
	return []float64{}, nil
}

// Names returns the recorded column names, sorted.
func (h *RecordingHost) Names() []string {
	out := make([]string, 0, len(h.seen))
	for name := range h.seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// emptyBatchHost passes column reads through to a Host but answers with an
// empty column when the Host cannot supply one. An empty batch needs no
// data.
type emptyBatchHost struct {
	Host
}

func (h emptyBatchHost) Column(name string) ([]float64, error) {
	col, err := h.Host.Column(name)
	if err != nil {
		return []float64{}, nil
	}
	return col, nil
}
