package variability

import (
	"fmt"
	"sort"
)

// Request is one model invocation over the objects of a batch that use it.
type Request struct {
	Model  string   // registry key the model was invoked under
	Valid  []int    // positions of the objects using the model
	Params ParamSet // the model's parameter columns, batch length
	N      int      // batch size
	Epochs Epochs
	Host   Host
}

// Empty reports whether the request carries no parameters, as in the
// dependency-discovery dry run.
func (r *Request) Empty() bool {
	return len(r.Params) == 0
}

// Model evaluates one physical variability model. The returned tensor spans
// the whole batch; objects outside Valid hold 0.
type Model interface {
	Evaluate(req *Request) (*Tensor, error)
}

// Capability is a group of models offered to one class of catalog.
type Capability interface {
	Register(r *Registry)
}

// Registry maps model names to evaluators. It is built once when an
// engine is constructed and not modified afterwards.
type Registry struct {
	models map[string]Model
}

// NewRegistry builds a registry from capability sets. When two sets offer
// the same name, the first one wins.
func NewRegistry(caps ...Capability) *Registry {
	r := &Registry{models: make(map[string]Model)}
	for _, c := range caps {
		c.Register(r)
	}
	return r
}

// Register adds m under key unless key is already taken. It reports
// whether m was added.
func (r *Registry) Register(key string, m Model) bool {
	if _, exists := r.models[key]; exists {
		return false
	}
	r.models[key] = m
	return true
}

// Lookup returns the model registered under key.
func (r *Registry) Lookup(key string) (Model, error) {
	m, ok := r.models[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}
	return m, nil
}

// Names returns the registered keys, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	return len(r.models)
}
