// Package variability computes time-variable magnitude offsets for
// catalog objects. Each object carries a JSON parameter blob naming one
// of the registered models; the engine groups objects by model, evaluates
// each group and sums the results into a band × object (× epoch) tensor.
package variability

import (
	"log/slog"
	"time"

	"github.com/star/catsim/internal/astrotime"
	"github.com/star/catsim/internal/metrics"
)

// ParamColumn is the catalog column holding the parameter blobs.
const ParamColumn = "varParamStr"

// Engine dispatches parameter blobs to registered models.
type Engine struct {
	registry *Registry
	host     Host
	obsMJD   float64
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHost sets the catalog columns used when Apply is called without a
// host of its own.
func WithHost(h Host) Option {
	return func(e *Engine) { e.host = h }
}

// WithObservationMJD sets the epoch used when Apply is given no epochs.
func WithObservationMJD(mjd float64) Option {
	return func(e *Engine) { e.obsMJD = mjd }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine over the models offered by caps.
func NewEngine(caps []Capability, opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(caps...),
		host:     noHost{},
		obsMJD:   astrotime.SurveyStartMJD,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's model registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ObservationMJD returns the default evaluation epoch.
func (e *Engine) ObservationMJD() float64 {
	return e.obsMJD
}

// Apply evaluates blobs at epochs using the engine's host.
func (e *Engine) Apply(blobs []string, epochs Epochs) (*Tensor, error) {
	return e.ApplyWithHost(blobs, epochs, e.host)
}

// ApplyWithHost evaluates blobs at epochs, reading extra per-object
// columns from host. Any model failure aborts the whole batch.
func (e *Engine) ApplyWithHost(blobs []string, epochs Epochs, host Host) (*Tensor, error) {
	if epochs.IsZero() {
		epochs = At(e.obsMJD)
	}
	if host == nil {
		host = noHost{}
	}

	table, err := ParseBlobs(blobs)
	if err != nil {
		return nil, err
	}
	out := NewTensor(table.N, epochs)

	if table.N == 0 {
		if err := e.invokeAll(emptyBatchHost{host}); err != nil {
			return nil, err
		}
		return out, nil
	}

	for _, name := range table.Models() {
		model, err := e.registry.Lookup(name)
		if err != nil {
			return nil, &ModelError{Model: name, Err: err}
		}
		req := &Request{
			Model:  name,
			Valid:  table.Indices(name),
			Params: table.Params(name),
			N:      table.N,
			Epochs: epochs,
			Host:   host,
		}
		part, err := e.evaluate(model, req)
		if err != nil {
			return nil, &ModelError{Model: name, Err: err}
		}
		if err := out.Add(part); err != nil {
			return nil, &ModelError{Model: name, Err: err}
		}
	}
	return out, nil
}

// invokeAll calls every registered model with an empty request so that
// the columns they read are requested from host.
func (e *Engine) invokeAll(host Host) error {
	for _, name := range e.registry.Names() {
		model, _ := e.registry.Lookup(name)
		req := &Request{Model: name, Params: ParamSet{}, Epochs: At(0), Host: host}
		if _, err := model.Evaluate(req); err != nil {
			return &ModelError{Model: name, Err: err}
		}
	}
	return nil
}

func (e *Engine) evaluate(model Model, req *Request) (*Tensor, error) {
	start := time.Now()
	part, err := model.Evaluate(req)
	duration := time.Since(start)
	metrics.RecordEvaluation(req.Model, len(req.Valid), duration, err)

	if err != nil {
		e.logger.Debug("variability model failed",
			"model", req.Model,
			"objects", len(req.Valid),
			"error", err,
		)
		return nil, err
	}
	e.logger.Debug("variability model evaluated",
		"model", req.Model,
		"objects", len(req.Valid),
		"epochs", req.Epochs.Len(),
		"duration_ms", duration.Milliseconds(),
	)
	return part, nil
}

// Columns returns the catalog columns the engine needs: the parameter
// blob column and every host column a registered model reads.
func (e *Engine) Columns() ([]string, error) {
	rec := &RecordingHost{}
	if err := e.invokeAll(rec); err != nil {
		return nil, err
	}
	return append([]string{ParamColumn}, rec.Names()...), nil
}
