package api

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/star/catsim/internal/variability"
)

// ErrUnknownCatalog is returned for catalog kinds with no engine.
var ErrUnknownCatalog = fmt.Errorf("unknown catalog kind (want one of %v)", variability.CatalogKinds())

// CacheStats groups the statistics of the shared variability caches.
type CacheStats struct {
	AGN         variability.AGNCacheStats   `json:"agn"`
	LightCurves variability.CurveCacheStats `json:"light_curves"`
	Flares      variability.FlareCacheStats `json:"flares"`
}

// Evaluator owns one engine per catalog kind over shared caches. The
// caches assume a single evaluation at a time, so evaluations are
// serialized.
type Evaluator struct {
	mu      sync.Mutex
	res     *variability.Resources
	engines map[string]*variability.Engine
}

// NewEvaluator builds an engine for every catalog kind.
func NewEvaluator(res *variability.Resources, logger *slog.Logger, opts ...variability.Option) (*Evaluator, error) {
	if res.AGN == nil {
		res.AGN = variability.NewAGNCache(0, logger)
	}
	if res.Curves == nil {
		res.Curves = variability.NewCurveCache("", true)
	}
	if res.Flares.Cache == nil {
		res.Flares.Cache = variability.NewFlareCache(logger)
	}
	ev := &Evaluator{res: res, engines: make(map[string]*variability.Engine)}
	opts = append([]variability.Option{variability.WithLogger(logger)}, opts...)
	for _, kind := range variability.CatalogKinds() {
		caps, err := res.ForCatalog(kind)
		if err != nil {
			return nil, err
		}
		ev.engines[kind] = variability.NewEngine(caps, opts...)
	}
	return ev, nil
}

func (ev *Evaluator) engine(kind string) (*variability.Engine, error) {
	if kind == "" {
		kind = "stars"
	}
	e, ok := ev.engines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCatalog, kind)
	}
	return e, nil
}

// Evaluate computes the offsets of blobs for a catalog kind.
func (ev *Evaluator) Evaluate(kind string, blobs []string, epochs variability.Epochs, host variability.Host) (*variability.Tensor, error) {
	e, err := ev.engine(kind)
	if err != nil {
		return nil, err
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return e.ApplyWithHost(blobs, epochs, host)
}

// Models lists the model names a catalog kind accepts.
func (ev *Evaluator) Models(kind string) ([]string, error) {
	e, err := ev.engine(kind)
	if err != nil {
		return nil, err
	}
	return e.Registry().Names(), nil
}

// Columns lists the catalog columns a catalog kind needs.
func (ev *Evaluator) Columns(kind string) ([]string, error) {
	e, err := ev.engine(kind)
	if err != nil {
		return nil, err
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return e.Columns()
}

// ResetAGN clears the AGN process cache and returns how many processes
// were dropped.
func (ev *Evaluator) ResetAGN() int {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.res.AGN == nil {
		return 0
	}
	n := ev.res.AGN.Len()
	ev.res.AGN.Reset()
	return n
}

// Stats returns cache statistics.
func (ev *Evaluator) Stats() CacheStats {
	var s CacheStats
	if ev.res.AGN != nil {
		s.AGN = ev.res.AGN.Stats()
	}
	if ev.res.Curves != nil {
		s.LightCurves = ev.res.Curves.Stats()
	}
	if ev.res.Flares.Cache != nil {
		s.Flares = ev.res.Flares.Cache.Stats()
	}
	return s
}
