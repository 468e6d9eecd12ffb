package variability

import (
	"fmt"
	"sort"
)

// StellarModels offers the periodic, microlensing and AM CVn models.
type StellarModels struct {
	Curves *CurveCache
	// Interp fits the periodic light curves; SplineInterp when nil.
	Interp InterpFactory
}

func (s StellarModels) Register(r *Registry) {
	factory := s.Interp
	if factory == nil {
		factory = SplineInterp
	}
	if s.Curves == nil {
		s.Curves = NewCurveCache("", true)
	}
	r.Register("applyRRly", &periodicModel{
		curves: s.Curves, filenameKey: "filename", t0Key: "tStartMjd", inDays: true, factory: factory,
	})
	r.Register("applyCepheid", &periodicModel{
		curves: s.Curves, filenameKey: "lcfile", t0Key: "t0", factory: factory,
	})
	r.Register("applyEb", &eclipsingModel{flux: &periodicModel{
		curves: s.Curves, filenameKey: "lcfile", t0Key: "t0", factory: factory,
	}})
	lens := microlensModel{}
	r.Register("applyMicrolens", lens)
	r.Register("applyMicrolensing", lens)
	r.Register("applyAmcvn", amcvnModel{})
	r.Register("applyBHMicrolens", &bhMicrolensModel{curves: s.Curves})
}

// FlaringModels offers the M/L/T dwarf flare model.
type FlaringModels struct {
	Options FlareOptions
}

func (f FlaringModels) Register(r *Registry) {
	r.Register("MLT", newFlareModel(f.Options))
}

// ExtragalacticModels offers the AGN damped random walk.
type ExtragalacticModels struct {
	Cache *AGNCache
}

func (x ExtragalacticModels) Register(r *Registry) {
	cache := x.Cache
	if cache == nil {
		cache = NewAGNCache(0, nil)
	}
	r.Register("applyAgn", &agnModel{cache: cache})
}

// Resources are the caches and configuration shared by the capability
// sets of every catalog kind.
type Resources struct {
	Curves *CurveCache
	// Interp fits the periodic light curves; SplineInterp when nil.
	Interp InterpFactory
	Flares FlareOptions
	AGN    *AGNCache
}

var catalogKinds = map[string]func(res *Resources) []Capability{
	"stars": func(res *Resources) []Capability {
		return []Capability{StellarModels{Curves: res.Curves, Interp: res.Interp}, FlaringModels{Options: res.Flares}}
	},
	"agn": func(res *Resources) []Capability {
		return []Capability{ExtragalacticModels{Cache: res.AGN}}
	},
	"galaxies": func(res *Resources) []Capability {
		return []Capability{ExtragalacticModels{Cache: res.AGN}}
	},
}

// CatalogKinds returns the catalog kinds ForCatalog accepts, sorted.
func CatalogKinds() []string {
	kinds := make([]string, 0, len(catalogKinds))
	for k := range catalogKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ForCatalog returns the capability sets mixed into a catalog of the
// given kind.
func (res *Resources) ForCatalog(kind string) ([]Capability, error) {
	build, ok := catalogKinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown catalog kind %q (want one of %v)", kind, CatalogKinds())
	}
	return build(res), nil
}
