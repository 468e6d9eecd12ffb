package variability

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/star/catsim/internal/photometry"
)

// agnStepsPerTau is the number of random walk steps per damping timescale.
const agnStepsPerTau = 100

var agnSFKeys = [photometry.NumBands]string{"agn_sfu", "agn_sfg", "agn_sfr", "agn_sfi", "agn_sfz", "agn_sfy"}

// agnModel is the damped random walk AGN model. Each process is resumed
// from its cached state when evaluated at a later epoch.
type agnModel struct {
	cache *AGNCache
}

type agnProcess struct {
	seed int64
	tau  float64
	t0   float64
	sf   [photometry.NumBands]float64
}

// id identifies a process by its physical parameters, so identical
// parameters address the same cached trajectory.
func (p *agnProcess) id() string {
	return fmt.Sprintf("%d_%.12f_%.12f_%.12f_%.12f_%.12f_%.12f_%.12f_%.12f",
		p.seed, p.sf[0], p.sf[1], p.sf[2], p.sf[3], p.sf[4], p.sf[5], p.tau, p.t0)
}

func agnProcessOf(params ParamSet, ix int) (*agnProcess, error) {
	p := &agnProcess{}
	var err error
	if p.seed, err = params.Int("seed", ix); err != nil {
		return nil, err
	}
	if p.tau, err = params.Float("agn_tau", ix); err != nil {
		return nil, err
	}
	if p.t0, err = params.Float("t0_mjd", ix); err != nil {
		return nil, err
	}
	for b, key := range agnSFKeys {
		if p.sf[b], err = params.Float(key, ix); err != nil {
			return nil, err
		}
	}
	if !(p.tau > 0) {
		return nil, fmt.Errorf("%w: agn_tau of object %d must be positive, got %g", ErrParameter, ix, p.tau)
	}
	return p, nil
}

func (m *agnModel) Evaluate(req *Request) (*Tensor, error) {
	out := NewTensor(req.N, req.Epochs)
	if req.Empty() {
		return out, nil
	}

	procs := make([]*agnProcess, len(req.Valid))
	for j, ix := range req.Valid {
		p, err := agnProcessOf(req.Params, ix)
		if err != nil {
			return nil, err
		}
		procs[j] = p
	}

	// Later epochs resume from earlier ones, so a series is walked in
	// ascending order.
	order := make([]int, out.Times())
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return req.Epochs.MJD(order[a]) < req.Epochs.MJD(order[b])
	})

	for _, k := range order {
		t := req.Epochs.MJD(k)
		for j, ix := range req.Valid {
			dm, err := m.step(procs[j], t)
			if err != nil {
				return nil, fmt.Errorf("object %d: %w", ix, err)
			}
			for b := 0; b < photometry.NumBands; b++ {
				out.Set(b, ix, k, dm[b])
			}
		}
	}
	return out, nil
}

// step advances process p to epoch t and returns the displacement in each
// band.
func (m *agnModel) step(p *agnProcess, t float64) ([photometry.NumBands]float64, error) {
	var dm [photometry.NumBands]float64
	id := p.id()

	cached, ok := m.cache.lookup(id)
	if ok && t < cached.LastMJD {
		return dm, fmt.Errorf("%w: epoch %.6f, last evaluated %.6f", ErrEpochOrder, t, cached.LastMJD)
	}

	var (
		start float64
		pcg   rand.PCG
		dx0   [photometry.NumBands]float64
	)
	resumed := ok && cached.StepMJD < t
	m.cache.countLookup(resumed)
	if resumed {
		start = cached.StepMJD
		pcg = cached.RNG
		dx0 = cached.DX
	} else {
		start = p.t0
		pcg = *rand.NewPCG(uint64(p.seed), 0)
	}

	end := t - start
	if end < 0 {
		return dm, fmt.Errorf("%w: epoch %.6f precedes t0 %.6f", ErrEpochBeforeStart, t, start)
	}

	dt := p.tau / agnStepsPerTau
	nbins := int(math.Ceil(end / dt))
	x1 := float64(nbins-1) * dt
	x2 := float64(nbins) * dt
	dtNorm := dt / p.tau

	rng := rand.New(&pcg)
	scale := math.Sqrt(dtNorm)
	es := make([]float64, nbins)
	for i := range es {
		es[i] = rng.NormFloat64() * scale
	}

	var dx [photometry.NumBands]float64
	for b := 0; b < photometry.NumBands; b++ {
		if nbins == 0 {
			dx[b] = dx0[b]
			dm[b] = dx0[b]
			continue
		}
		dx2 := dx0[b]
		var dx1 float64
		for i := 0; i < nbins; i++ {
			dx1 = dx2
			dx2 = -dx1*dtNorm + p.sf[b]*es[i] + dx1
		}
		dx[b] = dx2
		dm[b] = (end*(dx1-dx2) + dx2*x1 - dx1*x2) / (x1 - x2)
	}

	m.cache.store(id, agnState{
		LastMJD: t,
		StepMJD: start + x2,
		RNG:     pcg,
		DX:      dx,
	})
	return dm, nil
}
