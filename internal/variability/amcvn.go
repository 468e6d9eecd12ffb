package variability

import (
	"math"

	"github.com/star/catsim/internal/photometry"
)

// amcvnBurstYears is how far past t0 the burst train extends.
const amcvnBurstYears = 10.0

// amcvnModel is a sinusoidal baseline plus, for bursting objects, a train
// of exponentially decaying outbursts with a blue colour excess.
type amcvnModel struct{}

// burstExcess is the colour excess multiplier per band during outburst.
var burstExcess = [photometry.NumBands]float64{2, 1, 0.5, 0, 0, 0}

func (amcvnModel) Evaluate(req *Request) (*Tensor, error) {
	out := NewTensor(req.N, req.Epochs)
	if req.Empty() {
		return out, nil
	}

	cols := map[string][]float64{}
	for _, key := range []string{"amplitude", "t0", "period", "burst_freq", "burst_scale", "amp_burst", "color_excess_during_burst"} {
		v, err := req.Params.Floats(key, req.Valid)
		if err != nil {
			return nil, err
		}
		cols[key] = v
	}

	for j, ix := range req.Valid {
		t0 := cols["t0"][j]
		amplitude := cols["amplitude"][j]
		period := cols["period"][j]
		bursting := req.Params.Truthy("does_burst", ix)

		var pulses []float64
		if bursting {
			pulses = burstTimes(t0, cols["burst_freq"][j])
		}

		for k := 0; k < out.Times(); k++ {
			t := req.Epochs.MJD(k)
			base := amplitude * math.Cos((t-t0)/period)
			if !bursting {
				for b := 0; b < photometry.NumBands; b++ {
					out.Set(b, ix, k, base)
				}
				continue
			}

			adds := 0.0
			scale := cols["burst_scale"][j]
			for _, o := range pulses {
				tmp := math.Exp(-(t-o)/scale) / math.Exp(-1)
				if tmp < 1 {
					adds -= cols["amp_burst"][j] * tmp
				}
			}
			excess := cols["color_excess_during_burst"][j]
			for b := 0; b < photometry.NumBands; b++ {
				out.Set(b, ix, k, base+adds+burstExcess[b]*excess)
			}
		}
	}
	return out, nil
}

// burstTimes returns ceil(span/freq) outburst epochs evenly spaced from
// t0+freq to t0+span inclusive.
func burstTimes(t0, freq float64) []float64 {
	span := amcvnBurstYears * 365.25
	if !(freq > 0) || math.IsInf(freq, 0) {
		return nil
	}
	n := int(math.Ceil(span / freq))
	start, stop := t0+freq, t0+span
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
