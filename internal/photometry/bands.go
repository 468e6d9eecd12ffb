// Package photometry holds the survey filter set and the small amount of
// photometric arithmetic the variability models need: AB flux/magnitude
// conversion, bandpass throughput curves and the dust lookup used to redden
// flare light curves.
package photometry

import "math"

// NumBands is the number of survey filters.
const NumBands = 6

// Bands lists the survey filters in the order used by every offset tensor.
var Bands = [NumBands]string{"u", "g", "r", "i", "z", "y"}

// BandIndex returns the position of a filter name in Bands.
func BandIndex(name string) (int, bool) {
	for i, b := range Bands {
		if b == name {
			return i, true
		}
	}
	return -1, false
}

// zeroPoint is the AB zero point for fluxes in Jansky.
const zeroPoint = -8.9

// FluxFromMag converts an AB magnitude to a flux density in Jansky.
func FluxFromMag(mag float64) float64 {
	return math.Pow(10, -0.4*(mag+zeroPoint))
}

// MagFromFlux converts a flux density in Jansky to an AB magnitude.
func MagFromFlux(flux float64) float64 {
	return -2.5*math.Log10(flux) - zeroPoint
}

// PhotParams carries the telescope properties needed to turn an absolute
// flare luminosity into an observed flux.
type PhotParams struct {
	EffArea float64 // effective collecting area of the mirror in cm^2
}

// DefaultPhotParams returns the LSST primary mirror with a 6.423 m
// effective diameter.
func DefaultPhotParams() PhotParams {
	radius := 6.423 / 2.0 * 100.0
	return PhotParams{EffArea: math.Pi * radius * radius}
}
