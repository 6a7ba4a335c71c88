package core

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// EarthData is a scalar field over the Earth's surface sampled by sensors.
// Advance moves the field to the clock's current time; Measure samples it
// at a geodetic point.
type EarthData interface {
	Advance(clock timectrl.SimClock)
	Measure(latitudeRad, longitudeRad float64) float64
}

// SyntheticEarthData is a deterministic stand-in for the archived
// environmental cubes: a smooth banded field drifting eastward with time,
// plus seeded Gaussian speckle. The same seed always produces the same
// field history, which keeps simulations reproducible.
type SyntheticEarthData struct {
	variable  string
	base      float64
	amplitude float64
	noise     distuv.Normal
	phaseRad  float64
}

// NewSyntheticEarthData constructs a field for one variable. Base is the
// field mean, amplitude the swing of the banded pattern, noiseSigma the
// speckle standard deviation.
func NewSyntheticEarthData(variable string, base, amplitude, noiseSigma float64, seed uint64) *SyntheticEarthData {
	return &SyntheticEarthData{
		variable:  variable,
		base:      base,
		amplitude: amplitude,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: noiseSigma,
			Src:   rand.NewPCG(seed, 0),
		},
	}
}

// Variable returns the field's variable name.
func (d *SyntheticEarthData) Variable() string { return d.variable }

// Advance implements EarthData. The banded pattern drifts one full cycle
// per simulated day.
func (d *SyntheticEarthData) Advance(clock timectrl.SimClock) {
	const secondsPerDay = 86400.0
	d.phaseRad = 2 * math.Pi * math.Mod(float64(clock.ElapsedS()), secondsPerDay) / secondsPerDay
}

// Measure implements EarthData. Values are clamped at zero; the archived
// variables this stands in for are non-negative.
func (d *SyntheticEarthData) Measure(latitudeRad, longitudeRad float64) float64 {
	pattern := math.Sin(3*latitudeRad) * math.Cos(2*longitudeRad-d.phaseRad)
	value := d.base + d.amplitude*pattern + d.noise.Rand()
	if value < 0 {
		return 0
	}
	return value
}
