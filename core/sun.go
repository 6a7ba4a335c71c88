package core

import (
	"math"
	"time"

	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// AstronomicalUnitM is the mean Earth-Sun distance in metres.
const AstronomicalUnitM = 1.495978707e11

// Sun derives an inertial-frame solar position from the simulation clock.
// It is mutated only by the outermost tick loop (and transiently by the
// scheduler's charge-prediction diagnostic, which restores it).
type Sun struct {
	clock    timectrl.SimClock
	position Vector
}

// NewSun constructs a Sun bound to the simulation clock. The position is
// valid after the first Update.
func NewSun(clock timectrl.SimClock) *Sun {
	sun := &Sun{clock: clock}
	sun.Update(0)
	return sun
}

// Position returns the inertial solar position in metres as of the last
// Update.
func (s *Sun) Position() Vector { return s.position }

// Update recomputes the solar position for the clock time offsetS seconds
// in the future.
func (s *Sun) Update(offsetS uint64) {
	s.position = solarPosition(s.clock.At(offsetS))
}

// solarPosition evaluates a low-precision solar ephemeris (Astronomical
// Almanac expansion, good to roughly a hundredth of a degree) and returns
// the geocentric inertial position in metres.
func solarPosition(at time.Time) Vector {
	const degToRad = math.Pi / 180.0

	n := julianDay(at) - 2451545.0
	meanLongitudeDeg := math.Mod(280.460+0.9856474*n, 360.0)
	if meanLongitudeDeg < 0 {
		meanLongitudeDeg += 360.0
	}
	meanAnomaly := (357.528 + 0.9856003*n) * degToRad
	eclipticLongitude := (meanLongitudeDeg +
		1.915*math.Sin(meanAnomaly) +
		0.020*math.Sin(2*meanAnomaly)) * degToRad
	obliquity := (23.439 - 0.0000004*n) * degToRad
	distanceAU := 1.00014 - 0.01671*math.Cos(meanAnomaly) - 0.00014*math.Cos(2*meanAnomaly)

	r := distanceAU * AstronomicalUnitM
	return NewVector(
		r*math.Cos(eclipticLongitude),
		r*math.Cos(obliquity)*math.Sin(eclipticLongitude),
		r*math.Sin(obliquity)*math.Sin(eclipticLongitude),
	)
}
