package core

import (
	"math"
	"testing"
	"time"

	"github.com/code-lab-org/stars-collaborate/timectrl"
)

func TestSunDistanceNearOneAU(t *testing.T) {
	for _, month := range []time.Month{time.January, time.April, time.July, time.October} {
		clock := timectrl.NewSimulationClockAt(time.Date(2021, month, 15, 0, 0, 0, 0, time.UTC))
		sun := NewSun(clock)
		distance := sun.Position().Norm()
		if math.Abs(distance-AstronomicalUnitM)/AstronomicalUnitM > 0.03 {
			t.Errorf("%v: |sun| = %v, want within 3%% of 1 AU", month, distance)
		}
	}
}

func TestSunDeclinationBySeason(t *testing.T) {
	june := timectrl.NewSimulationClockAt(time.Date(2021, time.June, 21, 12, 0, 0, 0, time.UTC))
	if z := NewSun(june).Position().Z; z <= 0 {
		t.Errorf("June solstice sun z = %v, want positive declination", z)
	}
	december := timectrl.NewSimulationClockAt(time.Date(2021, time.December, 21, 12, 0, 0, 0, time.UTC))
	if z := NewSun(december).Position().Z; z >= 0 {
		t.Errorf("December solstice sun z = %v, want negative declination", z)
	}
}

func TestSunUpdateAdvancesWithOffset(t *testing.T) {
	clock := timectrl.NewSimulationClock(2021, time.March, 1)
	sun := NewSun(clock)
	before := sun.Position()

	// A quarter year ahead the sun has swept about ninety degrees.
	sun.Update(86400 * 91)
	after := sun.Position()
	angle := before.AngleBetween(after)
	if angle < 80*math.Pi/180 || angle > 100*math.Pi/180 {
		t.Errorf("sun swept %v rad in 91 days", angle)
	}

	// Update(0) restores the current-time position.
	sun.Update(0)
	if got := sun.Position(); !vectorsClose(got.Div(AstronomicalUnitM), before.Div(AstronomicalUnitM), 1e-9) {
		t.Errorf("Update(0) did not restore the position")
	}
}

func TestEclipseGeometry(t *testing.T) {
	clock := timectrl.NewSimulationClock(2021, time.March, 1)
	sun := NewSun(clock)
	sunward := sun.Position().Unit().Scale(EarthSemiMajorAxisM + 600e3)
	if !Visible(sunward, sun.Position()) {
		t.Error("satellite on the day side must see the sun")
	}
	shadowed := sunward.Neg()
	if Visible(shadowed, sun.Position()) {
		t.Error("satellite in the umbra must not see the sun")
	}
}
