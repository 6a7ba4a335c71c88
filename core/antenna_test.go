package core

import (
	"math"
	"testing"
)

func TestGainWithinBounds(t *testing.T) {
	antennas := map[string]Antenna{
		"isotropic": NewAntennaIsotropic(30),
		"dipole":    NewAntennaDipole(30, 0, 0, 0),
		"helical":   NewAntennaHelical(30, 0, 0, 0),
		"patch":     NewAntennaPatch(30, 0, 0, 0),
	}
	for name, antenna := range antennas {
		t.Run(name, func(t *testing.T) {
			for theta := 0.0; theta <= math.Pi; theta += math.Pi / 36 {
				for phi := 0.0; phi < 2*math.Pi; phi += math.Pi / 6 {
					gain := antenna.GainDb(theta, phi)
					if gain < 0 || gain > antenna.MaxGainDb() {
						t.Fatalf("gain(%v, %v) = %v outside [0, %v]",
							theta, phi, gain, antenna.MaxGainDb())
					}
				}
			}
		})
	}
}

func TestDipolePattern(t *testing.T) {
	dipole := NewAntennaDipole(30, 0, 0, 0)
	for _, theta := range []float64{0, math.Pi / 6, math.Pi / 4, math.Pi / 2, 3 * math.Pi / 4} {
		want := 30 * math.Pow(math.Sin(theta), 2)
		if got := dipole.GainDb(theta, 1.0); !almostEqual(got, want, 1e-12) {
			t.Errorf("gain(%v) = %v, want %v", theta, got, want)
		}
	}
}

func TestHelicalPattern(t *testing.T) {
	helical := NewAntennaHelical(30, 0, 0, 0)
	if got := helical.GainDb(0, 0); !almostEqual(got, 30, 1e-12) {
		t.Errorf("boresight gain = %v, want 30", got)
	}
	for _, theta := range []float64{math.Pi / 2, 2, math.Pi} {
		if got := helical.GainDb(theta, 0); got != 0 {
			t.Errorf("gain(%v) = %v, want 0 behind the beam", theta, got)
		}
	}
	// cos^50 collapses fast off boresight.
	if got := helical.GainDb(0.5, 0); got > 1 {
		t.Errorf("gain(0.5) = %v, want under 1", got)
	}
}

func TestPatchPattern(t *testing.T) {
	patch := NewAntennaPatch(30, 0, 0, 0)
	if got := patch.GainDb(math.Pi/4, 0); !almostEqual(got, 15, 1e-9) {
		t.Errorf("gain(pi/4) = %v, want 15", got)
	}
	if got := patch.GainDb(math.Pi/2, 0); got != 0 {
		t.Errorf("gain behind ground plane = %v, want 0", got)
	}
}

func TestAntennaGainThroughFrames(t *testing.T) {
	// A node under the south pole moving along -y has its orbit +z toward
	// the Earth along inertial +z. A helical antenna with no mounting
	// rotation therefore points its beam at the Earth: a line of sight
	// straight down sees the boresight maximum, straight up sees nothing.
	position := NewVector(0, 0, -7000e3)
	velocity := NewVector(0, -7500, 0)
	state := NewOrbitalState(position, velocity, Geodetic{}, 0, 0, 0)
	helical := NewAntennaHelical(30, 0, 0, 0)
	frame := NewReferenceFrame(0, 0, 0)
	frame.Update2(state.OrbitFrame, state.BodyFrame)

	down := NewVector(0, 0, 1)
	if got := AntennaGain(helical, state, frame, down); !almostEqual(got, 30, 1e-6) {
		t.Errorf("nadir gain = %v, want 30", got)
	}
	up := NewVector(0, 0, -1)
	if got := AntennaGain(helical, state, frame, up); got != 0 {
		t.Errorf("zenith gain = %v, want 0", got)
	}
}
