package core

import (
	"math"
	"time"

	"github.com/code-lab-org/stars-collaborate/internal/logging"
	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// stubPlatform produces a deterministic state from the query offset,
// sidestepping SGP4 so geometry tests can place nodes exactly.
type stubPlatform struct {
	name string
	at   func(offsetS uint64) (position, velocity Vector, geodetic Geodetic)
}

func (p *stubPlatform) Name() string { return p.name }

func (p *stubPlatform) Predict(clock timectrl.SimClock, offsetS uint64) OrbitalState {
	position, velocity, geodetic := p.at(offsetS)
	return NewOrbitalState(position, velocity, geodetic, 0, 0, 0)
}

func (p *stubPlatform) PredictInto(clock timectrl.SimClock, offsetS uint64, state *OrbitalState) {
	position, velocity, geodetic := p.at(offsetS)
	state.Update(position, velocity, geodetic)
}

// fixedPlatform pins a node at one inertial position with a tangential
// velocity so the orbit frame is well defined.
func fixedPlatform(name string, position, velocity Vector) *stubPlatform {
	return &stubPlatform{
		name: name,
		at: func(uint64) (Vector, Vector, Geodetic) {
			return position, velocity, Geodetic{}
		},
	}
}

const testAltitudeM = 600e3

// ringPlatform pins a node on an equatorial ring at the test altitude, at
// the given angle from +x. Velocity is tangential in the ring plane.
func ringPlatform(name string, angleRad float64) *stubPlatform {
	radius := EarthSemiMajorAxisM + testAltitudeM
	position := NewVector(radius*math.Cos(angleRad), radius*math.Sin(angleRad), 0)
	velocity := NewVector(-7500*math.Sin(angleRad), 7500*math.Cos(angleRad), 0)
	return fixedPlatform(name, position, velocity)
}

// newTestClock returns a clock at a fixed epoch.
func newTestClock() *timectrl.SimulationClock {
	return timectrl.NewSimulationClockAt(time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC))
}

// newTestNode builds a node with isotropic antennas, the deployable UHF
// modem, a tiny battery, and a template processor.
func newTestNode(index uint16, platform Platform, clock timectrl.SimClock) *Node {
	antenna := NewAntennaIsotropic(30)
	modem := NewModemUhfDeploy()
	comm := NewSubsystemComm(antenna, modem)
	field := NewSyntheticEarthData("TAUTOT", 1.5, 1.5, 0, 1)
	sensor := NewSensorCloudRadar(field, 300)
	sensing := NewSubsystemSensing(antenna, sensor)
	power := NewSubsystemPower(NewBattery(0.9333, 6, 12.9, 85), nil, 6.2425)
	return NewNode("test", index, 0, platform, comm, sensing, power,
		clock, DataProcessorTemplate{}, logging.Noop(), NopDataLog{})
}

func noopEventLog() logging.Logger { return logging.Noop() }

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
