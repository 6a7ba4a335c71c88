package core

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// Platform produces the kinematic state of a node as a pure function of
// absolute time. Predict never mutates the platform; PredictInto overwrites
// an existing state in place to avoid re-allocating frames every tick.
type Platform interface {
	Name() string
	Predict(clock timectrl.SimClock, offsetS uint64) OrbitalState
	PredictInto(clock timectrl.SimClock, offsetS uint64, state *OrbitalState)
}

// TwoLineElementSet is a named three-line TLE record.
type TwoLineElementSet struct {
	Name  string
	Line1 string
	Line2 string
}

// PlatformOrbit propagates a two-line element set with SGP4. Deterministic
// given its TLE; safe to share between nodes.
type PlatformOrbit struct {
	tle TwoLineElementSet
	sat satellite.Satellite
}

// NewPlatformOrbit parses and validates a TLE record. Malformed element
// sets are configuration errors, fatal at startup.
func NewPlatformOrbit(tle TwoLineElementSet) (*PlatformOrbit, error) {
	if err := validateTLELines(tle.Line1, tle.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE %q: %w", tle.Name, err)
	}
	sat := satellite.TLEToSat(tle.Line1, tle.Line2, satellite.GravityWGS72)
	return &PlatformOrbit{tle: tle, sat: sat}, nil
}

// validateTLELines performs format validation before handing lines to the
// SGP4 library, which terminates the process on parse errors.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimRight(line1, "\r\n")
	line2 = strings.TrimRight(line2, "\r\n")
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got %q", line2[0])
	}
	return nil
}

// Name returns the TLE title line.
func (p *PlatformOrbit) Name() string { return p.tle.Name }

// TLE returns the element set this platform was built from.
func (p *PlatformOrbit) TLE() TwoLineElementSet { return p.tle }

// Predict implements Platform.
func (p *PlatformOrbit) Predict(clock timectrl.SimClock, offsetS uint64) OrbitalState {
	position, velocity, geodetic := p.kinematics(clock, offsetS)
	return NewOrbitalState(position, velocity, geodetic, 0, 0, 0)
}

// PredictInto implements Platform.
func (p *PlatformOrbit) PredictInto(clock timectrl.SimClock, offsetS uint64, state *OrbitalState) {
	position, velocity, geodetic := p.kinematics(clock, offsetS)
	state.Update(position, velocity, geodetic)
}

func (p *PlatformOrbit) kinematics(clock timectrl.SimClock, offsetS uint64) (Vector, Vector, Geodetic) {
	at := clock.At(offsetS)
	posKm, velKm := satellite.Propagate(p.sat, at.Year(), int(at.Month()), at.Day(),
		at.Hour(), at.Minute(), at.Second())
	position := NewVector(posKm.X*1000.0, posKm.Y*1000.0, posKm.Z*1000.0)
	velocity := NewVector(velKm.X*1000.0, velKm.Y*1000.0, velKm.Z*1000.0)
	return position, velocity, GeodeticAt(position, at)
}

// Duplicate generates a constellation pattern from this platform's TLE by
// rewriting the right ascension of the ascending node (line 2, columns
// 17-24) and mean anomaly (columns 43-50) as fixed-width decimals with four
// fractional digits.
func (p *PlatformOrbit) Duplicate(orbitPlanes, groupsPerPlane, satsInTrain, satsInTandem, trainAngleDeg, tandemAngleDeg uint16) ([]*PlatformOrbit, error) {
	epochRAAN, err := strconv.ParseFloat(strings.TrimSpace(p.tle.Line2[17:25]), 64)
	if err != nil {
		return nil, fmt.Errorf("parse right ascension from %q: %w", p.tle.Name, err)
	}
	epochMeanAnomaly, err := strconv.ParseFloat(strings.TrimSpace(p.tle.Line2[43:51]), 64)
	if err != nil {
		return nil, fmt.Errorf("parse mean anomaly from %q: %w", p.tle.Name, err)
	}

	total := float64(orbitPlanes) * float64(groupsPerPlane) * float64(satsInTrain) * float64(satsInTandem)
	var pattern []*PlatformOrbit
	for plane := uint16(0); plane < orbitPlanes; plane++ {
		for group := uint16(0); group < groupsPerPlane; group++ {
			for train := uint16(0); train < satsInTrain; train++ {
				for tandem := uint16(0); tandem < satsInTandem; tandem++ {
					raan := epochRAAN
					raan += float64(tandem) * float64(tandemAngleDeg)
					raan += 360.0 * float64(plane) / float64(orbitPlanes)
					raan = math.Mod(raan, 360.0)
					meanAnomaly := epochMeanAnomaly
					meanAnomaly += float64(train) * float64(trainAngleDeg)
					meanAnomaly += 360.0 * float64(group) / float64(groupsPerPlane)
					meanAnomaly += 360.0 * float64(plane) / total
					meanAnomaly = math.Mod(meanAnomaly, 360.0)

					line2 := p.tle.Line2[:17] + fmt.Sprintf("%8.4f", raan) +
						p.tle.Line2[25:43] + fmt.Sprintf("%8.4f", meanAnomaly) +
						p.tle.Line2[51:]
					orbit, err := NewPlatformOrbit(TwoLineElementSet{
						Name:  p.tle.Name,
						Line1: p.tle.Line1,
						Line2: line2,
					})
					if err != nil {
						return nil, err
					}
					pattern = append(pattern, orbit)
				}
			}
		}
	}
	return pattern, nil
}

// LoadPlatformOrbits reads a file of three-line TLE records (name, line 1,
// line 2); blank lines are skipped. A line count that is not a multiple of
// three is a configuration error.
func LoadPlatformOrbits(path string) ([]*PlatformOrbit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read TLE file: %w", err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines)%3 != 0 {
		return nil, fmt.Errorf("TLE file %q: %d non-empty lines, expected a multiple of 3", path, len(lines))
	}
	var platforms []*PlatformOrbit
	for i := 0; i < len(lines); i += 3 {
		platform, err := NewPlatformOrbit(TwoLineElementSet{
			Name:  strings.TrimSpace(lines[i]),
			Line1: lines[i+1],
			Line2: lines[i+2],
		})
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

// PlatformEarth is a fixed geodetic point (a ground station) rotating with
// the Earth.
type PlatformEarth struct {
	name     string
	geodetic Geodetic
}

// NewPlatformEarth constructs a ground platform at the given geodetic
// coordinates.
func NewPlatformEarth(name string, latitudeRad, longitudeRad, altitudeM float64) *PlatformEarth {
	return &PlatformEarth{
		name: name,
		geodetic: Geodetic{
			LatitudeRad:  latitudeRad,
			LongitudeRad: longitudeRad,
			AltitudeM:    altitudeM,
		},
	}
}

// Name returns the station name.
func (p *PlatformEarth) Name() string { return p.name }

// Predict implements Platform.
func (p *PlatformEarth) Predict(clock timectrl.SimClock, offsetS uint64) OrbitalState {
	position, velocity := p.kinematics(clock, offsetS)
	return NewOrbitalState(position, velocity, p.geodetic, 0, 0, 0)
}

// PredictInto implements Platform.
func (p *PlatformEarth) PredictInto(clock timectrl.SimClock, offsetS uint64, state *OrbitalState) {
	position, velocity := p.kinematics(clock, offsetS)
	state.Update(position, velocity, p.geodetic)
}

func (p *PlatformEarth) kinematics(clock timectrl.SimClock, offsetS uint64) (Vector, Vector) {
	position := p.geodetic.ToVector(clock.At(offsetS))
	// Velocity of a ground point is the Earth's rotation, omega x r.
	omega := NewVector(0, 0, EarthAngularFrequencyRadPerS)
	return position, omega.Cross(position)
}
