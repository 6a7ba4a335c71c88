package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Geodetic is a ground-referenced coordinate: latitude and longitude in
// radians, altitude in metres above the ellipsoid.
type Geodetic struct {
	LatitudeRad  float64
	LongitudeRad float64
	AltitudeM    float64
}

// GeodeticAt converts an inertial position (metres) to geodetic
// coordinates, accounting for Earth rotation at the given absolute time.
func GeodeticAt(position Vector, at time.Time) Geodetic {
	gmst := gstime(at)
	altKm, _, latLon := satellite.ECIToLLA(satellite.Vector3{
		X: position.X / 1000.0,
		Y: position.Y / 1000.0,
		Z: position.Z / 1000.0,
	}, gmst)
	return Geodetic{
		LatitudeRad:  latLon.Latitude,
		LongitudeRad: normalizeLongitude(latLon.Longitude),
		AltitudeM:    altKm * 1000.0,
	}
}

// BoresightGeodetic returns the geodetic coordinates of the point where a
// ray from position along direction meets the ellipsoid at the given
// absolute time. The second result is false when the ray misses the Earth.
func BoresightGeodetic(position, direction Vector, at time.Time) (Geodetic, bool) {
	intersection, ok := SurfaceIntersection(position, direction)
	if !ok {
		return Geodetic{}, false
	}
	return GeodeticAt(intersection, at), true
}

// ToVector converts geodetic coordinates back to an inertial position
// (metres) at the given absolute time, on the WGS84 ellipsoid and with the
// same sidereal angle as GeodeticAt.
func (g Geodetic) ToVector(at time.Time) Vector {
	e2 := EarthFlattening * (2 - EarthFlattening)
	sinLat, cosLat := math.Sincos(g.LatitudeRad)
	n := EarthSemiMajorAxisM / math.Sqrt(1-e2*sinLat*sinLat)
	theta := g.LongitudeRad + gstime(at)
	r := (n + g.AltitudeM) * cosLat
	return NewVector(r*math.Cos(theta), r*math.Sin(theta), (n*(1-e2)+g.AltitudeM)*sinLat)
}

// Haversine returns the great-circle distance in metres between two
// geodetic points on a sphere of the Earth's equatorial radius.
func (g Geodetic) Haversine(other Geodetic) float64 {
	u := math.Sin((g.LatitudeRad - other.LatitudeRad) / 2)
	v := math.Sin((g.LongitudeRad - other.LongitudeRad) / 2)
	w := math.Asin(math.Sqrt(u*u + math.Cos(other.LatitudeRad)*math.Cos(g.LatitudeRad)*v*v))
	return 2.0 * EarthSemiMajorAxisM * w
}

func normalizeLongitude(lonRad float64) float64 {
	lon := math.Mod(lonRad, 2*math.Pi)
	if lon > math.Pi {
		lon -= 2 * math.Pi
	} else if lon < -math.Pi {
		lon += 2 * math.Pi
	}
	return lon
}

func gstime(at time.Time) float64 {
	at = at.UTC()
	return satellite.GSTimeFromDate(at.Year(), int(at.Month()), at.Day(),
		at.Hour(), at.Minute(), at.Second())
}

func julianDay(at time.Time) float64 {
	at = at.UTC()
	return satellite.JDay(at.Year(), int(at.Month()), at.Day(),
		at.Hour(), at.Minute(), at.Second())
}
