package core

import "github.com/code-lab-org/stars-collaborate/timectrl"

// Sensor samples one scalar Earth-surface variable. Power draw applies
// while an integration is running; TargetValue is the threshold the data
// processors compare against.
type Sensor struct {
	Variable       string
	PowerConsumedW float64
	DurationS      uint64
	TargetValue    float64

	data EarthData
}

// NewSensor constructs a sensor over an Earth-data field.
func NewSensor(data EarthData, variable string, powerConsumedW float64, durationS uint64, targetValue float64) *Sensor {
	return &Sensor{
		Variable:       variable,
		PowerConsumedW: powerConsumedW,
		DurationS:      durationS,
		TargetValue:    targetValue,
		data:           data,
	}
}

// NewSensorCloudRadar returns the cloud optical-thickness radar preset.
func NewSensorCloudRadar(data EarthData, durationS uint64) *Sensor {
	return NewSensor(data, "TAUTOT", 31, durationS, 200)
}

// NewSensorRainRadar returns the precipitation radar preset.
func NewSensorRainRadar(data EarthData, durationS uint64) *Sensor {
	return NewSensor(data, "PRECTOT", 31, durationS, 0.0001)
}

// Advance moves the underlying field to the clock's current time.
func (s *Sensor) Advance(clock timectrl.SimClock) {
	s.data.Advance(clock)
}

// Measure samples the field at a geodetic point.
func (s *Sensor) Measure(latitudeRad, longitudeRad float64) float64 {
	return s.data.Measure(latitudeRad, longitudeRad)
}
