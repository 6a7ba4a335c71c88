package core

import (
	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// SubsystemSensing is a node's sensing subsystem: one antenna pointing the
// sensor boresight, one sensor, and the raw-measurement buffer accumulated
// during the current integration.
type SubsystemSensing struct {
	antenna Antenna
	sensor  *Sensor

	antennaFrame  ReferenceFrame
	active        bool
	complete      bool
	expirationS   uint64
	elapsedS      uint64
	informerIndex uint16
	dataBuffer    []byte
	samples       []MeasurementSample
}

// NewSubsystemSensing assembles a sensing subsystem around shared antenna
// and sensor constants.
func NewSubsystemSensing(antenna Antenna, sensor *Sensor) SubsystemSensing {
	return SubsystemSensing{
		antenna: antenna,
		sensor:  sensor,
		antennaFrame: NewReferenceFrame(antenna.MountRollRad(),
			antenna.MountPitchRad(), antenna.MountYawRad()),
		informerIndex: NoNodeIndex,
	}
}

// instance returns a per-node copy with idle state and empty buffers.
func (s SubsystemSensing) instance() SubsystemSensing {
	s.active = false
	s.complete = false
	s.expirationS = 0
	s.elapsedS = 0
	s.informerIndex = NoNodeIndex
	s.dataBuffer = nil
	s.samples = nil
	return s
}

// Antenna returns the shared antenna constants.
func (s *SubsystemSensing) Antenna() Antenna { return s.antenna }

// Sensor returns the shared sensor constants.
func (s *SubsystemSensing) Sensor() *Sensor { return s.sensor }

// AntennaFrame returns the sensing antenna's current reference frame. Its
// z axis is the sensor boresight.
func (s *SubsystemSensing) AntennaFrame() ReferenceFrame { return s.antennaFrame }

// Active reports whether an integration is running.
func (s *SubsystemSensing) Active() bool { return s.active }

// Complete reports whether an integration has just finished.
func (s *SubsystemSensing) Complete() bool { return s.complete }

// SetComplete clears or sets the completion latch.
func (s *SubsystemSensing) SetComplete(complete bool) { s.complete = complete }

// DataBuffer returns the accumulated raw-measurement bytes.
func (s *SubsystemSensing) DataBuffer() []byte { return s.dataBuffer }

// SetDataBuffer replaces the raw-measurement buffer.
func (s *SubsystemSensing) SetDataBuffer(buffer []byte) { s.dataBuffer = buffer }

// EraseDataBuffer clears the raw-measurement buffer.
func (s *SubsystemSensing) EraseDataBuffer() { s.dataBuffer = nil }

// Measure starts one integration on behalf of informerIndex (NoNodeIndex
// for self-planned samples).
func (s *SubsystemSensing) Measure(informerIndex uint16) {
	s.active = true
	s.informerIndex = informerIndex
	s.elapsedS = 0
	s.expirationS = s.sensor.DurationS
}

// Update advances a running integration by one tick: it samples the field
// under the sensor boresight, appends one raw packet to the data buffer,
// and on expiry flushes the measurement series to the data log and latches
// completion. nodeIndex identifies the measuring node in the series.
func (s *SubsystemSensing) Update(clock timectrl.SimClock, position Vector, nodeIndex uint16, dataLog DataLog) bool {
	if !s.active {
		return false
	}
	s.sensor.Advance(clock)

	informer := s.informerIndex
	if informer == NoNodeIndex {
		informer = nodeIndex
	}

	now := clock.Now()
	year, month, day, hour, minute, second, microsecond := timectrl.Breakdown(now)
	place, hit := BoresightGeodetic(position, s.antennaFrame.ZAxis(), now)
	measurement := 0.0
	if hit {
		measurement = s.sensor.Measure(place.LatitudeRad, place.LongitudeRad)
	}

	packet := PacketRaw{
		ElapsedS:      clock.ElapsedS(),
		Year:          int32(year),
		Month:         int32(month),
		Day:           int32(day),
		Hour:          int32(hour),
		Minute:        int32(minute),
		Second:        int32(second),
		Microsecond:   int32(microsecond),
		LatitudeRad:   place.LatitudeRad,
		LongitudeRad:  place.LongitudeRad,
		AltitudeM:     place.AltitudeM,
		Measurement:   measurement,
		ResolutionM:   0,
		Name:          PadVariableName(s.sensor.Variable),
		InformerIndex: informer,
	}
	s.dataBuffer = append(s.dataBuffer, packet.Encode()...)
	s.samples = append(s.samples, MeasurementSample{
		NodeIndex:    nodeIndex,
		Variable:     s.sensor.Variable,
		ElapsedS:     clock.ElapsedS(),
		Year:         year,
		Month:        month,
		Day:          day,
		Hour:         hour,
		Minute:       minute,
		Second:       second,
		Microsecond:  microsecond,
		LatitudeRad:  place.LatitudeRad,
		LongitudeRad: place.LongitudeRad,
		AltitudeM:    place.AltitudeM,
		Measurement:  measurement,
		ResolutionM:  0,
	})

	if s.elapsedS < s.expirationS {
		s.elapsedS += clock.LastIncrementS()
	} else {
		dataLog.LogMeasurementSeries(s.samples)
		s.samples = nil
		s.active = false
		s.complete = true
		s.expirationS = 0
		s.informerIndex = NoNodeIndex
	}
	return s.active
}

// OrientAntenna re-derives the antenna frame through the orbit and body
// frames.
func (s *SubsystemSensing) OrientAntenna(orbitFrame, bodyFrame ReferenceFrame) {
	s.antennaFrame.Update2(orbitFrame, bodyFrame)
}
