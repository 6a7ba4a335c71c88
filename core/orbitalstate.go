package core

// OrbitalState is the live kinematic state of a node: inertial position and
// velocity, geodetic coordinates, and the orbit/body reference frames. It is
// mutated in place once per tick (and transiently by the scheduler, which
// restores it).
type OrbitalState struct {
	Position Vector // inertial, metres
	Velocity Vector // inertial, metres per second
	Geodetic Geodetic

	// OrbitFrame has +z toward the Earth, +y along -(p x v) normalised and
	// +x completing the right-handed set.
	OrbitFrame ReferenceFrame
	// BodyFrame is the orbit frame rotated by the platform's fixed
	// (roll, pitch, yaw).
	BodyFrame ReferenceFrame
}

// NewOrbitalState assembles a state from raw kinematics plus the body
// attitude angles.
func NewOrbitalState(position, velocity Vector, geodetic Geodetic, rollRad, pitchRad, yawRad float64) OrbitalState {
	state := OrbitalState{
		Position: position,
		Velocity: velocity,
		Geodetic: geodetic,
	}
	state.OrbitFrame = state.orbitReferenceFrame()
	state.BodyFrame = NewNestedReferenceFrame(state.OrbitFrame, rollRad, pitchRad, yawRad)
	return state
}

// Update replaces the kinematics and re-derives both frames, keeping the
// body frame's fixed rotation relative to the orbit frame.
func (s *OrbitalState) Update(position, velocity Vector, geodetic Geodetic) {
	s.Position = position
	s.Velocity = velocity
	s.Geodetic = geodetic
	s.OrbitFrame = s.orbitReferenceFrame()
	s.BodyFrame.Update(s.OrbitFrame)
}

func (s *OrbitalState) orbitReferenceFrame() ReferenceFrame {
	yAxis := s.Position.Neg().Cross(s.Velocity).Unit()
	zAxis := s.Position.Neg().Unit()
	xAxis := yAxis.Cross(zAxis)
	return NewReferenceFrameFromAxes(xAxis, yAxis, zAxis)
}
