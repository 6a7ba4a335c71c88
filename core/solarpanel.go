package core

import "math"

// SolarIrradianceWPerM2 is the solar flux used for panel power.
const SolarIrradianceWPerM2 = 1332

// SolarPanel converts sunlight into electrical power. The effective area is
// recomputed each tick from eclipse visibility and the incidence angle of
// the panel normal; it is zero in eclipse or when the Sun is behind the
// panel.
type SolarPanel struct {
	efficiencyPercent float64
	surfaceAreaM2     float64
	sun               *Sun

	effectiveAreaM2 float64
	attitude        ReferenceFrame
}

// NewSolarPanel constructs a panel with a fixed mounting attitude relative
// to the body frame.
func NewSolarPanel(efficiencyPercent, surfaceAreaM2, rollRad, pitchRad, yawRad float64, sun *Sun) SolarPanel {
	return SolarPanel{
		efficiencyPercent: efficiencyPercent,
		surfaceAreaM2:     surfaceAreaM2,
		sun:               sun,
		attitude:          NewReferenceFrame(rollRad, pitchRad, yawRad),
	}
}

// EffectiveAreaM2 returns the illuminated area as of the last Update.
func (p *SolarPanel) EffectiveAreaM2() float64 { return p.effectiveAreaM2 }

// ReceivedPowerW returns the electrical power produced at the current
// effective area.
func (p *SolarPanel) ReceivedPowerW() float64 {
	return SolarIrradianceWPerM2 * p.effectiveAreaM2 * (p.efficiencyPercent / 100)
}

// Update recomputes the effective area from the node's frames, its inertial
// position, and the Sun's current position.
func (p *SolarPanel) Update(bodyFrame, orbitFrame ReferenceFrame, position Vector) {
	p.attitude.Update2(orbitFrame, bodyFrame)
	sunPosition := p.sun.Position()
	sunDirection := sunPosition.Sub(position)
	angleRad := p.attitude.ZAxis().AngleBetween(sunDirection)
	lineOfSight := Visible(position, sunPosition)
	if lineOfSight && angleRad < math.Pi/2 {
		p.effectiveAreaM2 = p.surfaceAreaM2 * math.Cos(angleRad)
	} else {
		p.effectiveAreaM2 = 0
	}
}
