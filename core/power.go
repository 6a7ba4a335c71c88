package core

import "github.com/code-lab-org/stars-collaborate/timectrl"

const secondsPerHour = 3600.0

// SubsystemPower is a node's battery plus solar panels. Charging reflects
// whether any panel produced power this tick, independent of whether the
// charge flag allowed that power into the battery.
type SubsystemPower struct {
	battery     Battery
	solarPanels []SolarPanel
	idlePowerW  float64
	charging    bool
}

// NewSubsystemPower assembles the power subsystem. idlePowerW drains every
// tick regardless of activity.
func NewSubsystemPower(battery Battery, solarPanels []SolarPanel, idlePowerW float64) SubsystemPower {
	return SubsystemPower{
		battery:     battery,
		solarPanels: solarPanels,
		idlePowerW:  idlePowerW,
	}
}

// instance returns a per-node copy; the battery and panel states stop
// being shared with the template.
func (p SubsystemPower) instance() SubsystemPower {
	p.solarPanels = append([]SolarPanel(nil), p.solarPanels...)
	return p
}

// Battery exposes the node's own battery.
func (p *SubsystemPower) Battery() *Battery { return &p.battery }

// SolarPanels exposes the panel slice for logging.
func (p *SubsystemPower) SolarPanels() []SolarPanel { return p.solarPanels }

// Charging reports whether any panel produced positive power during the
// last Update.
func (p *SubsystemPower) Charging() bool { return p.charging }

// Update drains idle plus active power for the elapsed tick, refreshes each
// panel's effective area, and, when charge is set, introduces the harvested
// energy scaled by the battery's charge efficiency.
func (p *SubsystemPower) Update(charge bool, clock timectrl.SimClock, bodyFrame, orbitFrame ReferenceFrame, powerDrainW float64, position Vector) {
	p.battery.IntroduceEnergy(-1.0 * (p.idlePowerW + powerDrainW) *
		float64(clock.LastIncrementS()) / secondsPerHour)

	accumulatedWHr := 0.0
	charging := false
	for i := range p.solarPanels {
		panel := &p.solarPanels[i]
		panel.Update(bodyFrame, orbitFrame, position)
		accumulatedWHr += panel.ReceivedPowerW() * float64(clock.LastIncrementS()) / secondsPerHour
		if panel.ReceivedPowerW() > 0 {
			charging = true
		}
	}
	p.charging = charging
	if charge {
		p.battery.IntroduceEnergy(accumulatedWHr * p.battery.ChargeEfficiencyPercent() / 100)
	}
}
