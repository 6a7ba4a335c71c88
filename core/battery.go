package core

// Battery is a fixed-capacity energy store. Energy is always clamped to
// [0, capacity].
type Battery struct {
	capacityWHr             float64
	chargeEfficiencyPercent float64
	energyWHr               float64
}

// NewBattery sizes a battery from its cell chemistry: per-cell amp-hours,
// cell count, pack voltage, and charge efficiency in percent. The pack
// starts full. Batteries are values; every node carries its own copy.
func NewBattery(cellAmpHr, numCells, voltageV, chargeEfficiencyPercent float64) Battery {
	capacity := numCells * cellAmpHr * voltageV
	return Battery{
		capacityWHr:             capacity,
		chargeEfficiencyPercent: chargeEfficiencyPercent,
		energyWHr:               capacity,
	}
}

// CapacityWHr returns the fixed watt-hour capacity.
func (b *Battery) CapacityWHr() float64 { return b.capacityWHr }

// ChargeEfficiencyPercent returns the fixed charging efficiency.
func (b *Battery) ChargeEfficiencyPercent() float64 { return b.chargeEfficiencyPercent }

// EnergyWHr returns the stored energy.
func (b *Battery) EnergyWHr() float64 { return b.energyWHr }

// SetEnergyWHr overrides the stored energy, clamped to [0, capacity]. Used
// when assembling scenarios that start from a partially charged pack.
func (b *Battery) SetEnergyWHr(energyWHr float64) {
	b.energyWHr = 0
	b.IntroduceEnergy(energyWHr)
}

// IntroduceEnergy adds (or, when negative, drains) watt-hours, clamping to
// [0, capacity].
func (b *Battery) IntroduceEnergy(energyWHr float64) {
	b.energyWHr += energyWHr
	if b.energyWHr < 0 {
		b.energyWHr = 0
	}
	if b.energyWHr > b.capacityWHr {
		b.energyWHr = b.capacityWHr
	}
}
