package core

import "testing"

func TestBatteryClamping(t *testing.T) {
	battery := NewBattery(1, 1, 10, 85) // 10 Wh capacity, starts full

	battery.IntroduceEnergy(5)
	if got := battery.EnergyWHr(); got != 10 {
		t.Errorf("overcharge: energy = %v, want clamp at 10", got)
	}
	battery.IntroduceEnergy(-25)
	if got := battery.EnergyWHr(); got != 0 {
		t.Errorf("overdrain: energy = %v, want clamp at 0", got)
	}
	battery.IntroduceEnergy(3.5)
	if got := battery.EnergyWHr(); got != 3.5 {
		t.Errorf("energy = %v, want 3.5", got)
	}
}

func TestBatteryClampUnderRandomWalk(t *testing.T) {
	battery := NewBattery(1, 2, 6, 85) // 12 Wh
	steps := []float64{-30, 4, 4, 4, 4, -1, 100, -5, 2.5, -200, 0.25}
	for _, step := range steps {
		battery.IntroduceEnergy(step)
		if energy := battery.EnergyWHr(); energy < 0 || energy > battery.CapacityWHr() {
			t.Fatalf("energy %v escaped [0, %v] after step %v", energy, battery.CapacityWHr(), step)
		}
	}
}

func TestBatteryConservation(t *testing.T) {
	// One node, 1 W idle, no panels, 3600 s ticks, 10 Wh initial charge:
	// one watt-hour drains per tick and the level floors at zero.
	clock := newTestClock()
	battery := NewBattery(1, 2, 10, 85) // 20 Wh capacity
	battery.SetEnergyWHr(10)
	power := NewSubsystemPower(battery, nil, 1.0)

	frame := NewReferenceFrame(0, 0, 0)
	position := NewVector(7000e3, 0, 0)

	clock.Tick(3600)
	power.Update(true, clock, frame, frame, 0, position)
	if got := power.Battery().EnergyWHr(); !almostEqual(got, 9, 1e-9) {
		t.Fatalf("energy after one tick = %v, want 9", got)
	}
	for i := 0; i < 9; i++ {
		clock.Tick(3600)
		power.Update(true, clock, frame, frame, 0, position)
	}
	if got := power.Battery().EnergyWHr(); got != 0 {
		t.Fatalf("energy after ten ticks = %v, want 0", got)
	}
	clock.Tick(3600)
	power.Update(true, clock, frame, frame, 0, position)
	if got := power.Battery().EnergyWHr(); got != 0 {
		t.Errorf("energy after extra tick = %v, want to stay 0", got)
	}
	if power.Charging() {
		t.Error("charging with no panels")
	}
}

func TestSolarPanelEffectiveArea(t *testing.T) {
	clock := newTestClock()
	sun := NewSun(clock)
	panel := NewSolarPanel(29, 0.06, 0, 0, 0, sun)
	frame := NewReferenceFrame(0, 0, 0)

	// On the day side with the panel normal facing away from the sun
	// direction vector the area depends on the incidence angle; in the
	// umbra it must be exactly zero.
	shadowed := sun.Position().Unit().Neg().Scale(EarthSemiMajorAxisM + 600e3)
	panel.Update(frame, frame, shadowed)
	if got := panel.EffectiveAreaM2(); got != 0 {
		t.Errorf("eclipsed area = %v, want 0", got)
	}
	if got := panel.ReceivedPowerW(); got != 0 {
		t.Errorf("eclipsed power = %v, want 0", got)
	}
}
