package timectrl

import "time"

// SimClock is a read-only view of simulation time. Core components
// (platforms, channels, the scheduler) depend on this abstraction rather
// than the concrete clock so tests can substitute fixed times.
type SimClock interface {
	// Now returns the current simulation date-time (UTC).
	Now() time.Time
	// At returns the simulation date-time offsetS seconds in the future
	// without advancing the clock.
	At(offsetS uint64) time.Time
	// ElapsedS returns total simulated seconds since the epoch.
	ElapsedS() uint64
	// Ticks returns the number of completed ticks.
	Ticks() uint64
	// LastIncrementS returns the length in seconds of the most recent tick.
	LastIncrementS() uint64
}

// SimulationClock drives simulation time. It is advanced exclusively by the
// outermost tick loop; everything else reads it through SimClock.
type SimulationClock struct {
	epoch          time.Time
	current        time.Time
	elapsedS       uint64
	ticks          uint64
	lastIncrementS uint64

	listeners []func(time.Time)
}

// NewSimulationClock constructs a clock starting at midnight UTC on the
// given calendar date.
func NewSimulationClock(year int, month time.Month, day int) *SimulationClock {
	return NewSimulationClockAt(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// NewSimulationClockAt constructs a clock starting at an arbitrary instant.
func NewSimulationClockAt(start time.Time) *SimulationClock {
	start = start.UTC()
	return &SimulationClock{epoch: start, current: start}
}

// Now implements SimClock.
func (c *SimulationClock) Now() time.Time { return c.current }

// At implements SimClock.
func (c *SimulationClock) At(offsetS uint64) time.Time {
	return c.current.Add(time.Duration(offsetS) * time.Second)
}

// ElapsedS implements SimClock.
func (c *SimulationClock) ElapsedS() uint64 { return c.elapsedS }

// Ticks implements SimClock.
func (c *SimulationClock) Ticks() uint64 { return c.ticks }

// LastIncrementS implements SimClock.
func (c *SimulationClock) LastIncrementS() uint64 { return c.lastIncrementS }

// Epoch returns the simulation start instant.
func (c *SimulationClock) Epoch() time.Time { return c.epoch }

// AddListener registers a callback invoked after every tick with the new
// simulation time.
func (c *SimulationClock) AddListener(fn func(time.Time)) {
	c.listeners = append(c.listeners, fn)
}

// Tick advances the clock by the given number of seconds and notifies
// listeners. Tick length must be positive; the caller validates this at
// configuration time.
func (c *SimulationClock) Tick(seconds uint64) {
	c.lastIncrementS = seconds
	c.elapsedS += seconds
	c.current = c.current.Add(time.Duration(seconds) * time.Second)
	c.ticks++
	for _, fn := range c.listeners {
		fn(c.current)
	}
}

// Breakdown splits a date-time into the calendar fields recorded by the
// data log: year, month, day, hour, minute, second, microsecond.
func Breakdown(t time.Time) (year, month, day, hour, minute, second, microsecond int) {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return y, int(m), d, hh, mm, ss, t.Nanosecond() / 1000
}
