package core

// Metrics is the counter sink the simulation reports into. The shipped
// implementation is Prometheus-backed; the core only sees this interface.
type Metrics interface {
	TickObserved()
	ChannelStarted()
	ChannelCompleted()
	ChannelBroken()
	VisitorPredicted()
	VisitorMissed()
	RouteFound(hops int)
	RouteMissed()
	PacketDelivered(kind string)
	BatteryEnergy(nodeIndex uint16, energyWHr float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) TickObserved()                {}
func (NopMetrics) ChannelStarted()              {}
func (NopMetrics) ChannelCompleted()            {}
func (NopMetrics) ChannelBroken()               {}
func (NopMetrics) VisitorPredicted()            {}
func (NopMetrics) VisitorMissed()               {}
func (NopMetrics) RouteFound(int)               {}
func (NopMetrics) RouteMissed()                 {}
func (NopMetrics) PacketDelivered(string)       {}
func (NopMetrics) BatteryEnergy(uint16, float64) {}
