package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles the Prometheus metrics of one simulation run and
// implements the core's Metrics interface.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks             prometheus.Counter
	ChannelsStarted   prometheus.Counter
	ChannelsCompleted prometheus.Counter
	ChannelsBroken    prometheus.Counter
	VisitorsPredicted prometheus.Counter
	VisitorsMissed    prometheus.Counter
	RoutesFound       prometheus.Counter
	RoutesMissed      prometheus.Counter
	RouteHops         prometheus.Histogram
	PacketsDelivered  *prometheus.CounterVec
	BatteryEnergyWHr  *prometheus.GaugeVec
}

// NewSimCollector registers the simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &SimCollector{
		gatherer: gatherer,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_ticks_total",
			Help: "Completed simulation ticks.",
		}),
		ChannelsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_channels_started_total",
			Help: "Channels opened by arbitration.",
		}),
		ChannelsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_channels_completed_total",
			Help: "Channels that delivered their buffer.",
		}),
		ChannelsBroken: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_channels_broken_total",
			Help: "Channels that failed mid-transfer.",
		}),
		VisitorsPredicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_visitors_predicted_total",
			Help: "Successful next-visitor predictions.",
		}),
		VisitorsMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_visitors_missed_total",
			Help: "Next-visitor searches that hit the cutoff.",
		}),
		RoutesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_routes_found_total",
			Help: "Route searches that produced a route.",
		}),
		RoutesMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_routes_missed_total",
			Help: "Route searches that came back empty.",
		}),
		RouteHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sim_route_hops",
			Help:    "Hop count of found routes.",
			Buckets: prometheus.LinearBuckets(1, 1, 6),
		}),
		PacketsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_packets_delivered_total",
			Help: "Packets delivered to their next hop, by kind.",
		}, []string{"kind"}),
		BatteryEnergyWHr: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_battery_energy_watt_hours",
			Help: "Stored battery energy per node.",
		}, []string{"node"}),
	}

	for _, collector := range []prometheus.Collector{
		c.Ticks, c.ChannelsStarted, c.ChannelsCompleted, c.ChannelsBroken,
		c.VisitorsPredicted, c.VisitorsMissed, c.RoutesFound, c.RoutesMissed,
		c.RouteHops, c.PacketsDelivered, c.BatteryEnergyWHr,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *SimCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// The methods below implement the core Metrics interface.

func (c *SimCollector) TickObserved()     { c.Ticks.Inc() }
func (c *SimCollector) ChannelStarted()   { c.ChannelsStarted.Inc() }
func (c *SimCollector) ChannelCompleted() { c.ChannelsCompleted.Inc() }
func (c *SimCollector) ChannelBroken()    { c.ChannelsBroken.Inc() }
func (c *SimCollector) VisitorPredicted() { c.VisitorsPredicted.Inc() }
func (c *SimCollector) VisitorMissed()    { c.VisitorsMissed.Inc() }

func (c *SimCollector) RouteFound(hops int) {
	c.RoutesFound.Inc()
	c.RouteHops.Observe(float64(hops))
}

func (c *SimCollector) RouteMissed() { c.RoutesMissed.Inc() }

func (c *SimCollector) PacketDelivered(kind string) {
	c.PacketsDelivered.WithLabelValues(kind).Inc()
}

func (c *SimCollector) BatteryEnergy(nodeIndex uint16, energyWHr float64) {
	c.BatteryEnergyWHr.WithLabelValues(strconv.Itoa(int(nodeIndex))).Set(energyWHr)
}
