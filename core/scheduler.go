package core

import (
	"context"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/code-lab-org/stars-collaborate/internal/logging"
	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// Scheduler runs once per tick, after every node has been advanced, and
// writes forward/return packets into node outboxes. It may mutate node
// states during its search but must restore every node to offset 0 before
// returning.
type Scheduler interface {
	Update(ctx context.Context, nodes []*Node)
}

// Visitor-prediction constants.
const (
	// measurementRadiusM is how close a sensor boresight must pass to a
	// destination to count as a visit.
	measurementRadiusM = 50000.0
	// visitorInitialOffsetS is where the prediction search begins.
	visitorInitialOffsetS = 300
	// visitorStopOffsetS is the prediction search's hard cutoff.
	visitorStopOffsetS = 5000
	// visitorIntervalS is the prediction search step.
	visitorIntervalS = 1
	// initialTreeHeight bounds the route tree before the first shrink.
	initialTreeHeight = 5
	// feedbackRouteLimitS is the deadline for return-packet routes.
	feedbackRouteLimitS = 1500
)

// SchedulerAlpha is the informer/sink protocol scheduler: constellation 0
// nodes are sources whose minimum suggestions route to constellation 2 and
// maximum suggestions to constellation 1; constellation 1 nodes are sinks
// whose verdicts route back to the informer.
type SchedulerAlpha struct {
	clock      timectrl.SimClock
	visibility VisibilityMode
	eventLog   logging.Logger
	metrics    Metrics
	tracer     trace.Tracer

	nodes []*Node
}

// NewSchedulerAlpha constructs the scheduler in the default occluded
// visibility mode.
func NewSchedulerAlpha(clock timectrl.SimClock, eventLog logging.Logger) *SchedulerAlpha {
	return &SchedulerAlpha{
		clock:      clock,
		visibility: VisibilityOccluded,
		eventLog:   eventLog,
		metrics:    NopMetrics{},
		tracer:     noop.NewTracerProvider().Tracer(""),
	}
}

// SetVisibilityMode switches the occlusion handling of the contact search.
func (s *SchedulerAlpha) SetVisibilityMode(mode VisibilityMode) { s.visibility = mode }

// SetMetrics installs a metrics sink.
func (s *SchedulerAlpha) SetMetrics(metrics Metrics) { s.metrics = metrics }

// SetTracer installs a tracer for per-search spans.
func (s *SchedulerAlpha) SetTracer(tracer trace.Tracer) { s.tracer = tracer }

// Update implements Scheduler.
func (s *SchedulerAlpha) Update(ctx context.Context, nodes []*Node) {
	ctx, span := s.tracer.Start(ctx, "scheduler.update")
	defer span.End()

	s.nodes = nodes
	var sources, sinks []*Node
	for _, node := range nodes {
		switch node.Constellation() {
		case 0:
			sources = append(sources, node)
		case 1:
			sinks = append(sinks, node)
		}
	}

	for _, source := range sources {
		contactS := source.Comm().RequiredTransferDurationS(PacketForwardSizeBytes)
		if len(source.MinSuggestions()) > 0 {
			s.dispatchForward(ctx, source, source.MinSuggestions(), 2, contactS)
			source.SetMinSuggestions(nil)
		}
		if len(source.MaxSuggestions()) > 0 {
			s.dispatchForward(ctx, source, source.MaxSuggestions(), 1, contactS)
			source.SetMaxSuggestions(nil)
		}
	}

	for _, sink := range sinks {
		contactS := sink.Comm().RequiredTransferDurationS(PacketForwardSizeBytes)
		for _, feedback := range sink.Feedback() {
			if int(feedback.OriginIndex) >= len(nodes) {
				continue
			}
			s.dispatchReturn(ctx, sink, feedback, contactS)
		}
		sink.SetFeedback(nil)
	}
}

// dispatchForward predicts the next visitor for the destinations, finds a
// route to it, and queues a forward packet on the source.
func (s *SchedulerAlpha) dispatchForward(ctx context.Context, source *Node, destinations []Geodetic, sinkConstellation uint16, contactS uint64) {
	next, predictionS, found := s.NextVisitor(destinations, sinkConstellation)
	if !found {
		s.metrics.VisitorMissed()
		return
	}
	s.metrics.VisitorPredicted()
	halfIntegrationS := next.Sensing().Sensor().DurationS / 2
	if predictionS <= halfIntegrationS {
		s.metrics.RouteMissed()
		return
	}
	limitS := predictionS - halfIntegrationS
	s.eventLog.Info(ctx, "predicting",
		logging.Uint64("elapsed_s", s.clock.ElapsedS()),
		logging.Int("source", int(source.Index())),
		logging.Int("visitor", int(next.Index())),
		logging.Uint64("limit_s", limitS))
	route := s.FindRoute(ctx, source.Index(), next.Index(), contactS, limitS)
	if len(route) == 0 {
		s.metrics.RouteMissed()
		return
	}
	s.metrics.RouteFound(len(route))
	s.eventLog.Info(ctx, "route found",
		logging.Uint64("elapsed_s", s.clock.ElapsedS()),
		logging.String("route", RouteString(source.Index(), route)))
	packet := PacketForward{
		Route: route,
		Event: SensingEvent{
			TargetIndex: next.Index(),
			ElapsedS:    s.clock.ElapsedS() + limitS,
		},
		FeedbackIndex: source.Index(),
	}
	source.SetCommBuffer(packet.Encode())
	if err := source.AddressCommBuffer(); err != nil {
		s.eventLog.Error(ctx, "addressing forward packet",
			logging.String("error", err.Error()))
	}
}

// dispatchReturn finds a route back to the verdict's informer and queues a
// return packet on the sink.
func (s *SchedulerAlpha) dispatchReturn(ctx context.Context, sink *Node, feedback Feedback, contactS uint64) {
	next := s.nodes[feedback.OriginIndex]
	s.eventLog.Info(ctx, "predicting",
		logging.Uint64("elapsed_s", s.clock.ElapsedS()),
		logging.Int("source", int(sink.Index())),
		logging.Int("visitor", int(next.Index())),
		logging.Uint64("limit_s", uint64(feedbackRouteLimitS)))
	route := s.FindRoute(ctx, sink.Index(), next.Index(), contactS, feedbackRouteLimitS)
	if len(route) == 0 {
		s.metrics.RouteMissed()
		return
	}
	s.metrics.RouteFound(len(route))
	s.eventLog.Info(ctx, "route found",
		logging.Uint64("elapsed_s", s.clock.ElapsedS()),
		logging.String("route", RouteString(sink.Index(), route)))
	packet := PacketReturn{
		Route:               route,
		Success:             feedback.Success,
		OriginConstellation: sink.Constellation(),
	}
	sink.SetCommBuffer(packet.Encode())
	if err := sink.AddressCommBuffer(); err != nil {
		s.eventLog.Error(ctx, "addressing return packet",
			logging.String("error", err.Error()))
	}
}

// NextVisitor returns the earliest node of the sink constellation whose
// sensor boresight passes within the measurement radius of any destination,
// examining destinations in order. The search starts at offset 300 s, steps
// by one second, and cuts off at 5000 s. Candidates are skipped for
// floor(minDistance/speed) ticks after a miss. Node states are restored on
// every probe.
func (s *SchedulerAlpha) NextVisitor(destinations []Geodetic, sinkConstellation uint16) (*Node, uint64, bool) {
	var sinks []*Node
	for _, node := range s.nodes {
		if node.Constellation() == sinkConstellation {
			sinks = append(sinks, node)
		}
	}
	waitInterval := make([]uint64, len(sinks))
	for offsetS := uint64(visitorInitialOffsetS); offsetS < visitorStopOffsetS; offsetS += visitorIntervalS {
		for i, node := range sinks {
			if waitInterval[i] > 0 {
				waitInterval[i]--
				continue
			}
			minDistanceM := math.MaxFloat64
			for _, destination := range destinations {
				distanceM := s.nodeSensorDistance(node, destination, offsetS)
				if distanceM < measurementRadiusM {
					return node, offsetS, true
				}
				if distanceM < minDistanceM {
					minDistanceM = distanceM
				}
			}
			speedMPerS := node.State().Velocity.Norm()
			if speedMPerS > 0 {
				waitInterval[i] = uint64(minDistanceM / speedMPerS / visitorIntervalS)
			}
		}
	}
	return nil, 0, false
}

// nodeSensorDistance propagates the node to offsetS, intersects its sensor
// boresight with the ellipsoid, restores the node, and returns the
// great-circle distance from the intersection to the destination. A
// boresight that misses the Earth is infinitely far away.
func (s *SchedulerAlpha) nodeSensorDistance(node *Node, destination Geodetic, offsetS uint64) float64 {
	node.Update(offsetS, false, true, false, false, false, false)
	axis := node.Sensing().AntennaFrame().ZAxis()
	position := node.State().Position
	place, hit := BoresightGeodetic(position, axis, s.clock.At(offsetS))
	node.Update(0, false, true, false, false, false, false)
	if !hit {
		return math.MaxFloat64
	}
	return destination.Haversine(place)
}

// FindRoute searches the time-expanded contact graph for a store-and-
// forward route delivering a contactS-second transfer from startIndex to
// endIndex no later than limitS. The returned route's first entry is the
// first hop from the source; an empty route means no path was found in
// time. Every node is restored to offset 0 before returning.
func (s *SchedulerAlpha) FindRoute(ctx context.Context, startIndex, endIndex uint16, contactS, limitS uint64) []Transfer {
	_, span := s.tracer.Start(ctx, "scheduler.find_route",
		trace.WithAttributes(
			attribute.Int("start", int(startIndex)),
			attribute.Int("end", int(endIndex)),
			attribute.Int64("contact_s", int64(contactS)),
			attribute.Int64("limit_s", int64(limitS)),
		))
	defer span.End()

	level := make([]int, len(s.nodes))
	rcvd := make([]uint64, len(s.nodes))
	for i := range s.nodes {
		level[i] = math.MaxInt32
		rcvd[i] = math.MaxUint64
	}
	level[startIndex] = 0
	rcvd[startIndex] = 0

	tree := NewTree(startIndex, initialTreeHeight, endIndex)
	transmitting := map[uint16]struct{}{startIndex: {}}

	finished := false
	for sOffset := uint64(0); limitS > contactS && sOffset < limitS-contactS && !finished; sOffset += contactS {
		// A node starts transmitting only once its first reception is
		// complete.
		for n := range s.nodes {
			if rcvd[n] <= sOffset {
				transmitting[uint16(n)] = struct{}{}
			}
		}
		for _, tx := range sortedIndices(transmitting) {
			if !finished && level[tx] < int(tree.Height()) {
				var candidates []uint16
				for rx := range s.nodes {
					if uint16(rx) != tx && level[rx] > level[tx]+1 {
						candidates = append(candidates, uint16(rx))
					}
				}
				for _, rx := range s.findGainsFrom(tx, sOffset, candidates) {
					startS, ok := s.confirm(s.nodes[tx], s.nodes[rx], contactS, sOffset, rcvd[tx])
					if ok {
						gotS := startS + contactS
						if parent, found := tree.SearchSpecific(tx, rcvd[tx]); found {
							if child, added := tree.AddChild(parent, rx, gotS); added {
								level[rx] = int(tree.Branch(child).Level)
								if gotS < rcvd[rx] {
									rcvd[rx] = gotS
								}
								if rx == endIndex {
									newHeight := level[tx]
									if newHeight > 0 {
										newHeight--
									}
									tree.SetHeight(uint16(newHeight))
									if tx == startIndex {
										finished = true
									}
								}
							}
						}
					}
				}
			}
		}
	}

	s.restoreNodes()
	return s.makeRoute(tree, endIndex, contactS)
}

// sortedIndices returns the set's members in ascending order so the search
// is deterministic.
func sortedIndices(set map[uint16]struct{}) []uint16 {
	indices := make([]uint16, 0, len(set))
	for index := range set {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// findGainsFrom propagates the transmitter and each candidate receiver to
// offsetS and keeps the candidates whose probe channel is open there.
func (s *SchedulerAlpha) findGainsFrom(txIndex uint16, offsetS uint64, candidates []uint16) []uint16 {
	txNode := s.nodes[txIndex]
	txNode.Update(offsetS, true, false, false, false, false, false)
	var possible []uint16
	for _, rxIndex := range candidates {
		rxNode := s.nodes[rxIndex]
		rxNode.Update(offsetS, true, false, false, false, false, false)
		if s.visibility.Clear() || Visible(txNode.State().Position, rxNode.State().Position) {
			channel := NewChannel(txNode, rxNode, NopDataLog{})
			channel.SetVisibilityMode(s.visibility)
			channel.Update(s.clock)
			if channel.Open() {
				possible = append(possible, rxIndex)
			}
		}
	}
	return possible
}

// confirm verifies that a full durationS-second window exists around
// originalS: it marches backward while the channel stays open (bounded by
// the transmitter's own reception time), steps forward to the first open
// second if it overshot, and re-checks the window's far end. Both nodes are
// re-propagated to originalS before returning.
func (s *SchedulerAlpha) confirm(txNode, rxNode *Node, durationS, originalS, lowerLimitS uint64) (uint64, bool) {
	channel := NewChannel(txNode, rxNode, NopDataLog{})
	channel.SetVisibilityMode(s.visibility)
	channel.Update(s.clock)

	earliestS := lowerLimitS
	if originalS > durationS && originalS-durationS > lowerLimitS {
		earliestS = originalS - durationS
	}
	sOffset := originalS
	for sOffset > earliestS && channel.Open() {
		txNode.Update(sOffset, true, false, false, false, false, false)
		rxNode.Update(sOffset, true, false, false, false, false, false)
		channel.Update(s.clock)
		sOffset--
	}
	// Step forward if the march overshot the window's opening edge.
	for !channel.Open() {
		sOffset++
		txNode.Update(sOffset, true, false, false, false, false, false)
		rxNode.Update(sOffset, true, false, false, false, false, false)
		channel.Update(s.clock)
	}
	startS := sOffset

	sOffset += durationS
	txNode.Update(sOffset, true, false, false, false, false, false)
	rxNode.Update(sOffset, true, false, false, false, false, false)
	channel.Update(s.clock)
	stillOpen := channel.Open()

	txNode.Update(originalS, true, false, false, false, false, false)
	rxNode.Update(originalS, true, false, false, false, false, false)
	return startS, stillOpen
}

// makeRoute walks the tree back from the first branch matching the
// destination and emits (node, absolute window start) hops, root excluded.
func (s *SchedulerAlpha) makeRoute(tree *Tree, endIndex uint16, contactS uint64) []Transfer {
	branch, found := tree.BreadthFirstSearch(endIndex)
	if !found {
		return nil
	}
	ancestry := tree.Ancestry(branch)
	var route []Transfer
	for _, index := range ancestry[1:] {
		entry := tree.Branch(index)
		route = append(route, Transfer{
			NodeIndex: entry.Identity,
			StartS:    s.clock.ElapsedS() + entry.RxTimeS - contactS,
		})
	}
	return route
}

// restoreNodes re-propagates every node to offset 0 and re-derives its
// antenna frames, undoing the search's transient mutations.
func (s *SchedulerAlpha) restoreNodes() {
	for _, node := range s.nodes {
		node.Update(0, true, true, false, false, false, false)
	}
}

// AllLos fills the graph with the current mutual-visibility matrix.
func (s *SchedulerAlpha) AllLos(graph *GraphUnweighted) {
	for i := range s.nodes {
		for j := range s.nodes {
			if i != j {
				graph.SetEdge(uint16(i), uint16(j),
					Visible(s.nodes[i].State().Position, s.nodes[j].State().Position))
			}
		}
	}
}

// PredictChargeChange reports the offsets within limitS at which the
// node's charging state will flip, restoring the Sun and the node before
// returning.
func (s *SchedulerAlpha) PredictChargeChange(sun *Sun, node *Node, limitS uint64) []uint64 {
	current := node.Power().Charging()
	energyWHr := node.Power().Battery().EnergyWHr()
	var flips []uint64
	for offsetS := uint64(0); offsetS < limitS; offsetS++ {
		sun.Update(offsetS)
		node.Update(offsetS, false, false, false, false, true, false)
		next := node.Power().Charging()
		if next != current {
			flips = append(flips, offsetS)
			current = next
		}
	}
	sun.Update(0)
	node.Update(0, false, false, false, false, true, false)
	node.Power().Battery().SetEnergyWHr(energyWHr)
	return flips
}
