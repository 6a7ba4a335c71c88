package core

import (
	"context"
	"fmt"

	"github.com/code-lab-org/stars-collaborate/internal/logging"
	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// clockLogBufferSize batches the clock calendar series like the node
// telemetry buffers.
const clockLogBufferSize = 1000

// ObservingSystemAlpha owns every node and the scheduler, and drives the
// per-tick cascade: Sun, nodes, scheduler, telemetry, channel arbitration.
type ObservingSystemAlpha struct {
	sun       *Sun
	clock     timectrl.SimClock
	scheduler Scheduler

	nodes    []*Node
	channels []*Channel
	graph    *GraphUnweighted

	eventLog logging.Logger
	dataLog  DataLog
	metrics  Metrics

	numSamples uint64

	clockBuffer struct {
		counter     int
		year        [clockLogBufferSize]int64
		month       [clockLogBufferSize]int64
		day         [clockLogBufferSize]int64
		hour        [clockLogBufferSize]int64
		minute      [clockLogBufferSize]int64
		second      [clockLogBufferSize]int64
		microsecond [clockLogBufferSize]int64
	}
}

// NewObservingSystemAlpha assembles an empty observing system. Nodes are
// added with Launch and Place before the first Update.
func NewObservingSystemAlpha(sun *Sun, clock timectrl.SimClock, scheduler Scheduler,
	eventLog logging.Logger, dataLog DataLog) *ObservingSystemAlpha {
	return &ObservingSystemAlpha{
		sun:       sun,
		clock:     clock,
		scheduler: scheduler,
		eventLog:  eventLog,
		dataLog:   dataLog,
		metrics:   NopMetrics{},
	}
}

// SetMetrics installs a metrics sink.
func (o *ObservingSystemAlpha) SetMetrics(metrics Metrics) { o.metrics = metrics }

// Nodes returns the owned node slice.
func (o *ObservingSystemAlpha) Nodes() []*Node { return o.nodes }

// NumSamples returns the number of planned seed measurements.
func (o *ObservingSystemAlpha) NumSamples() uint64 { return o.numSamples }

// Launch adds one node per orbit platform, all sharing the given subsystem
// templates and data processor. When separate is set each node gets its own
// constellation id, counting up from the given one.
func (o *ObservingSystemAlpha) Launch(orbits []*PlatformOrbit, constellation uint16, separate bool,
	comm SubsystemComm, sensing SubsystemSensing, power SubsystemPower, processor DataProcessor) {
	group := constellation
	for _, orbit := range orbits {
		index := uint16(len(o.nodes))
		o.nodes = append(o.nodes, NewNode(orbit.Name(), index, group, orbit,
			comm, sensing, power, o.clock, processor, o.eventLog, o.dataLog))
		if separate {
			group++
		}
	}
	o.graph = NewGraphUnweighted(uint16(len(o.nodes)))
}

// Place adds one node per ground platform, mirroring Launch.
func (o *ObservingSystemAlpha) Place(stations []*PlatformEarth, constellation uint16, separate bool,
	comm SubsystemComm, sensing SubsystemSensing, power SubsystemPower, processor DataProcessor) {
	group := constellation
	for _, station := range stations {
		index := uint16(len(o.nodes))
		o.nodes = append(o.nodes, NewNode(station.Name(), index, group, station,
			comm, sensing, power, o.clock, processor, o.eventLog, o.dataLog))
		if separate {
			group++
		}
	}
	o.graph = NewGraphUnweighted(uint16(len(o.nodes)))
}

// Seed plans periodic self-measurements on every node across the span,
// staggered by the injected start sequence. startSeq yields one initial
// offset per node; pass a deterministic sequence in tests.
func (o *ObservingSystemAlpha) Seed(spanS uint64, startSeq func() uint64) {
	o.seedNodes(o.nodes, spanS, 50, startSeq)
}

// SeedMany plans periodic self-measurements on one constellation with a
// longer rest between integrations.
func (o *ObservingSystemAlpha) SeedMany(spanS uint64, constellation uint16, startSeq func() uint64) {
	var selected []*Node
	for _, node := range o.nodes {
		if node.Constellation() == constellation {
			selected = append(selected, node)
		}
	}
	o.seedNodes(selected, spanS, 400, startSeq)
}

func (o *ObservingSystemAlpha) seedNodes(nodes []*Node, spanS, restS uint64, startSeq func() uint64) {
	for _, node := range nodes {
		durationS := node.Sensing().Sensor().DurationS
		if spanS <= durationS {
			continue
		}
		timeS := startSeq() % (spanS/30 + 1)
		for timeS < spanS-durationS {
			node.PlanMeasurement(timeS, NoNodeIndex)
			timeS += durationS + restS
			o.numSamples++
		}
	}
	o.eventLog.Info(context.Background(), "planning samples",
		logging.Uint64("elapsed_s", o.clock.ElapsedS()),
		logging.Uint64("num_samples", o.numSamples))
}

// Update runs one tick: Sun first, then every node, then the scheduler,
// then telemetry, then channel arbitration. Only invariant errors escape.
func (o *ObservingSystemAlpha) Update(ctx context.Context) error {
	o.eventLog.Debug(ctx, "incrementing simulation",
		logging.Uint64("elapsed_s", o.clock.ElapsedS()))
	o.sun.Update(0)
	for _, node := range o.nodes {
		node.Update(0, true, true, true, true, true, true)
	}
	o.eventLog.Debug(ctx, "scheduling communications",
		logging.Uint64("elapsed_s", o.clock.ElapsedS()))
	o.scheduler.Update(ctx, o.nodes)
	o.eventLog.Debug(ctx, "logging node data",
		logging.Uint64("elapsed_s", o.clock.ElapsedS()))
	o.logNodes()
	o.bufferClock()
	o.eventLog.Debug(ctx, "performing data transfers",
		logging.Uint64("elapsed_s", o.clock.ElapsedS()))
	o.metrics.TickObserved()
	return o.arbitrateCommunication(ctx)
}

// arbitrateCommunication advances the active channel set, retires finished
// or broken channels, and then picks up the transfers the nodes queued this
// tick. Newly started channels got their single update during construction;
// their first byte transfer happens next tick.
func (o *ObservingSystemAlpha) arbitrateCommunication(ctx context.Context) error {
	remaining := o.channels[:0]
	for _, channel := range o.channels {
		channel.Update(o.clock)
		completed := channel.Completed()
		broken := channel.Broken()
		if !completed && !broken && channel.Active() {
			remaining = append(remaining, channel)
			continue
		}
		txIndex := channel.TxNode().Index()
		rxIndex := channel.RxNode().Index()
		o.graph.SetEdge(txIndex, rxIndex, false)
		o.dataLog.LogEdge(txIndex, rxIndex, o.clock.Ticks(), false)
		if completed {
			o.metrics.ChannelCompleted()
			o.eventLog.Info(ctx, "transfer complete",
				logging.Uint64("elapsed_s", o.clock.ElapsedS()),
				logging.Int("tx", int(txIndex)),
				logging.Int("rx", int(rxIndex)))
		} else if broken {
			o.metrics.ChannelBroken()
			o.eventLog.Warn(ctx, "transfer failed",
				logging.Uint64("elapsed_s", o.clock.ElapsedS()),
				logging.Int("tx", int(txIndex)),
				logging.Int("rx", int(rxIndex)))
		}
		if !broken {
			kind := packetKind(len(channel.RxNode().CommBuffer()))
			if err := channel.RxNode().AddressCommBuffer(); err != nil {
				return fmt.Errorf("addressing buffer at node %d: %w", rxIndex, err)
			}
			o.metrics.PacketDelivered(kind)
		}
	}
	o.channels = remaining

	for _, node := range o.nodes {
		if node.TargetIndex() == NoNodeIndex {
			continue
		}
		if int(node.TargetIndex()) >= len(o.nodes) {
			return fmt.Errorf("node %d targets unknown node %d", node.Index(), node.TargetIndex())
		}
		channel := NewChannel(node, o.nodes[node.TargetIndex()], o.dataLog)
		channel.Update(o.clock)
		channel.Start()
		o.channels = append(o.channels, channel)
		o.metrics.ChannelStarted()
		o.graph.SetEdge(node.Index(), node.TargetIndex(), true)
		o.dataLog.LogEdge(node.Index(), node.TargetIndex(), o.clock.Ticks(), true)
	}
	return nil
}

func packetKind(sizeBytes int) string {
	switch {
	case sizeBytes == PacketForwardSizeBytes:
		return "forward"
	case sizeBytes == PacketReturnSizeBytes:
		return "return"
	case sizeBytes > 0 && sizeBytes%PacketRawSizeBytes == 0:
		return "raw"
	default:
		return "unknown"
	}
}

// LinesOfSight snapshots the mutual-visibility matrix into the edge log.
// Available when the scheduler is the alpha implementation.
func (o *ObservingSystemAlpha) LinesOfSight() {
	alpha, ok := o.scheduler.(*SchedulerAlpha)
	if !ok {
		return
	}
	snapshot := NewGraphUnweighted(uint16(len(o.nodes)))
	alpha.AllLos(snapshot)
	for i := range o.nodes {
		neighbors := 0
		for j := range o.nodes {
			if i != j && snapshot.GetEdge(uint16(i), uint16(j)) {
				neighbors++
			}
		}
		o.nodes[i].SetNumNeighbors(neighbors)
	}
}

func (o *ObservingSystemAlpha) logNodes() {
	for _, node := range o.nodes {
		node.BufferDataLog()
		o.metrics.BatteryEnergy(node.Index(), node.Power().Battery().EnergyWHr())
	}
}

func (o *ObservingSystemAlpha) bufferClock() {
	if o.clockBuffer.counter == clockLogBufferSize {
		o.flushClock()
	}
	year, month, day, hour, minute, second, microsecond := timectrl.Breakdown(o.clock.Now())
	i := o.clockBuffer.counter
	o.clockBuffer.year[i] = int64(year)
	o.clockBuffer.month[i] = int64(month)
	o.clockBuffer.day[i] = int64(day)
	o.clockBuffer.hour[i] = int64(hour)
	o.clockBuffer.minute[i] = int64(minute)
	o.clockBuffer.second[i] = int64(second)
	o.clockBuffer.microsecond[i] = int64(microsecond)
	o.clockBuffer.counter++
}

func (o *ObservingSystemAlpha) flushClock() {
	count := o.clockBuffer.counter
	if count == 0 {
		return
	}
	firstTick := o.clock.Ticks() - uint64(count)
	series := []struct {
		name   string
		values []int64
	}{
		{"year", o.clockBuffer.year[:count]},
		{"month", o.clockBuffer.month[:count]},
		{"day", o.clockBuffer.day[:count]},
		{"hour", o.clockBuffer.hour[:count]},
		{"minute", o.clockBuffer.minute[:count]},
		{"second", o.clockBuffer.second[:count]},
		{"microsecond", o.clockBuffer.microsecond[:count]},
	}
	for _, s := range series {
		o.dataLog.LogClockField(s.name, firstTick, s.values)
	}
	o.clockBuffer.counter = 0
}

// Complete flushes every buffered series at the end of a run.
func (o *ObservingSystemAlpha) Complete() {
	for _, node := range o.nodes {
		node.FlushDataLog()
	}
	o.flushClock()
}
