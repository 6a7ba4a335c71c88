package core

import (
	"context"
	"fmt"

	"github.com/code-lab-org/stars-collaborate/internal/logging"
	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// NodeMode is a node's coarse activity state.
type NodeMode int

const (
	ModeFree NodeMode = iota
	ModeCarrying
	ModeSensing
)

// nodeLogBufferSize is how many ticks of per-node telemetry accumulate
// before a batched flush to the data log.
const nodeLogBufferSize = 1000

// plannedMeasurement is a pending sensing integration: when to start and
// which node asked for it.
type plannedMeasurement struct {
	StartS        uint64
	InformerIndex uint16
}

type nodeLogBuffer struct {
	counter       int
	index         [nodeLogBufferSize]float64
	constellation [nodeLogBufferSize]float64
	mode          [nodeLogBufferSize]float64
	latitude      [nodeLogBufferSize]float64
	longitude     [nodeLogBufferSize]float64
	altitude      [nodeLogBufferSize]float64
	energy        [nodeLogBufferSize]float64
	charging      [nodeLogBufferSize]float64
	area          [nodeLogBufferSize]float64
	numNeighbors  [nodeLogBufferSize]float64
}

// Node is one simulated satellite or ground station. It owns its three
// subsystems; the platform and data processor are shared references
// supplied at launch.
type Node struct {
	name          string
	index         uint16
	constellation uint16

	platform  Platform
	processor DataProcessor
	state     OrbitalState

	comm    SubsystemComm
	sensing SubsystemSensing
	power   SubsystemPower
	mode    NodeMode

	measurements   []plannedMeasurement
	minSuggestions []Geodetic
	maxSuggestions []Geodetic
	feedback       []Feedback
	targetIndex    uint16
	numNeighbors   int

	clock    timectrl.SimClock
	eventLog logging.Logger
	dataLog  DataLog

	logBuffer nodeLogBuffer
}

// NewNode constructs a node and propagates its initial state.
func NewNode(name string, index, constellation uint16, platform Platform,
	comm SubsystemComm, sensing SubsystemSensing, power SubsystemPower,
	clock timectrl.SimClock, processor DataProcessor,
	eventLog logging.Logger, dataLog DataLog) *Node {
	return &Node{
		name:          name,
		index:         index,
		constellation: constellation,
		platform:      platform,
		processor:     processor,
		state:         platform.Predict(clock, 0),
		comm:          comm.instance(),
		sensing:       sensing.instance(),
		power:         power.instance(),
		mode:          ModeFree,
		targetIndex:   NoNodeIndex,
		clock:         clock,
		eventLog:      eventLog,
		dataLog:       dataLog,
	}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Index returns the node's position in the observing system.
func (n *Node) Index() uint16 { return n.index }

// Constellation returns the node's logical group id.
func (n *Node) Constellation() uint16 { return n.constellation }

// State returns the live orbital state.
func (n *Node) State() OrbitalState { return n.state }

// Mode returns the coarse activity state.
func (n *Node) Mode() NodeMode { return n.mode }

// SetMode overrides the coarse activity state.
func (n *Node) SetMode(mode NodeMode) { n.mode = mode }

// Comm returns the communications subsystem.
func (n *Node) Comm() *SubsystemComm { return &n.comm }

// Sensing returns the sensing subsystem.
func (n *Node) Sensing() *SubsystemSensing { return &n.sensing }

// Power returns the power subsystem.
func (n *Node) Power() *SubsystemPower { return &n.power }

// TargetIndex returns the recipient of the node's pending outbound
// transfer, or NoNodeIndex.
func (n *Node) TargetIndex() uint16 { return n.targetIndex }

// MinSuggestions returns the accumulated minimum-location recommendations.
func (n *Node) MinSuggestions() []Geodetic { return n.minSuggestions }

// MaxSuggestions returns the accumulated maximum-location recommendations.
func (n *Node) MaxSuggestions() []Geodetic { return n.maxSuggestions }

// SetMinSuggestions replaces the minimum-location recommendations.
func (n *Node) SetMinSuggestions(list []Geodetic) { n.minSuggestions = list }

// SetMaxSuggestions replaces the maximum-location recommendations.
func (n *Node) SetMaxSuggestions(list []Geodetic) { n.maxSuggestions = list }

// Feedback returns the queued sink verdicts.
func (n *Node) Feedback() []Feedback { return n.feedback }

// SetFeedback replaces the queued sink verdicts.
func (n *Node) SetFeedback(list []Feedback) { n.feedback = list }

// NumNeighbors returns the current line-of-sight neighbour count.
func (n *Node) NumNeighbors() int { return n.numNeighbors }

// SetNumNeighbors records the line-of-sight neighbour count.
func (n *Node) SetNumNeighbors(count int) { n.numNeighbors = count }

// PendingMeasurements returns the number of queued sensing plans.
func (n *Node) PendingMeasurements() int { return len(n.measurements) }

// Update advances the node one step. The flags select which subsystems
// participate; their order is fixed:
//
//  1. propagate the orbital state to now + offsetS
//  2. commOrient: re-derive the comm antenna frame
//  3. communicate: drain the outbox when the radio is free
//  4. sensingOrient: re-derive the sensing antenna frame
//  5. measure: start matured integrations, advance the running one
//  6. powerUpdate (+charge): account battery drain and solar input
func (n *Node) Update(offsetS uint64, commOrient, sensingOrient, measure, charge, powerUpdate, communicate bool) {
	n.platform.PredictInto(n.clock, offsetS, &n.state)
	if commOrient {
		n.comm.OrientAntenna(n.state.OrbitFrame, n.state.BodyFrame)
	}
	if communicate {
		n.updateCommunication()
	}
	if sensingOrient {
		n.sensing.OrientAntenna(n.state.OrbitFrame, n.state.BodyFrame)
	}
	if measure {
		n.updateMeasurement()
	}
	if powerUpdate {
		n.updatePower(charge)
	}
}

func (n *Node) updateCommunication() {
	n.targetIndex = NoNodeIndex
	if n.comm.Mode() == CommFree {
		n.targetIndex = n.comm.Update(n.clock)
	}
}

func (n *Node) updateMeasurement() {
	remaining := n.measurements[:0]
	for _, plan := range n.measurements {
		if n.clock.ElapsedS() > plan.StartS && !n.sensing.Active() {
			n.mode = ModeSensing
			n.sensing.Measure(plan.InformerIndex)
			n.eventLog.Info(context.Background(), "sensing",
				logging.Uint64("elapsed_s", n.clock.ElapsedS()),
				logging.Int("node", int(n.index)),
				logging.String("variable", n.sensing.Sensor().Variable))
		} else {
			remaining = append(remaining, plan)
		}
	}
	n.measurements = remaining

	n.sensing.Update(n.clock, n.state.Position, n.index, n.dataLog)
	if n.sensing.Complete() {
		packets, err := ReadRawBuffer(n.sensing.DataBuffer())
		if err != nil {
			// The sensing buffer only ever holds whole raw records, so
			// this is unreachable without memory corruption.
			n.eventLog.Error(context.Background(), "sensing buffer corrupt",
				logging.Int("node", int(n.index)),
				logging.String("error", err.Error()))
		} else {
			minList, maxList, feedback := n.processor.Compute(packets, n.index, n.clock)
			n.minSuggestions = append(n.minSuggestions, minList...)
			n.maxSuggestions = append(n.maxSuggestions, maxList...)
			n.feedback = append(n.feedback, feedback...)
		}
		n.sensing.SetComplete(false)
		n.sensing.EraseDataBuffer()
		n.mode = ModeCarrying
	}
}

func (n *Node) updatePower(charge bool) {
	powerDrainW := 0.0
	if n.mode == ModeSensing {
		powerDrainW += n.sensing.Sensor().PowerConsumedW
	}
	if n.comm.Mode() != CommFree {
		powerDrainW += n.comm.PowerDrainW()
	}
	n.power.Update(charge, n.clock, n.state.BodyFrame, n.state.OrbitFrame,
		powerDrainW, n.state.Position)
}

// PlanMeasurement queues a sensing integration starting at an absolute
// time, on behalf of informerIndex.
func (n *Node) PlanMeasurement(startS uint64, informerIndex uint16) {
	n.measurements = append(n.measurements, plannedMeasurement{
		StartS:        startS,
		InformerIndex: informerIndex,
	})
}

// SetCommBuffer replaces the comm data buffer.
func (n *Node) SetCommBuffer(buffer []byte) { n.comm.SetDataBuffer(buffer) }

// CommBuffer returns the comm data buffer.
func (n *Node) CommBuffer() []byte { return n.comm.DataBuffer() }

// AddressCommBuffer routes the comm data buffer. The buffer size selects
// the packet kind. Control packets are either fulfilled locally (when this
// node is the route's last hop) or re-queued toward the next hop; raw
// buffers are handed to the data processor. A size matching no layout is an
// invariant error.
func (n *Node) AddressCommBuffer() error {
	buffer := n.comm.DataBuffer()
	switch {
	case len(buffer) == PacketForwardSizeBytes:
		packet, err := DecodePacketForward(buffer)
		if err != nil {
			return err
		}
		n.comm.EraseDataBuffer()
		n.addressForward(packet)
	case len(buffer) == PacketReturnSizeBytes:
		packet, err := DecodePacketReturn(buffer)
		if err != nil {
			return err
		}
		n.comm.EraseDataBuffer()
		n.addressReturn(packet)
	case len(buffer) > 0 && len(buffer)%PacketRawSizeBytes == 0:
		packets, err := ReadRawBuffer(buffer)
		if err != nil {
			return err
		}
		n.comm.EraseDataBuffer()
		minList, maxList, feedback := n.processor.Compute(packets, n.index, n.clock)
		n.minSuggestions = append(n.minSuggestions, minList...)
		n.maxSuggestions = append(n.maxSuggestions, maxList...)
		n.feedback = append(n.feedback, feedback...)
	default:
		return fmt.Errorf("node %d: %w", n.index, &BadPacketSizeError{SizeBytes: len(buffer)})
	}
	return nil
}

// routePosition finds this node in a route, returning (-1, false) when it
// does not appear.
func (n *Node) routePosition(route []Transfer) (int, bool) {
	for i, transfer := range route {
		if transfer.NodeIndex == n.index {
			return i, true
		}
	}
	return -1, false
}

func (n *Node) addressForward(packet PacketForward) {
	route := packet.Route
	position, found := n.routePosition(route)
	switch {
	case !found:
		n.comm.AddCommEvent(CommunicationEvent{
			Index:    route[0].NodeIndex,
			ElapsedS: route[0].StartS,
			Payload:  packet.Encode(),
		})
	case position == len(route)-1:
		n.PlanMeasurement(packet.Event.ElapsedS, packet.FeedbackIndex)
	default:
		n.comm.AddCommEvent(CommunicationEvent{
			Index:    route[position+1].NodeIndex,
			ElapsedS: route[position+1].StartS,
			Payload:  packet.Encode(),
		})
	}
}

func (n *Node) addressReturn(packet PacketReturn) {
	route := packet.Route
	position, found := n.routePosition(route)
	switch {
	case !found:
		n.comm.AddFeedbackEvent(FeedbackEvent{
			Index:    route[0].NodeIndex,
			ElapsedS: route[0].StartS,
			Payload:  packet.Encode(),
		})
	case position == len(route)-1:
		n.processor.Regression(packet.Success, packet.OriginConstellation)
	default:
		n.comm.AddFeedbackEvent(FeedbackEvent{
			Index:    route[position+1].NodeIndex,
			ElapsedS: route[position+1].StartS,
			Payload:  packet.Encode(),
		})
	}
}

// BufferDataLog appends one telemetry row to the node's batched log
// buffer, flushing when it fills.
func (n *Node) BufferDataLog() {
	if n.logBuffer.counter == nodeLogBufferSize {
		n.FlushDataLog()
	}
	counter := n.logBuffer.counter

	mode := 0.0
	switch n.mode {
	case ModeSensing:
		mode = 1
	}
	if n.comm.Mode() == CommTransmitting {
		mode = 2
	} else if n.comm.Mode() == CommReceiving {
		mode = 3
	}

	area := 0.0
	if panels := n.power.SolarPanels(); len(panels) > 0 {
		panel := panels[0]
		panel.Update(n.state.BodyFrame, n.state.OrbitFrame, n.state.Position)
		area = panel.EffectiveAreaM2()
	}
	charging := 0.0
	if n.power.Charging() {
		charging = 1
	}

	n.logBuffer.index[counter] = float64(n.index)
	n.logBuffer.constellation[counter] = float64(n.constellation)
	n.logBuffer.mode[counter] = mode
	n.logBuffer.latitude[counter] = n.state.Geodetic.LatitudeRad
	n.logBuffer.longitude[counter] = n.state.Geodetic.LongitudeRad
	n.logBuffer.altitude[counter] = n.state.Geodetic.AltitudeM
	n.logBuffer.energy[counter] = n.power.Battery().EnergyWHr()
	n.logBuffer.charging[counter] = charging
	n.logBuffer.area[counter] = area
	n.logBuffer.numNeighbors[counter] = float64(n.numNeighbors)
	n.logBuffer.counter++
}

// FlushDataLog writes the buffered telemetry rows to the data log.
func (n *Node) FlushDataLog() {
	count := n.logBuffer.counter
	if count == 0 {
		return
	}
	firstTick := n.clock.Ticks() - uint64(count)
	series := []struct {
		name   string
		values []float64
	}{
		{"index", n.logBuffer.index[:count]},
		{"constellation", n.logBuffer.constellation[:count]},
		{"mode", n.logBuffer.mode[:count]},
		{"latitude", n.logBuffer.latitude[:count]},
		{"longitude", n.logBuffer.longitude[:count]},
		{"altitude", n.logBuffer.altitude[:count]},
		{"energy", n.logBuffer.energy[:count]},
		{"charging", n.logBuffer.charging[:count]},
		{"area", n.logBuffer.area[:count]},
		{"num_neighbors", n.logBuffer.numNeighbors[:count]},
	}
	for _, s := range series {
		n.dataLog.LogNodeParameter(n.index, s.name, firstTick, s.values)
	}
	n.logBuffer.counter = 0
}
