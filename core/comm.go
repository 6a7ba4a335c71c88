package core

import (
	"math"

	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// CommMode is the communication subsystem's radio state.
type CommMode int

const (
	CommFree CommMode = iota
	CommTransmitting
	CommReceiving
)

// CommunicationEvent is a queued forward packet waiting in a node's outbox
// until its earliest start time has passed.
type CommunicationEvent struct {
	Index    uint16 // recipient node
	ElapsedS uint64 // earliest dispatch time, absolute seconds
	Payload  []byte
}

// FeedbackEvent is a queued return packet; kept separate from forward
// events so pending measurements drain first.
type FeedbackEvent struct {
	Index    uint16
	ElapsedS uint64
	Payload  []byte
}

// SubsystemComm is a node's communications subsystem: one antenna, one
// modem, an outbox of pending events, and the live data buffer.
type SubsystemComm struct {
	antenna Antenna
	modem   *Modem

	antennaFrame    ReferenceFrame
	mode            CommMode
	storage         []CommunicationEvent
	feedbackStorage []FeedbackEvent
	dataBuffer      []byte
}

// NewSubsystemComm assembles a comm subsystem around shared antenna and
// modem constants.
func NewSubsystemComm(antenna Antenna, modem *Modem) SubsystemComm {
	return SubsystemComm{
		antenna: antenna,
		modem:   modem,
		antennaFrame: NewReferenceFrame(antenna.MountRollRad(),
			antenna.MountPitchRad(), antenna.MountYawRad()),
	}
}

// instance returns a per-node copy with empty queues and buffer. The
// antenna and modem constants stay shared.
func (c SubsystemComm) instance() SubsystemComm {
	c.storage = nil
	c.feedbackStorage = nil
	c.dataBuffer = nil
	c.mode = CommFree
	return c
}

// Antenna returns the shared antenna constants.
func (c *SubsystemComm) Antenna() Antenna { return c.antenna }

// Modem returns the shared modem constants.
func (c *SubsystemComm) Modem() *Modem { return c.modem }

// AntennaFrame returns the comm antenna's current reference frame.
func (c *SubsystemComm) AntennaFrame() ReferenceFrame { return c.antennaFrame }

// Mode returns the radio state.
func (c *SubsystemComm) Mode() CommMode { return c.mode }

// SetMode switches the radio state.
func (c *SubsystemComm) SetMode(mode CommMode) { c.mode = mode }

// DataBuffer returns the live data buffer.
func (c *SubsystemComm) DataBuffer() []byte { return c.dataBuffer }

// SetDataBuffer replaces the live data buffer.
func (c *SubsystemComm) SetDataBuffer(buffer []byte) { c.dataBuffer = buffer }

// EraseDataBuffer clears the live data buffer.
func (c *SubsystemComm) EraseDataBuffer() { c.dataBuffer = nil }

// LoadData appends payload bytes to the data buffer.
func (c *SubsystemComm) LoadData(payload []byte) {
	c.dataBuffer = append(c.dataBuffer, payload...)
}

// AddCommEvent queues a forward packet in the outbox.
func (c *SubsystemComm) AddCommEvent(event CommunicationEvent) {
	c.storage = append(c.storage, event)
}

// AddFeedbackEvent queues a return packet in the outbox.
func (c *SubsystemComm) AddFeedbackEvent(event FeedbackEvent) {
	c.feedbackStorage = append(c.feedbackStorage, event)
}

// PendingEvents returns the number of queued events of both kinds.
func (c *SubsystemComm) PendingEvents() int {
	return len(c.storage) + len(c.feedbackStorage)
}

// Update drains the outbox: the first queued event whose earliest start has
// passed is removed, its payload becomes the data buffer, and the
// recipient's index is returned. NoNodeIndex means nothing matured.
func (c *SubsystemComm) Update(clock timectrl.SimClock) uint16 {
	targetIndex := NoNodeIndex
	for i, event := range c.storage {
		if clock.ElapsedS() > event.ElapsedS {
			targetIndex = event.Index
			c.dataBuffer = event.Payload
			c.storage = append(c.storage[:i], c.storage[i+1:]...)
			return targetIndex
		}
	}
	for i, event := range c.feedbackStorage {
		if clock.ElapsedS() > event.ElapsedS {
			targetIndex = event.Index
			c.dataBuffer = event.Payload
			c.feedbackStorage = append(c.feedbackStorage[:i], c.feedbackStorage[i+1:]...)
			return targetIndex
		}
	}
	return targetIndex
}

// RequiredTransferDurationS returns the whole-second duration needed to
// move sizeBytes through this modem pair:
// ceil(max(bits/txRate, bits/rxRate)) plus a fixed three-second guard.
func (c *SubsystemComm) RequiredTransferDurationS(sizeBytes uint64) uint64 {
	bits := float64(sizeBytes) * 8
	txSeconds := bits / float64(c.modem.TxRateBitsPerS)
	rxSeconds := bits / float64(c.modem.RxRateBitsPerS)
	return uint64(math.Ceil(math.Max(txSeconds, rxSeconds))) + 3
}

// RequiredBufferTransferDurationS is RequiredTransferDurationS applied to
// the current data buffer.
func (c *SubsystemComm) RequiredBufferTransferDurationS() uint64 {
	return c.RequiredTransferDurationS(uint64(len(c.dataBuffer)))
}

// PowerDrainW returns the modem draw for the current radio state.
func (c *SubsystemComm) PowerDrainW() float64 {
	switch c.mode {
	case CommTransmitting:
		return c.modem.TxConsumedPowerW
	case CommReceiving:
		return c.modem.RxConsumedPowerW
	default:
		return 0
	}
}

// OrientAntenna re-derives the antenna frame through the orbit and body
// frames.
func (c *SubsystemComm) OrientAntenna(orbitFrame, bodyFrame ReferenceFrame) {
	c.antennaFrame.Update2(orbitFrame, bodyFrame)
}
