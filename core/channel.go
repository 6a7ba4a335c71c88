package core

import (
	"math"

	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// Channel models one in-flight data transfer between a transmitter and a
// receiver node. Lifecycle: constructed idle, Start arms it, Update either
// drains the fake byte counters toward completion or breaks the link. A
// broken channel leaves the transmitter's buffer untouched.
type Channel struct {
	txNode *Node
	rxNode *Node

	dataRateBitsPerS float64
	omegaRadPerS     float64
	rxPowerW         float64
	rxGainDb         float64
	rxLosUnit        Vector
	txPowerW         float64
	txGainDb         float64
	txLosUnit        Vector
	losSpeedMPerS    float64
	distanceM        float64
	delayS           float64

	active      bool
	open        bool
	errorFlag   bool
	successFlag bool
	fakeTxBytes uint64
	fakeRxBytes uint64
	elapsedS    uint64
	requiredS   uint64
	visibility  VisibilityMode
	trace       []ChannelSample
	dataLog     DataLog
}

// minChannelGainDb is the open threshold on both ends' antenna gain.
const minChannelGainDb = 0.0001

// NewChannel binds a transmitter/receiver pair. The data rate is the
// minimum of the transmitter's TX rate and the receiver's RX rate.
func NewChannel(txNode, rxNode *Node, dataLog DataLog) *Channel {
	txRate := float64(txNode.Comm().Modem().TxRateBitsPerS)
	rxRate := float64(rxNode.Comm().Modem().RxRateBitsPerS)
	return &Channel{
		txNode:           txNode,
		rxNode:           rxNode,
		dataRateBitsPerS: math.Min(txRate, rxRate),
		visibility:       VisibilityOccluded,
		dataLog:          dataLog,
	}
}

// SetVisibilityMode switches the channel's occlusion handling; the
// scheduler uses this for its transient probe channels.
func (c *Channel) SetVisibilityMode(mode VisibilityMode) { c.visibility = mode }

// TxNode returns the transmitter.
func (c *Channel) TxNode() *Node { return c.txNode }

// RxNode returns the receiver.
func (c *Channel) RxNode() *Node { return c.rxNode }

// Open reports whether both antennas currently exceed the gain threshold
// with line of sight.
func (c *Channel) Open() bool { return c.open }

// Active reports whether a transfer has been started and not yet retired.
func (c *Channel) Active() bool { return c.active }

// Completed reports whether the transfer finished and the buffer moved.
func (c *Channel) Completed() bool { return c.successFlag }

// Broken reports whether the transfer failed.
func (c *Channel) Broken() bool { return c.errorFlag }

// DataRateBitsPerS returns the negotiated data rate.
func (c *Channel) DataRateBitsPerS() float64 { return c.dataRateBitsPerS }

// DistanceM returns the last computed TX-RX distance.
func (c *Channel) DistanceM() float64 { return c.distanceM }

// RxPowerW returns the last computed received power.
func (c *Channel) RxPowerW() float64 { return c.rxPowerW }

// FakeTxBytes returns the bytes still to drain from the transmitter.
func (c *Channel) FakeTxBytes() uint64 { return c.fakeTxBytes }

// PredictTransferDurationS returns the whole-second duration the
// transmitter's current buffer needs through this pair.
func (c *Channel) PredictTransferDurationS() uint64 {
	return c.txNode.Comm().RequiredBufferTransferDurationS()
}

// Start arms the transfer: both nodes switch to Carrying with the radios in
// Transmitting/Receiving, and the transmitter's buffer length is
// snapshotted into the fake byte counter. An empty buffer breaks the
// channel immediately.
func (c *Channel) Start() {
	c.txNode.SetMode(ModeCarrying)
	c.rxNode.SetMode(ModeCarrying)
	c.txNode.Comm().SetMode(CommTransmitting)
	c.rxNode.Comm().SetMode(CommReceiving)
	c.fakeTxBytes = uint64(len(c.txNode.Comm().DataBuffer()))
	c.fakeRxBytes = 0
	c.elapsedS = 0
	c.requiredS = c.PredictTransferDurationS()
	if c.fakeTxBytes == 0 {
		c.errorFlag = true
	}
	c.active = true
}

// Update recomputes the channel's physics for the nodes' current states
// and, when active, advances the transfer by one tick.
func (c *Channel) Update(clock timectrl.SimClock) {
	txPosition := c.txNode.State().Position
	rxPosition := c.rxNode.State().Position
	if !c.visibility.Clear() && !Visible(txPosition, rxPosition) {
		c.open = false
		if c.active {
			c.breakTransfer()
		}
		return
	}

	c.updateLosUnits()
	c.updateGains()
	c.open = c.txGainDb > minChannelGainDb && c.rxGainDb > minChannelGainDb
	c.updateDistance()
	c.updateLosSpeed()
	c.updateOmega()
	c.delayS = c.distanceM / SpeedOfLightMPerS
	c.updatePower()

	if !c.active {
		return
	}
	c.bufferTrace(clock)
	if !c.open {
		c.breakTransfer()
		return
	}
	c.elapsedS += clock.LastIncrementS()
	c.fakeTransfer(clock)
	if c.fakeTxBytes == 0 && c.elapsedS >= c.requiredS {
		c.successFlag = true
		c.realTransfer()
		c.dataLog.LogChannelTrace(c.trace)
		c.trace = nil
	}
}

func (c *Channel) breakTransfer() {
	c.errorFlag = true
	c.txNode.SetMode(ModeFree)
	c.rxNode.SetMode(ModeFree)
	c.txNode.Comm().SetMode(CommFree)
	c.rxNode.Comm().SetMode(CommFree)
}

// fakeTransfer drains lastIncrement * rate / 8 bytes, capped at what
// remains.
func (c *Channel) fakeTransfer(clock timectrl.SimClock) {
	transferred := uint64(float64(clock.LastIncrementS()) * c.dataRateBitsPerS / 8)
	if transferred > c.fakeTxBytes {
		transferred = c.fakeTxBytes
	}
	c.fakeTxBytes -= transferred
	c.fakeRxBytes += transferred
}

// realTransfer moves the transmitter's buffer to the receiver and frees
// both nodes.
func (c *Channel) realTransfer() {
	c.rxNode.SetCommBuffer(c.txNode.Comm().DataBuffer())
	c.txNode.SetMode(ModeFree)
	c.rxNode.SetMode(ModeFree)
	c.txNode.Comm().SetMode(CommFree)
	c.rxNode.Comm().SetMode(CommFree)
}

func (c *Channel) updateLosUnits() {
	txPosition := c.txNode.State().Position
	rxPosition := c.rxNode.State().Position
	c.txLosUnit = rxPosition.Sub(txPosition).Unit()
	c.rxLosUnit = txPosition.Sub(rxPosition).Unit()
}

func (c *Channel) updateGains() {
	txPosition := c.txNode.State().Position
	rxPosition := c.rxNode.State().Position
	if !c.visibility.Clear() && !Visible(rxPosition, txPosition) {
		c.txGainDb = 0
		c.rxGainDb = 0
		return
	}
	c.txGainDb = AntennaGain(c.txNode.Comm().Antenna(), c.txNode.State(),
		c.txNode.Comm().AntennaFrame(), c.txLosUnit)
	c.rxGainDb = AntennaGain(c.rxNode.Comm().Antenna(), c.rxNode.State(),
		c.rxNode.Comm().AntennaFrame(), c.rxLosUnit)
}

func (c *Channel) updateDistance() {
	c.distanceM = c.txNode.State().Position.Sub(c.rxNode.State().Position).Norm()
}

// updateLosSpeed projects the velocity difference on the TX->RX unit:
// positive means the range is opening.
func (c *Channel) updateLosSpeed() {
	difference := c.txNode.State().Velocity.Sub(c.rxNode.State().Velocity)
	c.losSpeedMPerS = difference.Dot(c.txLosUnit)
}

// updateOmega Doppler-shifts the smaller of the two modem carriers by
// (1 + v_los/c), with v_los measured TX->RX.
func (c *Channel) updateOmega() {
	omega := math.Min(c.txNode.Comm().Modem().TxOmegaRadPerS,
		c.rxNode.Comm().Modem().RxOmegaRadPerS)
	c.omegaRadPerS = omega * (1 + c.losSpeedMPerS/SpeedOfLightMPerS)
}

// updatePower evaluates the Friis equation with the gain values applied as
// direct multipliers.
func (c *Channel) updatePower() {
	c.txPowerW = c.txNode.Comm().Modem().TxRFPowerW
	lambdaM := SpeedOfLightMPerS / (c.omegaRadPerS / (2 * math.Pi))
	pathTerm := math.Pow(lambdaM/(4*math.Pi*c.distanceM), 2)
	c.rxPowerW = c.txPowerW * c.txGainDb * c.rxGainDb * pathTerm
}

func (c *Channel) bufferTrace(clock timectrl.SimClock) {
	year, month, day, hour, minute, second, microsecond := timectrl.Breakdown(clock.Now())
	txGeodetic := c.txNode.State().Geodetic
	rxGeodetic := c.rxNode.State().Geodetic
	c.trace = append(c.trace, ChannelSample{
		Tick:             clock.Ticks(),
		Year:             year,
		Month:            month,
		Day:              day,
		Hour:             hour,
		Minute:           minute,
		Second:           second,
		Microsecond:      microsecond,
		LosSpeedMPerS:    c.losSpeedMPerS,
		OmegaRadPerS:     c.omegaRadPerS,
		DistanceM:        c.distanceM,
		DelayS:           c.delayS,
		DataRateBitsPerS: c.dataRateBitsPerS,
		TxIndex:          c.txNode.Index(),
		TxBufferBytes:    c.fakeTxBytes,
		TxLatitudeRad:    txGeodetic.LatitudeRad,
		TxLongitudeRad:   txGeodetic.LongitudeRad,
		TxAltitudeM:      txGeodetic.AltitudeM,
		TxGainDb:         c.txGainDb,
		TxPowerW:         c.txPowerW,
		RxIndex:          c.rxNode.Index(),
		RxBufferBytes:    c.fakeRxBytes,
		RxLatitudeRad:    rxGeodetic.LatitudeRad,
		RxLongitudeRad:   rxGeodetic.LongitudeRad,
		RxAltitudeM:      rxGeodetic.AltitudeM,
		RxGainDb:         c.rxGainDb,
		RxPowerW:         c.rxPowerW,
	})
}
