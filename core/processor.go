package core

import (
	"strings"

	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// Feedback is one sink verdict: whether the middle sample passed the sink's
// threshold test (rain above, optical depth below), and the node the
// verdict should return to.
type Feedback struct {
	Success     bool
	OriginIndex uint16
}

// DataProcessor turns a finished integration into routing suggestions, and
// adapts to feedback. The scheduler treats implementations as opaque: it
// only observes the lists they emit.
type DataProcessor interface {
	// Compute consumes the raw measurement packets of one integration and
	// returns suggested minimum locations, suggested maximum locations,
	// and feedback verdicts.
	Compute(rawPackets []PacketRaw, sourceIndex uint16, clock timectrl.SimClock) (minList, maxList []Geodetic, feedback []Feedback)
	// Regression is invoked on the original informer when a return packet
	// arrives.
	Regression(success bool, constellation uint16)
}

// DataProcessorTemplate ignores everything. Nodes that neither suggest
// targets nor act on feedback use it.
type DataProcessorTemplate struct{}

// Compute implements DataProcessor.
func (DataProcessorTemplate) Compute([]PacketRaw, uint16, timectrl.SimClock) ([]Geodetic, []Geodetic, []Feedback) {
	return nil, nil, nil
}

// Regression implements DataProcessor.
func (DataProcessorTemplate) Regression(bool, uint16) {}

// DataProcessorSource runs on informer nodes. It thresholds the optical and
// rain magnitudes of an integration, takes the longest contiguous run below
// the optical threshold and the longest at or above the rain threshold, and
// recommends an eighth of each run's length in samples, fanned out around
// the point one eighth of the way into the run, as interesting
// minima/maxima. Feedback adapts the rain threshold by a
// geometrically decaying step.
type DataProcessorSource struct {
	regressionStep float64
	thresholdRain  float64
	visibility     VisibilityMode
}

// NewDataProcessorSource constructs a source processor in the default
// occluded mode.
func NewDataProcessorSource() *DataProcessorSource {
	return NewDataProcessorSourceWithVisibility(VisibilityOccluded)
}

// NewDataProcessorSourceWithVisibility constructs a source processor. In
// VisibilityClear mode Compute degenerates to recommending the first sample
// of the integration as both minimum and maximum.
func NewDataProcessorSourceWithVisibility(visibility VisibilityMode) *DataProcessorSource {
	return &DataProcessorSource{
		regressionStep: 30,
		thresholdRain:  70,
		visibility:     visibility,
	}
}

// ThresholdRain exposes the adaptive rain threshold for tests.
func (p *DataProcessorSource) ThresholdRain() float64 { return p.thresholdRain }

// Compute implements DataProcessor.
func (p *DataProcessorSource) Compute(rawPackets []PacketRaw, sourceIndex uint16, clock timectrl.SimClock) ([]Geodetic, []Geodetic, []Feedback) {
	if len(rawPackets) == 0 {
		return nil, nil, nil
	}
	if p.visibility.Clear() {
		first := Geodetic{
			LatitudeRad:  rawPackets[0].LatitudeRad,
			LongitudeRad: rawPackets[0].LongitudeRad,
			AltitudeM:    rawPackets[0].AltitudeM,
		}
		return []Geodetic{first}, []Geodetic{first}, nil
	}

	const opticalThreshold = 0.1
	minList := middleEighth(rawPackets, longestRun(rawPackets, func(m float64) bool {
		return m < opticalThreshold
	}))
	maxList := middleEighth(rawPackets, longestRun(rawPackets, func(m float64) bool {
		return m >= p.thresholdRain
	}))
	return minList, maxList, nil
}

// Regression implements DataProcessor: feedback from the rain constellation
// moves the threshold toward the regime that produced it, with a step that
// decays by eight percent per verdict.
func (p *DataProcessorSource) Regression(success bool, constellation uint16) {
	if constellation != 1 {
		return
	}
	if success {
		p.thresholdRain -= p.regressionStep
	} else {
		p.thresholdRain += p.regressionStep
	}
	p.regressionStep *= 0.92
}

// run is a half-open index range [start, start+length) of packets.
type run struct {
	start  int
	length int
}

// longestRun returns the longest contiguous run of packets whose
// measurement satisfies the predicate.
func longestRun(packets []PacketRaw, match func(measurement float64) bool) run {
	var best, current run
	inRun := false
	for i, packet := range packets {
		if match(packet.Measurement) {
			if !inRun {
				current = run{start: i, length: 1}
				inRun = true
			} else {
				current.length++
			}
			continue
		}
		if inRun {
			inRun = false
			if current.length > best.length {
				best = current
			}
		}
	}
	if inRun && current.length > best.length {
		best = current
	}
	return best
}

// middleEighth sub-samples an eighth of a run, emitted as pairs that fan
// outward from the run's one-eighth point.
func middleEighth(packets []PacketRaw, r run) []Geodetic {
	if r.length == 0 {
		return nil
	}
	section := packets[r.start : r.start+r.length]
	eighth := len(section) / 8
	var list []Geodetic
	for i := 0; i < eighth; i++ {
		for _, j := range []int{eighth - i, eighth + i} {
			packet := section[j]
			list = append(list, Geodetic{
				LatitudeRad:  packet.LatitudeRad,
				LongitudeRad: packet.LongitudeRad,
				AltitudeM:    packet.AltitudeM,
			})
		}
	}
	return list
}

// DataProcessorSink runs on sink nodes. It thresholds the middle sample of
// an integration and emits one verdict addressed to the informer recorded
// in that sample.
type DataProcessorSink struct{}

// NewDataProcessorSink constructs a sink processor.
func NewDataProcessorSink() *DataProcessorSink { return &DataProcessorSink{} }

// Compute implements DataProcessor.
func (DataProcessorSink) Compute(rawPackets []PacketRaw, sourceIndex uint16, clock timectrl.SimClock) ([]Geodetic, []Geodetic, []Feedback) {
	if len(rawPackets) == 0 {
		return nil, nil, nil
	}
	const (
		rainThreshold    = 0.000005
		opticalThreshold = 1
	)
	middle := rawPackets[len(rawPackets)/2]
	isRain := strings.Contains(middle.Name, "PRECTOT")
	success := (isRain && middle.Measurement > rainThreshold) ||
		(!isRain && middle.Measurement < opticalThreshold)
	return nil, nil, []Feedback{{Success: success, OriginIndex: middle.InformerIndex}}
}

// Regression implements DataProcessor.
func (DataProcessorSink) Regression(bool, uint16) {}
