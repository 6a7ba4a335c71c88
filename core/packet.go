package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Packet wire sizes. The buffer length is what disambiguates the three
// packet kinds on receipt, so these are hard contracts.
const (
	PacketForwardSizeBytes = 312
	PacketReturnSizeBytes  = 303
	PacketRawSizeBytes     = 108

	// MaxRouteTransfers is the fixed route capacity of control packets.
	MaxRouteTransfers = 30

	bytesPerTransfer = 10
	rawNameSizeBytes = 30
)

// NoNodeIndex marks an unused route slot and a node with no outbound
// target.
const NoNodeIndex = uint16(math.MaxUint16)

const noStartS = uint64(math.MaxUint64)

// BadPacketSizeError is returned at the decode boundary when a buffer
// length matches no packet kind.
type BadPacketSizeError struct {
	SizeBytes int
}

func (e *BadPacketSizeError) Error() string {
	return fmt.Sprintf("buffer of %d bytes matches no packet layout", e.SizeBytes)
}

// Transfer is one hop of a store-and-forward route: the receiving node and
// the absolute second at which the hop's contact window starts.
type Transfer struct {
	NodeIndex uint16
	StartS    uint64
}

// SensingEvent instructs a visitor to measure at an absolute time.
type SensingEvent struct {
	TargetIndex uint16
	ElapsedS    uint64
}

// PacketForward is a source-to-visitor instruction to perform a measurement
// at a specific absolute time, carried along a precomputed route.
type PacketForward struct {
	Route         []Transfer
	Event         SensingEvent
	FeedbackIndex uint16
}

// Encode serialises the packet into its 312-byte wire form. Routes longer
// than the fixed capacity are a programmer bug.
func (p PacketForward) Encode() []byte {
	buf := make([]byte, 0, PacketForwardSizeBytes)
	buf = encodeRoute(buf, p.Route)
	buf = binary.LittleEndian.AppendUint16(buf, p.Event.TargetIndex)
	buf = binary.LittleEndian.AppendUint64(buf, p.Event.ElapsedS)
	buf = binary.LittleEndian.AppendUint16(buf, p.FeedbackIndex)
	return buf
}

// DecodePacketForward parses a 312-byte buffer.
func DecodePacketForward(payload []byte) (PacketForward, error) {
	if len(payload) != PacketForwardSizeBytes {
		return PacketForward{}, &BadPacketSizeError{SizeBytes: len(payload)}
	}
	return PacketForward{
		Route: decodeRoute(payload),
		Event: SensingEvent{
			TargetIndex: binary.LittleEndian.Uint16(payload[300:302]),
			ElapsedS:    binary.LittleEndian.Uint64(payload[302:310]),
		},
		FeedbackIndex: binary.LittleEndian.Uint16(payload[310:312]),
	}, nil
}

// PacketReturn is sink-to-source feedback carrying a success flag and the
// sink's constellation.
type PacketReturn struct {
	Route               []Transfer
	Success             bool
	OriginConstellation uint16
}

// Encode serialises the packet into its 303-byte wire form.
func (p PacketReturn) Encode() []byte {
	buf := make([]byte, 0, PacketReturnSizeBytes)
	buf = encodeRoute(buf, p.Route)
	if p.Success {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint16(buf, p.OriginConstellation)
	return buf
}

// DecodePacketReturn parses a 303-byte buffer.
func DecodePacketReturn(payload []byte) (PacketReturn, error) {
	if len(payload) != PacketReturnSizeBytes {
		return PacketReturn{}, &BadPacketSizeError{SizeBytes: len(payload)}
	}
	return PacketReturn{
		Route:               decodeRoute(payload),
		Success:             payload[300] != 0,
		OriginConstellation: binary.LittleEndian.Uint16(payload[301:303]),
	}, nil
}

func encodeRoute(buf []byte, route []Transfer) []byte {
	for _, transfer := range route {
		buf = binary.LittleEndian.AppendUint16(buf, transfer.NodeIndex)
		buf = binary.LittleEndian.AppendUint64(buf, transfer.StartS)
	}
	for i := len(route); i < MaxRouteTransfers; i++ {
		buf = binary.LittleEndian.AppendUint16(buf, NoNodeIndex)
		buf = binary.LittleEndian.AppendUint64(buf, noStartS)
	}
	return buf
}

// decodeRoute returns the route up to (not including) the first sentinel.
func decodeRoute(payload []byte) []Transfer {
	var route []Transfer
	for i := 0; i < MaxRouteTransfers; i++ {
		offset := i * bytesPerTransfer
		index := binary.LittleEndian.Uint16(payload[offset : offset+2])
		if index == NoNodeIndex {
			break
		}
		route = append(route, Transfer{
			NodeIndex: index,
			StartS:    binary.LittleEndian.Uint64(payload[offset+2 : offset+10]),
		})
	}
	return route
}

// PacketRaw is one scalar Earth-surface measurement with its timestamp and
// geodetic coordinates. Name is exactly 30 bytes, right-padded with spaces.
type PacketRaw struct {
	ElapsedS      uint64
	Year          int32
	Month         int32
	Day           int32
	Hour          int32
	Minute        int32
	Second        int32
	Microsecond   int32
	LatitudeRad   float64
	LongitudeRad  float64
	AltitudeM     float64
	Measurement   float64
	ResolutionM   float64
	Name          string
	InformerIndex uint16
}

// PadVariableName right-pads a variable name with spaces to the fixed wire
// width.
func PadVariableName(name string) string {
	if len(name) >= rawNameSizeBytes {
		return name[:rawNameSizeBytes]
	}
	return name + strings.Repeat(" ", rawNameSizeBytes-len(name))
}

// Encode serialises the measurement into its 108-byte wire form.
func (p PacketRaw) Encode() []byte {
	buf := make([]byte, 0, PacketRawSizeBytes)
	buf = binary.LittleEndian.AppendUint64(buf, p.ElapsedS)
	for _, field := range []int32{p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second, p.Microsecond} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(field))
	}
	for _, field := range []float64{p.LatitudeRad, p.LongitudeRad, p.AltitudeM, p.Measurement, p.ResolutionM} {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(field))
	}
	buf = append(buf, PadVariableName(p.Name)...)
	buf = binary.LittleEndian.AppendUint16(buf, p.InformerIndex)
	return buf
}

// DecodePacketRaw parses a 108-byte buffer.
func DecodePacketRaw(payload []byte) (PacketRaw, error) {
	if len(payload) != PacketRawSizeBytes {
		return PacketRaw{}, &BadPacketSizeError{SizeBytes: len(payload)}
	}
	packet := PacketRaw{
		ElapsedS:      binary.LittleEndian.Uint64(payload[0:8]),
		Year:          int32(binary.LittleEndian.Uint32(payload[8:12])),
		Month:         int32(binary.LittleEndian.Uint32(payload[12:16])),
		Day:           int32(binary.LittleEndian.Uint32(payload[16:20])),
		Hour:          int32(binary.LittleEndian.Uint32(payload[20:24])),
		Minute:        int32(binary.LittleEndian.Uint32(payload[24:28])),
		Second:        int32(binary.LittleEndian.Uint32(payload[28:32])),
		Microsecond:   int32(binary.LittleEndian.Uint32(payload[32:36])),
		LatitudeRad:   math.Float64frombits(binary.LittleEndian.Uint64(payload[36:44])),
		LongitudeRad:  math.Float64frombits(binary.LittleEndian.Uint64(payload[44:52])),
		AltitudeM:     math.Float64frombits(binary.LittleEndian.Uint64(payload[52:60])),
		Measurement:   math.Float64frombits(binary.LittleEndian.Uint64(payload[60:68])),
		ResolutionM:   math.Float64frombits(binary.LittleEndian.Uint64(payload[68:76])),
		Name:          string(payload[76:106]),
		InformerIndex: binary.LittleEndian.Uint16(payload[106:108]),
	}
	return packet, nil
}

// ReadRawBuffer splits a node data buffer into its raw measurement records.
// A length that is not a multiple of the record size is an invariant error
// surfaced to the caller.
func ReadRawBuffer(buffer []byte) ([]PacketRaw, error) {
	if len(buffer)%PacketRawSizeBytes != 0 {
		return nil, &BadPacketSizeError{SizeBytes: len(buffer)}
	}
	packets := make([]PacketRaw, 0, len(buffer)/PacketRawSizeBytes)
	for offset := 0; offset < len(buffer); offset += PacketRawSizeBytes {
		packet, err := DecodePacketRaw(buffer[offset : offset+PacketRawSizeBytes])
		if err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}
	return packets, nil
}

// ReadControlBuffer splits a buffer into its forward packets.
func ReadControlBuffer(buffer []byte) ([]PacketForward, error) {
	if len(buffer)%PacketForwardSizeBytes != 0 {
		return nil, &BadPacketSizeError{SizeBytes: len(buffer)}
	}
	packets := make([]PacketForward, 0, len(buffer)/PacketForwardSizeBytes)
	for offset := 0; offset < len(buffer); offset += PacketForwardSizeBytes {
		packet, err := DecodePacketForward(buffer[offset : offset+PacketForwardSizeBytes])
		if err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}
	return packets, nil
}

// RouteString renders a route as N<start>>N<a>>N<b> for event logging.
func RouteString(startIndex uint16, route []Transfer) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "N%d", startIndex)
	for _, transfer := range route {
		fmt.Fprintf(&builder, ">N%d", transfer.NodeIndex)
	}
	return builder.String()
}
