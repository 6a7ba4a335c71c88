package core

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestForwardRoundTrip(t *testing.T) {
	packet := PacketForward{
		Route: []Transfer{
			{NodeIndex: 3, StartS: 120},
			{NodeIndex: 9, StartS: 480},
			{NodeIndex: 1, StartS: 900},
		},
		Event:         SensingEvent{TargetIndex: 1, ElapsedS: 1500},
		FeedbackIndex: 3,
	}
	payload := packet.Encode()
	if len(payload) != PacketForwardSizeBytes {
		t.Fatalf("encoded %d bytes, want %d", len(payload), PacketForwardSizeBytes)
	}
	decoded, err := DecodePacketForward(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Route) != 3 {
		t.Fatalf("decoded %d transfers, want 3", len(decoded.Route))
	}
	for i, transfer := range packet.Route {
		if decoded.Route[i] != transfer {
			t.Errorf("route[%d] = %+v, want %+v", i, decoded.Route[i], transfer)
		}
	}
	if decoded.Event != packet.Event {
		t.Errorf("event = %+v, want %+v", decoded.Event, packet.Event)
	}
	if decoded.FeedbackIndex != packet.FeedbackIndex {
		t.Errorf("feedback = %d, want %d", decoded.FeedbackIndex, packet.FeedbackIndex)
	}
}

func TestForwardSentinelTail(t *testing.T) {
	packet := PacketForward{Route: []Transfer{{NodeIndex: 5, StartS: 10}}}
	payload := packet.Encode()
	// Slots past the route must carry the sentinel pair.
	for slot := 1; slot < MaxRouteTransfers; slot++ {
		offset := slot * bytesPerTransfer
		if binary.LittleEndian.Uint16(payload[offset:offset+2]) != NoNodeIndex {
			t.Fatalf("slot %d index not sentinel", slot)
		}
		if binary.LittleEndian.Uint64(payload[offset+2:offset+10]) != noStartS {
			t.Fatalf("slot %d start not sentinel", slot)
		}
	}
}

func TestFullRouteRoundTrip(t *testing.T) {
	var route []Transfer
	for i := 0; i < MaxRouteTransfers; i++ {
		route = append(route, Transfer{NodeIndex: uint16(i), StartS: uint64(i) * 7})
	}
	decoded, err := DecodePacketForward(PacketForward{Route: route}.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Route) != MaxRouteTransfers {
		t.Fatalf("decoded %d transfers, want %d", len(decoded.Route), MaxRouteTransfers)
	}
}

func TestReturnRoundTrip(t *testing.T) {
	for _, success := range []bool{true, false} {
		packet := PacketReturn{
			Route:               []Transfer{{NodeIndex: 2, StartS: 55}, {NodeIndex: 0, StartS: 99}},
			Success:             success,
			OriginConstellation: 1,
		}
		payload := packet.Encode()
		if len(payload) != PacketReturnSizeBytes {
			t.Fatalf("encoded %d bytes, want %d", len(payload), PacketReturnSizeBytes)
		}
		decoded, err := DecodePacketReturn(payload)
		if err != nil {
			t.Fatal(err)
		}
		if decoded.Success != success || decoded.OriginConstellation != 1 {
			t.Errorf("decoded = %+v", decoded)
		}
		if len(decoded.Route) != 2 || decoded.Route[1].StartS != 99 {
			t.Errorf("route = %+v", decoded.Route)
		}
	}
}

func TestRawRoundTrip(t *testing.T) {
	packet := PacketRaw{
		ElapsedS:      1234,
		Year:          2021,
		Month:         3,
		Day:           1,
		Hour:          12,
		Minute:        34,
		Second:        56,
		Microsecond:   789,
		LatitudeRad:   0.5,
		LongitudeRad:  -1.25,
		AltitudeM:     12.5,
		Measurement:   98.76,
		ResolutionM:   0,
		Name:          PadVariableName("PRECTOT"),
		InformerIndex: 17,
	}
	payload := packet.Encode()
	if len(payload) != PacketRawSizeBytes {
		t.Fatalf("encoded %d bytes, want %d", len(payload), PacketRawSizeBytes)
	}
	decoded, err := DecodePacketRaw(payload)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != packet {
		t.Errorf("decoded = %+v, want %+v", decoded, packet)
	}
	if len(decoded.Name) != 30 {
		t.Errorf("name length = %d, want 30", len(decoded.Name))
	}
}

func TestBadPacketSizes(t *testing.T) {
	var badSize *BadPacketSizeError
	if _, err := DecodePacketForward(make([]byte, 311)); !errors.As(err, &badSize) {
		t.Errorf("forward decode: err = %v, want BadPacketSizeError", err)
	}
	if _, err := DecodePacketReturn(make([]byte, 312)); !errors.As(err, &badSize) {
		t.Errorf("return decode: err = %v, want BadPacketSizeError", err)
	}
	if _, err := ReadRawBuffer(make([]byte, 107)); !errors.As(err, &badSize) {
		t.Errorf("raw buffer: err = %v, want BadPacketSizeError", err)
	}
}

func TestReadRawBufferSplitsRecords(t *testing.T) {
	var buffer []byte
	for i := 0; i < 10; i++ {
		buffer = append(buffer, PacketRaw{
			ElapsedS: uint64(i),
			Name:     PadVariableName("TAUTOT"),
		}.Encode()...)
	}
	packets, err := ReadRawBuffer(buffer)
	if err != nil {
		t.Fatal(err)
	}
	if len(packets) != 10 {
		t.Fatalf("split into %d packets, want 10", len(packets))
	}
	for i, packet := range packets {
		if packet.ElapsedS != uint64(i) {
			t.Errorf("packet %d elapsed = %d", i, packet.ElapsedS)
		}
	}
}

func TestRouteString(t *testing.T) {
	route := []Transfer{{NodeIndex: 4}, {NodeIndex: 9}}
	if got := RouteString(1, route); got != "N1>N4>N9" {
		t.Errorf("RouteString = %q", got)
	}
}
