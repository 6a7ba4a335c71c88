package core

import "testing"

func TestRequiredTransferDurationS(t *testing.T) {
	antenna := NewAntennaIsotropic(30)
	comm := NewSubsystemComm(antenna, NewModemUhfDeploy())
	cases := []struct {
		sizeBytes uint64
		want      uint64
	}{
		{0, 3},
		{1080, 4},    // ceil(1080*8/9600) + 3
		{1200, 4},    // exactly one second of payload
		{1201, 5},    // just over one second
		{12000, 13},  // ten seconds
		{312, 4},     // one forward packet
	}
	for _, tc := range cases {
		if got := comm.RequiredTransferDurationS(tc.sizeBytes); got != tc.want {
			t.Errorf("RequiredTransferDurationS(%d) = %d, want %d", tc.sizeBytes, got, tc.want)
		}
	}
}

func TestRequiredTransferDurationAsymmetricRates(t *testing.T) {
	// The station modem transmits at 3 Mbit/s but still receives at 9600;
	// the slower direction dominates.
	antenna := NewAntennaIsotropic(30)
	comm := NewSubsystemComm(antenna, NewModemUhfStation())
	if got := comm.RequiredTransferDurationS(1200); got != 4 {
		t.Errorf("RequiredTransferDurationS(1200) = %d, want 4", got)
	}
}

func TestOutboxDrainRespectsMaturity(t *testing.T) {
	clock := newTestClock()
	comm := NewSubsystemComm(NewAntennaIsotropic(30), NewModemUhfDeploy())
	comm.AddCommEvent(CommunicationEvent{Index: 7, ElapsedS: 100, Payload: []byte{1}})

	if got := comm.Update(clock); got != NoNodeIndex {
		t.Fatalf("immature event drained: target = %d", got)
	}
	clock.Tick(101)
	if got := comm.Update(clock); got != 7 {
		t.Fatalf("mature event not drained: target = %d", got)
	}
	if comm.PendingEvents() != 0 {
		t.Errorf("event left in outbox")
	}
	if len(comm.DataBuffer()) != 1 {
		t.Errorf("payload not loaded into the data buffer")
	}
}

func TestOutboxForwardEventsDrainBeforeFeedback(t *testing.T) {
	clock := newTestClock()
	clock.Tick(500)
	comm := NewSubsystemComm(NewAntennaIsotropic(30), NewModemUhfDeploy())
	comm.AddFeedbackEvent(FeedbackEvent{Index: 2, ElapsedS: 0, Payload: []byte{2}})
	comm.AddCommEvent(CommunicationEvent{Index: 1, ElapsedS: 0, Payload: []byte{1}})

	if got := comm.Update(clock); got != 1 {
		t.Fatalf("first drain target = %d, want forward event recipient 1", got)
	}
	if got := comm.Update(clock); got != 2 {
		t.Fatalf("second drain target = %d, want feedback recipient 2", got)
	}
}

func TestOutboxDrainsOneEventPerUpdate(t *testing.T) {
	clock := newTestClock()
	clock.Tick(500)
	comm := NewSubsystemComm(NewAntennaIsotropic(30), NewModemUhfDeploy())
	comm.AddCommEvent(CommunicationEvent{Index: 1, ElapsedS: 0, Payload: []byte{1}})
	comm.AddCommEvent(CommunicationEvent{Index: 2, ElapsedS: 0, Payload: []byte{2}})

	comm.Update(clock)
	if comm.PendingEvents() != 1 {
		t.Errorf("pending = %d after one drain, want 1", comm.PendingEvents())
	}
}

func TestPowerDrainByMode(t *testing.T) {
	comm := NewSubsystemComm(NewAntennaIsotropic(30), NewModemUhfDeploy())
	if got := comm.PowerDrainW(); got != 0 {
		t.Errorf("free drain = %v", got)
	}
	comm.SetMode(CommTransmitting)
	if got := comm.PowerDrainW(); got != 12 {
		t.Errorf("transmit drain = %v", got)
	}
	comm.SetMode(CommReceiving)
	if got := comm.PowerDrainW(); got != 0.3 {
		t.Errorf("receive drain = %v", got)
	}
}
