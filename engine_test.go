package rcp

import (
	"testing"
	"time"
)

// TestCheckClosingDoneRequiresFinAcked guards against resetting to
// DISCONNECTED the instant CLOSING begins just because no unrelated
// reliable send happens to be outstanding. The outgoing FIN itself is
// tracked in the retransmission table under batch 0, so retrans.len()
// draining to zero must coincide with finAcked, not precede it.
func TestCheckClosingDoneRequiresFinAcked(t *testing.T) {
	s := NewSession(Options{TimeoutTotal: 2 * time.Second, TimeoutShort: 50 * time.Millisecond})
	s.state = Closing
	s.closeInitiated = true
	s.closeDeadline = time.Now().Add(time.Hour)

	header := Header{SeqNum: 1, Flags: FlagFIN}
	s.retrans.insert(0, header, EncodeHeader(header, nil), time.Now())

	s.checkClosingDoneLocked()
	if s.state != Closing {
		t.Fatal("expected session to remain CLOSING while its own FIN is unacked")
	}

	s.retrans.remove(0)
	s.checkClosingDoneLocked()
	if s.state != Closing {
		t.Fatal("expected session to remain CLOSING until finAcked is set, even with an empty retrans table")
	}

	s.finAcked = true
	s.checkClosingDoneLocked()
	if s.state != Disconnected {
		t.Fatal("expected session to reset to DISCONNECTED once its FIN is acked and retrans has drained")
	}
}

// TestCheckClosingDoneFallsBackToGraceDeadline bounds how long a
// session can sit in CLOSING if the peer's ACK of our FIN never
// arrives: the grace deadline still forces a reset.
func TestCheckClosingDoneFallsBackToGraceDeadline(t *testing.T) {
	s := NewSession(Options{TimeoutTotal: 2 * time.Second, TimeoutShort: 50 * time.Millisecond})
	s.state = Closing
	s.closeInitiated = true
	s.closeDeadline = time.Now().Add(-time.Millisecond)

	header := Header{SeqNum: 1, Flags: FlagFIN}
	s.retrans.insert(0, header, EncodeHeader(header, nil), time.Now())

	s.checkClosingDoneLocked()
	if s.state != Disconnected {
		t.Fatal("expected an elapsed grace deadline to force a reset even with an unacked FIN")
	}
}
