package rcp

import (
	"testing"
	"time"
)

func TestGetNextEventPrefersDueResend(t *testing.T) {
	now := time.Now()
	retrans := newRetransmissionTable()
	retrans.insert(1, Header{BatchNum: 1, Flags: FlagREL}, []byte("wire"), now.Add(-300*time.Millisecond))
	reservations := newReservationTable()

	ev := getNextEvent(now, retrans, reservations, now, now, 200*time.Millisecond, 5*time.Second)
	if ev.kind != eventAckResend || ev.due != 0 || ev.batch != 1 {
		t.Fatalf("got %+v, want an immediately-due resend for batch 1", ev)
	}
}

func TestGetNextEventPrefersAckTimeoutOverResend(t *testing.T) {
	now := time.Now()
	retrans := newRetransmissionTable()
	retrans.insert(1, Header{BatchNum: 1, Flags: FlagREL}, []byte("wire"), now.Add(-6*time.Second))
	reservations := newReservationTable()

	ev := getNextEvent(now, retrans, reservations, now, now, 200*time.Millisecond, 5*time.Second)
	if ev.kind != eventAckTimeout || ev.batch != 1 {
		t.Fatalf("got %+v, want an ack timeout for batch 1", ev)
	}
}

func TestGetNextEventReserveTimeoutUsesOldest(t *testing.T) {
	now := time.Now()
	retrans := newRetransmissionTable()
	reservations := newReservationTable()
	reservations.insert(3, 0, now.Add(-19*time.Second))
	reservations.insert(4, 1, now.Add(-1*time.Second))

	// Keepalive/recv-timeout deadlines are both far out, so the soon-to-
	// expire reservation on the lowest batch number should win.
	ev := getNextEvent(now, retrans, reservations, now, now, 10*time.Second, 20*time.Second)
	if ev.kind != eventReserveTimeout || ev.batch != 3 {
		t.Fatalf("got %+v, want reserve timeout on batch 3 (the oldest)", ev)
	}
}

func TestGetNextEventFallsBackToReloop(t *testing.T) {
	now := time.Now()
	retrans := newRetransmissionTable()
	reservations := newReservationTable()

	// Both keepalive and recv-timeout deadlines sit comfortably beyond
	// reloopInterval, so the reloop fallback should win.
	ev := getNextEvent(now, retrans, reservations, now, now, 2*time.Second, 10*time.Second)
	if ev.kind != eventReloop || ev.due != reloopInterval {
		t.Fatalf("got %+v, want the reloop fallback at %v", ev, reloopInterval)
	}
}

func TestGetNextEventBoundsWakeupByPendingResend(t *testing.T) {
	now := time.Now()
	retrans := newRetransmissionTable()
	retrans.insert(1, Header{BatchNum: 1, Flags: FlagREL}, []byte("wire"), now.Add(-100*time.Millisecond))
	reservations := newReservationTable()

	ev := getNextEvent(now, retrans, reservations, now, now, 200*time.Millisecond, 5*time.Second)
	if ev.kind != eventAckResend || ev.due <= 0 {
		t.Fatalf("got %+v, want a not-yet-due resend bounding the wakeup", ev)
	}
}
