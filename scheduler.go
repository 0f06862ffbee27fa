package rcp

import "time"

// schedEvent is the result of getNextEvent: which kind of event is due
// soonest, how long until it fires (zero means already due), and an
// argument the dispatcher needs to act on it.
type schedEvent struct {
	kind     eventKind
	due      time.Duration
	batch    uint32 // meaningful for a due eventAckResend / eventAckTimeout, and eventReserveTimeout
	resendAt *retransmissionEntry
}

// getNextEvent computes the earliest of the six scheduler events
// (ACK_RESEND, ACK_TIMEOUT, RECV_TIMEOUT, KEEPALIVE, RESERVE_TIMEOUT,
// RELOOP) given the session's current tables and timestamps. now is
// passed in rather than read via time.Now so the function stays easy
// to test.
func getNextEvent(
	now time.Time,
	retrans *retransmissionTable,
	reservations *reservationTable,
	timeLastSend, timeLastReceived time.Time,
	timeoutShort, timeoutTotal time.Duration,
) schedEvent {
	best := schedEvent{kind: eventReloop, due: reloopInterval}

	// RELOOP is only a fallback: any real event due at the same time
	// replaces it.
	consider := func(ev schedEvent) {
		if ev.due < best.due || (best.kind == eventReloop && ev.due == best.due) {
			best = ev
		}
	}

	// Checked before ACK_RESEND: when a batch is simultaneously due for a
	// resend and past its total timeout, the session failure takes
	// priority over yet another resend.
	if batch, entry, ok := retrans.timedOut(now, timeoutTotal); ok {
		consider(schedEvent{kind: eventAckTimeout, due: 0, batch: batch, resendAt: entry})
	} else if d, ok := soonestAckTimeout(now, retrans, timeoutTotal); ok {
		consider(schedEvent{kind: eventAckTimeout, due: d})
	}

	if batch, entry, ok := retrans.dueForResend(now, timeoutShort); ok {
		consider(schedEvent{kind: eventAckResend, due: 0, batch: batch, resendAt: entry})
	} else if d, ok := soonestResend(now, retrans, timeoutShort); ok {
		// Not due yet; still bounds how soon we must wake to check again.
		consider(schedEvent{kind: eventAckResend, due: d})
	}

	consider(schedEvent{kind: eventRecvTimeout, due: zeroOrUntil(now, timeLastReceived.Add(timeoutTotal))})
	consider(schedEvent{kind: eventKeepalive, due: zeroOrUntil(now, timeLastSend.Add(timeoutShort))})

	if batch, entry, ok := reservations.oldest(); ok {
		due := zeroOrUntil(now, entry.created.Add(timeoutTotal))
		consider(schedEvent{kind: eventReserveTimeout, due: due, batch: batch})
	}

	return best
}

func zeroOrUntil(now, deadline time.Time) time.Duration {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func soonestResend(now time.Time, t *retransmissionTable, timeoutShort time.Duration) (time.Duration, bool) {
	var best time.Duration
	found := false
	for _, e := range t.entries {
		d := zeroOrUntil(now, e.lastResend.Add(timeoutShort))
		if !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}

func soonestAckTimeout(now time.Time, t *retransmissionTable, timeoutTotal time.Duration) (time.Duration, bool) {
	var best time.Duration
	found := false
	for _, e := range t.entries {
		d := zeroOrUntil(now, e.firstSent.Add(timeoutTotal))
		if !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}
