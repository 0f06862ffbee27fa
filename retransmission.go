package rcp

import "time"

// retransmissionEntry is an outstanding reliable packet awaiting ACK:
// its header, the fully encoded wire bytes (so resend never re-encodes),
// and the timestamps the scheduler needs.
type retransmissionEntry struct {
	header     Header
	wireBytes  []byte
	firstSent  time.Time
	lastResend time.Time
}

// retransmissionTable maps batch number to retransmissionEntry. Lookup
// is by-batch only, so an unordered map with a scan for due entries
// (ACK_RESEND / ACK_TIMEOUT) is sufficient; see DESIGN.md.
type retransmissionTable struct {
	entries map[uint32]*retransmissionEntry
}

func newRetransmissionTable() *retransmissionTable {
	return &retransmissionTable{entries: make(map[uint32]*retransmissionEntry)}
}

// insert places exactly one entry for batch; a later insert for the
// same batch before it is acked or removed would lose the earlier one.
func (t *retransmissionTable) insert(batch uint32, header Header, wireBytes []byte, now time.Time) {
	t.entries[batch] = &retransmissionEntry{
		header:     header,
		wireBytes:  wireBytes,
		firstSent:  now,
		lastResend: now,
	}
}

// remove deletes the entry for batch. It is idempotent: removing an
// absent batch (a duplicate ACK) is a no-op.
func (t *retransmissionTable) remove(batch uint32) {
	delete(t.entries, batch)
}

func (t *retransmissionTable) lookup(batch uint32) (*retransmissionEntry, bool) {
	e, ok := t.entries[batch]
	return e, ok
}

func (t *retransmissionTable) len() int { return len(t.entries) }

// dueForResend returns the batch/entry whose lastResend+timeoutShort has
// elapsed the longest ago, i.e. the most overdue resend, or ok=false if
// none are due yet.
func (t *retransmissionTable) dueForResend(now time.Time, timeoutShort time.Duration) (batch uint32, entry *retransmissionEntry, ok bool) {
	var bestOverdue time.Duration
	for b, e := range t.entries {
		due := e.lastResend.Add(timeoutShort)
		if now.Before(due) {
			continue
		}
		overdue := now.Sub(due)
		if !ok || overdue > bestOverdue {
			batch, entry, ok, bestOverdue = b, e, true, overdue
		}
	}
	return
}

// timedOut returns the batch/entry whose firstSent+timeoutTotal has
// elapsed, i.e. whose retransmission cycle has failed outright, or
// ok=false if none have exceeded the total timeout.
func (t *retransmissionTable) timedOut(now time.Time, timeoutTotal time.Duration) (batch uint32, entry *retransmissionEntry, ok bool) {
	for b, e := range t.entries {
		if !now.Before(e.firstSent.Add(timeoutTotal)) {
			return b, e, true
		}
	}
	return 0, nil, false
}

func (t *retransmissionTable) reset() {
	t.entries = make(map[uint32]*retransmissionEntry)
}
