package rcp

import "time"

// slot is one entry of the delivery queue: either reserved (batch number
// and creation time recorded, no payload yet) or committed (payload
// ready for delivery).
type slot struct {
	committed bool
	abandoned bool // reservation timed out; skip silently, never deliver
	reliable  bool
	batch     uint32 // meaningful only while !committed
	created   time.Time
	payload   []byte
}

// deliveryQueue is the reserved-slot, random-access delivery queue: a
// FIFO that admits packets in arrival order but only releases them to
// Receive in commitment order. It is a plain slice-backed ring with a
// front offset, the Go equivalent of the original's
// std::deque-backed random_access_queue.
type deliveryQueue struct {
	slots []slot
	front int // index of the logical front within slots
}

func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{}
}

// len reports the number of slots currently queued (reserved or
// committed).
func (q *deliveryQueue) len() int { return len(q.slots) - q.front }

// pushBack appends a committed slot carrying an unreliable or
// already-available payload.
func (q *deliveryQueue) pushBack(payload []byte, reliable bool) {
	q.slots = append(q.slots, slot{
		committed: true,
		reliable:  reliable,
		payload:   payload,
	})
}

// reserveBack appends an empty reserved slot for batch, recording now as
// its creation time, and returns its index for the reservation table.
func (q *deliveryQueue) reserveBack(batch uint32, now time.Time) int {
	q.slots = append(q.slots, slot{
		committed: false,
		batch:     batch,
		created:   now,
	})
	return len(q.slots) - 1
}

// commit fills the reserved slot at index with payload. It never
// reorders the queue, only fills a slot already holding its position.
func (q *deliveryQueue) commit(index int, payload []byte) {
	s := &q.slots[index]
	s.committed = true
	s.reliable = true
	s.payload = payload
}

// dropReservation abandons the reserved slot at index: its earlier
// packet is presumed lost forever. The slot is marked so popFront skips
// over it silently, without blocking delivery of later batches and
// without ever surfacing an empty message to Receive.
func (q *deliveryQueue) dropReservation(index int) {
	s := &q.slots[index]
	s.committed = true
	s.abandoned = true
}

// peekFront returns the front slot and whether it exists at all (queue
// non-empty).
func (q *deliveryQueue) peekFront() (slot, bool) {
	if q.len() == 0 {
		return slot{}, false
	}
	return q.slots[q.front], true
}

// popFront removes and returns the front slot's payload if it is
// committed, silently skipping any abandoned (timed-out reservation)
// slots along the way. It never dequeues a reserved (not-yet-filled)
// slot, and returns ok=false if the queue is empty or the front slot is
// still reserved.
func (q *deliveryQueue) popFront() (payload []byte, reliable bool, ok bool) {
	defer q.compact()
	for q.len() > 0 {
		s := q.slots[q.front]
		if !s.committed {
			return nil, false, false
		}
		q.front++
		if s.abandoned {
			continue
		}
		return s.payload, s.reliable, true
	}
	return nil, false, false
}

// compact resets the backing slice once every slot has been consumed.
// It only ever does this when the queue is fully empty: reservationTable
// entries hold slice positions returned by reserveBack, so shifting the
// backing array while a reservation is still open would invalidate
// those indices. Growth while reservations are outstanding is bounded
// by how far ahead of the committed front a peer can reserve, not by
// this function.
func (q *deliveryQueue) compact() {
	if q.front > 0 && q.front == len(q.slots) {
		q.slots = q.slots[:0]
		q.front = 0
	}
}

// at returns the slot at logical position i (0 is the current front),
// for random-access reads.
func (q *deliveryQueue) at(i int) (slot, bool) {
	idx := q.front + i
	if i < 0 || idx >= len(q.slots) {
		return slot{}, false
	}
	return q.slots[idx], true
}

// reset empties the queue, releasing all slots.
func (q *deliveryQueue) reset() {
	q.slots = nil
	q.front = 0
}
