package rcp

import (
	"testing"
	"time"
)

func TestDeliveryQueueInOrderCommit(t *testing.T) {
	q := newDeliveryQueue()
	q.pushBack([]byte("a"), false)
	q.pushBack([]byte("b"), false)

	payload, reliable, ok := q.popFront()
	if !ok || string(payload) != "a" || reliable {
		t.Fatalf("got (%q, %v, %v), want (\"a\", false, true)", payload, reliable, ok)
	}

	payload, _, ok = q.popFront()
	if !ok || string(payload) != "b" {
		t.Fatalf("got (%q, %v), want (\"b\", true)", payload, ok)
	}

	if _, _, ok = q.popFront(); ok {
		t.Fatal("expected empty queue to report ok=false")
	}
}

func TestDeliveryQueueBlocksOnReservedFront(t *testing.T) {
	q := newDeliveryQueue()
	now := time.Now()

	idx := q.reserveBack(5, now)
	q.pushBack([]byte("after"), false)

	if _, _, ok := q.popFront(); ok {
		t.Fatal("expected popFront to refuse to cross a still-reserved front slot")
	}

	q.commit(idx, []byte("five"))
	payload, _, ok := q.popFront()
	if !ok || string(payload) != "five" {
		t.Fatalf("got (%q, %v), want (\"five\", true)", payload, ok)
	}

	payload, _, ok = q.popFront()
	if !ok || string(payload) != "after" {
		t.Fatalf("got (%q, %v), want (\"after\", true)", payload, ok)
	}
}

func TestDeliveryQueueDropReservationSkipsSilently(t *testing.T) {
	q := newDeliveryQueue()
	now := time.Now()

	idx := q.reserveBack(1, now)
	q.pushBack([]byte("later"), true)

	q.dropReservation(idx)

	payload, reliable, ok := q.popFront()
	if !ok || string(payload) != "later" || !reliable {
		t.Fatalf("got (%q, %v, %v), want (\"later\", true, true)", payload, reliable, ok)
	}

	if _, _, ok = q.popFront(); ok {
		t.Fatal("expected queue to be empty after the abandoned slot was skipped")
	}
}

// TestDeliveryQueueSurvivesCompactionWithOpenReservation pushes the
// front up to the point an open reservation used to trigger compact()'s
// re-slicing branch. That branch reset q.front to 0 without touching
// the index already handed out by reserveBack, so the next commit at
// that index landed on the wrong slot (or panicked). The index must
// still refer to the same slot afterward.
func TestDeliveryQueueSurvivesCompactionWithOpenReservation(t *testing.T) {
	q := newDeliveryQueue()
	now := time.Now()

	for i := 0; i < 256; i++ {
		q.pushBack([]byte("filler"), false)
	}
	idx := q.reserveBack(99, now)

	for i := 0; i < 256; i++ {
		payload, _, ok := q.popFront()
		if !ok || string(payload) != "filler" {
			t.Fatalf("pop %d: got (%q, %v), want (\"filler\", true)", i, payload, ok)
		}
	}

	// The front is now sitting on the still-open reservation. Calling
	// popFront again must refuse to cross it, and must leave idx valid.
	if _, _, ok := q.popFront(); ok {
		t.Fatal("expected popFront to refuse to cross the still-open reservation")
	}

	q.commit(idx, []byte("reserved"))
	payload, _, ok := q.popFront()
	if !ok || string(payload) != "reserved" {
		t.Fatalf("got (%q, %v), want (\"reserved\", true)", payload, ok)
	}
}

func TestDeliveryQueueAt(t *testing.T) {
	q := newDeliveryQueue()
	q.pushBack([]byte("a"), false)
	q.pushBack([]byte("b"), false)

	s, ok := q.at(1)
	if !ok || string(s.payload) != "b" {
		t.Fatalf("at(1) = (%+v, %v), want payload \"b\"", s, ok)
	}

	if _, ok = q.at(2); ok {
		t.Fatal("at(2) should be out of range")
	}
}
