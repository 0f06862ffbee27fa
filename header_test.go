package rcp

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []Header{
		{SeqNum: 1, BatchNum: 0, Flags: FlagSYN},
		{SeqNum: 2, BatchNum: 0, Flags: FlagSYN | FlagACK},
		{SeqNum: 3, BatchNum: 7, Flags: FlagREL},
		{SeqNum: 4, BatchNum: 7, Flags: FlagACK},
		{SeqNum: 5, BatchNum: 0, Flags: FlagKEP},
		{SeqNum: 6, BatchNum: 0, Flags: 0},
	}

	for _, want := range cases {
		buf := want.Marshal()
		if len(buf) != HeaderSize {
			t.Fatalf("Marshal produced %d bytes, want %d", len(buf), HeaderSize)
		}

		var got Header
		if err := got.Unmarshal(buf); err != nil {
			t.Fatalf("Unmarshal(%v): %v", want, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestUnmarshalTooShort(t *testing.T) {
	var h Header
	if err := h.Unmarshal([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short datagram, got nil")
	}
}

func TestUnmarshalRejectsUnknownFlagCombination(t *testing.T) {
	var h Header
	buf := Header{Flags: FlagSYN | FlagREL}.Marshal()
	if err := h.Unmarshal(buf); err == nil {
		t.Fatal("expected error for SYN|REL, got nil")
	}
}

func TestUnmarshalRejectsCancelCombinedWithOtherFlags(t *testing.T) {
	var h Header
	buf := Header{Flags: flagCANCEL | FlagACK}.Marshal()
	if err := h.Unmarshal(buf); err == nil {
		t.Fatal("expected error for CANCEL|ACK, got nil")
	}
}

func TestEncodeDecodeHeaderPreservesPayload(t *testing.T) {
	payload := []byte("hello rcp")
	wire := EncodeHeader(Header{SeqNum: 9, BatchNum: 3, Flags: FlagREL}, payload)

	h, got, err := DecodeHeader(wire)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if h.SeqNum != 9 || h.BatchNum != 3 || h.Flags != FlagREL {
		t.Fatalf("unexpected header: %+v", h)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q, want %q", got, payload)
	}
}

func TestEncodeDecodeHeaderEmptyPayload(t *testing.T) {
	wire := EncodeHeader(Header{Flags: FlagKEP}, nil)
	_, payload, err := DecodeHeader(wire)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if len(payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(payload))
	}
}
