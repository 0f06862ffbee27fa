package rcp

import (
	"errors"
	"time"
)

// Flags is the header's flags bitfield.
type Flags uint32

// Flag bits. CANCEL never appears on the wire to a remote peer; it is
// used only on loopback pulses the engine sends to itself.
const (
	FlagSYN    Flags = 1 << 0
	FlagACK    Flags = 1 << 1
	FlagFIN    Flags = 1 << 2
	FlagKEP    Flags = 1 << 3
	FlagREL    Flags = 1 << 4
	flagCANCEL Flags = 1 << 31
)

// Has reports whether f contains all bits of other.
func (f Flags) Has(other Flags) bool { return f&other == other }

// HeaderSize is the fixed, on-wire size of a Header in bytes.
const HeaderSize = 12

// AnyPort requests an OS-assigned port from Bind.
const AnyPort = 0

// SessionState is one of the three states a Session can be in.
type SessionState int

const (
	Disconnected SessionState = iota
	Connected
	Closing
)

func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connected:
		return "CONNECTED"
	case Closing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Default timeout constants. TimeoutTotal governs session liveness and
// reservation patience; TimeoutShort governs resend and keepalive
// cadence. Both are overridable per Session via Options.
const (
	DefaultTimeoutTotal = 5000 * time.Millisecond
	DefaultTimeoutShort = 200 * time.Millisecond

	// reloopInterval is the scheduler's safety-fallback period: even with
	// no other event pending, the engine re-enters its loop at least this
	// often so a Close/Cancel/state change is never stuck behind an
	// unexpectedly long deadline.
	reloopInterval = 1 * time.Second

	// maxDatagramSize bounds the read buffer; payloads larger than
	// maxDatagramSize-HeaderSize are rejected by Send.
	maxDatagramSize = 2048
)

// Sentinel errors. Callers may match them with errors.Is.
var (
	// ErrNotConnected is returned when a traffic method is called outside
	// the CONNECTED state.
	ErrNotConnected = errors.New("rcp: not connected")

	// ErrAlreadyBound is returned by Bind when the socket is already bound.
	ErrAlreadyBound = errors.New("rcp: already bound")

	// ErrNotBound is returned when Accept or Connect is called before
	// Bind. Send and Receive on an unbound session return ErrNotConnected.
	ErrNotBound = errors.New("rcp: not bound")

	// ErrWouldBlock is returned by a non-blocking Receive with an empty
	// front slot.
	ErrWouldBlock = errors.New("rcp: would block")

	// ErrCanceled is returned by a blocking call interrupted by Cancel.
	ErrCanceled = errors.New("rcp: canceled")

	// ErrSessionTimeout is returned (and leaves the session DISCONNECTED)
	// when the peer is silent past TIMEOUT_TOTAL, or an outstanding
	// reliable packet is never ACKed within TIMEOUT_TOTAL.
	ErrSessionTimeout = errors.New("rcp: session timeout")

	// errMalformedDatagram never escapes the engine; it is logged and the
	// datagram is dropped.
	errMalformedDatagram = errors.New("rcp: malformed datagram")
)

// eventKind identifies the kind of the next due scheduler event.
type eventKind int

const (
	eventNone eventKind = iota
	eventAckResend
	eventAckTimeout
	eventRecvTimeout
	eventKeepalive
	eventReserveTimeout
	eventReloop
)
