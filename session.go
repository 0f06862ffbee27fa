package rcp

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Session is a single point-to-point RCP connection. At most one
// connection is active on a given instance at a time: Bind,
// Accept/Connect, and Disconnect move it through its lifecycle.
//
// A single mutex guards every field below the "Network resources" line;
// the user goroutine (facade methods) and the one background I/O engine
// goroutine started at session establishment both take it for every
// read-modify-write.
type Session struct {
	opts Options

	mu            sync.Mutex
	recvCond      *sync.Cond // signaled when the queue front becomes committed, or on failure/cancel
	handshakeCond *sync.Cond // broadcast on reset, cancel, or SetBlocking; Accept/Connect wait in socket reads, not on this

	// Network resources: scoped to bind/unbind, outlive any one session.
	conn      *net.UDPConn
	localAddr *net.UDPAddr
	bound     bool

	// Session-scoped structures: scoped to connect/accept .. disconnect.
	state    SessionState
	blocking bool

	remoteAddr *net.UDPAddr

	localSeqNum   uint32
	localBatchNum uint32

	remoteSeqNum           uint32
	remoteBatchNumReserved uint32

	queue        *deliveryQueue
	reservations *reservationTable
	retrans      *retransmissionTable

	timeLastSend     time.Time
	timeLastReceived time.Time

	closeInitiated bool
	finAcked       bool
	closeDeadline  time.Time

	cancelGen atomic.Int64

	engineDone chan struct{}

	failure error // set when the session drops to DISCONNECTED on its own
}

// NewSession constructs an unbound Session. Pass a zero Options to get
// the package defaults (DefaultOptions()).
func NewSession(opts Options) *Session {
	s := &Session{
		opts:         opts.withDefaults(),
		state:        Disconnected,
		blocking:     true,
		queue:        newDeliveryQueue(),
		reservations: newReservationTable(),
		retrans:      newRetransmissionTable(),
	}
	s.recvCond = sync.NewCond(&s.mu)
	s.handshakeCond = sync.NewCond(&s.mu)
	return s
}

// Bind opens the underlying UDP socket on port (AnyPort for an
// OS-assigned port). Network resources live from Bind to Unbind,
// independent of any one session's lifecycle.
func (s *Session) Bind(port uint16) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound {
		return false, ErrAlreadyBound
	}

	addr := &net.UDPAddr{IP: net.IPv4zero, Port: int(port)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return false, fmt.Errorf("rcp: bind: %w", err)
	}

	// localAddr is the loopback address of the bound port: the target of
	// Cancel's wake pulse and the sender address that pulse arrives from.
	// The wildcard address the socket is bound to never matches a sender.
	bound := conn.LocalAddr().(*net.UDPAddr)
	s.conn = conn
	s.localAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: bound.Port}
	s.bound = true
	s.opts.Logger.Debugf("bound to %s", bound)
	return true, nil
}

// IsBound reports whether the socket is currently bound.
func (s *Session) IsBound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Unbind closes the underlying socket. If a session is active it is
// disconnected first.
func (s *Session) Unbind() {
	s.mu.Lock()
	connected := s.state != Disconnected
	s.mu.Unlock()

	if connected {
		s.Disconnect()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bound {
		return
	}
	s.conn.Close()
	s.bound = false
	s.conn = nil
	s.localAddr = nil
}

// LocalPort returns the locally bound port, or 0 if not bound.
func (s *Session) LocalPort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bound {
		return 0
	}
	return uint16(s.localAddr.Port)
}

// IsConnected reports whether the session is in the CONNECTED state.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Connected
}

// RemoteAddr returns the remote peer's IP, or the zero value if not
// connected.
func (s *Session) RemoteAddr() net.IP {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteAddr == nil {
		return nil
	}
	return s.remoteAddr.IP
}

// RemotePort returns the remote peer's port, or 0 if not connected.
func (s *Session) RemotePort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteAddr == nil {
		return 0
	}
	return uint16(s.remoteAddr.Port)
}

// SetBlocking toggles whether Receive (and Accept while waiting for an
// incoming SYN) suspend the caller or return immediately. Connect always
// blocks for its handshake regardless of this flag.
func (s *Session) SetBlocking(blocking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocking = blocking
	s.recvCond.Broadcast()
	s.handshakeCond.Broadcast()
}

func (s *Session) getBlocking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocking
}

// reset clears every session-scoped structure and returns to the
// bound-but-idle state. Caller must hold s.mu.
func (s *Session) reset() {
	s.state = Disconnected
	s.remoteAddr = nil
	s.localSeqNum = 0
	s.localBatchNum = 0
	s.remoteSeqNum = 0
	s.remoteBatchNumReserved = 0
	s.queue.reset()
	s.reservations.reset()
	s.retrans.reset()
	s.closeInitiated = false
	s.finAcked = false
	s.closeDeadline = time.Time{}
	s.recvCond.Broadcast()
	s.handshakeCond.Broadcast()
}
