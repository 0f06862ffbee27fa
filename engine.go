package rcp

import (
	"fmt"
	"net"
	"time"
)

// Connect performs the active handshake: send SYN, resend every
// TimeoutShort until SYN|ACK arrives or TimeoutTotal elapses, then send
// the final ACK and start the I/O engine.
//
// Connect always blocks for the handshake's duration regardless of
// SetBlocking; the blocking flag governs Receive and the wait for an
// incoming SYN in Accept — a connect attempt has nothing useful to do
// except wait on its own timeout (see DESIGN.md).
func (s *Session) Connect(host string, port uint16) (bool, error) {
	s.mu.Lock()
	if !s.bound {
		s.mu.Unlock()
		return false, ErrNotBound
	}
	if s.state != Disconnected {
		s.mu.Unlock()
		return false, ErrNotConnected
	}
	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.remoteAddr = remote
	s.localSeqNum++
	seq := s.localSeqNum
	cancelGen := s.cancelGen.Load()
	s.mu.Unlock()

	wire := EncodeHeader(Header{SeqNum: seq, Flags: FlagSYN}, nil)
	buf := make([]byte, maxDatagramSize)
	deadline := time.Now().Add(s.opts.TimeoutTotal)
	var lastSent time.Time

	for {
		now := time.Now()
		if !now.Before(deadline) {
			s.abandonHandshake()
			return false, ErrSessionTimeout
		}
		if s.cancelGen.Load() != cancelGen {
			s.abandonHandshake()
			return false, ErrCanceled
		}
		if lastSent.IsZero() || now.Sub(lastSent) >= s.opts.TimeoutShort {
			if _, err := s.conn.WriteToUDP(wire, remote); err != nil {
				s.abandonHandshake()
				return false, err
			}
			lastSent = now
			s.opts.Logger.Debugf("connect: sent SYN to %s", remote)
		}

		readUntil := earlier(lastSent.Add(s.opts.TimeoutShort), deadline)
		s.conn.SetReadDeadline(readUntil)
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			s.abandonHandshake()
			return false, err
		}
		if !sameAddr(from, remote) {
			continue
		}
		h, _, derr := DecodeHeader(buf[:n])
		if derr != nil || h.Flags != FlagSYN|FlagACK {
			continue
		}

		ack := EncodeHeader(Header{SeqNum: seq, Flags: FlagACK}, nil)
		s.conn.WriteToUDP(ack, remote)

		s.mu.Lock()
		s.remoteSeqNum = h.SeqNum
		s.state = Connected
		now = time.Now()
		s.timeLastSend, s.timeLastReceived = now, now
		s.startEngineLocked()
		s.mu.Unlock()
		s.opts.Logger.Debugf("connect: established with %s", remote)
		return true, nil
	}
}

// Accept performs the passive handshake: wait for an incoming SYN
// (honoring the blocking flag), reply SYN|ACK, resend until the final
// ACK arrives or TimeoutTotal elapses, then start the I/O engine.
func (s *Session) Accept() (bool, error) {
	s.mu.Lock()
	if !s.bound {
		s.mu.Unlock()
		return false, ErrNotBound
	}
	if s.state != Disconnected {
		s.mu.Unlock()
		return false, ErrNotConnected
	}
	blocking := s.blocking
	cancelGen := s.cancelGen.Load()
	s.mu.Unlock()

	buf := make([]byte, maxDatagramSize)
	var peer *net.UDPAddr

	for peer == nil {
		if s.cancelGen.Load() != cancelGen {
			return false, ErrCanceled
		}
		if blocking {
			s.conn.SetReadDeadline(time.Time{})
		} else {
			s.conn.SetReadDeadline(time.Now())
		}
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				if !blocking {
					return false, ErrWouldBlock
				}
				continue
			}
			return false, err
		}
		h, _, derr := DecodeHeader(buf[:n])
		if derr != nil {
			continue
		}
		if h.Flags == flagCANCEL {
			if !sameAddr(from, s.localAddr) {
				s.opts.Logger.Warnf("dropping CANCEL-flagged datagram from non-local sender %s", from)
			}
			continue // our own loopback pulse; cancelGen check above governs
		}
		if h.Flags != FlagSYN {
			continue
		}
		peer = from
	}

	s.mu.Lock()
	s.remoteAddr = peer
	s.localSeqNum++
	seq := s.localSeqNum
	s.mu.Unlock()

	wire := EncodeHeader(Header{SeqNum: seq, Flags: FlagSYN | FlagACK}, nil)
	deadline := time.Now().Add(s.opts.TimeoutTotal)
	var lastSent time.Time

	for {
		now := time.Now()
		if !now.Before(deadline) {
			s.abandonHandshake()
			return false, ErrSessionTimeout
		}
		if s.cancelGen.Load() != cancelGen {
			s.abandonHandshake()
			return false, ErrCanceled
		}
		if lastSent.IsZero() || now.Sub(lastSent) >= s.opts.TimeoutShort {
			if _, err := s.conn.WriteToUDP(wire, peer); err != nil {
				s.abandonHandshake()
				return false, err
			}
			lastSent = now
		}

		readUntil := earlier(lastSent.Add(s.opts.TimeoutShort), deadline)
		s.conn.SetReadDeadline(readUntil)
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			s.abandonHandshake()
			return false, err
		}
		if !sameAddr(from, peer) {
			continue
		}
		h, _, derr := DecodeHeader(buf[:n])
		if derr != nil {
			continue
		}
		if h.Flags == FlagSYN {
			continue // peer hasn't seen our SYN|ACK yet; next tick resends it
		}
		if h.Flags != FlagACK {
			continue
		}

		s.mu.Lock()
		s.remoteSeqNum = h.SeqNum
		s.state = Connected
		now = time.Now()
		s.timeLastSend, s.timeLastReceived = now, now
		s.startEngineLocked()
		s.mu.Unlock()
		s.opts.Logger.Debugf("accept: established with %s", peer)
		return true, nil
	}
}

func (s *Session) abandonHandshake() {
	s.mu.Lock()
	s.remoteAddr = nil
	s.mu.Unlock()
}

// startEngineLocked starts the background I/O engine. Caller must hold
// s.mu and have just set state to Connected.
func (s *Session) startEngineLocked() {
	s.engineDone = make(chan struct{})
	go s.runEngine()
}

// Disconnect runs the active half of the close handshake: send FIN and
// move to CLOSING, then wait for the engine to drain
// outstanding ACKs or hit its grace interval and reset to DISCONNECTED.
// Idempotent: disconnecting an already-disconnected session succeeds
// trivially.
func (s *Session) Disconnect() (bool, error) {
	s.mu.Lock()
	switch s.state {
	case Disconnected:
		s.mu.Unlock()
		return true, nil
	case Connected:
		seq := s.nextSeqLocked()
		header := Header{SeqNum: seq, Flags: FlagFIN}
		wire := EncodeHeader(header, nil)
		s.conn.WriteToUDP(wire, s.remoteAddr)
		s.timeLastSend = time.Now()
		s.retrans.insert(0, header, wire, s.timeLastSend)
		s.state = Closing
		s.closeInitiated = true
		s.closeDeadline = time.Now().Add(s.opts.TimeoutShort * closingGraceMultiplier)
		s.opts.Logger.Debugf("disconnect: sent FIN, entering CLOSING")
	case Closing:
		// already underway, peer-initiated or otherwise; just wait it out
	}
	done := s.engineDone
	s.mu.Unlock()

	s.Cancel()
	if done != nil {
		<-done
	}
	return true, nil
}

// closingGraceMultiplier sets the CLOSING grace interval relative to
// TimeoutShort: long enough for a couple of resend cycles, short enough
// not to wedge a caller waiting on Disconnect.
const closingGraceMultiplier = 10

// runEngine is the single background goroutine started at session
// establishment and torn down when the session resets to DISCONNECTED.
// It multiplexes a deadline-bounded socket read against the
// scheduler's next due event.
func (s *Session) runEngine() {
	defer close(s.engineDone)
	buf := make([]byte, maxDatagramSize)

	for {
		s.mu.Lock()
		if s.state == Disconnected {
			s.mu.Unlock()
			return
		}
		ev := getNextEvent(time.Now(), s.retrans, s.reservations,
			s.timeLastSend, s.timeLastReceived, s.opts.TimeoutShort, s.opts.TimeoutTotal)
		conn := s.conn
		s.mu.Unlock()

		conn.SetReadDeadline(time.Now().Add(ev.due))
		n, from, err := conn.ReadFromUDP(buf)
		if err == nil {
			s.handleDatagram(from, buf[:n])
			continue
		}
		if !isTimeout(err) {
			s.mu.Lock()
			s.failSessionLocked(err)
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.dispatchEvent(ev)
		done := s.state == Disconnected
		s.mu.Unlock()
		if done {
			return
		}
	}
}

func (s *Session) handleDatagram(from *net.UDPAddr, data []byte) {
	header, payload, err := DecodeHeader(data)
	if err != nil {
		s.opts.Logger.Warnf("dropping malformed datagram from %s: %v", from, err)
		return
	}
	if header.Flags == flagCANCEL {
		s.mu.Lock()
		local := s.localAddr
		s.mu.Unlock()
		if !sameAddr(from, local) {
			s.opts.Logger.Warnf("dropping CANCEL-flagged datagram from non-local sender %s", from)
		}
		return // loopback wake pulse; cancelGen bookkeeping already done by Cancel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remoteAddr == nil || !sameAddr(from, s.remoteAddr) {
		s.opts.Logger.Debugf("discarding datagram from unexpected peer %s", from)
		return
	}
	s.remoteSeqNum = header.SeqNum
	s.timeLastReceived = time.Now()

	s.dispatchPacket(header, payload)
	s.checkClosingDoneLocked()
}

// dispatchPacket applies flags in precedence order: ACK, then KEP, then
// FIN, then REL, then plain data. Caller holds s.mu.
func (s *Session) dispatchPacket(header Header, payload []byte) {
	if header.Flags.Has(FlagACK) {
		s.retrans.remove(header.BatchNum)
		if s.closeInitiated && header.BatchNum == 0 {
			s.finAcked = true
		}
	}
	if header.Flags.Has(FlagKEP) {
		// timeLastReceived already advanced; nothing else to do.
	}
	if header.Flags.Has(FlagFIN) {
		s.handleFinLocked(header)
	}
	if header.Flags.Has(FlagREL) {
		s.handleReliableLocked(header.BatchNum, payload)
	} else if header.Flags == 0 {
		s.queue.pushBack(payload, false)
		s.recvCond.Broadcast()
	}
}

func (s *Session) handleFinLocked(header Header) {
	ack := EncodeHeader(Header{SeqNum: s.nextSeqLocked(), BatchNum: 0, Flags: FlagACK}, nil)
	s.conn.WriteToUDP(ack, s.remoteAddr)
	s.timeLastSend = time.Now()

	if s.state == Connected {
		s.state = Closing
		s.closeDeadline = time.Now().Add(s.opts.TimeoutShort * closingGraceMultiplier)
	}
	if !s.closeInitiated {
		seq := s.nextSeqLocked()
		finHeader := Header{SeqNum: seq, Flags: FlagFIN}
		finWire := EncodeHeader(finHeader, nil)
		s.conn.WriteToUDP(finWire, s.remoteAddr)
		s.timeLastSend = time.Now()
		s.retrans.insert(0, finHeader, finWire, s.timeLastSend)
		s.closeInitiated = true
		s.opts.Logger.Debugf("received FIN, replying with our own FIN+ACK")
	}
	s.recvCond.Broadcast()
}

// handleReliableLocked handles an incoming REL packet: dedup against
// the reservation table, fill or open reservations, and ACK.
func (s *Session) handleReliableLocked(batch uint32, payload []byte) {
	ack := EncodeHeader(Header{SeqNum: s.nextSeqLocked(), BatchNum: batch, Flags: FlagACK}, nil)
	s.conn.WriteToUDP(ack, s.remoteAddr)
	s.timeLastSend = time.Now()

	if batch <= s.remoteBatchNumReserved {
		entry, reserved := s.reservations.lookup(batch)
		if !reserved {
			return // already committed earlier: duplicate, ACK already sent
		}
		s.queue.commit(entry.index, payload)
		s.reservations.remove(batch)
		s.recvCond.Broadcast()
		return
	}

	now := time.Now()
	for b := s.remoteBatchNumReserved + 1; b < batch; b++ {
		idx := s.queue.reserveBack(b, now)
		s.reservations.insert(b, idx, now)
	}
	idx := s.queue.reserveBack(batch, now)
	s.queue.commit(idx, payload)
	s.remoteBatchNumReserved = batch
	s.recvCond.Broadcast()
}

// dispatchEvent acts on the scheduler's next due event. Caller holds
// s.mu.
func (s *Session) dispatchEvent(ev schedEvent) {
	switch ev.kind {
	case eventAckResend:
		if ev.resendAt == nil {
			return
		}
		s.conn.WriteToUDP(ev.resendAt.wireBytes, s.remoteAddr)
		ev.resendAt.lastResend = time.Now()
		s.timeLastSend = ev.resendAt.lastResend
		s.opts.Logger.Debugf("resending batch %d", ev.batch)

	case eventAckTimeout:
		s.opts.Logger.Warnf("batch %d never acked, failing session", ev.batch)
		s.failSessionLocked(ErrSessionTimeout)

	case eventRecvTimeout:
		s.opts.Logger.Warnf("peer silent past total timeout, failing session")
		s.failSessionLocked(ErrSessionTimeout)

	case eventKeepalive:
		seq := s.nextSeqLocked()
		s.conn.WriteToUDP(EncodeHeader(Header{SeqNum: seq, Flags: FlagKEP}, nil), s.remoteAddr)
		s.timeLastSend = time.Now()

	case eventReserveTimeout:
		if entry, ok := s.reservations.lookup(ev.batch); ok {
			s.queue.dropReservation(entry.index)
			s.reservations.remove(ev.batch)
			s.recvCond.Broadcast()
			s.opts.Logger.Debugf("batch %d reservation timed out, abandoning", ev.batch)
		}

	case eventReloop:
		// nothing to do; just re-enter the loop and recompute.
	}

	s.checkClosingDoneLocked()
}

// checkClosingDoneLocked resets to DISCONNECTED once our own FIN has
// actually been acked and every other outstanding reliable send has
// drained, or the grace interval has elapsed regardless. The FIN is
// tracked in the retransmission table under batch 0 just like any other
// reliable send, so a lost FIN or a lost ACK of it gets resent on the
// normal ACK_RESEND/ACK_TIMEOUT schedule instead of letting the session
// fall back to DISCONNECTED the instant CLOSING begins. Caller holds
// s.mu.
func (s *Session) checkClosingDoneLocked() {
	if s.state != Closing {
		return
	}
	drained := s.finAcked && s.retrans.len() == 0
	if drained || !time.Now().Before(s.closeDeadline) {
		s.opts.Logger.Debugf("closing complete, resetting")
		s.reset()
	}
}

func (s *Session) failSessionLocked(err error) {
	s.failure = err
	s.reset()
}

func (s *Session) nextSeqLocked() uint32 {
	s.localSeqNum++
	return s.localSeqNum
}

func (s *Session) nextBatchLocked() uint32 {
	s.localBatchNum++
	return s.localBatchNum
}

func sameAddr(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
