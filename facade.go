package rcp

import (
	"fmt"
	"time"
)

// maxPayloadSize is the largest payload Send accepts, leaving room for
// the fixed header within maxDatagramSize.
const maxPayloadSize = maxDatagramSize - HeaderSize

// Send transmits payload to the connected peer. If reliable is true the
// packet is assigned a batch number and retried by the I/O engine until
// acknowledged or TimeoutTotal elapses.
func (s *Session) Send(payload []byte, reliable bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(payload, reliable)
}

// SendPacket transmits p.Payload, reading reliability from p.Header's
// REL flag. Any other flag bits in p.Header are ignored: the facade
// owns control-flag framing.
func (s *Session) SendPacket(p Packet) (bool, error) {
	return s.Send(p.Payload, p.Reliable())
}

func (s *Session) sendLocked(payload []byte, reliable bool) (bool, error) {
	if s.state != Connected {
		return false, ErrNotConnected
	}
	if len(payload) > maxPayloadSize {
		return false, fmt.Errorf("rcp: payload of %d bytes exceeds the %d-byte limit", len(payload), maxPayloadSize)
	}

	seq := s.nextSeqLocked()
	var header Header
	var batch uint32
	if reliable {
		batch = s.nextBatchLocked()
		header = Header{SeqNum: seq, BatchNum: batch, Flags: FlagREL}
	} else {
		header = Header{SeqNum: seq, Flags: 0}
	}

	wire := EncodeHeader(header, payload)
	if _, err := s.conn.WriteToUDP(wire, s.remoteAddr); err != nil {
		return false, err
	}
	s.timeLastSend = time.Now()
	if reliable {
		s.retrans.insert(batch, header, wire, s.timeLastSend)
	}
	return true, nil
}

// Receive pops the front of the delivery queue if it is committed. In
// blocking mode it waits on the receive condition until a commit
// reaches the front, the session fails, or Cancel fires. In
// non-blocking mode it returns ErrWouldBlock immediately if the front
// isn't ready.
func (s *Session) Receive() (Packet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Disconnected {
		if s.failure != nil {
			return Packet{}, false, s.failure
		}
		return Packet{}, false, ErrNotConnected
	}

	cancelGen := s.cancelGen.Load()
	for {
		if payload, reliable, ok := s.queue.popFront(); ok {
			flags := Flags(0)
			if reliable {
				flags = FlagREL
			}
			return Packet{Header: Header{Flags: flags}, Payload: payload}, true, nil
		}
		if s.state == Disconnected {
			if s.failure != nil {
				return Packet{}, false, s.failure
			}
			return Packet{}, false, ErrNotConnected
		}
		if !s.blocking {
			return Packet{}, false, ErrWouldBlock
		}
		if s.cancelGen.Load() != cancelGen {
			return Packet{}, false, ErrCanceled
		}
		s.recvCond.Wait()
	}
}

// Cancel interrupts any blocking Receive/Accept/Connect call in
// progress on this session. It is safe to call from any goroutine. A
// cancel pulse is looped back through the bound socket to
// wake a blocked read inside the I/O engine or handshake loop; the
// monotonic generation counter is what actually lets a suspended call
// tell "I was canceled" apart from "a real datagram arrived".
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelGen.Add(1)
	conn, local, bound := s.conn, s.localAddr, s.bound
	s.recvCond.Broadcast()
	s.handshakeCond.Broadcast()
	s.mu.Unlock()

	if !bound {
		return
	}
	pulse := EncodeHeader(Header{Flags: flagCANCEL}, nil)
	conn.WriteToUDP(pulse, local)
}
