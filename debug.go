//go:build rcpdebug

package rcp

// DebugState is a point-in-time dump of a Session's internal counters
// and table sizes, gated behind a build tag rather than exposed on
// every build. Built only with the rcpdebug tag; see debug_stub.go for
// the default no-op build.
type DebugState struct {
	Enabled bool

	State SessionState

	LocalSeqNum   uint32
	LocalBatchNum uint32

	RemoteSeqNum           uint32
	RemoteBatchNumReserved uint32

	QueueLen        int
	ReservationsLen int
	RetransLen      int

	CancelGeneration int64
}

// DebugState dumps the session's internal state for test harnesses
// built with the rcpdebug tag.
func (s *Session) DebugState() DebugState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DebugState{
		Enabled:                true,
		State:                  s.state,
		LocalSeqNum:            s.localSeqNum,
		LocalBatchNum:          s.localBatchNum,
		RemoteSeqNum:           s.remoteSeqNum,
		RemoteBatchNumReserved: s.remoteBatchNumReserved,
		QueueLen:               s.queue.len(),
		ReservationsLen:        len(s.reservations.entries),
		RetransLen:             s.retrans.len(),
		CancelGeneration:       s.cancelGen.Load(),
	}
}
