// Package rcp implements RCP, a reliable connection-oriented messaging
// protocol layered over UDP. A Session exchanges discrete messages with a
// single remote peer, either reliably (acknowledged and retransmitted
// until delivered or the session fails) or unreliably (fire-and-forget),
// and always delivers them to the receiving application in send order.
//
// All exported methods on Session are safe for concurrent use.
package rcp
