package rcp

// Packet is a decoded RCP datagram: a header plus its opaque payload.
type Packet struct {
	Header  Header
	Payload []byte
}

// Reliable reports whether the packet carries the REL flag.
func (p Packet) Reliable() bool { return p.Header.Flags.Has(FlagREL) }
