package rcp

import "encoding/binary"

// Header is the fixed 12-byte RCP packet header: sequence number, batch
// number, and a flags bitfield, all big-endian on the wire.
type Header struct {
	SeqNum   uint32
	BatchNum uint32
	Flags    Flags
}

// Marshal serializes h into a newly allocated HeaderSize-byte slice.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.SeqNum)
	binary.BigEndian.PutUint32(buf[4:8], h.BatchNum)
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.Flags))
	return buf
}

// Unmarshal decodes a Header from data's first HeaderSize bytes. It
// rejects datagrams shorter than HeaderSize and flag combinations that are
// neither a recognized single control combination nor a data combination,
// per the wire format rules.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < HeaderSize {
		return errMalformedDatagram
	}
	seq := binary.BigEndian.Uint32(data[0:4])
	batch := binary.BigEndian.Uint32(data[4:8])
	flags := Flags(binary.BigEndian.Uint32(data[8:12]))

	if !validFlags(flags) {
		return errMalformedDatagram
	}

	h.SeqNum = seq
	h.BatchNum = batch
	h.Flags = flags
	return nil
}

// validFlags reports whether flags is one of the recognized single
// control combinations (SYN, SYN|ACK, ACK, FIN, FIN|ACK, KEP) or a data
// combination (0 for unreliable data, REL for reliable data, ACK alone
// when acknowledging a batch). The internal CANCEL bit is only valid on
// a loopback pulse, recognized separately by the engine, never as part
// of a combination a remote peer may send; a decoded header carrying it
// together with any other bit is rejected.
func validFlags(flags Flags) bool {
	if flags&flagCANCEL != 0 {
		return flags == flagCANCEL
	}

	switch flags {
	case 0, FlagREL, FlagSYN, FlagSYN | FlagACK, FlagACK, FlagFIN, FlagFIN | FlagACK, FlagKEP:
		return true
	default:
		return false
	}
}

// EncodeHeader serializes header and appends payload, producing a
// complete wire datagram. It makes no policy decisions about the
// resulting flag combination.
func EncodeHeader(header Header, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	copy(buf, header.Marshal())
	copy(buf[HeaderSize:], payload)
	return buf
}

// DecodeHeader splits a wire datagram into its Header and payload.
func DecodeHeader(data []byte) (Header, []byte, error) {
	var h Header
	if err := h.Unmarshal(data); err != nil {
		return Header{}, nil, err
	}
	payload := make([]byte, len(data)-HeaderSize)
	copy(payload, data[HeaderSize:])
	return h, payload, nil
}
