package btcp

import (
	"encoding/binary"
	"fmt"
)

// Flags is the boolean triple (ACK, SYN, FIN) packed into the header's
// flags byte. Bits beyond the triple are reserved and always read back as
// false; a decoder that sees them set simply ignores them.
type Flags struct {
	ACK bool
	SYN bool
	FIN bool
}

func (f Flags) byte() uint8 {
	var b uint8
	if f.ACK {
		b |= FlagACK
	}
	if f.SYN {
		b |= FlagSYN
	}
	if f.FIN {
		b |= FlagFIN
	}
	return b
}

func flagsFromByte(b uint8) Flags {
	return Flags{
		ACK: b&FlagACK != 0,
		SYN: b&FlagSYN != 0,
		FIN: b&FlagFIN != 0,
	}
}

// Segment is the on-wire protocol data unit. Once Encoded a segment's bytes
// are immutable; Segment itself is a plain value type.
type Segment struct {
	SeqNum     uint16
	AckNum     uint16
	Flags      Flags
	WindowSize uint8
	Payload    []byte
	// Checksum is populated by Encode and by Decode; callers constructing
	// a Segment to pass to Encode don't need to set it.
	Checksum uint16
}

// String renders a short, log-friendly summary of the segment, in the style
// of the teacher's Segment.String() in pkg/tcp/packet.go.
func (s *Segment) String() string {
	flags := ""
	if s.Flags.ACK {
		flags += "A"
	}
	if s.Flags.SYN {
		flags += "S"
	}
	if s.Flags.FIN {
		flags += "F"
	}
	if flags == "" {
		flags = "."
	}
	return fmt.Sprintf("btcp{seq=%d ack=%d flags=%s win=%d len=%d}",
		s.SeqNum, s.AckNum, flags, s.WindowSize, len(s.Payload))
}

// Encode validates field ranges and serializes the segment to its 10-byte
// header plus payload, with the checksum computed over the header-with-
// zeroed-checksum-field followed by the payload.
func Encode(s *Segment) ([]byte, error) {
	if s.SeqNum > 0xffff {
		return nil, &EncodeRangeError{Field: "seq_num", Value: int(s.SeqNum)}
	}
	if s.AckNum > 0xffff {
		return nil, &EncodeRangeError{Field: "ack_num", Value: int(s.AckNum)}
	}
	if len(s.Payload) > PayloadSize {
		return nil, &EncodeRangeError{Field: "payload", Value: len(s.Payload)}
	}

	buf := make([]byte, HeaderSize+len(s.Payload))
	binary.BigEndian.PutUint16(buf[0:2], s.SeqNum)
	binary.BigEndian.PutUint16(buf[2:4], s.AckNum)
	buf[4] = s.Flags.byte()
	buf[5] = s.WindowSize
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(s.Payload)))
	// buf[8:10] (checksum) stays zero for the computation below.
	copy(buf[HeaderSize:], s.Payload)

	checksum := CalculateChecksum(buf)
	binary.BigEndian.PutUint16(buf[8:10], checksum)

	return buf, nil
}

// Decode parses a wire segment, verifying its declared length and checksum.
// It returns ErrDecodeMalformed or ErrDecodeChecksum on failure; unknown
// high flag bits are ignored rather than rejected.
func Decode(data []byte) (*Segment, error) {
	if len(data) < HeaderSize {
		return nil, ErrDecodeMalformed
	}

	dataLength := binary.BigEndian.Uint16(data[6:8])
	if int(dataLength) != len(data)-HeaderSize {
		return nil, ErrDecodeMalformed
	}

	if !VerifyChecksum(data) {
		return nil, ErrDecodeChecksum
	}

	payload := make([]byte, dataLength)
	copy(payload, data[HeaderSize:])

	return &Segment{
		SeqNum:     binary.BigEndian.Uint16(data[0:2]),
		AckNum:     binary.BigEndian.Uint16(data[2:4]),
		Flags:      flagsFromByte(data[4]),
		WindowSize: data[5],
		Checksum:   binary.BigEndian.Uint16(data[8:10]),
		Payload:    payload,
	}, nil
}
