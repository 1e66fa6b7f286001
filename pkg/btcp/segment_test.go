package btcp

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestEncodeVector(t *testing.T) {
	seg := &Segment{
		SeqNum:     100,
		AckNum:     200,
		Flags:      Flags{ACK: true, FIN: true},
		WindowSize: 5,
		Payload:    []byte{0x01, 0x23, 0x45, 0x67, 0x89},
	}

	got, err := Encode(seg)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	want, err := hex.DecodeString("006400c8050500052a3f0123456789")
	if err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode mismatch:\n got  %x\n want %x", got, want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		seg  *Segment
	}{
		{"empty payload", &Segment{SeqNum: 1, AckNum: 2, Flags: Flags{}, WindowSize: 0}},
		{"SYN", &Segment{SeqNum: 42, AckNum: 0, Flags: Flags{SYN: true}, WindowSize: 0}},
		{"SYN+ACK with window", &Segment{SeqNum: 7, AckNum: 8, Flags: Flags{ACK: true, SYN: true}, WindowSize: 200}},
		{"max payload", &Segment{SeqNum: 0xffff, AckNum: 0xffff, Flags: Flags{ACK: true}, WindowSize: 255, Payload: bytes.Repeat([]byte{0x42}, PayloadSize)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.seg)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if decoded.SeqNum != tt.seg.SeqNum || decoded.AckNum != tt.seg.AckNum {
				t.Errorf("seq/ack mismatch: got seq=%d ack=%d, want seq=%d ack=%d",
					decoded.SeqNum, decoded.AckNum, tt.seg.SeqNum, tt.seg.AckNum)
			}
			if decoded.Flags != tt.seg.Flags {
				t.Errorf("flags mismatch: got %+v, want %+v", decoded.Flags, tt.seg.Flags)
			}
			if decoded.WindowSize != tt.seg.WindowSize {
				t.Errorf("window mismatch: got %d, want %d", decoded.WindowSize, tt.seg.WindowSize)
			}
			if !bytes.Equal(decoded.Payload, tt.seg.Payload) {
				t.Errorf("payload mismatch")
			}
		})
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	seg := &Segment{Payload: make([]byte, PayloadSize+1)}
	_, err := Encode(seg)
	if err == nil {
		t.Fatal("expected an error for oversized payload")
	}
	rangeErr, ok := err.(*EncodeRangeError)
	if !ok {
		t.Fatalf("expected *EncodeRangeError, got %T", err)
	}
	if rangeErr.Field != "payload" {
		t.Errorf("expected payload field, got %q", rangeErr.Field)
	}
}

func TestDecodeRejectsBadLength(t *testing.T) {
	seg := &Segment{SeqNum: 1, Payload: []byte("hello")}
	encoded, err := Encode(seg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Truncate the payload without fixing up data_length.
	truncated := encoded[:len(encoded)-1]
	if _, err := Decode(truncated); err != ErrDecodeMalformed {
		t.Fatalf("expected ErrDecodeMalformed, got %v", err)
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	seg := &Segment{SeqNum: 1, AckNum: 2, Payload: []byte("hello")}
	encoded, err := Encode(seg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	encoded[len(encoded)-1] ^= 0xff
	if _, err := Decode(encoded); err != ErrDecodeChecksum {
		t.Fatalf("expected ErrDecodeChecksum, got %v", err)
	}
}

func TestDecodeIgnoresReservedFlagBits(t *testing.T) {
	seg := &Segment{SeqNum: 1, AckNum: 2, Flags: Flags{ACK: true}}
	encoded, err := Encode(seg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	encoded[4] |= 0xf8 // set every reserved bit

	// Fix the checksum back up since we perturbed the header after Encode
	// computed it over the clean bytes.
	encoded[8], encoded[9] = 0, 0
	sum := CalculateChecksum(encoded)
	encoded[8] = byte(sum >> 8)
	encoded[9] = byte(sum)

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Flags != (Flags{ACK: true}) {
		t.Errorf("reserved bits leaked into decoded flags: %+v", decoded.Flags)
	}
}

func TestFlagsMapping(t *testing.T) {
	tests := []struct {
		flags Flags
		want  uint8
	}{
		{Flags{ACK: true, SYN: false, FIN: true}, 0x05},
		{Flags{ACK: false, SYN: true, FIN: true}, 0x06},
		{Flags{ACK: false, SYN: false, FIN: false}, 0x00},
	}
	for _, tt := range tests {
		if got := tt.flags.byte(); got != tt.want {
			t.Errorf("Flags(%+v).byte() = 0x%02x, want 0x%02x", tt.flags, got, tt.want)
		}
	}
}

