package btcp

import "sort"

// Segmentize splits data into the ordered DATA segment sequence starting at
// isn: segment i carries seq_num = (isn+i) mod 2^16, no flags, a zero
// window, and the i-th PayloadSize-byte chunk (the last may be short).
//
// It returns ErrTooManySegments if data would require more segments than
// the 16-bit sequence space can address without wrapping into the ISN
// itself — payloads that large are outside the supported envelope per
// SPEC_FULL.md's decision on sequence-index arithmetic.
func Segmentize(data []byte, isn uint16) ([]*Segment, error) {
	if len(data) == 0 {
		return nil, nil
	}

	count := (len(data) + PayloadSize - 1) / PayloadSize
	if count > 0xffff {
		return nil, ErrTooManySegments
	}

	segments := make([]*Segment, count)
	for i := 0; i < count; i++ {
		start := i * PayloadSize
		end := start + PayloadSize
		if end > len(data) {
			end = len(data)
		}
		payload := make([]byte, end-start)
		copy(payload, data[start:end])

		segments[i] = &Segment{
			SeqNum:     uint16(int(isn) + i),
			AckNum:     0,
			Flags:      Flags{},
			WindowSize: 0,
			Payload:    payload,
		}
	}
	return segments, nil
}

// Reassemble deduplicates received (seq_num, payload) pairs by seq_num,
// orders them relative to isn (so sequence numbers are interpreted as
// small monotonically increasing offsets from isn, matching the sender's
// Segmentize order), and concatenates the payloads.
func Reassemble(received map[uint16][]byte, isn uint16) []byte {
	if len(received) == 0 {
		return nil
	}

	offsets := make([]uint16, 0, len(received))
	for seq := range received {
		offsets = append(offsets, seq-isn)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	out := make([]byte, 0, len(received)*PayloadSize)
	for _, off := range offsets {
		out = append(out, received[isn+off]...)
	}
	return out
}
