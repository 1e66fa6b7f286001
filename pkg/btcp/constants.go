// Package btcp implements the bTCP reliable byte-stream transport: a
// sliding-window protocol carried over an unreliable datagram substrate.
package btcp

// Wire format constants.
const (
	// HeaderSize is the fixed size, in bytes, of a bTCP segment header.
	HeaderSize = 10

	// PayloadSize is the maximum number of payload bytes a single segment
	// may carry.
	PayloadSize = 1008

	// MaxSegmentSize is the largest a full segment (header + payload) may be.
	MaxSegmentSize = HeaderSize + PayloadSize
)

// Flag bits, packed into the single flags byte of the header.
const (
	FlagACK uint8 = 1 << 0
	FlagSYN uint8 = 1 << 1
	FlagFIN uint8 = 1 << 2
)

// Retry budgets, matching the original implementation this spec is based on.
const (
	// SegTries is the number of send attempts a single DATA segment gets
	// before the whole transfer is abandoned.
	SegTries = 30

	// SynTries is the number of SYN (re)transmissions the client attempts
	// during connection establishment.
	SynTries = 30

	// FinTries is the number of FIN (re)transmissions the client attempts
	// during connection termination.
	FinTries = 15
)

// DefaultWindowSize is the server's default advertised window, used by the
// CLI front end when the operator doesn't override it.
const DefaultWindowSize = 5

// TimerScanInterval is how often the send engine's timer loop wakes up to
// re-check in-flight segments for expiry.
const TimerScanInterval = 5 // milliseconds

// Default fixed endpoints for the client/server CLI front ends: both sides
// talk UDP over localhost between one fixed client address and one fixed
// server address.
const (
	DefaultClientIP   = "127.0.0.1"
	DefaultClientPort = 35000
	DefaultServerIP   = "127.0.0.1"
	DefaultServerPort = 36000
)
