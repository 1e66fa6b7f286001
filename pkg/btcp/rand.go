package btcp

import (
	"crypto/rand"
	"encoding/binary"
)

// secureRandomUint32 generates a random initial sequence number, the way
// the teacher's pkg/tcp/connection.go generateISN does: four bytes off
// crypto/rand decoded big-endian, rather than a seeded math/rand source.
func secureRandomUint32() uint32 {
	var b [4]byte
	rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}
