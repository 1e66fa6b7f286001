package btcp

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// faultysubstrate_test.go implements an in-memory impaired medium standing in
// for the external lossy datagram substrate described in SPEC_FULL.md §1
// (drop, corrupt, duplicate, delay, reorder). original_source's
// lossy_layer module (imported by both btcp_socket.py subclasses) was not
// retrieved alongside the rest of the original sources, so this is built
// directly from the substrate contract in SPEC_FULL.md §4.2 and the
// scenario parameters in §8.

// FaultyMediumConfig controls the independent probability of each
// impairment FaultyMedium applies to a datagram in transit.
type FaultyMediumConfig struct {
	DropProb      float64 // probability a datagram never arrives
	CorruptProb   float64 // probability a single byte is flipped in transit
	DuplicateProb float64 // probability a datagram is delivered twice
	BaseDelay     time.Duration
	ReorderJitter time.Duration // additional random delay in [0, ReorderJitter)
}

// FaultyMedium is a bidirectional impaired link between two endpoints,
// each obtained via EndpointA/EndpointB. It implements Substrate on both
// ends without touching a real socket, for deterministic tests of
// SPEC_FULL.md §8's reliability scenarios.
type FaultyMedium struct {
	cfg FaultyMediumConfig

	rngMu sync.Mutex
	rng   *rand.Rand

	aOnSegment atomic.Pointer[func(*Segment)]
	bOnSegment atomic.Pointer[func(*Segment)]
}

// NewFaultyMedium builds a medium with the given impairment configuration.
// seed makes the impairment sequence reproducible across test runs.
func NewFaultyMedium(cfg FaultyMediumConfig, seed int64) *FaultyMedium {
	return &FaultyMedium{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// EndpointA returns the Substrate for the connection's client side.
func (m *FaultyMedium) EndpointA() Substrate {
	return &faultyEndpoint{medium: m, local: &m.aOnSegment, remote: &m.bOnSegment}
}

// EndpointB returns the Substrate for the connection's server side.
func (m *FaultyMedium) EndpointB() Substrate {
	return &faultyEndpoint{medium: m, local: &m.bOnSegment, remote: &m.aOnSegment}
}

func (m *FaultyMedium) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Float64() < p
}

func (m *FaultyMedium) jitter() time.Duration {
	if m.cfg.ReorderJitter <= 0 {
		return 0
	}
	m.rngMu.Lock()
	n := m.rng.Int63n(int64(m.cfg.ReorderJitter))
	m.rngMu.Unlock()
	return time.Duration(n)
}

func (m *FaultyMedium) transmit(encoded []byte, remote *atomic.Pointer[func(*Segment)]) {
	if m.chance(m.cfg.DropProb) {
		return
	}

	data := append([]byte(nil), encoded...)
	if m.chance(m.cfg.CorruptProb) {
		m.rngMu.Lock()
		idx := m.rng.Intn(len(data))
		data[idx] ^= 0xff
		m.rngMu.Unlock()
	}

	delay := m.cfg.BaseDelay + m.jitter()
	time.AfterFunc(delay, func() { m.deliver(data, remote) })

	if m.chance(m.cfg.DuplicateProb) {
		dupDelay := m.cfg.BaseDelay + m.jitter()
		dup := append([]byte(nil), data...)
		time.AfterFunc(dupDelay, func() { m.deliver(dup, remote) })
	}
}

func (m *FaultyMedium) deliver(data []byte, remote *atomic.Pointer[func(*Segment)]) {
	seg, err := Decode(data)
	if err != nil {
		return
	}
	if cbp := remote.Load(); cbp != nil {
		(*cbp)(seg)
	}
}

// faultyEndpoint is one side of a FaultyMedium, satisfying Substrate.
type faultyEndpoint struct {
	medium *FaultyMedium
	local  *atomic.Pointer[func(*Segment)]
	remote *atomic.Pointer[func(*Segment)]
}

func (e *faultyEndpoint) SetOnSegment(cb func(*Segment)) {
	e.local.Store(&cb)
}

func (e *faultyEndpoint) Send(encoded []byte) error {
	e.medium.transmit(encoded, e.remote)
	return nil
}

func (e *faultyEndpoint) Close() error {
	return nil
}
