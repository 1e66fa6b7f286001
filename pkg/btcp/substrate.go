package btcp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// SegmentTOS is the IP TOS byte the substrate marks every outgoing bTCP
// datagram with, the way a real UDP service would distinguish its own
// traffic at the IP layer.
const SegmentTOS = 0x10 // low-delay, matching an interactive bulk-transfer profile

// Substrate is the interface C3/C4/C5 consume through C6: a non-blocking,
// best-effort send of one already-encoded segment, plus registration of a
// callback invoked (from a substrate-owned goroutine) once per decoded
// inbound segment. Implementations must never block the delivery goroutine
// beyond O(1) dispatch work.
type Substrate interface {
	Send(encoded []byte) error
	SetOnSegment(func(*Segment))
	Close() error
}

// udpSubstrate is the production Substrate: a real UDP socket between two
// fixed endpoints. Grounded on the teacher's pkg/tcp/socket.go sendFunc/
// onSegmentReady callback wiring, with the IP-layer TOS control taken from
// pkg/multicast/multicast.go's ipv4.NewPacketConn(udpConn) pattern.
type udpSubstrate struct {
	conn       *net.UDPConn
	packetConn *ipv4.PacketConn
	remoteAddr *net.UDPAddr

	onSegment atomic.Pointer[func(*Segment)]

	log *logrus.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewUDPSubstrate binds a UDP socket at localAddr and targets remoteAddr,
// starting the inbound read loop immediately. The caller registers its
// callback with SetOnSegment before (or after) segments start arriving; any
// segment delivered before a callback is registered is silently dropped.
func NewUDPSubstrate(localAddr, remoteAddr *net.UDPAddr, log *logrus.Logger) (*udpSubstrate, error) {
	conn, err := net.ListenUDP("udp4", localAddr)
	if err != nil {
		return nil, err
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetTOS(SegmentTOS); err != nil {
		// Not every platform/kernel honors IP_TOS on a UDP socket;
		// this is cosmetic traffic marking, not correctness-critical,
		// so a failure here is logged and otherwise ignored.
		log.WithError(err).Debug("btcp: substrate: failed to set TOS, continuing without it")
	}

	s := &udpSubstrate{
		conn:       conn,
		packetConn: pc,
		remoteAddr: remoteAddr,
		log:        log,
		closed:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *udpSubstrate) SetOnSegment(cb func(*Segment)) {
	s.onSegment.Store(&cb)
}

// Send best-effort transmits an already-encoded segment. Errors are logged
// and returned; per SPEC_FULL.md §7, substrate-level failures are transient
// and absorbed by the caller's own retry machinery.
func (s *udpSubstrate) Send(encoded []byte) error {
	_, err := s.conn.WriteToUDP(encoded, s.remoteAddr)
	if err != nil {
		s.log.WithError(err).Warn("btcp: substrate: send failed")
	}
	return err
}

func (s *udpSubstrate) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// readLoop is the substrate-owned goroutine. It decodes each inbound
// datagram and hands the result to the registered callback; malformed or
// corrupt segments are dropped here and never reach the callback, per
// SPEC_FULL.md §4.2.
func (s *udpSubstrate) readLoop() {
	buf := make([]byte, MaxSegmentSize)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
				s.log.WithError(err).Debug("btcp: substrate: read error")
				continue
			}
		}

		seg, err := Decode(buf[:n])
		if err != nil {
			s.log.WithError(err).Debug("btcp: substrate: dropping unusable segment")
			continue
		}

		if cbp := s.onSegment.Load(); cbp != nil {
			(*cbp)(seg)
		}
	}
}

// Dispatch routes a decoded segment to one of six handlers by flag
// pattern, per SPEC_FULL.md §4.2: ACK∧SYN → handshake, ACK∧FIN →
// termination, ACK → data-ack, SYN → server handshake, FIN → server
// termination, otherwise → data.
func Dispatch(seg *Segment, onSynAck, onAckFin, onAck, onSyn, onFin, onData func(*Segment)) {
	switch {
	case seg.Flags.ACK && seg.Flags.SYN:
		if onSynAck != nil {
			onSynAck(seg)
		}
	case seg.Flags.ACK && seg.Flags.FIN:
		if onAckFin != nil {
			onAckFin(seg)
		}
	case seg.Flags.ACK:
		if onAck != nil {
			onAck(seg)
		}
	case seg.Flags.SYN:
		if onSyn != nil {
			onSyn(seg)
		}
	case seg.Flags.FIN:
		if onFin != nil {
			onFin(seg)
		}
	default:
		if onData != nil {
			onData(seg)
		}
	}
}
