package btcp

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ServerSocket is the server-side public entry point: Accept, Recv, Close.
// Structured the same way as ClientSocket, with handshake/termination
// methods in handshake_server.go and the receive engine in
// receive_engine.go.
type ServerSocket struct {
	sub        Substrate
	windowSize uint8
	log        *logrus.Logger

	mu         sync.Mutex
	state      ServerState
	seqClient  uint16
	seqServer  uint16
	dataISN    uint16
	acceptedCh chan struct{}
	accepted   bool
	receiving  bool

	receivedMu sync.Mutex
	received   map[uint16][]byte

	ackQueueMu sync.Mutex
	ackQueue   []uint16

	closingCh  chan struct{}
	dispatchWG sync.WaitGroup
}

// NewServerSocket constructs a server socket over the given substrate,
// advertising windowSize as the server's receive window. acceptedCh and
// closingCh are created up front (rather than lazily in Accept/Recv)
// because the substrate's read loop may start delivering segments —
// including, under the lenient pre-handshake policy, a DATA segment that
// completes the handshake — before the application calls Accept.
func NewServerSocket(sub Substrate, windowSize uint8, log *logrus.Logger) *ServerSocket {
	s := &ServerSocket{
		sub:        sub,
		windowSize: windowSize,
		log:        log,
		state:      ServerListen,
		acceptedCh: make(chan struct{}),
		closingCh:  make(chan struct{}),
		received:   make(map[uint16][]byte),
	}
	sub.SetOnSegment(s.onSegment)
	return s
}

func (s *ServerSocket) onSegment(seg *Segment) {
	Dispatch(seg, nil, nil, s.handleAck, s.handleSyn, s.handleFin, s.handleData)
}

// Accept blocks until a client has established a connection, either via a
// completed three-way handshake or (per the lenient pre-handshake policy)
// the arrival of the first DATA segment.
func (s *ServerSocket) Accept() {
	s.log.Info("btcp: server: waiting for connection")
	<-s.acceptedCh
	s.log.Info("btcp: server: connection established")
}

// Close releases the substrate. Any in-flight ACK-dispatch goroutine is
// expected to have already stopped by the time Recv returns.
func (s *ServerSocket) Close() {
	_ = s.sub.Close()
}

func (s *ServerSocket) sendSegment(seg *Segment) {
	encoded, err := Encode(seg)
	if err != nil {
		s.log.WithError(err).Error("btcp: server: refusing to send invalid segment")
		return
	}
	_ = s.sub.Send(encoded)
}

// markEstablished transitions the server into Established exactly once,
// whether reached via the formal handshake or the lenient first-DATA path,
// and releases any goroutine blocked in Accept.
func (s *ServerSocket) markEstablished(dataISN uint16) {
	if s.accepted {
		return
	}
	s.accepted = true
	s.state = ServerEstablished
	s.dataISN = dataISN
	if s.acceptedCh != nil {
		close(s.acceptedCh)
	}
}
