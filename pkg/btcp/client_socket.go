package btcp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// segStatus is a per-segment send-engine status, per SPEC_FULL.md §3.
type segStatus int

const (
	segNotSent segStatus = iota
	segInFlight
	segTimedOut
	segAcked
)

type pendingEntry struct {
	seqNum       uint16
	sendTimeMicros int64
}

// ClientSocket is the client-side public entry point: Connect, Send,
// Disconnect, Close. Grounded on the teacher's pkg/tcp/socket.go Socket
// type, with handshake/termination semantics (handshake_client.go) and
// bulk-transfer semantics (send_engine.go) taken from
// original_source/src/btcp/client_socket.py.
type ClientSocket struct {
	sub     Substrate
	timeout time.Duration // per-segment/per-retry timeout
	log     *logrus.Logger

	mu      sync.Mutex
	state   ClientState
	isn     uint16 // initial sequence number chosen at Connect
	nextSeq uint16 // ISN+1 once the handshake completes; base for data seq_nums

	timer        retryTimer
	synTriesLeft int
	connectedCh  chan struct{}
	connected    bool

	finTriesLeft int
	finishedCh   chan struct{}
	finished     bool
	finDecided   bool // guards finishedCh against a double close from a duplicated ACK+FIN racing retry exhaustion

	advertisedWindow atomic.Uint32 // stores uint8 as uint32 for atomic access

	// Send-engine state (re-initialised on every Send call).
	segments  []*Segment
	triesLeft []int
	status    []segStatus
	pending   []pendingEntry
	sendBase  int

	sendBaseMu sync.Mutex
	statusMu   sync.Mutex
	pendingMu  sync.Mutex

	sendDone   chan struct{} // closed to stop the timer loop
	timerWG    sync.WaitGroup
	transferFailed atomic.Bool
}

// NewClientSocket constructs a client socket over the given substrate.
// timeoutMillis is scaled internally to timeout_seconds = ms/100000,
// matching the original
// implementation's `timeout / 100000` division (the default of 100ms
// therefore yields a ~1ms effective per-segment timeout).
func NewClientSocket(sub Substrate, timeoutMillis int, log *logrus.Logger) *ClientSocket {
	c := &ClientSocket{
		sub:     sub,
		timeout: time.Duration(float64(timeoutMillis)/100000.0*float64(time.Second)),
		log:     log,
		state:   ClientClosed,
	}
	sub.SetOnSegment(c.onSegment)
	return c
}

func (c *ClientSocket) onSegment(seg *Segment) {
	Dispatch(seg, c.handleSynAck, c.handleAckFin, c.handleAck, nil, nil, nil)
}

// Connect performs the three-way handshake's active-open side. It blocks
// until the connection is established or the SYN retry budget is
// exhausted.
func (c *ClientSocket) Connect() bool {
	c.mu.Lock()
	c.connectedCh = make(chan struct{})
	c.connected = false
	c.synTriesLeft = SynTries
	c.isn = randomSeq()
	c.state = ClientSynSent
	seq := c.isn
	c.mu.Unlock()

	c.log.WithField("isn", seq).Info("btcp: client: connecting")
	c.sendSegment(&Segment{SeqNum: seq, AckNum: 0, Flags: Flags{SYN: true}})

	c.mu.Lock()
	c.timer.arm(c.timeout, c.handleSynTimeout)
	c.mu.Unlock()

	<-c.connectedCh

	c.mu.Lock()
	ok := c.connected
	c.mu.Unlock()
	if ok {
		c.log.Info("btcp: client: connection established")
	} else {
		c.log.Warn("btcp: client: connect failed, SYN retries exhausted")
	}
	return ok
}

// Disconnect performs the two-way termination handshake. It blocks until
// the server's ACK+FIN arrives or the FIN retry budget is exhausted.
func (c *ClientSocket) Disconnect() bool {
	c.mu.Lock()
	c.finishedCh = make(chan struct{})
	c.finished = false
	c.finDecided = false
	c.finTriesLeft = FinTries
	c.state = ClientFinWait
	c.mu.Unlock()

	c.sendSegment(&Segment{Flags: Flags{FIN: true}})

	c.mu.Lock()
	c.timer.arm(c.timeout, c.handleFinTimeout)
	c.mu.Unlock()

	<-c.finishedCh

	c.mu.Lock()
	ok := c.finished
	if ok {
		c.state = ClientClosed2
	}
	c.mu.Unlock()

	if ok {
		c.log.Info("btcp: client: connection terminated")
	} else {
		c.log.Warn("btcp: client: disconnect failed, FIN retries exhausted")
	}
	return ok
}

// Close releases the substrate and cancels any outstanding timer, even if
// called from an error path.
func (c *ClientSocket) Close() {
	c.mu.Lock()
	c.timer.cancel()
	c.mu.Unlock()
	_ = c.sub.Close()
}

func (c *ClientSocket) sendSegment(seg *Segment) {
	encoded, err := Encode(seg)
	if err != nil {
		// Only programmer error (out-of-range fields) reaches here;
		// every caller in this file builds segments within range.
		c.log.WithError(err).Error("btcp: client: refusing to send invalid segment")
		return
	}
	_ = c.sub.Send(encoded)
}

func randomSeq() uint16 {
	return uint16(secureRandomUint32() & 0xffff)
}
