package btcp

// handshake_client.go implements the client side of the three-way
// handshake and two-way termination, grounded directly on
// original_source/src/btcp/client_socket.py's _handle_syn, _handle_syn_timeout,
// _handle_fin and _handle_fin_timeout. All four handlers run on the
// substrate's read-loop goroutine (via Dispatch in onSegment) or on a
// time.AfterFunc goroutine (the timeout handlers), so every access to
// client state takes c.mu.

// handleSynAck processes an inbound SYN+ACK during the SynSent state. A
// SYN+ACK whose ack_num does not match the SYN we sent is a replay or a
// stray segment from an earlier attempt and is silently ignored, matching
// the original's `ack_num == self._seq_num + 1` guard.
func (c *ClientSocket) handleSynAck(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ClientSynSent {
		return
	}
	if seg.AckNum != c.isn+1 {
		c.log.WithField("ack", seg.AckNum).Debug("btcp: client: dropping stray SYN+ACK")
		return
	}

	c.timer.cancel()
	c.nextSeq = c.isn + 1
	c.advertisedWindow.Store(uint32(seg.WindowSize))
	c.state = ClientEstablished
	c.connected = true

	c.sendSegment(&Segment{SeqNum: c.nextSeq, AckNum: seg.SeqNum + 1, Flags: Flags{ACK: true}})
	close(c.connectedCh)
}

// handleSynTimeout fires when no SYN+ACK arrives within the retry
// interval. It resends the SYN up to SynTries times before giving up,
// matching the original's tries-remaining countdown.
func (c *ClientSocket) handleSynTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ClientSynSent {
		return
	}
	if c.synTriesLeft <= 0 {
		c.state = ClientClosed
		close(c.connectedCh)
		return
	}

	c.synTriesLeft--
	c.log.WithField("tries_left", c.synTriesLeft).Debug("btcp: client: SYN timeout, retrying")
	c.sendSegment(&Segment{SeqNum: c.isn, Flags: Flags{SYN: true}})
	c.timer.arm(c.timeout, c.handleSynTimeout)
}

// handleAckFin processes the server's ACK+FIN reply during FinWait,
// completing the termination handshake. A duplicated ACK+FIN (the
// substrate may deliver it twice, or one may race a concurrent retry
// exhaustion) must be a no-op: the original's Event.set() is idempotent,
// so the Go port guards on c.finDecided rather than on state alone to
// avoid closing finishedCh twice.
func (c *ClientSocket) handleAckFin(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ClientFinWait || c.finDecided {
		return
	}

	c.timer.cancel()
	c.finDecided = true
	c.finished = true
	close(c.finishedCh)
}

// handleFinTimeout fires when no ACK+FIN arrives within the retry
// interval, resending FIN up to FinTries times.
func (c *ClientSocket) handleFinTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ClientFinWait || c.finDecided {
		return
	}
	if c.finTriesLeft <= 0 {
		c.finDecided = true
		close(c.finishedCh)
		return
	}

	c.finTriesLeft--
	c.log.WithField("tries_left", c.finTriesLeft).Debug("btcp: client: FIN timeout, retrying")
	c.sendSegment(&Segment{Flags: Flags{FIN: true}})
	c.timer.arm(c.timeout, c.handleFinTimeout)
}
