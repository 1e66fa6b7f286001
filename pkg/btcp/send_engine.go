package btcp

import "time"

// send_engine.go implements the client-side sliding-window bulk-transfer
// engine, grounded on original_source/src/btcp/client_socket.py's send,
// _handle_ack, _timer_loop and _send_loop. The timer-loop cadence (a scan
// every TimerScanInterval) is lifted directly from the original's
// time.sleep(0.005).

// senderLoopIdleBackoff is how long the sender loop waits before
// rescanning when no segment could be transmitted (window full, or
// waiting on an advertised window of zero). The original's tight Python
// loop has no equivalent pause; Go goroutines need one to avoid spinning
// a core for nothing.
const senderLoopIdleBackoff = 1 * time.Millisecond

// Send reliably transfers data to the server. It blocks until every
// segment is acknowledged (success) or a segment's retry budget is
// exhausted (failure); a failed transfer leaves the connection
// established, per SPEC_FULL.md §7 — disconnect should still be attempted.
func (c *ClientSocket) Send(data []byte) bool {
	c.mu.Lock()
	base := c.nextSeq
	c.mu.Unlock()

	segments, err := Segmentize(data, base)
	if err != nil {
		c.log.WithError(err).Error("btcp: client: send rejected, payload too large")
		return false
	}

	c.sendBaseMu.Lock()
	c.statusMu.Lock()
	c.pendingMu.Lock()
	c.segments = segments
	c.triesLeft = make([]int, len(segments))
	c.status = make([]segStatus, len(segments))
	for i := range c.triesLeft {
		c.triesLeft[i] = SegTries
	}
	c.pending = nil
	c.sendBase = 0
	c.sendDone = make(chan struct{})
	c.pendingMu.Unlock()
	c.statusMu.Unlock()
	c.sendBaseMu.Unlock()

	c.timerWG.Add(1)
	go c.timerLoop(base)

	success := c.senderLoop(base)

	close(c.sendDone)
	c.timerWG.Wait()

	if success {
		c.log.Info("btcp: client: send completed")
	} else {
		c.log.Warn("btcp: client: send failed, a segment exhausted its retries")
	}
	return success
}

// handleAck processes an inbound data ACK: it updates the advertised
// window, marks the acked segment, and removes it from the pending list.
// When the ACK is for the segment at send_base, send_base advances to the
// next segment that is not yet acked (past any acked out of order).
// Duplicate ACKs for an already-acked segment are idempotent.
func (c *ClientSocket) handleAck(seg *Segment) {
	c.mu.Lock()
	base := c.nextSeq
	c.mu.Unlock()

	c.advertisedWindow.Store(uint32(seg.WindowSize))

	idx := int(seg.AckNum - base)

	c.sendBaseMu.Lock()
	c.statusMu.Lock()
	if idx >= 0 && idx < len(c.status) {
		c.status[idx] = segAcked
	}
	if c.sendBase == idx {
		for c.sendBase < len(c.status) && c.status[c.sendBase] == segAcked {
			c.sendBase++
		}
	}
	c.statusMu.Unlock()
	c.sendBaseMu.Unlock()

	c.pendingMu.Lock()
	filtered := c.pending[:0]
	for _, p := range c.pending {
		if p.seqNum != seg.AckNum {
			filtered = append(filtered, p)
		}
	}
	c.pending = filtered
	c.pendingMu.Unlock()
}

// timerLoop scans the pending list every TimerScanInterval, marking any
// segment whose round-trip exceeds c.timeout as TimedOut so the sender
// loop will resend it. It stops once c.sendDone is closed.
func (c *ClientSocket) timerLoop(base uint16) {
	defer c.timerWG.Done()
	timeoutMicros := c.timeout.Microseconds()

	for {
		select {
		case <-c.sendDone:
			return
		default:
		}

		now := nowMicros()

		c.statusMu.Lock()
		c.pendingMu.Lock()
		stillPending := c.pending[:0]
		for _, p := range c.pending {
			if now-p.sendTimeMicros > timeoutMicros {
				idx := int(p.seqNum - base)
				if idx >= 0 && idx < len(c.status) && c.status[idx] != segAcked {
					c.status[idx] = segTimedOut
				}
			} else {
				stillPending = append(stillPending, p)
			}
		}
		c.pending = stillPending
		c.pendingMu.Unlock()
		c.statusMu.Unlock()

		time.Sleep(TimerScanInterval * time.Millisecond)
	}
}

// senderLoop scans [send_base, send_base+advertised_window) and transmits
// at most one eligible segment per iteration, stopping when every segment
// is acked (success) or a segment's retries are exhausted (failure).
func (c *ClientSocket) senderLoop(base uint16) bool {
	for {
		c.sendBaseMu.Lock()
		sendBase := c.sendBase
		total := len(c.segments)
		if sendBase >= total {
			c.sendBaseMu.Unlock()
			return true
		}

		window := int(c.advertisedWindow.Load())
		windowEnd := sendBase + window
		if windowEnd > total {
			windowEnd = total
		}

		c.statusMu.Lock()
		c.pendingMu.Lock()

		sent := false
		failed := false
		for i := sendBase; i < windowEnd; i++ {
			if (c.status[i] == segNotSent || c.status[i] == segTimedOut) && len(c.pending) < window {
				if c.triesLeft[i] <= 0 {
					failed = true
					break
				}
				c.triesLeft[i]--
				c.sendSegment(c.segments[i])
				c.status[i] = segInFlight
				c.pending = append(c.pending, pendingEntry{
					seqNum:         c.segments[i].SeqNum,
					sendTimeMicros: nowMicros(),
				})
				sent = true
				break
			}
		}

		c.pendingMu.Unlock()
		c.statusMu.Unlock()
		c.sendBaseMu.Unlock()

		if failed {
			return false
		}
		if !sent {
			time.Sleep(senderLoopIdleBackoff)
		}
	}
}
