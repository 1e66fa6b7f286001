package btcp

import "time"

// receive_engine.go implements the server-side receive engine (C5):
// dedup-by-seq_num storage, an ACK-generation queue, and the ACK-dispatch
// loop that advertises window as backpressure, grounded on
// original_source/src/btcp/server_socket.py's _handle_data and
// _handle_buffer.

// ackDispatchIdleBackoff mirrors send_engine.go's idle backoff: the
// original's _handle_buffer is a tight busy loop polling an empty list,
// which a Go goroutine should not reproduce verbatim.
const ackDispatchIdleBackoff = 1 * time.Millisecond

// handleData processes an inbound DATA segment. Per the lenient
// pre-handshake policy recorded in SPEC_FULL.md §9, a DATA segment
// observed before Established implicitly completes the handshake: if the
// SYN was already seen the data base is derived from it (seqClient+1),
// otherwise the segment's own seq_num is taken as the base; but the
// segment itself is only buffered once the application has called Recv,
// matching the original's self._recv_data guard — data arriving before
// Recv is silently dropped rather than queued. Once the connection is
// Closing, inbound data is ignored outright.
func (s *ServerSocket) handleData(seg *Segment) {
	s.mu.Lock()
	if s.state == ServerClosing || s.state == ServerClosed {
		s.mu.Unlock()
		return
	}
	if !s.accepted {
		// If the SYN was already seen (we're mid-handshake but the
		// client's final ACK was lost), the correct data base is the
		// sequence number that ACK would have carried, not whatever
		// DATA segment happens to arrive first — under reordering that
		// need not be the lowest-numbered one.
		if s.state == ServerSynReceived {
			s.markEstablished(s.seqClient + 1)
		} else {
			s.markEstablished(seg.SeqNum)
		}
	}
	receiving := s.receiving
	s.mu.Unlock()

	if !receiving {
		return
	}

	s.receivedMu.Lock()
	s.received[seg.SeqNum] = seg.Payload
	s.receivedMu.Unlock()

	s.ackQueueMu.Lock()
	s.ackQueue = append(s.ackQueue, seg.SeqNum)
	s.ackQueueMu.Unlock()
}

// Recv starts the ACK-dispatch loop and blocks until the client's FIN
// arrives, then returns the reassembled byte stream.
func (s *ServerSocket) Recv() []byte {
	s.mu.Lock()
	s.receiving = true
	closingCh := s.closingCh
	s.mu.Unlock()

	s.dispatchWG.Add(1)
	go s.ackDispatchLoop()

	<-closingCh

	s.dispatchWG.Wait()

	s.mu.Lock()
	isn := s.dataISN
	s.mu.Unlock()

	s.receivedMu.Lock()
	data := Reassemble(s.received, isn)
	s.receivedMu.Unlock()

	s.log.WithField("bytes", len(data)).Info("btcp: server: transfer complete")
	return data
}

// ackDispatchLoop continuously drains the ACK queue, sending one ACK per
// received segment and advertising window = max(WINDOW_SIZE -
// len(ack_queue), 0) so a growing backlog throttles the sender.
func (s *ServerSocket) ackDispatchLoop() {
	defer s.dispatchWG.Done()

	s.mu.Lock()
	closingCh := s.closingCh
	s.mu.Unlock()

	for {
		select {
		case <-closingCh:
			return
		default:
		}

		s.ackQueueMu.Lock()
		if len(s.ackQueue) == 0 {
			s.ackQueueMu.Unlock()
			time.Sleep(ackDispatchIdleBackoff)
			continue
		}
		seqNum := s.ackQueue[0]
		s.ackQueue = s.ackQueue[1:]
		remaining := len(s.ackQueue)
		s.ackQueueMu.Unlock()

		window := int(s.windowSize) - remaining
		if window < 0 {
			window = 0
		}
		s.sendSegment(&Segment{AckNum: seqNum, Flags: Flags{ACK: true}, WindowSize: uint8(window)})
	}
}
