package btcp

// handshake_server.go implements the server side of the three-way
// handshake and its half of termination, grounded on
// original_source/src/btcp/server_socket.py's _handle_syn, _handle_ack
// and _handle_fin. All handlers run on the substrate's read-loop
// goroutine and take s.mu.

// handleSyn processes an inbound SYN. It replies with SYN+ACK using a
// freshly chosen server ISN and re-sends the same SYN+ACK for a duplicate
// SYN received while already in SynReceived, per SPEC_FULL.md §4.3.
func (s *ServerSocket) handleSyn(seg *Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case ServerListen:
		s.seqClient = seg.SeqNum
		s.seqServer = uint16(secureRandomUint32() & 0xff) // narrow range: server ISN only matters within the handshake
		s.state = ServerSynReceived
	case ServerSynReceived:
		if seg.SeqNum != s.seqClient {
			s.log.Debug("btcp: server: dropping SYN for different client sequence while handshaking")
			return
		}
		// Duplicate SYN: resend the same SYN+ACK below.
	default:
		return
	}

	s.sendSegment(&Segment{SeqNum: s.seqServer, AckNum: s.seqClient + 1, Flags: Flags{ACK: true, SYN: true}, WindowSize: s.windowSize})
}

// handleAck processes the client's final handshake ACK. A duplicate ACK
// for an already-completed handshake is silently dropped, per the
// decision recorded in SPEC_FULL.md §9.
func (s *ServerSocket) handleAck(seg *Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ServerSynReceived {
		return
	}
	if seg.SeqNum != s.seqClient+1 || seg.AckNum != s.seqServer+1 {
		return
	}

	s.seqClient++
	s.seqServer++
	s.markEstablished(s.seqClient)
}

// handleFin replies to the client's termination FIN with ACK+FIN and, the
// first time it's seen, signals the receive engine to stop. The ACK+FIN
// reply itself is unconditional on every inbound FIN (including ones
// received while already Closing) matching the original's _handle_fin,
// which unconditionally resends ACK+FIN — that resend is what recovers a
// client retry when the first ACK+FIN was lost or corrupted in transit.
// Only the one-shot Closing transition and closingCh signal are guarded.
func (s *ServerSocket) handleFin(seg *Segment) {
	s.mu.Lock()
	if s.state != ServerClosing && s.state != ServerClosed {
		s.state = ServerClosing
		if s.closingCh != nil {
			close(s.closingCh)
		}
	}
	alreadyClosed := s.state == ServerClosed
	s.mu.Unlock()

	if alreadyClosed {
		return
	}

	s.sendSegment(&Segment{Flags: Flags{ACK: true, FIN: true}})
}
