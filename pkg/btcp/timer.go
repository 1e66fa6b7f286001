package btcp

import "time"

// retryTimer is a cancellable single-shot timer used by the handshake and
// termination state machines. Every successful state transition cancels the
// previous timer before a new one is armed.
type retryTimer struct {
	t *time.Timer
}

// arm starts (or re-arms) the timer to fire fn after d. Any previously
// armed timer is stopped first.
func (r *retryTimer) arm(d time.Duration, fn func()) {
	r.cancel()
	r.t = time.AfterFunc(d, fn)
}

// cancel stops the timer if armed. Safe to call when no timer is armed.
func (r *retryTimer) cancel() {
	if r.t != nil {
		r.t.Stop()
	}
}
