package services

import (
	"context"
	"sync"
)

// resolveTracker hands out monotonically increasing tokens per session so
// only the newest profile resolution may apply its result.
type resolveTracker struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]resolution
}

type resolution struct {
	token  uint64
	cancel context.CancelFunc
}

func newResolveTracker() *resolveTracker {
	return &resolveTracker{inflight: make(map[string]resolution)}
}

// begin registers a new resolution for sessionID, cancelling the previous one
func (t *resolveTracker) begin(ctx context.Context, sessionID string) (context.Context, uint64) {
	rctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.inflight[sessionID]; ok {
		prev.cancel()
	}
	t.seq++
	t.inflight[sessionID] = resolution{token: t.seq, cancel: cancel}
	return rctx, t.seq
}

// current reports whether token is still the newest for sessionID
func (t *resolveTracker) current(sessionID string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.inflight[sessionID]
	return ok && r.token == token
}

// finish releases token's context and, if it is still current, clears it
func (t *resolveTracker) finish(sessionID string, token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.inflight[sessionID]
	if ok && r.token == token {
		r.cancel()
		delete(t.inflight, sessionID)
	}
}

// abort cancels whatever resolution is in flight for sessionID
func (t *resolveTracker) abort(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.inflight[sessionID]; ok {
		r.cancel()
		delete(t.inflight, sessionID)
	}
}

func (t *resolveTracker) inFlight(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inflight[sessionID]
	return ok
}
