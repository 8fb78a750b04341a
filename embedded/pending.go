package embedded

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultPendingTimeout is how long a host-bound delegation request may
// stay unanswered before it is abandoned.
const DefaultPendingTimeout = 5 * time.Minute

// Result is the terminal outcome of one pending request. Exactly one of
// Value and Err is set.
type Result struct {
	Value json.RawMessage
	Err   *ErrorObject
}

type pendingSlot struct {
	ch    chan Result
	timer *time.Timer
}

// PendingMap tracks in-flight JSON-RPC requests keyed by id. Each slot
// resolves exactly once: by a matching response, or by timeout expiry,
// whichever comes first. Timeout resolution is reported as a
// user-cancellation-equivalent failure and the checkout is left
// untouched.
type PendingMap struct {
	mu      sync.Mutex
	slots   map[string]*pendingSlot
	timeout time.Duration
}

// NewPendingMap creates a pending map with the given timeout; zero
// means DefaultPendingTimeout.
func NewPendingMap(timeout time.Duration) *PendingMap {
	if timeout <= 0 {
		timeout = DefaultPendingTimeout
	}
	return &PendingMap{
		slots:   make(map[string]*pendingSlot),
		timeout: timeout,
	}
}

// Register creates a slot for a request id and returns the channel its
// result will arrive on. The slot expires after the map's timeout.
func (p *PendingMap) Register(id string) <-chan Result {
	ch := make(chan Result, 1)
	slot := &pendingSlot{ch: ch}

	// The timer must be set before the slot is visible: resolve reads
	// slot.timer as soon as the id is in the map.
	p.mu.Lock()
	slot.timer = time.AfterFunc(p.timeout, func() {
		p.resolve(id, Result{Err: &ErrorObject{
			Code:    CodeUserCancelled,
			Message: "delegated request timed out waiting for the host",
		}})
	})
	p.slots[id] = slot
	p.mu.Unlock()
	return ch
}

// Resolve delivers a response to its pending slot. It reports whether
// the id was still pending; duplicate or late responses are dropped.
func (p *PendingMap) Resolve(id string, res Result) bool {
	return p.resolve(id, res)
}

// Cancel abandons a pending request without delivering a result,
// for channel teardown.
func (p *PendingMap) Cancel(id string) {
	p.mu.Lock()
	slot, ok := p.slots[id]
	if ok {
		delete(p.slots, id)
	}
	p.mu.Unlock()
	if ok && slot.timer != nil {
		slot.timer.Stop()
	}
}

// Len reports the number of in-flight requests.
func (p *PendingMap) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

func (p *PendingMap) resolve(id string, res Result) bool {
	p.mu.Lock()
	slot, ok := p.slots[id]
	if ok {
		delete(p.slots, id)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	if slot.timer != nil {
		slot.timer.Stop()
	}
	slot.ch <- res
	return true
}
