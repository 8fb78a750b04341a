package embedded

import (
	"sync"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Manager owns the live embedded sessions for one process. Sessions are
// keyed by checkout id; opening a new embedding for a checkout replaces
// any prior session for it.
type Manager struct {
	service *ucp.Service

	mu       sync.RWMutex
	handlers map[string]*Handler
}

// NewManager creates an empty session manager over the shared service.
func NewManager(service *ucp.Service) *Manager {
	return &Manager{
		service:  service,
		handlers: make(map[string]*Handler),
	}
}

// Open negotiates a session from the parsed query contract and binds it
// to the given channel.
func (m *Manager) Open(cfg *SessionConfig, channel Channel, opts ...HandlerOption) *Handler {
	session := NewSession(cfg)
	profile := m.service.Registry().AllActive()
	handler := NewHandler(m.service, session, channel, profile, opts...)

	m.mu.Lock()
	m.handlers[cfg.CheckoutID] = handler
	m.mu.Unlock()
	return handler
}

// Lookup returns the live handler for a checkout, if any.
func (m *Manager) Lookup(checkoutID string) (*Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[checkoutID]
	return h, ok
}

// Close detaches a handler's session. The map entry is removed only
// when the handler is still the registered one for its checkout: a
// reconnect may already have replaced it, and the old connection's
// teardown must not tear down the replacement.
func (m *Manager) Close(h *Handler) {
	if h == nil {
		return
	}
	m.mu.Lock()
	if cur, ok := m.handlers[h.session.CheckoutID]; ok && cur == h {
		delete(m.handlers, h.session.CheckoutID)
	}
	m.mu.Unlock()
	h.session.MarkCanceled()
}
