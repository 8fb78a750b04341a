package embedded

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// historyLimit bounds the per-session message log so a long-lived
// embedding cannot grow memory without bound.
const historyLimit = 50

var versionPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SessionConfig is the query-parameter contract for opening an
// embedding.
type SessionConfig struct {
	Version    string
	Delegates  []string
	Auth       string
	CheckoutID string
}

// ParseQuery reads the embedding query contract: ec_version
// (YYYY-MM-DD, required), ec_delegate (comma-separated, unsupported
// entries silently dropped), ec_auth (opaque, optional).
func ParseQuery(checkoutID string, query url.Values) (*SessionConfig, error) {
	version := query.Get("ec_version")
	if !versionPattern.MatchString(version) {
		return nil, fmt.Errorf("ec_version must be a YYYY-MM-DD date, got %q", version)
	}

	var delegates []string
	if raw := query.Get("ec_delegate"); raw != "" {
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if isSupportedDelegation(entry) {
				delegates = append(delegates, entry)
			}
		}
	}

	return &SessionConfig{
		Version:    version,
		Delegates:  delegates,
		Auth:       query.Get("ec_auth"),
		CheckoutID: checkoutID,
	}, nil
}

func isSupportedDelegation(name string) bool {
	for _, d := range SupportedDelegations {
		if d == name {
			return true
		}
	}
	return false
}

// Session tracks one embedding's lifecycle: created, then ready after
// the ec.ready handshake, then started once the checkout is visible to
// the buyer, then completed. The flags are monotonic; transitions fire
// at most once.
type Session struct {
	ID         string
	CheckoutID string
	Version    string
	Auth       string

	mu        sync.Mutex
	requested []string
	accepted  []string
	ready     bool
	started   bool
	completed bool
	canceled  bool
	history   []string
}

// NewSession creates a session from the parsed query contract.
func NewSession(cfg *SessionConfig) *Session {
	return &Session{
		ID:         "sess_" + uuid.NewString(),
		CheckoutID: cfg.CheckoutID,
		Version:    cfg.Version,
		Auth:       cfg.Auth,
		requested:  append([]string(nil), cfg.Delegates...),
	}
}

// MarkReady records the completed handshake and negotiates delegations
// as the intersection of requested and host-offered. It returns true
// the first time only.
func (s *Session) MarkReady(hostRequested []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready || s.canceled {
		return false
	}
	s.ready = true
	s.accepted = intersectDelegations(s.requested, hostRequested)
	return true
}

// MarkStarted records buyer visibility. Idempotent; returns true the
// first time only.
func (s *Session) MarkStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || s.started || s.completed || s.canceled {
		return false
	}
	s.started = true
	return true
}

// MarkCompleted records the terminal checkout status. Irreversible;
// returns true the first time only so exactly one completion
// notification fires.
func (s *Session) MarkCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || s.canceled {
		return false
	}
	s.completed = true
	return true
}

// MarkCanceled records a host cancellation from any non-terminal state.
func (s *Session) MarkCanceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || s.canceled {
		return false
	}
	s.canceled = true
	return true
}

// Ready reports whether the handshake has completed.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Started reports whether per-mutation notifications should flow.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.completed && !s.canceled
}

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// AcceptedDelegations returns the negotiated delegation set.
func (s *Session) AcceptedDelegations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.accepted...)
}

// DelegationAccepted reports whether the named delegation may be
// issued over this session.
func (s *Session) DelegationAccepted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.accepted {
		if d == name {
			return true
		}
	}
	return false
}

// Record appends a method name to the bounded session history.
func (s *Session) Record(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, method)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// History returns a copy of the recent message log.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// intersectDelegations keeps order from the session's requested list.
// A delegation is accepted only when the embedding asked for it, the
// handshake offered it, and the server implements it.
func intersectDelegations(requested, offered []string) []string {
	offeredSet := make(map[string]bool, len(offered))
	for _, d := range offered {
		offeredSet[d] = true
	}
	var out []string
	for _, d := range requested {
		if offeredSet[d] && isSupportedDelegation(d) {
			out = append(out, d)
		}
	}
	return out
}
