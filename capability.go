package ucp

import (
	"sort"
	"sync"
)

// Capability names in the dev.ucp.shopping namespace.
const (
	CapabilityCheckout     = "dev.ucp.shopping.checkout"
	CapabilityDiscount     = "dev.ucp.shopping.discount"
	CapabilityBuyerConsent = "dev.ucp.shopping.buyer_consent"
	CapabilityAp2Mandate   = "dev.ucp.shopping.ap2_mandate"
)

// Capability is a named, versioned optional behavior negotiated between
// the platform and the business. Extensions other than the core
// checkout capability carry Extends = CapabilityCheckout.
type Capability struct {
	Name    string                 `json:"name"`
	Version string                 `json:"version"`
	Spec    string                 `json:"spec,omitempty"`
	Schema  string                 `json:"schema,omitempty"`
	Extends string                 `json:"extends,omitempty"`
	Config  map[string]interface{} `json:"config,omitempty"`
}

// Registry declares which capabilities this business supports. It is
// pure lookup/config and holds no per-checkout state.
type Registry struct {
	mu        sync.RWMutex
	supported map[string]Capability
	order     []string
}

// NewRegistry creates a registry pre-seeded with the core checkout
// capability, which is always supported.
func NewRegistry() *Registry {
	r := &Registry{supported: make(map[string]Capability)}
	r.Register(Capability{
		Name:    CapabilityCheckout,
		Version: ProtocolVersion,
		Spec:    "https://ucp.dev/specification/checkout",
		Schema:  "https://ucp.dev/schemas/shopping/checkout.json",
	})
	return r
}

// Register declares a supported capability. Re-registering a name
// replaces the prior declaration.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.supported[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.supported[c.Name] = c
}

// Supported reports whether a capability name is declared.
func (r *Registry) Supported(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.supported[name]
	return ok
}

// Capabilities returns the declared capabilities in registration order,
// for the discovery document and response metadata.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.supported[name])
	}
	return out
}

// Negotiate computes the capability intersection for a session: only
// names that are both requested and supported become active. The core
// checkout capability is always active.
func (r *Registry) Negotiate(requested []string) *Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := map[string]Capability{
		CapabilityCheckout: r.supported[CapabilityCheckout],
	}
	for _, name := range requested {
		if c, ok := r.supported[name]; ok {
			active[name] = c
		}
	}
	return &Profile{active: active}
}

// AllActive returns a profile with every supported capability active.
// Used by the tool-call binding, where the platform profile URI implies
// the full business capability set.
func (r *Registry) AllActive() *Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	active := make(map[string]Capability, len(r.supported))
	for name, c := range r.supported {
		active[name] = c
	}
	return &Profile{active: active}
}

// Profile is the negotiated capability set for one session. Immutable
// after negotiation.
type Profile struct {
	active map[string]Capability
}

// Active reports whether the named capability was negotiated.
func (p *Profile) Active(name string) bool {
	if p == nil {
		return name == CapabilityCheckout
	}
	_, ok := p.active[name]
	return ok
}

// Names returns the active capability names, sorted for determinism.
func (p *Profile) Names() []string {
	if p == nil {
		return []string{CapabilityCheckout}
	}
	names := make([]string, 0, len(p.active))
	for name := range p.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
