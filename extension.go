package ucp

import "context"

// Operation identifies which checkout mutation a request drives.
type Operation string

const (
	OpCreate   Operation = "create"
	OpGet      Operation = "get"
	OpUpdate   Operation = "update"
	OpComplete Operation = "complete"
	OpCancel   Operation = "cancel"
)

// Request is the transport-agnostic mutation request both bindings
// produce. Nil pointer fields mean "leave as is"; non-nil fields are
// full replacements of the corresponding checkout section.
type Request struct {
	Op             Operation
	LineItems      []LineItem
	Buyer          *Buyer
	Fulfillment    *Fulfillment
	Payment        *Payment
	DiscountCodes  []string
	Ap2            *Ap2
	IdempotencyKey string

	// ResolvedDiscounts is produced by the discount extension during the
	// pre-mutation hook and consumed by the store. Transport adapters
	// never populate it.
	ResolvedDiscounts *Discounts
}

// Hook is the point in the mutation flow at which an extension runs.
// Pre-mutation extensions shape what is stored (consent merge, discount
// resolution); post-mutation extensions enrich the outgoing response
// (mandate signing).
type Hook string

const (
	HookPreMutation  Hook = "pre"
	HookPostMutation Hook = "post"
)

// Extension is a capability-scoped filter composed around the core
// mutations. An extension whose capability was not negotiated is never
// invoked — an inactive extension is a complete no-op, not a disabled
// feature.
type Extension interface {
	// Key returns the capability name that activates this extension.
	Key() string

	// Hook returns where in the mutation flow the extension runs.
	Hook() Hook

	// Apply transforms the request or checkout. It may append messages
	// to the response or reject with a capability-specific *Error.
	// Post-mutation extensions receive a copy of the stored checkout and
	// may only enrich it; they cannot reach back into the store.
	Apply(ctx context.Context, req *Request, checkout *Checkout) ([]Message, error)
}

// Pipeline is an ordered list of extensions filtered per call by the
// negotiated profile.
type Pipeline struct {
	extensions []Extension
}

// NewPipeline composes extensions in the order given. Order matters for
// stacking semantics; the caller registers pre-mutation extensions in
// the order their request transforms should apply.
func NewPipeline(extensions ...Extension) *Pipeline {
	return &Pipeline{extensions: extensions}
}

// Run invokes every active extension registered for the given hook, in
// order, and collects their messages. The first extension error aborts
// the run.
func (p *Pipeline) Run(ctx context.Context, profile *Profile, hook Hook, req *Request, checkout *Checkout) ([]Message, error) {
	var messages []Message
	for _, ext := range p.extensions {
		if ext.Hook() != hook {
			continue
		}
		if !profile.Active(ext.Key()) {
			continue
		}
		msgs, err := ext.Apply(ctx, req, checkout)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msgs...)
	}
	return messages, nil
}
