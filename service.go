package ucp

import (
	"context"
	"log/slog"
)

// PaymentProcessor authorizes a payment during completion. The real
// payment network lives behind this interface; the SDK ships only a
// mock.
type PaymentProcessor interface {
	Process(ctx context.Context, checkout *Checkout) error
}

// MockPaymentProcessor approves every payment.
type MockPaymentProcessor struct{}

func (MockPaymentProcessor) Process(ctx context.Context, checkout *Checkout) error {
	return nil
}

// Service composes the extension pipeline around the store's mutations.
// Both transport adapters drive the same Service, so every mutation
// takes the same path regardless of which binding originated it:
//
//	pre-mutation extensions -> store mutation -> post-mutation extensions
//
// Consent merging and discount resolution run pre-mutation (they shape
// what is stored); mandate signing runs post-mutation (it signs the
// resulting state).
type Service struct {
	store     *Store
	registry  *Registry
	pipeline  *Pipeline
	processor PaymentProcessor
	logger    *slog.Logger
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithExtensions sets the extension pipeline, in application order.
func WithExtensions(extensions ...Extension) ServiceOption {
	return func(s *Service) { s.pipeline = NewPipeline(extensions...) }
}

// WithPaymentProcessor replaces the mock payment processor.
func WithPaymentProcessor(p PaymentProcessor) ServiceOption {
	return func(s *Service) { s.processor = p }
}

// WithRegistry sets the capability registry used for negotiation.
func WithRegistry(r *Registry) ServiceOption {
	return func(s *Service) { s.registry = r }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a checkout service over the given store.
func NewService(store *Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		registry:  NewRegistry(),
		pipeline:  NewPipeline(),
		processor: MockPaymentProcessor{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the capability registry for transports that need to
// negotiate or publish capabilities.
func (s *Service) Registry() *Registry { return s.registry }

// Create runs the create flow: pre-mutation extensions, store create,
// post-mutation extensions.
func (s *Service) Create(ctx context.Context, profile *Profile, req *Request) (*Checkout, error) {
	req.Op = OpCreate
	if err := s.priceRequest(req); err != nil {
		return nil, err
	}
	preMsgs, err := s.pipeline.Run(ctx, profile, HookPreMutation, req, nil)
	if err != nil {
		return nil, err
	}
	checkout, err := s.store.Create(req, preMsgs)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, profile, req, checkout)
}

// Get returns the checkout, enriched by post-mutation extensions (the
// AP2 merchant authorization rides on every response when negotiated).
func (s *Service) Get(ctx context.Context, profile *Profile, id string) (*Checkout, error) {
	checkout, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, profile, &Request{Op: OpGet}, checkout)
}

// Update applies a partial update to the checkout.
func (s *Service) Update(ctx context.Context, profile *Profile, id string, req *Request) (*Checkout, error) {
	req.Op = OpUpdate
	if err := s.priceRequest(req); err != nil {
		return nil, err
	}
	current, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	preMsgs, err := s.pipeline.Run(ctx, profile, HookPreMutation, req, current)
	if err != nil {
		return nil, err
	}
	checkout, err := s.store.Update(id, req, preMsgs)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, profile, req, checkout)
}

// Complete finalizes the checkout and places the order. Pre-mutation
// extensions gate completion (the AP2 verifier rejects a missing or
// invalid mandate before any state changes); the payment processor runs
// before the store's atomic transition.
func (s *Service) Complete(ctx context.Context, profile *Profile, id string, req *Request) (*Checkout, error) {
	req.Op = OpComplete
	current, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	preMsgs, err := s.pipeline.Run(ctx, profile, HookPreMutation, req, current)
	if err != nil {
		return nil, err
	}
	if !current.Status.Terminal() {
		if err := s.processor.Process(ctx, current); err != nil {
			s.logger.Error("payment processing failed", "checkout_id", id, "error", err)
			return nil, NewError(ErrCodePaymentDeclined, "payment was not authorized", SeverityRequiresBuyerInput)
		}
	}
	checkout, err := s.store.Complete(id, req.IdempotencyKey, preMsgs)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, profile, req, checkout)
}

// Cancel cancels a non-terminal checkout.
func (s *Service) Cancel(ctx context.Context, profile *Profile, id string) (*Checkout, error) {
	req := &Request{Op: OpCancel}
	checkout, err := s.store.Cancel(id)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, profile, req, checkout)
}

// priceRequest resolves request line items against the catalog before
// the pre-mutation hook runs. Adapters submit items by catalog id with
// no price; extensions that derive amounts from the request (discount
// clamping) must observe priced items. A bad line item rejects here,
// before any extension or store state is touched.
func (s *Service) priceRequest(req *Request) error {
	if req.LineItems == nil {
		return nil
	}
	items, err := s.store.resolveLineItems(req.LineItems)
	if err != nil {
		return err
	}
	req.LineItems = items
	return nil
}

// ValidateReady exposes the store's read-side readiness check.
func (s *Service) ValidateReady(ctx context.Context, id string) (bool, []Message, error) {
	return s.store.ValidateReady(id)
}

// finish runs the post-mutation hook over a copy of the stored state.
// Post-mutation messages are appended to the response only; they are
// not persisted.
func (s *Service) finish(ctx context.Context, profile *Profile, req *Request, checkout *Checkout) (*Checkout, error) {
	postMsgs, err := s.pipeline.Run(ctx, profile, HookPostMutation, req, checkout)
	if err != nil {
		return nil, err
	}
	checkout.Messages = append(checkout.Messages, postMsgs...)
	return checkout, nil
}
