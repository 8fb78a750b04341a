package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Handler drives one embedded session: it answers the ec.ready
// handshake, emits lifecycle and change notifications over the channel,
// routes host responses back to their pending delegation requests, and
// applies UI-originated mutations through the shared checkout service.
type Handler struct {
	service *ucp.Service
	session *Session
	channel Channel
	pending *PendingMap
	profile *ucp.Profile
	logger  *slog.Logger
}

// HandlerOption configures the handler.
type HandlerOption func(*Handler)

// WithPendingTimeout overrides the delegation timeout.
func WithPendingTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) { h.pending = NewPendingMap(timeout) }
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler wires a session to its channel. The profile comes from the
// session's negotiated capability set.
func NewHandler(service *ucp.Service, session *Session, channel Channel, profile *ucp.Profile, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		session: session,
		channel: channel,
		pending: NewPendingMap(0),
		profile: profile,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Session exposes the session for the HTTP adapter.
func (h *Handler) Session() *Session { return h.session }

// HandleMessage processes one inbound frame from the host: either the
// ec.ready handshake request or a response to a pending delegation
// request. Anything else is answered with a protocol error when it
// carries an id and dropped otherwise.
func (h *Handler) HandleMessage(ctx context.Context, raw []byte) error {
	var envelope struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		Result  json.RawMessage `json:"result"`
		Error   *ErrorObject    `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return h.sendError(nil, CodeParseError, "message is not valid JSON")
	}

	if envelope.Method == "" {
		// A response to one of our delegation requests.
		if len(envelope.ID) == 0 {
			return nil
		}
		key := idKey(envelope.ID)
		if !h.pending.Resolve(key, Result{Value: envelope.Result, Err: envelope.Error}) {
			h.logger.Debug("dropped late response", "session_id", h.session.ID, "request_id", key)
		}
		return nil
	}

	h.session.Record(envelope.Method)

	switch envelope.Method {
	case MethodReady:
		return h.handleReady(ctx, envelope.ID, envelope.Params)
	default:
		if len(envelope.ID) > 0 {
			return h.sendError(envelope.ID, CodeMethodNotFound, fmt.Sprintf("unknown method %q", envelope.Method))
		}
		return nil
	}
}

func (h *Handler) handleReady(ctx context.Context, id json.RawMessage, params json.RawMessage) error {
	var ready ReadyParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &ready); err != nil {
			return h.sendError(id, CodeInvalidParams, "ec.ready params are malformed")
		}
	}

	checkout, err := h.service.Get(ctx, h.profile, h.session.CheckoutID)
	if err != nil {
		return h.sendError(id, CodeCheckoutNotFound, ucp.AsError(err).Message)
	}

	if !h.session.MarkReady(ready.Delegate) {
		return h.sendError(id, CodeInvalidState, "session handshake already completed")
	}
	return h.sendResult(id, ReadyResult{Checkout: checkout})
}

// Start marks the checkout visible to the buyer and emits ec.start.
// Calling it again is a no-op on session state; the notification fires
// once.
func (h *Handler) Start(ctx context.Context) error {
	if !h.session.Ready() {
		return &ErrorObject{Code: CodeInvalidState, Message: "session is not ready"}
	}
	if !h.session.MarkStarted() {
		return nil
	}
	checkout, err := h.service.Get(ctx, h.profile, h.session.CheckoutID)
	if err != nil {
		return err
	}
	return h.notify(MethodStart, checkout)
}

// Update applies a UI-originated mutation and emits one change
// notification per mutated section, plus ec.messages.change when the
// message set changed.
func (h *Handler) Update(ctx context.Context, req *ucp.Request) (*ucp.Checkout, error) {
	before, err := h.service.Get(ctx, h.profile, h.session.CheckoutID)
	if err != nil {
		return nil, err
	}
	checkout, err := h.service.Update(ctx, h.profile, h.session.CheckoutID, req)
	if err != nil {
		return nil, err
	}
	if h.session.Started() {
		for _, method := range changeMethods(req, before, checkout) {
			if err := h.notify(method, checkout); err != nil {
				return checkout, err
			}
		}
	}
	return checkout, nil
}

// Complete finalizes the checkout and, on success, emits exactly one
// ec.complete notification.
func (h *Handler) Complete(ctx context.Context, req *ucp.Request) (*ucp.Checkout, error) {
	checkout, err := h.service.Complete(ctx, h.profile, h.session.CheckoutID, req)
	if err != nil {
		return nil, err
	}
	if checkout.Status == ucp.StatusCompleted && h.session.MarkCompleted() {
		if err := h.notify(MethodComplete, checkout); err != nil {
			return checkout, err
		}
	}
	return checkout, nil
}

// RequestInstrumentsChange asks the host to present instrument
// selection. Fails locally when the delegation was not accepted.
func (h *Handler) RequestInstrumentsChange(ctx context.Context) (json.RawMessage, error) {
	return h.delegate(ctx, DelegatePaymentInstruments, MethodInstrumentsReq)
}

// RequestCredential asks the host for a payment credential.
func (h *Handler) RequestCredential(ctx context.Context) (json.RawMessage, error) {
	return h.delegate(ctx, DelegatePaymentCredential, MethodCredentialReq)
}

// RequestAddressChange asks the host to collect a fulfillment address.
func (h *Handler) RequestAddressChange(ctx context.Context) (json.RawMessage, error) {
	return h.delegate(ctx, DelegateFulfillmentAddress, MethodAddressReq)
}

// delegate issues a host-bound request and blocks until the host
// responds, the pending slot times out, or the context is done. A
// delegation outside the accepted set fails before any message is sent.
func (h *Handler) delegate(ctx context.Context, delegation, method string) (json.RawMessage, error) {
	if !h.session.DelegationAccepted(delegation) {
		return nil, &ErrorObject{
			Code:    CodeDelegationFailed,
			Message: fmt.Sprintf("delegation %q was not accepted for this session", delegation),
		}
	}

	checkout, err := h.service.Get(ctx, h.profile, h.session.CheckoutID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	req, err := NewRequest(id, method, CheckoutParams{Checkout: checkout})
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	result := h.pending.Register(id)
	h.session.Record(method)
	if err := h.channel.Send(payload); err != nil {
		h.pending.Cancel(id)
		return nil, err
	}

	select {
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Value, nil
	case <-ctx.Done():
		h.pending.Cancel(id)
		return nil, ctx.Err()
	}
}

func (h *Handler) notify(method string, checkout *ucp.Checkout) error {
	h.session.Record(method)
	note, err := NewNotification(method, CheckoutParams{Checkout: checkout})
	if err != nil {
		return err
	}
	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return h.channel.Send(payload)
}

func (h *Handler) sendResult(id json.RawMessage, result interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Response{JSONRPC: Version, ID: id, Result: raw})
	if err != nil {
		return err
	}
	return h.channel.Send(payload)
}

func (h *Handler) sendError(id json.RawMessage, code int, message string) error {
	if len(id) == 0 {
		return nil
	}
	payload, err := json.Marshal(Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message},
	})
	if err != nil {
		return err
	}
	return h.channel.Send(payload)
}

// Error makes ErrorObject usable as a Go error at the adapter edge.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// changeMethods maps a mutation request to its notification kinds. The
// messages notification fires whenever the stored message set differs
// from the pre-mutation one.
func changeMethods(req *ucp.Request, before, after *ucp.Checkout) []string {
	var methods []string
	if req.LineItems != nil {
		methods = append(methods, MethodLineItems)
	}
	if req.Buyer != nil {
		methods = append(methods, MethodBuyer)
	}
	if req.Payment != nil {
		methods = append(methods, MethodPayment)
	}
	if req.Fulfillment != nil {
		methods = append(methods, MethodFulfillment)
	}
	if messagesChanged(before.Messages, after.Messages) {
		methods = append(methods, MethodMessages)
	}
	return methods
}

func messagesChanged(before, after []ucp.Message) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}
