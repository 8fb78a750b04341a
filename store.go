package ucp

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Store owns the canonical checkout resources. It is the single
// authority for state transitions: totals and status are re-derived
// after every mutating call, and terminal checkouts reject mutation.
//
// Mutations to a single checkout are serialized by a per-entry mutex;
// unrelated checkouts mutate concurrently. Construct one Store per
// process and hand it to the transport adapters — never a package-level
// singleton.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	catalog       Catalog
	instruments   []PaymentInstrument
	defaultGroups []FulfillmentGroup
	permalinkBase string
	logger        *slog.Logger
}

// entry carries one checkout and its completion history. The entry
// mutex is the critical section for the idempotency-key check and the
// status transition in Complete.
type entry struct {
	mu          sync.Mutex
	checkout    *Checkout
	completions map[string]*Checkout
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithInstruments sets the payment instruments offered on every new
// checkout.
func WithInstruments(instruments []PaymentInstrument) StoreOption {
	return func(s *Store) { s.instruments = instruments }
}

// WithFulfillmentGroups sets the option groups seeded onto shipping
// methods once a destination is present.
func WithFulfillmentGroups(groups []FulfillmentGroup) StoreOption {
	return func(s *Store) { s.defaultGroups = groups }
}

// WithStoreLogger sets the logger for mutation logging.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithOrderPermalinkBase sets the base URL for order permalinks.
func WithOrderPermalinkBase(base string) StoreOption {
	return func(s *Store) { s.permalinkBase = base }
}

// NewStore creates a checkout store backed by the given catalog.
func NewStore(catalog Catalog, opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create materializes a new checkout from the request's line items and
// optional buyer/fulfillment. Extra messages (from pre-mutation
// extensions) are attached to the stored checkout.
func (s *Store) Create(req *Request, extra []Message) (*Checkout, error) {
	if len(req.LineItems) == 0 {
		return nil, NewError(ErrCodeInvalidRequest, "at least one line item is required", SeverityRecoverable)
	}

	items, err := s.resolveLineItems(req.LineItems)
	if err != nil {
		return nil, err
	}

	c := &Checkout{
		ID:        "checkout_" + uuid.NewString(),
		Status:    StatusIncomplete,
		Currency:  "USD",
		LineItems: items,
		Buyer:     req.Buyer,
		Payment:   &Payment{Instruments: cloneInstruments(s.instruments)},
	}
	if req.Payment != nil && req.Payment.SelectedInstrumentID != "" {
		c.Payment.SelectedInstrumentID = req.Payment.SelectedInstrumentID
	}
	var msgs []Message
	if req.Fulfillment != nil {
		c.Fulfillment, msgs = s.normalizeFulfillment(req.Fulfillment)
	}
	if req.ResolvedDiscounts != nil {
		c.Discounts = *req.ResolvedDiscounts
	}
	s.recompute(c, append(msgs, extra...))

	e := &entry{checkout: c, completions: make(map[string]*Checkout)}
	s.mu.Lock()
	s.entries[c.ID] = e
	s.mu.Unlock()

	s.logger.Info("checkout created", "checkout_id", c.ID, "line_items", len(c.LineItems), "status", c.Status)
	return c.Clone(), nil
}

// Get returns a copy of the checkout, or checkout_not_found.
func (s *Store) Get(id string) (*Checkout, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkout.Clone(), nil
}

// Update applies a full-replacement-style partial update: every non-nil
// request section replaces the corresponding checkout section. Totals,
// status, and messages are re-derived afterward.
func (s *Store) Update(id string, req *Request, extra []Message) (*Checkout, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.checkout
	if c.Status.Terminal() {
		return nil, NewError(ErrCodeInvalidMutation,
			fmt.Sprintf("checkout is %s and can no longer be modified", c.Status), SeverityRecoverable)
	}

	var msgs []Message
	if req.LineItems != nil {
		items, err := s.resolveLineItems(req.LineItems)
		if err != nil {
			return nil, err
		}
		c.LineItems = items
	}
	if req.Buyer != nil {
		c.Buyer = req.Buyer
	}
	if req.Fulfillment != nil {
		c.Fulfillment, msgs = s.normalizeFulfillment(req.Fulfillment)
	}
	if req.Payment != nil {
		msgs = append(msgs, s.selectInstrument(c, req.Payment.SelectedInstrumentID)...)
	}
	if req.ResolvedDiscounts != nil {
		c.Discounts = *req.ResolvedDiscounts
	}
	s.recompute(c, append(msgs, extra...))

	s.logger.Info("checkout updated", "checkout_id", c.ID, "status", c.Status)
	return c.Clone(), nil
}

// ValidateReady is the read-side readiness check: buyer contact
// present, a fulfillment destination resolved when required, and a
// payment instrument selected. It never mutates the checkout.
func (s *Store) ValidateReady(id string) (bool, []Message, error) {
	e, err := s.entry(id)
	if err != nil {
		return false, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	issues := readinessIssues(e.checkout)
	return len(issues) == 0, issues, nil
}

// Complete transitions the checkout to completed and fabricates its
// order record. The idempotency-key check and the status transition are
// one critical section: replaying a key that already completed this
// checkout returns the prior result unchanged.
func (s *Store) Complete(id, idempotencyKey string, extra []Message) (*Checkout, error) {
	if idempotencyKey == "" {
		return nil, NewError(ErrCodeInvalidRequest, "idempotency_key is required", SeverityRecoverable)
	}
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if prior, ok := e.completions[idempotencyKey]; ok {
		return prior.Clone(), nil
	}

	c := e.checkout
	switch c.Status {
	case StatusCompleted:
		return nil, NewError(ErrCodeAlreadyCompleted, "checkout has already been completed", SeverityRecoverable)
	case StatusCanceled:
		return nil, NewError(ErrCodeCanceled, "checkout has been canceled and cannot be completed", SeverityRecoverable)
	}

	if issues := readinessIssues(c); len(issues) > 0 {
		return nil, NewError(ErrCodeNotReady, "checkout requires more information before completion", SeverityRequiresBuyerInput).
			WithDetails(map[string]interface{}{"messages": issues})
	}

	c.Status = StatusCompleted
	c.Order = &Order{ID: "order_" + uuid.NewString()}
	if s.permalinkBase != "" {
		c.Order.PermalinkURL = s.permalinkBase + "/" + c.Order.ID
	}
	s.recompute(c, extra)

	snapshot := c.Clone()
	e.completions[idempotencyKey] = snapshot

	s.logger.Info("checkout completed", "checkout_id", c.ID, "order_id", c.Order.ID)
	return snapshot.Clone(), nil
}

// Cancel transitions a non-terminal checkout to canceled.
func (s *Store) Cancel(id string) (*Checkout, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.checkout
	if c.Status.Terminal() {
		return nil, NewError(ErrCodeInvalidMutation,
			fmt.Sprintf("checkout is %s and cannot be canceled", c.Status), SeverityRecoverable)
	}
	c.Status = StatusCanceled
	s.recompute(c, nil)

	s.logger.Info("checkout canceled", "checkout_id", c.ID)
	return c.Clone(), nil
}

func (s *Store) entry(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("checkout %s was not found", id), SeverityRecoverable)
	}
	return e, nil
}

// resolveLineItems validates and prices line items against the catalog.
func (s *Store) resolveLineItems(items []LineItem) ([]LineItem, error) {
	out := make([]LineItem, 0, len(items))
	for i, li := range items {
		if li.Item.ID == "" {
			return nil, NewError(ErrCodeInvalidRequest,
				fmt.Sprintf("line_items[%d] is missing item.id", i), SeverityRecoverable)
		}
		if li.Quantity < 1 {
			return nil, NewError(ErrCodeInvalidRequest,
				fmt.Sprintf("line_items[%d].quantity must be at least 1", i), SeverityRecoverable)
		}
		p, ok := s.catalog.Get(li.Item.ID)
		if !ok {
			return nil, NewError(ErrCodeInvalidRequest,
				fmt.Sprintf("unknown item %s", li.Item.ID), SeverityRecoverable).
				WithDetails(map[string]interface{}{"item_id": li.Item.ID})
		}
		if !s.catalog.InStock(li.Item.ID, li.Quantity) {
			return nil, NewError(ErrCodeMerchandiseUnavailable,
				fmt.Sprintf("insufficient inventory for %s", p.Title), SeverityRequiresBuyerInput).
				WithDetails(map[string]interface{}{"item_id": li.Item.ID})
		}
		out = append(out, LineItem{
			ID:       fmt.Sprintf("li_%d", i+1),
			Item:     Item{ID: p.ID, Title: p.Title, Price: p.Price, ImageURL: p.ImageURL},
			Quantity: li.Quantity,
		})
	}
	return out, nil
}

// normalizeFulfillment assigns method ids, seeds option groups on
// shipping methods that have a destination, and validates option
// selections. An unmatched selected_option_id is surfaced as a message
// pointing at the offending group, and the selection is cleared.
func (s *Store) normalizeFulfillment(f *Fulfillment) (*Fulfillment, []Message) {
	var msgs []Message
	norm := &Fulfillment{Methods: make([]FulfillmentMethod, len(f.Methods))}
	for i, m := range f.Methods {
		if m.ID == "" {
			m.ID = fmt.Sprintf("fm_%d", i+1)
		}
		if m.Type == "" {
			m.Type = "shipping"
		}
		if m.Type == "shipping" && len(m.Destinations) > 0 && len(m.Groups) == 0 {
			m.Groups = cloneGroups(s.defaultGroups)
		}
		for gi := range m.Groups {
			g := &m.Groups[gi]
			if g.ID == "" {
				g.ID = fmt.Sprintf("%s_group_%d", m.ID, gi+1)
			}
			if g.SelectedOptionID == "" {
				continue
			}
			if findOption(g.Options, g.SelectedOptionID) == nil {
				msgs = append(msgs, Message{
					Type:    MessageError,
					Code:    "fulfillment_option_invalid",
					Path:    fmt.Sprintf("$.fulfillment.methods[%d].groups[%d].selected_option_id", i, gi),
					Content: fmt.Sprintf("option %s is not available in this group", g.SelectedOptionID),
				})
				g.SelectedOptionID = ""
			}
		}
		norm.Methods[i] = m
	}
	return norm, msgs
}

// selectInstrument updates the payment selection, rejecting ids that
// are not among the offered instruments.
func (s *Store) selectInstrument(c *Checkout, instrumentID string) []Message {
	if instrumentID == "" {
		return nil
	}
	if c.Payment == nil {
		c.Payment = &Payment{}
	}
	if len(c.Payment.Instruments) > 0 {
		found := false
		for _, pi := range c.Payment.Instruments {
			if pi.ID == instrumentID {
				found = true
				break
			}
		}
		if !found {
			return []Message{{
				Type:    MessageError,
				Code:    "payment_instrument_unknown",
				Path:    "$.payment.selected_instrument_id",
				Content: fmt.Sprintf("instrument %s is not available for this checkout", instrumentID),
			}}
		}
	}
	c.Payment.SelectedInstrumentID = instrumentID
	return nil
}

// recompute re-derives totals, status, and messages. Called after every
// mutation so extensions never duplicate total/readiness math.
func (s *Store) recompute(c *Checkout, extra []Message) {
	c.Totals = ComputeTotals(c.LineItems, c.Discounts.Applied, c.Fulfillment)
	if !c.Status.Terminal() {
		issues := readinessIssues(c)
		if len(issues) == 0 {
			c.Status = StatusReadyForComplete
		} else {
			c.Status = StatusIncomplete
		}
		c.Messages = append(issues, extra...)
		return
	}
	c.Messages = extra
}

// readinessIssues returns the structured messages that explain why the
// checkout is not ready for completion. A destination is required
// unless every fulfillment method is digital.
func readinessIssues(c *Checkout) []Message {
	var issues []Message
	if c.Buyer == nil || c.Buyer.Email == "" {
		issues = append(issues, Message{
			Type:    MessageError,
			Code:    "missing_buyer_email",
			Path:    "$.buyer.email",
			Content: "buyer email is required",
		})
	}
	if destinationRequired(c) && !hasDestination(c) {
		issues = append(issues, Message{
			Type:    MessageError,
			Code:    "missing_fulfillment_address",
			Path:    "$.fulfillment.methods[0].destinations",
			Content: "a delivery address is required",
		})
	}
	if c.Payment == nil || c.Payment.SelectedInstrumentID == "" {
		issues = append(issues, Message{
			Type:    MessageError,
			Code:    "missing_payment_instrument",
			Path:    "$.payment.selected_instrument_id",
			Content: "a payment instrument must be selected",
		})
	}
	return issues
}

func destinationRequired(c *Checkout) bool {
	if c.Fulfillment == nil || len(c.Fulfillment.Methods) == 0 {
		return true
	}
	for _, m := range c.Fulfillment.Methods {
		if m.Type != "digital" {
			return true
		}
	}
	return false
}

func hasDestination(c *Checkout) bool {
	if c.Fulfillment == nil {
		return false
	}
	for _, m := range c.Fulfillment.Methods {
		if len(m.Destinations) > 0 {
			return true
		}
	}
	return false
}

func findOption(options []FulfillmentOption, id string) *FulfillmentOption {
	for i := range options {
		if options[i].ID == id {
			return &options[i]
		}
	}
	return nil
}

func cloneInstruments(in []PaymentInstrument) []PaymentInstrument {
	if in == nil {
		return nil
	}
	out := make([]PaymentInstrument, len(in))
	copy(out, in)
	return out
}

func cloneGroups(in []FulfillmentGroup) []FulfillmentGroup {
	out := make([]FulfillmentGroup, len(in))
	for i, g := range in {
		opts := make([]FulfillmentOption, len(g.Options))
		copy(opts, g.Options)
		g.Options = opts
		out[i] = g
	}
	return out
}
