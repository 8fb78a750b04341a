package ucp

import (
	"encoding/json"
)

// ProtocolVersion is the UCP revision this SDK implements (YYYY-MM-DD).
const ProtocolVersion = "2026-01-11"

// CheckoutStatus is the lifecycle state of a checkout resource.
type CheckoutStatus string

const (
	StatusIncomplete       CheckoutStatus = "incomplete"
	StatusReadyForComplete CheckoutStatus = "ready_for_complete"
	StatusCompleted        CheckoutStatus = "completed"
	StatusCanceled         CheckoutStatus = "canceled"
)

// Terminal reports whether no further mutation is permitted.
func (s CheckoutStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Item is the merchandise reference carried inside a line item.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Price    int64  `json:"price,omitempty"` // cents
	ImageURL string `json:"image_url,omitempty"`
}

// LineItem pairs an item with a quantity. Quantity must be >= 1.
type LineItem struct {
	ID       string `json:"id,omitempty"`
	Item     Item   `json:"item"`
	Quantity int    `json:"quantity"`
}

// Consent carries the buyer's privacy choices. Each field is tri-state:
// nil means the choice was never transmitted, which is distinct from an
// explicit false.
type Consent struct {
	Analytics   *bool `json:"analytics,omitempty"`
	Preferences *bool `json:"preferences,omitempty"`
	Marketing   *bool `json:"marketing,omitempty"`
	SaleOfData  *bool `json:"sale_of_data,omitempty"`
}

// Buyer is the contact profile attached to a checkout.
type Buyer struct {
	Email       string   `json:"email,omitempty"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	FullName    string   `json:"full_name,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Consent     *Consent `json:"consent,omitempty"`
}

// PostalAddress is a fulfillment destination.
type PostalAddress struct {
	StreetAddress   string `json:"street_address,omitempty"`
	ExtendedAddress string `json:"extended_address,omitempty"`
	AddressLocality string `json:"address_locality,omitempty"`
	AddressRegion   string `json:"address_region,omitempty"`
	AddressCountry  string `json:"address_country,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// FulfillmentOption is one selectable choice within an option group,
// e.g. "standard shipping" vs "express shipping".
type FulfillmentOption struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Amount   int64  `json:"amount"` // cents
}

// FulfillmentGroup is a set of options of which at most one is selected.
type FulfillmentGroup struct {
	ID               string              `json:"id,omitempty"`
	Options          []FulfillmentOption `json:"options,omitempty"`
	SelectedOptionID string              `json:"selected_option_id,omitempty"`
}

// FulfillmentMethod describes how a subset of line items is delivered.
type FulfillmentMethod struct {
	ID           string             `json:"id,omitempty"`
	Type         string             `json:"type,omitempty"` // "shipping" | "digital" | ...
	LineItemIDs  []string           `json:"line_item_ids,omitempty"`
	Destinations []PostalAddress    `json:"destinations,omitempty"`
	Groups       []FulfillmentGroup `json:"groups,omitempty"`
}

// Fulfillment aggregates the methods attached to a checkout.
type Fulfillment struct {
	Methods []FulfillmentMethod `json:"methods,omitempty"`
}

// PaymentInstrument is one way the buyer can pay.
type PaymentInstrument struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	DisplayText string `json:"display_text,omitempty"`
}

// Payment tracks available instruments and the buyer's selection.
type Payment struct {
	Instruments          []PaymentInstrument `json:"instruments,omitempty"`
	SelectedInstrumentID string              `json:"selected_instrument_id,omitempty"`
}

// DiscountAllocation records how much of a discount landed on one target.
// Target is a JSONPath into the checkout, e.g. "$.line_items[0]".
type DiscountAllocation struct {
	Target string `json:"target"`
	Amount int64  `json:"amount"`
}

// AppliedDiscount is a discount that is in effect on the checkout.
// Code is empty for automatic discounts.
type AppliedDiscount struct {
	ID          string               `json:"id,omitempty"`
	Code        string               `json:"code,omitempty"`
	Title       string               `json:"title"`
	Amount      int64                `json:"amount"`
	Automatic   bool                 `json:"automatic,omitempty"`
	Priority    int                  `json:"priority,omitempty"`
	Method      string               `json:"method,omitempty"` // "each" | "across"
	Allocations []DiscountAllocation `json:"allocations,omitempty"`
}

// Discounts holds the submitted codes (ordered, possibly containing
// duplicates or invalid entries) and the discounts currently applied.
type Discounts struct {
	Codes   []string          `json:"codes,omitempty"`
	Applied []AppliedDiscount `json:"applied,omitempty"`
}

// Total is one row of the derived totals sequence.
type Total struct {
	Type        string `json:"type"` // "subtotal" | "discount" | "fulfillment" | "total"
	DisplayText string `json:"display_text,omitempty"`
	Amount      int64  `json:"amount"`
}

// MessageType classifies a checkout message.
type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
)

// Message is a transient annotation attached to a checkout response.
// Path is a JSONPath pointing at the field the message concerns.
// The messages slice is replaced, never accumulated, on every mutation.
type Message struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"code,omitempty"`
	Path    string      `json:"path,omitempty"`
	Content string      `json:"content"`
}

// Order is the record fabricated when a checkout completes. It is set
// if and only if the checkout status is completed, and is immutable.
type Order struct {
	ID           string `json:"id"`
	PermalinkURL string `json:"permalink_url,omitempty"`
}

// Ap2 is present only when the AP2 mandate capability is negotiated.
// MerchantAuthorization rides on responses; CheckoutMandate is accepted
// only on completion requests.
type Ap2 struct {
	MerchantAuthorization string `json:"merchant_authorization,omitempty"`
	CheckoutMandate       string `json:"checkout_mandate,omitempty"`
}

// Checkout is the central aggregate. The Store is the single authority
// for mutating it; extensions only enrich copies handed back to them.
type Checkout struct {
	ID          string         `json:"id"`
	Status      CheckoutStatus `json:"status"`
	Currency    string         `json:"currency,omitempty"`
	LineItems   []LineItem     `json:"line_items"`
	Buyer       *Buyer         `json:"buyer,omitempty"`
	Fulfillment *Fulfillment   `json:"fulfillment,omitempty"`
	Payment     *Payment       `json:"payment,omitempty"`
	Discounts   Discounts      `json:"discounts,omitempty"`
	Totals      []Total        `json:"totals"`
	Messages    []Message      `json:"messages,omitempty"`
	Order       *Order         `json:"order,omitempty"`
	Ap2         *Ap2           `json:"ap2,omitempty"`
}

// Clone returns a deep copy of the checkout. Copies cross the store
// boundary so callers and extensions can never alias stored state.
func (c *Checkout) Clone() *Checkout {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		// Checkout contains only JSON-representable fields.
		panic("ucp: checkout not marshalable: " + err.Error())
	}
	out := &Checkout{}
	if err := json.Unmarshal(data, out); err != nil {
		panic("ucp: checkout not unmarshalable: " + err.Error())
	}
	return out
}

// Subtotal sums price*quantity over a set of line items.
func Subtotal(items []LineItem) int64 {
	var sum int64
	for _, li := range items {
		sum += li.Item.Price * int64(li.Quantity)
	}
	return sum
}

// Bool returns a pointer to b, for building tri-state consent values.
func Bool(b bool) *bool { return &b }
