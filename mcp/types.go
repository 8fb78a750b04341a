package mcp

import (
	ucp "github.com/ucp-foundation/ucp/go"
)

// CheckoutKey is the fixed key success responses wrap the checkout
// under.
const CheckoutKey = "a2a.ucp.checkout"

// metaProfileKey is where the caller's negotiated UCP profile URI rides
// in the tool-call metadata envelope.
const metaProfileKey = "ucp.profile"

// CreateCheckoutArgs are the arguments for create_checkout.
type CreateCheckoutArgs struct {
	LineItems []ucp.LineItem  `json:"line_items"`
	Buyer     *ucp.Buyer      `json:"buyer,omitempty"`
	Payment   *ucp.Payment    `json:"payment,omitempty"`
	Discounts *DiscountsInput `json:"discounts,omitempty"`
}

// GetCheckoutArgs are the arguments for get_checkout.
type GetCheckoutArgs struct {
	CheckoutID string `json:"checkout_id"`
}

// UpdateCheckoutArgs are the arguments for update_checkout. Absent
// sections are left as is; present sections replace.
type UpdateCheckoutArgs struct {
	CheckoutID  string           `json:"checkout_id"`
	LineItems   []ucp.LineItem   `json:"line_items,omitempty"`
	Buyer       *ucp.Buyer       `json:"buyer,omitempty"`
	Fulfillment *ucp.Fulfillment `json:"fulfillment,omitempty"`
	Payment     *ucp.Payment     `json:"payment,omitempty"`
	Discounts   *DiscountsInput  `json:"discounts,omitempty"`
}

// CompleteCheckoutArgs are the arguments for complete_checkout.
type CompleteCheckoutArgs struct {
	CheckoutID     string       `json:"checkout_id"`
	IdempotencyKey string       `json:"idempotency_key"`
	Buyer          *ucp.Buyer   `json:"buyer,omitempty"`
	Payment        *ucp.Payment `json:"payment,omitempty"`
	Ap2            *ucp.Ap2     `json:"ap2,omitempty"`
}

// CancelCheckoutArgs are the arguments for cancel_checkout.
type CancelCheckoutArgs struct {
	CheckoutID string `json:"checkout_id"`
}

// SearchProductsArgs are the arguments for search_products.
type SearchProductsArgs struct {
	Query string `json:"query"`
}

// GetProductArgs are the arguments for get_product.
type GetProductArgs struct {
	ProductID string `json:"product_id"`
}

// DiscountsInput is the write shape for the discounts section: callers
// submit codes; applied discounts are always derived server side.
type DiscountsInput struct {
	Codes []string `json:"codes"`
}
