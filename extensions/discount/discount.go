// Package discount implements the dev.ucp.shopping.discount capability:
// discount codes submitted on create/update are resolved against a code
// table, applied discounts are stacked by priority, and rejected codes
// surface as checkout messages rather than request failures.
package discount

import (
	"context"
	"fmt"
	"sort"
	"strings"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Rejection codes for submitted discount codes.
const (
	CodeInvalid               = "discount_code_invalid"
	CodeExpired               = "discount_code_expired"
	CodeAlreadyApplied        = "discount_code_already_applied"
	CodeCombinationDisallowed = "discount_code_combination_disallowed"
)

// Priority automatic discounts apply at, after all code-based ones.
const automaticPriority = 99

// Code is one entry in the business's discount code table.
type Code struct {
	Code     string
	Title    string
	Amount   int64 // cents, clamped to subtotal at application time
	Priority int   // lower applies first
	Expired  bool
}

// Extension resolves submitted codes during the pre-mutation hook and
// writes the result into the request's resolved discounts, which the
// store persists. It never computes totals itself.
type Extension struct {
	codes     map[string]Code
	automatic []ucp.AppliedDiscount
}

// Option configures the extension.
type Option func(*Extension)

// WithAutomatic adds an automatic discount injected on every checkout
// without a code.
func WithAutomatic(title string, amount int64) Option {
	return func(e *Extension) {
		e.automatic = append(e.automatic, ucp.AppliedDiscount{
			Title:     title,
			Amount:    amount,
			Automatic: true,
			Priority:  automaticPriority,
		})
	}
}

// New creates the discount extension over a code table. Codes are
// matched case-insensitively.
func New(codes []Code, opts ...Option) *Extension {
	e := &Extension{codes: make(map[string]Code, len(codes))}
	for _, c := range codes {
		e.codes[strings.ToUpper(c.Code)] = c
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SampleCodes is the demo code table.
func SampleCodes() []Code {
	return []Code{
		{Code: "SAVE10", Title: "$10 Off Your Order", Amount: 1000, Priority: 1},
		{Code: "SAVE20", Title: "$20 Off Your Order", Amount: 2000, Priority: 1},
		{Code: "WELCOME", Title: "Welcome Discount", Amount: 500, Priority: 2},
		{Code: "EXPIRED", Title: "Expired Code", Amount: 1000, Expired: true},
	}
}

func (e *Extension) Key() string { return ucp.CapabilityDiscount }
func (e *Extension) Hook() ucp.Hook { return ucp.HookPreMutation }

// Apply resolves the effective code list (the request's codes when
// present, otherwise the codes already on the checkout, so discounts
// survive unrelated mutations) into applied discounts.
func (e *Extension) Apply(ctx context.Context, req *ucp.Request, checkout *ucp.Checkout) ([]ucp.Message, error) {
	codes := req.DiscountCodes
	if codes == nil && checkout != nil {
		codes = checkout.Discounts.Codes
	}
	if codes == nil && len(e.automatic) == 0 {
		return nil, nil
	}

	items := req.LineItems
	if items == nil && checkout != nil {
		items = checkout.LineItems
	}
	subtotal := ucp.Subtotal(items)

	var applied []ucp.AppliedDiscount
	var messages []ucp.Message
	seen := make(map[string]bool)
	for i, raw := range codes {
		key := strings.ToUpper(strings.TrimSpace(raw))
		path := fmt.Sprintf("$.discounts.codes[%d]", i)
		c, ok := e.codes[key]
		switch {
		case !ok:
			messages = append(messages, ucp.Message{
				Type: ucp.MessageWarning, Code: CodeInvalid, Path: path,
				Content: fmt.Sprintf("code %q is not valid", raw),
			})
		case c.Expired:
			messages = append(messages, ucp.Message{
				Type: ucp.MessageWarning, Code: CodeExpired, Path: path,
				Content: fmt.Sprintf("code %q has expired", raw),
			})
		case seen[key]:
			messages = append(messages, ucp.Message{
				Type: ucp.MessageWarning, Code: CodeAlreadyApplied, Path: path,
				Content: fmt.Sprintf("code %q is already applied", raw),
			})
		default:
			seen[key] = true
			amount := c.Amount
			if amount > subtotal {
				amount = subtotal
			}
			applied = append(applied, ucp.AppliedDiscount{
				Code:     c.Code,
				Title:    c.Title,
				Amount:   amount,
				Priority: c.Priority,
			})
		}
	}

	for _, auto := range e.automatic {
		amount := auto.Amount
		if amount > subtotal {
			amount = subtotal
		}
		auto.Amount = amount
		applied = append(applied, auto)
	}

	// Stacking order: lower priority applies first; automatic discounts
	// carry a high priority so they land last.
	sort.SliceStable(applied, func(i, j int) bool {
		return applied[i].Priority < applied[j].Priority
	})

	req.ResolvedDiscounts = &ucp.Discounts{Codes: codes, Applied: applied}
	return messages, nil
}

var _ ucp.Extension = (*Extension)(nil)
