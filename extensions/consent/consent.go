// Package consent implements the dev.ucp.shopping.buyer_consent
// capability: incoming partial consent objects are merged into the
// existing consent with field-level overwrite, so a buyer update never
// silently wipes choices it did not mention.
package consent

import (
	"context"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Extension merges consent during the pre-mutation hook.
type Extension struct{}

// New creates the buyer-consent extension.
func New() *Extension { return &Extension{} }

func (e *Extension) Key() string    { return ucp.CapabilityBuyerConsent }
func (e *Extension) Hook() ucp.Hook { return ucp.HookPreMutation }

// Apply rewrites the request's consent to the merge of existing and
// incoming. The buyer section itself is full-replacement (the store's
// contract); only the consent subobject gets merge semantics.
func (e *Extension) Apply(ctx context.Context, req *ucp.Request, checkout *ucp.Checkout) ([]ucp.Message, error) {
	if req.Buyer == nil {
		return nil, nil
	}
	var existing *ucp.Consent
	if checkout != nil && checkout.Buyer != nil {
		existing = checkout.Buyer.Consent
	}
	req.Buyer.Consent = Merge(existing, req.Buyer.Consent)
	return nil, nil
}

// Merge overlays update onto existing field by field. Only fields
// explicitly present (non-nil) in the update replace the corresponding
// existing field; absent fields are never invented from either side.
func Merge(existing, update *ucp.Consent) *ucp.Consent {
	if update == nil {
		return existing
	}
	if existing == nil {
		return update
	}
	merged := *existing
	if update.Analytics != nil {
		merged.Analytics = update.Analytics
	}
	if update.Preferences != nil {
		merged.Preferences = update.Preferences
	}
	if update.Marketing != nil {
		merged.Marketing = update.Marketing
	}
	if update.SaleOfData != nil {
		merged.SaleOfData = update.SaleOfData
	}
	return &merged
}

var _ ucp.Extension = (*Extension)(nil)
