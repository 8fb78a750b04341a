package discount

import (
	"context"
	"testing"

	ucp "github.com/ucp-foundation/ucp/go"
)

func lineItems(price int64, qty int) []ucp.LineItem {
	return []ucp.LineItem{{
		ID:       "li_1",
		Item:     ucp.Item{ID: "prod_test", Price: price},
		Quantity: qty,
	}}
}

func TestDiscountClampedToSubtotal(t *testing.T) {
	ext := New(SampleCodes())
	req := &ucp.Request{
		LineItems:     lineItems(500, 1),
		DiscountCodes: []string{"SAVE10"},
	}

	msgs, err := ext.Apply(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %v", msgs)
	}
	if req.ResolvedDiscounts == nil || len(req.ResolvedDiscounts.Applied) != 1 {
		t.Fatalf("expected one applied discount, got %+v", req.ResolvedDiscounts)
	}
	applied := req.ResolvedDiscounts.Applied[0]
	if applied.Amount != 500 {
		t.Fatalf("SAVE10 on a 500 subtotal must clamp to 500, got %d", applied.Amount)
	}
	if applied.Code != "SAVE10" {
		t.Errorf("unexpected code %s", applied.Code)
	}
}

func TestInvalidAndExpiredCodes(t *testing.T) {
	ext := New(SampleCodes())
	req := &ucp.Request{
		LineItems:     lineItems(5000, 1),
		DiscountCodes: []string{"BOGUS", "EXPIRED", "SAVE10"},
	}

	msgs, err := ext.Apply(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 rejection messages, got %v", msgs)
	}
	if msgs[0].Code != CodeInvalid || msgs[0].Path != "$.discounts.codes[0]" {
		t.Errorf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Code != CodeExpired || msgs[1].Path != "$.discounts.codes[1]" {
		t.Errorf("unexpected second message %+v", msgs[1])
	}
	if len(req.ResolvedDiscounts.Applied) != 1 {
		t.Fatalf("only the valid code should apply, got %+v", req.ResolvedDiscounts.Applied)
	}
	if msgs[0].Type != ucp.MessageWarning {
		t.Errorf("rejections are warnings, got %s", msgs[0].Type)
	}
}

func TestDuplicateCodeRejected(t *testing.T) {
	ext := New(SampleCodes())
	req := &ucp.Request{
		LineItems:     lineItems(5000, 1),
		DiscountCodes: []string{"SAVE10", "save10"},
	}

	msgs, err := ext.Apply(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Code != CodeAlreadyApplied {
		t.Fatalf("expected already-applied rejection, got %v", msgs)
	}
	if len(req.ResolvedDiscounts.Applied) != 1 {
		t.Fatalf("duplicate must not stack, got %+v", req.ResolvedDiscounts.Applied)
	}
}

func TestStackingOrderByPriority(t *testing.T) {
	ext := New(SampleCodes(), WithAutomatic("Loyalty reward", 200))
	req := &ucp.Request{
		LineItems:     lineItems(10000, 1),
		DiscountCodes: []string{"WELCOME", "SAVE10"},
	}

	if _, err := ext.Apply(context.Background(), req, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	applied := req.ResolvedDiscounts.Applied
	if len(applied) != 3 {
		t.Fatalf("expected 3 applied discounts, got %+v", applied)
	}
	// Priority 1 (SAVE10) first, then 2 (WELCOME), automatic last.
	if applied[0].Code != "SAVE10" || applied[1].Code != "WELCOME" {
		t.Fatalf("unexpected stacking order %+v", applied)
	}
	if !applied[2].Automatic || applied[2].Priority != automaticPriority {
		t.Fatalf("expected automatic discount last, got %+v", applied[2])
	}
}

func TestCodesCarriedFromCheckoutWhenRequestOmitsThem(t *testing.T) {
	ext := New(SampleCodes())
	checkout := &ucp.Checkout{
		LineItems: lineItems(5000, 1),
		Discounts: ucp.Discounts{Codes: []string{"SAVE20"}},
	}
	req := &ucp.Request{Buyer: &ucp.Buyer{Email: "b@example.com"}}

	if _, err := ext.Apply(context.Background(), req, checkout); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if req.ResolvedDiscounts == nil || len(req.ResolvedDiscounts.Applied) != 1 {
		t.Fatalf("existing codes must survive unrelated mutations, got %+v", req.ResolvedDiscounts)
	}
	if req.ResolvedDiscounts.Applied[0].Amount != 2000 {
		t.Errorf("expected 2000, got %d", req.ResolvedDiscounts.Applied[0].Amount)
	}
}

func newCatalogService() (*ucp.Service, *ucp.Profile) {
	registry := ucp.NewRegistry()
	registry.Register(ucp.Capability{Name: ucp.CapabilityDiscount, Version: ucp.ProtocolVersion})
	store := ucp.NewStore(ucp.DemoCatalog())
	svc := ucp.NewService(store,
		ucp.WithRegistry(registry),
		ucp.WithExtensions(New(SampleCodes())),
	)
	return svc, registry.AllActive()
}

// Adapters submit line items by catalog id with no price; the applied
// amount must come from the catalog-priced subtotal, not the raw
// request.
func TestCodeAppliesAgainstCatalogPricedItems(t *testing.T) {
	svc, profile := newCatalogService()
	ctx := context.Background()

	// prod_mug is 1800 in the demo catalog.
	checkout, err := svc.Create(ctx, profile, &ucp.Request{
		LineItems:     []ucp.LineItem{{Item: ucp.Item{ID: "prod_mug"}, Quantity: 1}},
		DiscountCodes: []string{"SAVE10"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	applied := checkout.Discounts.Applied
	if len(applied) != 1 || applied[0].Amount != 1000 {
		t.Fatalf("SAVE10 on an 1800 cart must apply 1000, got %+v", applied)
	}
	last := checkout.Totals[len(checkout.Totals)-1]
	if last.Type != "total" || last.Amount != 800 {
		t.Fatalf("expected grand total 800, got %+v", last)
	}
}

func TestLineItemReplacementReclampsExistingCodes(t *testing.T) {
	svc, profile := newCatalogService()
	ctx := context.Background()

	checkout, err := svc.Create(ctx, profile, &ucp.Request{
		LineItems:     []ucp.LineItem{{Item: ucp.Item{ID: "prod_mug"}, Quantity: 1}},
		DiscountCodes: []string{"SAVE10"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Replace the cart with a 500 item; the carried code re-resolves
	// against the priced replacement, clamped but never zeroed.
	checkout, err = svc.Update(ctx, profile, checkout.ID, &ucp.Request{
		LineItems: []ucp.LineItem{{Item: ucp.Item{ID: "prod_stickers"}, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	applied := checkout.Discounts.Applied
	if len(applied) != 1 {
		t.Fatalf("code must survive the item replacement, got %+v", applied)
	}
	if applied[0].Amount != 500 {
		t.Fatalf("SAVE10 on a 500 cart must clamp to 500, got %d", applied[0].Amount)
	}
}

func TestNoCodesNoResolution(t *testing.T) {
	ext := New(SampleCodes())
	req := &ucp.Request{LineItems: lineItems(5000, 1)}

	if _, err := ext.Apply(context.Background(), req, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if req.ResolvedDiscounts != nil {
		t.Fatalf("no codes and no automatics must leave discounts untouched, got %+v", req.ResolvedDiscounts)
	}
}
