package consent

import (
	"context"
	"testing"

	ucp "github.com/ucp-foundation/ucp/go"
)

func TestMergeFieldLevelOverwrite(t *testing.T) {
	existing := &ucp.Consent{
		Analytics: ucp.Bool(true),
		Marketing: ucp.Bool(false),
	}
	update := &ucp.Consent{Marketing: ucp.Bool(true)}

	merged := Merge(existing, update)
	if merged.Analytics == nil || !*merged.Analytics {
		t.Error("analytics must survive an unrelated update")
	}
	if merged.Marketing == nil || !*merged.Marketing {
		t.Error("marketing must be overwritten by the update")
	}
	if merged.Preferences != nil {
		t.Error("preferences was never set and must stay unset")
	}
	if merged.SaleOfData != nil {
		t.Error("sale_of_data was never set and must stay unset")
	}
}

func TestMergeNilSides(t *testing.T) {
	update := &ucp.Consent{Analytics: ucp.Bool(true)}
	if got := Merge(nil, update); got != update {
		t.Error("nil existing returns the update unchanged")
	}
	existing := &ucp.Consent{Analytics: ucp.Bool(false)}
	if got := Merge(existing, nil); got != existing {
		t.Error("nil update returns the existing unchanged")
	}
}

func TestMergeDoesNotMutateExisting(t *testing.T) {
	existing := &ucp.Consent{Marketing: ucp.Bool(false)}
	Merge(existing, &ucp.Consent{Marketing: ucp.Bool(true)})
	if *existing.Marketing {
		t.Fatal("merge must not mutate the existing consent in place")
	}
}

func TestApplyMergesIntoRequestBuyer(t *testing.T) {
	ext := New()
	checkout := &ucp.Checkout{
		Buyer: &ucp.Buyer{
			Email:   "buyer@example.com",
			Consent: &ucp.Consent{Analytics: ucp.Bool(true), Marketing: ucp.Bool(false)},
		},
	}
	req := &ucp.Request{
		Buyer: &ucp.Buyer{
			Email:   "buyer@example.com",
			Consent: &ucp.Consent{Marketing: ucp.Bool(true)},
		},
	}

	if _, err := ext.Apply(context.Background(), req, checkout); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	c := req.Buyer.Consent
	if c.Analytics == nil || !*c.Analytics {
		t.Error("expected analytics carried from existing consent")
	}
	if c.Marketing == nil || !*c.Marketing {
		t.Error("expected marketing overwritten to true")
	}
}

func TestApplyNoBuyerIsNoOp(t *testing.T) {
	ext := New()
	req := &ucp.Request{}
	if _, err := ext.Apply(context.Background(), req, &ucp.Checkout{}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if req.Buyer != nil {
		t.Fatal("no-op must not invent a buyer")
	}
}
