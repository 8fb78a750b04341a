package ucp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotalsRows(t *testing.T) {
	items := []LineItem{
		{ID: "li_1", Item: Item{ID: "prod_a", Price: 1000}, Quantity: 2},
		{ID: "li_2", Item: Item{ID: "prod_b", Price: 500}, Quantity: 1},
	}
	applied := []AppliedDiscount{
		{Code: "SAVE10", Title: "$10 Off Your Order", Amount: 1000, Priority: 1},
		{Title: "Loyalty reward", Amount: 200, Automatic: true, Priority: 99},
	}
	fulfillment := &Fulfillment{Methods: []FulfillmentMethod{{
		ID:   "fm_1",
		Type: "shipping",
		Groups: []FulfillmentGroup{{
			ID: "fg_1",
			Options: []FulfillmentOption{
				{ID: "fo_standard", Amount: 500},
				{ID: "fo_express", Amount: 1500},
			},
			SelectedOptionID: "fo_standard",
		}},
	}}}

	totals := ComputeTotals(items, applied, fulfillment)
	require.Len(t, totals, 5)

	assert.Equal(t, Total{Type: "subtotal", DisplayText: "Subtotal", Amount: 2500}, totals[0])
	assert.Equal(t, Total{Type: "discount", DisplayText: "$10 Off Your Order", Amount: -1000}, totals[1])
	assert.Equal(t, Total{Type: "discount", DisplayText: "Loyalty reward", Amount: -200}, totals[2])
	assert.Equal(t, Total{Type: "fulfillment", DisplayText: "Shipping", Amount: 500}, totals[3])
	assert.Equal(t, Total{Type: "total", DisplayText: "Total", Amount: 1800}, totals[4])
}

func TestComputeTotalsClampsPerDiscount(t *testing.T) {
	items := []LineItem{{Item: Item{Price: 500}, Quantity: 1}}
	applied := []AppliedDiscount{
		{Title: "Big code", Amount: 1000, Priority: 1},
		{Title: "Second code", Amount: 300, Priority: 2},
	}

	totals := ComputeTotals(items, applied, nil)
	require.Len(t, totals, 4)

	// The first discount consumes the whole subtotal; the second gets
	// nothing left to discount.
	assert.Equal(t, int64(-500), totals[1].Amount)
	assert.Equal(t, int64(0), totals[2].Amount)
	assert.Equal(t, int64(0), totals[3].Amount, "grand total never goes negative")
}

func TestComputeTotalsEmptyInputs(t *testing.T) {
	totals := ComputeTotals(nil, nil, nil)
	require.Len(t, totals, 2)
	assert.Equal(t, int64(0), totals[0].Amount)
	assert.Equal(t, int64(0), totals[1].Amount)
}

func TestComputeTotalsUnselectedGroupAddsNothing(t *testing.T) {
	items := []LineItem{{Item: Item{Price: 1000}, Quantity: 1}}
	fulfillment := &Fulfillment{Methods: []FulfillmentMethod{{
		Groups: []FulfillmentGroup{{
			Options: []FulfillmentOption{{ID: "fo_standard", Amount: 500}},
		}},
	}}}

	totals := ComputeTotals(items, nil, fulfillment)
	for _, row := range totals {
		assert.NotEqual(t, "fulfillment", row.Type, "no selection means no fulfillment row")
	}
	assert.Equal(t, int64(1000), totals[len(totals)-1].Amount)
}
