package ucp

// ComputeTotals derives the totals sequence from line items, applied
// discounts, and fulfillment. Totals are a pure function of those three
// inputs and are recomputed after every mutation — never cached.
func ComputeTotals(items []LineItem, applied []AppliedDiscount, fulfillment *Fulfillment) []Total {
	subtotal := Subtotal(items)

	totals := []Total{{Type: "subtotal", DisplayText: "Subtotal", Amount: subtotal}}

	var discountTotal int64
	remaining := subtotal
	for _, d := range applied {
		// A discount can never exceed what is left to discount.
		amount := d.Amount
		if amount > remaining {
			amount = remaining
		}
		remaining -= amount
		discountTotal += amount
		title := d.Title
		if title == "" {
			title = "Discount"
		}
		totals = append(totals, Total{Type: "discount", DisplayText: title, Amount: -amount})
	}

	var fulfillmentTotal int64
	if fulfillment != nil {
		for _, m := range fulfillment.Methods {
			for _, g := range m.Groups {
				if g.SelectedOptionID == "" {
					continue
				}
				for _, opt := range g.Options {
					if opt.ID == g.SelectedOptionID {
						fulfillmentTotal += opt.Amount
						break
					}
				}
			}
		}
	}
	if fulfillmentTotal > 0 {
		totals = append(totals, Total{Type: "fulfillment", DisplayText: "Shipping", Amount: fulfillmentTotal})
	}

	grand := subtotal - discountTotal + fulfillmentTotal
	if grand < 0 {
		grand = 0
	}
	totals = append(totals, Total{Type: "total", DisplayText: "Total", Amount: grand})
	return totals
}
