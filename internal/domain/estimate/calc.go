package estimate

import "math"

// RecalculateItem derives the item's total price from its inputs:
// quantity * unit price, marked up by MarkupPct percent.
func RecalculateItem(it *Item) {
	subtotal := it.Quantity * it.UnitPrice
	it.TotalPrice = subtotal + subtotal*(it.MarkupPct/100)
}

// Recalculate re-derives every item total and then the estimate's
// aggregate totals. Item-level totals are computed before the aggregate
// so the sums always agree. Stored totals are not rounded.
func Recalculate(e *Estimate) {
	var cost, markup, price float64
	for i := range e.Items {
		RecalculateItem(&e.Items[i])
		subtotal := e.Items[i].Quantity * e.Items[i].UnitPrice
		cost += subtotal
		markup += subtotal * (e.Items[i].MarkupPct / 100)
		price += e.Items[i].TotalPrice
	}
	e.TotalCost = cost
	e.TotalMarkup = markup
	e.TotalPrice = price
}

// MarkupAdjustment is one row of a markup-distribution suggestion.
type MarkupAdjustment struct {
	ItemID          string  `json:"item_id"`
	CurrentMarkup   float64 `json:"current_markup"`
	SuggestedMarkup float64 `json:"suggested_markup"`
	Difference      float64 `json:"difference"`
}

// DistributeMarkup suggests per-item markup percentages that would bring
// the estimate's aggregate price to targetPct over total cost, weighting
// each item by its share of the cost. Suggested values are rounded to
// 2 decimals; this is a presentation helper and writes nothing.
func DistributeMarkup(e *Estimate, targetPct float64) []MarkupAdjustment {
	var totalCost float64
	for _, it := range e.Items {
		totalCost += it.Quantity * it.UnitPrice
	}
	if totalCost == 0 {
		return nil
	}

	targetTotal := totalCost * (1 + targetPct/100)
	out := make([]MarkupAdjustment, 0, len(e.Items))
	for _, it := range e.Items {
		itemCost := it.Quantity * it.UnitPrice
		weight := itemCost / totalCost
		required := (targetTotal*weight/itemCost - 1) * 100
		out = append(out, MarkupAdjustment{
			ItemID:          it.ID,
			CurrentMarkup:   it.MarkupPct,
			SuggestedMarkup: round2(required),
			Difference:      round2(required - it.MarkupPct),
		})
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
