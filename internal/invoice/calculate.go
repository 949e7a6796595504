package invoice

import "github.com/shopspring/decimal"

// Calculated holds the totals derived from a draft. It is never stored on its own.
type Calculated struct {
	Subtotal   float64 `json:"subtotal"`
	GST        float64 `json:"gst"`
	Enmax      float64 `json:"enmax"`
	PermitCost float64 `json:"permitCost"`
	Total      float64 `json:"total"`
}

// Calculate derives subtotal and total from the draft. Negative inputs are
// summed as given.
func Calculate(d Draft) Calculated {
	subtotal := decimal.Zero
	for _, it := range d.ServiceItems {
		subtotal = subtotal.Add(lineAmount(it))
	}

	gst := decimalOf(d.GSTInput)
	enmax := decimalOf(d.EnmaxInput)
	permit := decimalOf(d.PermitCostInput)
	total := subtotal.Add(gst).Add(enmax).Add(permit)

	return Calculated{
		Subtotal:   subtotal.InexactFloat64(),
		GST:        gst.InexactFloat64(),
		Enmax:      enmax.InexactFloat64(),
		PermitCost: permit.InexactFloat64(),
		Total:      total.InexactFloat64(),
	}
}

func lineAmount(it ServiceLineItem) decimal.Decimal {
	return decimalOf(it.Qty).Mul(decimalOf(it.UnitValue))
}

// decimalOf guards decimal.NewFromFloat, which panics on NaN and infinities.
func decimalOf(v float64) decimal.Decimal {
	return decimal.NewFromFloat(finite(v))
}
