package orders

import "math"

// Totals is the monetary summary of an order.
type Totals struct {
	PreTax float64 `json:"pre_tax"`
	Tax    float64 `json:"tax"`
	Total  float64 `json:"total"`
}

// ComputeTotals derives order totals from its lines and tax rate (percent).
// Pure: same lines and rate always yield the same result.
func ComputeTotals(lines []OrderLine, taxRate float64) Totals {
	var preTax float64
	for _, l := range lines {
		preTax += float64(l.QtyOrdered) * l.UnitPrice
	}
	tax := preTax * taxRate / 100
	return Totals{
		PreTax: round2(preTax),
		Tax:    round2(tax),
		Total:  round2(preTax + tax),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
