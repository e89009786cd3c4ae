package model

import "github.com/shopspring/decimal"

func init() {
	// Amounts are written as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ShippingFee is zero once total reaches threshold, otherwise the flat fee.
func ShippingFee(total, threshold, flat decimal.Decimal) decimal.Decimal {
	if total.GreaterThanOrEqual(threshold) {
		return decimal.Zero
	}
	return flat
}
