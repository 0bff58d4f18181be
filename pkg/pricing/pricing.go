// Package pricing is the single home for order money math. Both the chat
// service (when an order is finalized) and the order service (when a
// submission is validated) must agree on these numbers to the cent.
package pricing

import "math"

// TaxRate is the NYC combined sales tax rate applied to every order.
const TaxRate = 0.08875

// Round2 rounds to two decimal places using standard half-away-from-zero
// rounding.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineTotal is the price of a single line: unit total times quantity.
func LineTotal(totalPrice float64, quantity int) float64 {
	return totalPrice * float64(quantity)
}

// Subtotal sums line totals and rounds once. Callers must not re-round the
// inputs first; tax and total are derived from this already-rounded value.
func Subtotal(lineTotals []float64) float64 {
	var sum float64
	for _, lt := range lineTotals {
		sum += lt
	}
	return Round2(sum)
}

// Tax computes the tax owed on an already-rounded subtotal.
func Tax(subtotal float64) float64 {
	return Round2(subtotal * TaxRate)
}

// Total computes the grand total from an already-rounded subtotal.
func Total(subtotal float64) float64 {
	return Round2(subtotal + Tax(subtotal))
}
