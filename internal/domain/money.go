package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds v to cents, half away from zero.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// LineTotal sums price*quantity for each pair and rounds the result to cents.
func LineTotal(prices, quantities []float64) float64 {
	sum := decimal.Zero
	for i := range prices {
		sum = sum.Add(decimal.NewFromFloat(prices[i]).Mul(decimal.NewFromFloat(quantities[i])))
	}
	return sum.Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
