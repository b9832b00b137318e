package simulation

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

const (
	// DriftRatio scales the uniform draw into a move of at most ±5% of price.
	DriftRatio = 0.1
	// MaxChangeRatio bounds a single tick's move. Never reached with DriftRatio 0.1.
	MaxChangeRatio = 0.1
)

// RawChange is the unrounded move for a price given a draw r in [0, 1).
func RawChange(price, r float64) float64 {
	raw := price * (DriftRatio * (0.5 - r))
	bound := math.Abs(price) * MaxChangeRatio
	return math.Max(-bound, math.Min(bound, raw))
}

// NextPrice returns the new price and the change applied, both rounded to cents.
func NextPrice(price, r float64) (newPrice, change float64) {
	raw := RawChange(price, r)
	return Round2(price + raw), Round2(raw)
}

// Round2 rounds half away from zero on the shortest decimal form of v,
// the same result "%.2f" gives under a fixed locale.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Step moves every stock once, drawing one random value per stock in list order.
func Step(stocks []models.Stock, rnd Rand) []models.Stock {
	next := make([]models.Stock, len(stocks))
	for i, s := range stocks {
		s.CurrentPrice, s.PriceChange = NextPrice(s.CurrentPrice, rnd.Float64())
		next[i] = s
	}
	return next
}
