// Package pricing provides the pure price math for the dynamic market:
// demand/supply response to trades, time-based decay toward equilibrium,
// and stock-driven scarcity adjustment. Every function clamps its outputs
// to the configured price bounds.
package pricing

import (
	"math"
	"time"
)

// Default bounds matching the stock market configuration.
const (
	DefaultMinPrice       = 0.1
	DefaultMaxPrice       = 1000.0
	DefaultAdjustmentRate = 0.005
)

// Stock thresholds for the scarcity adjustment.
const (
	scarceStock    = 5
	abundantStock  = 500
	sellPriceRatio = 0.7 // forced sell/buy ratio when the spread inverts
)

// Model holds the configured price bounds and per-unit adjustment rate.
// It carries no mutable state; all methods are pure.
type Model struct {
	MinPrice       float64
	MaxPrice       float64
	AdjustmentRate float64
}

// DefaultModel returns a Model with the default bounds.
func DefaultModel() Model {
	return Model{
		MinPrice:       DefaultMinPrice,
		MaxPrice:       DefaultMaxPrice,
		AdjustmentRate: DefaultAdjustmentRate,
	}
}

// Clamp bounds a price to [MinPrice, MaxPrice].
func (m Model) Clamp(price float64) float64 {
	return math.Max(m.MinPrice, math.Min(m.MaxPrice, price))
}

// enforceSpread keeps the sell price strictly under the buy price.
// Applied after every mutation, not only scarcity adjustment.
func (m Model) enforceSpread(buy, sell float64) (float64, float64) {
	if sell >= buy {
		sell = m.Clamp(buy * sellPriceRatio)
	}
	return buy, sell
}

// Normalize bounds an externally supplied price pair and applies the
// sell < buy correction. Admin price overrides go through this before
// they reach an item.
func (m Model) Normalize(buy, sell float64) (float64, float64) {
	return m.enforceSpread(m.Clamp(buy), m.Clamp(sell))
}

// ApplyBuy returns the post-purchase price pair. Demand raises the buy
// price by amount*rate and sympathetically lowers the sell price at half
// the rate.
func (m Model) ApplyBuy(buy, sell float64, amount int) (float64, float64) {
	a := float64(amount)
	buy = m.Clamp(buy * (1 + a*m.AdjustmentRate))
	sell = m.Clamp(sell * (1 - a*m.AdjustmentRate*0.5))
	return m.enforceSpread(buy, sell)
}

// ApplySell returns the post-sale price pair. Supply lowers the sell price
// by amount*rate and sympathetically lowers the buy price at half the rate.
func (m Model) ApplySell(buy, sell float64, amount int) (float64, float64) {
	a := float64(amount)
	sell = m.Clamp(sell * (1 - a*m.AdjustmentRate))
	buy = m.Clamp(buy * (1 - a*m.AdjustmentRate*0.5))
	return m.enforceSpread(buy, sell)
}

// Decay drifts an untraded item's prices toward their mean, simulating
// market stabilization. Nothing happens under 24 hours of inactivity;
// beyond that the drift is 1% per idle day, capped at 10%. The boolean
// reports whether any drift was applied.
func (m Model) Decay(buy, sell float64, elapsed time.Duration) (float64, float64, bool) {
	hours := elapsed.Hours()
	if hours < 24 {
		return buy, sell, false
	}

	rate := math.Min(0.1, 0.01*hours/24)
	mean := (buy + sell) / 2

	buy = m.Clamp(buy - (buy-mean)*rate)
	sell = m.Clamp(sell + (mean-sell)*rate)
	buy, sell = m.enforceSpread(buy, sell)
	return buy, sell, true
}

// Scarcity nudges prices on stock extremes: very low stock raises the buy
// price and lowers the sell price by 2%, abundant stock does the opposite
// by 1%.
func (m Model) Scarcity(buy, sell float64, stock int) (float64, float64) {
	switch {
	case stock <= scarceStock:
		buy = m.Clamp(buy * 1.02)
		sell = m.Clamp(sell * 0.98)
	case stock >= abundantStock:
		buy = m.Clamp(buy * 0.99)
		sell = m.Clamp(sell * 1.01)
	}
	return m.enforceSpread(buy, sell)
}

// Stats carries the trading-history inputs for trend analysis.
type Stats struct {
	Stock       int
	TotalBought int
	TotalSold   int
	SinceUpdate time.Duration
}

// Velocity estimates lifetime transactions per hour, capped at 1.
func (s Stats) Velocity() float64 {
	hours := math.Max(1, s.SinceUpdate.Hours())
	return math.Min(1, float64(s.TotalBought+s.TotalSold)/hours)
}

// Saturation estimates how much of the trading volume is sales into the
// market, in [0, 1].
func (s Stats) Saturation() float64 {
	total := s.TotalSold + s.TotalBought
	if total == 0 {
		return 0
	}
	return math.Min(1, float64(s.TotalSold)/float64(total))
}

// scarcityMultiplier scales the optimal buy price by how thin the stock is.
func scarcityMultiplier(stock int) float64 {
	switch {
	case stock <= 0:
		return 2.0
	case stock <= 10:
		return 1.5
	case stock <= 50:
		return 1.2
	default:
		return 1.0
	}
}

// OptimalBuy computes a trend-adjusted target buy price: up to 10% higher
// for high trading velocity, scaled further by stock scarcity.
func (m Model) OptimalBuy(buy float64, s Stats) float64 {
	velocityMult := 1 + s.Velocity()*0.1
	return m.Clamp(buy * velocityMult * scarcityMultiplier(s.Stock))
}

// OptimalSell computes a trend-adjusted target sell price: up to 15% lower
// under heavy market saturation.
func (m Model) OptimalSell(sell float64, s Stats) float64 {
	return m.Clamp(sell * (1 - s.Saturation()*0.15))
}

// SuggestAdjustment returns the optimal price pair with the sell < buy
// guard applied, for gradual rebalancing of high-velocity items.
func (m Model) SuggestAdjustment(buy, sell float64, s Stats) (float64, float64) {
	optBuy := m.OptimalBuy(buy, s)
	optSell := m.OptimalSell(sell, s)
	return m.enforceSpread(optBuy, optSell)
}

// Stimulate eases a stagnant item's prices to provoke trade: buy down 5%,
// sell up 5%.
func (m Model) Stimulate(buy, sell float64) (float64, float64) {
	buy = m.Clamp(buy * 0.95)
	sell = m.Clamp(sell * 1.05)
	return m.enforceSpread(buy, sell)
}

// ProfitMargin reports the buy/sell spread as a percentage of the buy
// price.
func ProfitMargin(buy, sell float64) float64 {
	if buy == 0 || sell == 0 {
		return 0
	}
	return (buy - sell) / buy * 100
}
