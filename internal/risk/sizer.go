// Package risk decides how much size an order may take on.
package risk

import "math"

// PercentSizer stakes a fixed percentage of available cash on each entry.
// When the instrument trades on margin, size is expressed in whole contracts.
type PercentSizer struct {
	Percent float64 // 0-100
}

// Size returns the quantity to stake given free cash and the per-unit cost.
// margin > 0 switches to whole-contract sizing against the margin requirement.
func (s PercentSizer) Size(cash, price, margin float64) float64 {
	if s.Percent <= 0 || cash <= 0 {
		return 0
	}
	stake := cash * s.Percent / 100
	if margin > 0 {
		return math.Floor(stake / margin)
	}
	if price <= 0 {
		return 0
	}
	return stake / price
}

// Limits encodes guard-rails on a single order's notional exposure.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether an order of the given notional may be placed.
// A zero limit disables the check.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}
