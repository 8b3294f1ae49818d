package broker

// CommissionScheme models broker fees and margin. Two shapes are supported:
// a percentage of traded notional (stock-like) or a fixed fee per contract with
// a margin requirement and point multiplier (futures-like).
type CommissionScheme struct {
	PerContract float64 // flat fee per contract per side
	Percent     float64 // percent of notional per side, e.g. 0.1 for 0.1%
	Margin      float64 // cash reserved per contract; 0 = full notional is paid
	Mult        float64 // point value multiplier; 0 treated as 1
}

func (c CommissionScheme) mult() float64 {
	if c.Mult <= 0 {
		return 1
	}
	return c.Mult
}

// Fee returns the commission charged for trading qty units at price.
func (c CommissionScheme) Fee(qty, price float64) float64 {
	fee := c.PerContract * qty
	if c.Percent > 0 {
		fee += c.Percent / 100 * qty * price
	}
	return fee
}

// UnitCost is the cash required to carry one unit at price.
func (c CommissionScheme) UnitCost(price float64) float64 {
	if c.Margin > 0 {
		return c.Margin
	}
	return price
}

// PnL computes the profit of moving qty units from entry to exit for a long;
// callers negate for shorts.
func (c CommissionScheme) PnL(entry, exit, qty float64) float64 {
	return (exit - entry) * c.mult() * qty
}
