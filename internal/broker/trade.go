package broker

import "time"

// Trade tracks one round trip: opened when the position leaves flat, closed
// when it returns to flat.
type Trade struct {
	Symbol   string
	OpenTs   time.Time
	CloseTs  time.Time
	BarOpen  int
	BarClose int
	BarLen   int
	Size     float64 // signed entry quantity: positive long, negative short
	PnL      float64 // gross
	PnLComm  float64 // net of commissions
	Comm     float64
	IsClosed bool
}
