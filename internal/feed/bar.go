// Package feed loads, reshapes, and streams OHLCV price bars.
package feed

import "time"

// Bar models one completed time step of market data. Immutable once emitted.
type Bar struct {
	Symbol string
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
