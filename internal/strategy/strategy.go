// Package strategy contains trading policies driven by engine callbacks.
package strategy

import (
	"meanrev-go/internal/broker"
	"meanrev-go/internal/feed"
	"meanrev-go/internal/indicator"
)

// Strategy defines the callbacks the engine delivers, one at a time, in
// simulation order.
type Strategy interface {
	Name() string
	OnBar(bar feed.Bar, bands indicator.Bands)
	OnOrderUpdate(o *broker.Order)
	OnTradeUpdate(t *broker.Trade)
}

// OrderBroker is the command surface a policy needs from the engine. qty 0
// lets the broker size the order.
type OrderBroker interface {
	SubmitStop(side broker.Side, price, qty float64) *broker.Order
	SubmitLimit(side broker.Side, price, qty float64) *broker.Order
	Cancel(o *broker.Order)
	Position() float64
}
