// Package broker simulates order execution, cash accounting, and round-trip
// trade tracking against completed price bars.
package broker

import "time"

// Side enumerates order directions.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Kind enumerates supported execution types.
type Kind int

const (
	// Market fills at the next bar's open.
	Market Kind = iota
	// Limit fills at the stated price or better.
	Limit
	// Stop becomes marketable once price touches the trigger level.
	Stop
)

func (k Kind) String() string {
	switch k {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// Status enumerates the order lifecycle. Everything past Accepted is terminal.
type Status int

const (
	Submitted Status = iota
	Accepted
	Completed
	Canceled
	Rejected
	Margin
	Expired
)

func (s Status) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Accepted:
		return "accepted"
	case Completed:
		return "completed"
	case Canceled:
		return "canceled"
	case Rejected:
		return "rejected"
	case Margin:
		return "margin"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case Completed, Canceled, Rejected, Margin, Expired:
		return true
	}
	return false
}

// Execution records how an order filled.
type Execution struct {
	Price float64
	Value float64 // price * quantity
	Comm  float64
	Bar   int
	Ts    time.Time
}

// Order is a broker-owned record. Callers hold it as an opaque handle and read
// state through the accessors; only the simulator mutates it.
type Order struct {
	ID     int64
	Symbol string
	Side   Side
	Kind   Kind
	Price  float64 // trigger (stop) or limit price; unused for market
	Qty    float64

	status       Status
	executed     Execution
	submittedBar int
	expiresBar   int // 0 = good till canceled
}

// Status returns the current lifecycle state.
func (o *Order) Status() Status { return o.status }

// Executed returns fill details, meaningful once Status is Completed.
func (o *Order) Executed() Execution { return o.executed }

// IsBuy reports whether the order adds long exposure.
func (o *Order) IsBuy() bool { return o.Side == Buy }

// Fill is the flattened execution record handed to recorders.
type Fill struct {
	Ts     time.Time `json:"ts"`
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	Comm   float64   `json:"comm"`
	Bar    int       `json:"bar"`
}

// FillRecorder captures fills for later inspection.
type FillRecorder interface {
	Record(Fill)
}
