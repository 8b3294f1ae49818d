package broker

import (
	"math"

	"github.com/rs/zerolog"

	"meanrev-go/internal/feed"
	"meanrev-go/internal/metrics"
	"meanrev-go/internal/risk"
)

// Sim is a bar-driven broker simulation for a single instrument. Orders
// submitted while a bar is being handled become eligible on the next bar;
// fills resolve against OHLC on a first-touch basis.
//
// Sim is not goroutine safe: the engine delivers bars and callbacks on one
// goroutine, strictly ordered by simulation time.
type Sim struct {
	log    zerolog.Logger
	symbol string

	startingCash float64
	cash         float64
	reserved     float64 // margin held against the open position
	position     float64 // signed quantity
	avgEntry     float64

	comm   CommissionScheme
	sizer  risk.PercentSizer
	limits risk.Limits

	pending  []*Order
	nextID   int64
	barIndex int
	curBar   feed.Bar
	validity int // bars an order stays live; 0 = good till canceled

	trade  *Trade
	trades []*Trade

	orderCb  func(*Order)
	tradeCb  func(*Trade)
	recorder FillRecorder
}

// NewSim constructs a simulator with the given bankroll, fee schedule, and sizer.
func NewSim(symbol string, startingCash float64, comm CommissionScheme, sizer risk.PercentSizer, log zerolog.Logger) *Sim {
	return &Sim{
		log:          log,
		symbol:       symbol,
		startingCash: startingCash,
		cash:         startingCash,
		comm:         comm,
		sizer:        sizer,
		barIndex:     -1,
	}
}

// OnOrderUpdate registers the order-status callback.
func (s *Sim) OnOrderUpdate(fn func(*Order)) { s.orderCb = fn }

// OnTradeUpdate registers the trade-closed callback.
func (s *Sim) OnTradeUpdate(fn func(*Trade)) { s.tradeCb = fn }

// SetFillRecorder attaches a sink receiving every fill.
func (s *Sim) SetFillRecorder(r FillRecorder) { s.recorder = r }

// SetOrderValidity makes subsequently submitted orders expire after n bars.
func (s *Sim) SetOrderValidity(bars int) { s.validity = bars }

// SetRiskLimits caps the notional a single order may carry.
func (s *Sim) SetRiskLimits(l risk.Limits) { s.limits = l }

// Position returns the signed quantity currently held.
func (s *Sim) Position() float64 { return s.position }

// Cash returns free cash.
func (s *Sim) Cash() float64 { return s.cash }

// StartingCash returns the initial bankroll.
func (s *Sim) StartingCash() float64 { return s.startingCash }

// BarIndex returns the index of the bar currently being processed (-1 before the first).
func (s *Sim) BarIndex() int { return s.barIndex }

// Trades returns every closed round trip so far.
func (s *Sim) Trades() []*Trade { return s.trades }

// Value marks the account to the given price: cash plus reserved margin plus
// open-position PnL (margin mode), or cash plus position notional (cash mode).
func (s *Sim) Value(mark float64) float64 {
	if s.comm.Margin > 0 {
		unrealized := s.comm.PnL(s.avgEntry, mark, s.position)
		return s.cash + s.reserved + unrealized
	}
	return s.cash + s.position*mark
}

// SubmitStop places a stop order. qty 0 auto-sizes via the percent sizer,
// or closes the open position when the order opposes it.
func (s *Sim) SubmitStop(side Side, price, qty float64) *Order {
	return s.submit(side, Stop, price, qty)
}

// SubmitLimit places a limit order with the same sizing rules as SubmitStop.
func (s *Sim) SubmitLimit(side Side, price, qty float64) *Order {
	return s.submit(side, Limit, price, qty)
}

// SubmitMarket places an order that fills at the next bar's open.
func (s *Sim) SubmitMarket(side Side, qty float64) *Order {
	return s.submit(side, Market, 0, qty)
}

func (s *Sim) submit(side Side, kind Kind, price, qty float64) *Order {
	if qty <= 0 {
		qty = s.autoSize(side, price)
	}
	s.nextID++
	o := &Order{
		ID:           s.nextID,
		Symbol:       s.symbol,
		Side:         side,
		Kind:         kind,
		Price:        price,
		Qty:          qty,
		status:       Submitted,
		submittedBar: s.barIndex,
	}
	if s.validity > 0 {
		o.expiresBar = s.barIndex + s.validity
	}
	s.notifyOrder(o)

	if qty <= 0 {
		o.status = Rejected
		s.log.Warn().Int64("id", o.ID).Str("side", string(side)).Msg("order rejected: zero size")
		s.notifyOrder(o)
		return o
	}

	ref := price
	if ref <= 0 {
		ref = s.curBar.Close
	}
	if notional := qty * s.comm.UnitCost(ref); !s.limits.Allow(notional) {
		o.status = Rejected
		s.log.Warn().Int64("id", o.ID).Str("side", string(side)).
			Float64("notional", notional).Msg("order rejected: notional limit")
		s.notifyOrder(o)
		return o
	}

	metrics.OrdersTotal.WithLabelValues(s.symbol, string(side)).Inc()
	o.status = Accepted
	s.notifyOrder(o)
	s.pending = append(s.pending, o)
	s.log.Debug().Int64("id", o.ID).Str("side", string(side)).Str("kind", kind.String()).
		Float64("px", price).Float64("qty", qty).Msg("order accepted")
	return o
}

// autoSize closes the position when the order opposes it, otherwise stakes a
// percentage of free cash.
func (s *Sim) autoSize(side Side, price float64) float64 {
	if s.position > 0 && side == Sell {
		return s.position
	}
	if s.position < 0 && side == Buy {
		return -s.position
	}
	ref := price
	if ref <= 0 {
		ref = s.curBar.Close
	}
	return s.sizer.Size(s.cash, ref, s.comm.Margin)
}

// Cancel withdraws a live order. Terminal orders are left untouched.
func (s *Sim) Cancel(o *Order) {
	if o == nil || o.status.Terminal() {
		return
	}
	for i, p := range s.pending {
		if p == o {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	o.status = Canceled
	s.log.Debug().Int64("id", o.ID).Msg("order canceled")
	s.notifyOrder(o)
}

// ProcessBar advances simulation time by one bar and resolves pending orders
// against it. Order notifications fire before any trade-closed notification.
func (s *Sim) ProcessBar(bar feed.Bar) {
	s.barIndex++
	s.curBar = bar

	pending := s.pending
	s.pending = nil
	for _, o := range pending {
		if o.status.Terminal() {
			continue
		}
		if o.submittedBar >= s.barIndex {
			s.pending = append(s.pending, o)
			continue
		}
		if o.expiresBar > 0 && s.barIndex > o.expiresBar {
			o.status = Expired
			s.log.Debug().Int64("id", o.ID).Msg("order expired")
			s.notifyOrder(o)
			continue
		}
		px, ok := fillPrice(o, bar)
		if !ok {
			s.pending = append(s.pending, o)
			continue
		}
		s.execute(o, px, bar)
	}
}

// fillPrice resolves whether the bar touches the order, first at the open and
// then within the bar's range.
func fillPrice(o *Order, bar feed.Bar) (float64, bool) {
	switch o.Kind {
	case Market:
		return bar.Open, true
	case Stop:
		if o.Side == Buy {
			if bar.Open >= o.Price {
				return bar.Open, true
			}
			if bar.High >= o.Price {
				return o.Price, true
			}
		} else {
			if bar.Open <= o.Price {
				return bar.Open, true
			}
			if bar.Low <= o.Price {
				return o.Price, true
			}
		}
	case Limit:
		if o.Side == Buy {
			if bar.Open <= o.Price {
				return bar.Open, true
			}
			if bar.Low <= o.Price {
				return o.Price, true
			}
		} else {
			if bar.Open >= o.Price {
				return bar.Open, true
			}
			if bar.High >= o.Price {
				return o.Price, true
			}
		}
	}
	return 0, false
}

func (s *Sim) execute(o *Order, px float64, bar feed.Bar) {
	qty := o.Qty
	fee := s.comm.Fee(qty, px)

	var closeQty float64
	if s.position > 0 && o.Side == Sell {
		closeQty = math.Min(qty, s.position)
	} else if s.position < 0 && o.Side == Buy {
		closeQty = math.Min(qty, -s.position)
	}
	openQty := qty - closeQty

	var realized float64
	if closeQty > 0 {
		realized = s.comm.PnL(s.avgEntry, px, closeQty)
		if s.position < 0 {
			realized = -realized
		}
	}

	// Cash movement if the fill goes through.
	var delta float64
	if s.comm.Margin > 0 {
		delta = realized + s.comm.Margin*closeQty - s.comm.Margin*openQty - fee
	} else if o.Side == Buy {
		delta = -px*qty - fee
	} else {
		delta = px*qty - fee
	}
	if s.cash+delta < 0 {
		o.status = Margin
		s.log.Warn().Int64("id", o.ID).Float64("cash", s.cash).Float64("needed", -delta).
			Msg("order hit margin: insufficient cash")
		s.notifyOrder(o)
		return
	}
	s.cash += delta
	if s.comm.Margin > 0 {
		s.reserved += s.comm.Margin * (openQty - closeQty)
	}

	// Position update: close leg first, then open leg.
	if s.position > 0 {
		s.position -= closeQty
	} else if s.position < 0 {
		s.position += closeQty
	}
	if openQty > 0 {
		held := math.Abs(s.position)
		if held == 0 {
			s.avgEntry = px
		} else {
			s.avgEntry = (s.avgEntry*held + px*openQty) / (held + openQty)
		}
		if o.Side == Buy {
			s.position += openQty
		} else {
			s.position -= openQty
		}
	}

	// Round-trip bookkeeping.
	var closed *Trade
	if s.trade != nil && !s.trade.IsClosed {
		s.trade.Comm += fee
		s.trade.PnL += realized
		if s.position == 0 {
			closed = s.closeTrade(bar)
		} else if closeQty > 0 && openQty > 0 {
			// flipped through flat: the old trade closes, a new one opens
			closed = s.closeTrade(bar)
			s.trade = &Trade{Symbol: s.symbol, OpenTs: bar.Ts, BarOpen: s.barIndex, Size: s.position}
		}
	} else if s.position != 0 {
		s.trade = &Trade{Symbol: s.symbol, OpenTs: bar.Ts, BarOpen: s.barIndex, Size: s.position, Comm: fee}
	}

	o.status = Completed
	o.executed = Execution{Price: px, Value: px * qty, Comm: fee, Bar: s.barIndex, Ts: bar.Ts}
	metrics.FillsTotal.WithLabelValues(s.symbol, string(o.Side)).Inc()
	if s.recorder != nil {
		s.recorder.Record(Fill{Ts: bar.Ts, Symbol: s.symbol, Side: o.Side, Qty: qty, Price: px, Comm: fee, Bar: s.barIndex})
	}
	s.log.Debug().Int64("id", o.ID).Str("side", string(o.Side)).Float64("px", px).
		Float64("qty", qty).Float64("comm", fee).Msg("order filled")
	s.notifyOrder(o)
	if closed != nil {
		metrics.TradesClosedTotal.WithLabelValues(s.symbol).Inc()
		s.notifyTrade(closed)
	}
}

func (s *Sim) closeTrade(bar feed.Bar) *Trade {
	t := s.trade
	t.CloseTs = bar.Ts
	t.BarClose = s.barIndex
	t.BarLen = t.BarClose - t.BarOpen
	t.PnLComm = t.PnL - t.Comm
	t.IsClosed = true
	s.trades = append(s.trades, t)
	return t
}

func (s *Sim) notifyOrder(o *Order) {
	if s.orderCb != nil {
		s.orderCb(o)
	}
}

func (s *Sim) notifyTrade(t *Trade) {
	if s.tradeCb != nil {
		s.tradeCb(t)
	}
}
