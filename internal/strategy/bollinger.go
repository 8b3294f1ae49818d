package strategy

import (
	"github.com/rs/zerolog"

	"meanrev-go/internal/broker"
	"meanrev-go/internal/feed"
	"meanrev-go/internal/indicator"
)

// BollingerReversion fades band breakouts: when price closes outside a band it
// arms a stop entry at the band level, so the position opens only once price
// crosses back through it. Open positions exit with a limit at the mid band.
//
// The policy holds at most one live entry order and one live exit order;
// both are canceled and re-priced on every new bar.
type BollingerReversion struct {
	log    zerolog.Logger
	broker OrderBroker

	entry       *broker.Order
	exit        *broker.Order
	lastFillBar int
}

// NewBollingerReversion wires the policy to its order broker.
func NewBollingerReversion(b OrderBroker, log zerolog.Logger) *BollingerReversion {
	return &BollingerReversion{log: log, broker: b, lastFillBar: -1}
}

// Name returns the configured identifier for logging.
func (s *BollingerReversion) Name() string { return "BollingerReversion" }

// LastFillBar returns the bar index of the most recent fill, -1 before any.
func (s *BollingerReversion) LastFillBar() int { return s.lastFillBar }

// OnBar re-evaluates working orders against the fresh bar. Stale orders are
// withdrawn first so at most one entry and one exit can ever be live.
func (s *BollingerReversion) OnBar(bar feed.Bar, bands indicator.Bands) {
	if s.entry != nil {
		if s.entry.Status() == broker.Accepted {
			s.broker.Cancel(s.entry)
		}
		s.entry = nil
	}
	if s.exit != nil {
		s.broker.Cancel(s.exit)
		s.exit = nil
	}

	if pos := s.broker.Position(); pos == 0 {
		if bar.Close > bands.Upper {
			s.log.Debug().Float64("close", bar.Close).Float64("top", bands.Upper).
				Msg("SIGNAL:ENTRY Sell")
			s.entry = s.broker.SubmitStop(broker.Sell, bands.Upper, 0)
		}
		if bar.Close < bands.Lower {
			s.log.Debug().Float64("close", bar.Close).Float64("bot", bands.Lower).
				Msg("SIGNAL:ENTRY Buy")
			s.entry = s.broker.SubmitStop(broker.Buy, bands.Lower, 0)
		}
	} else if pos > 0 {
		s.log.Debug().Float64("mid", bands.Mid).Msg("SIGNAL:EXIT Sell")
		s.exit = s.broker.SubmitLimit(broker.Sell, bands.Mid, 0)
	} else {
		s.log.Debug().Float64("mid", bands.Mid).Msg("SIGNAL:EXIT Buy")
		s.exit = s.broker.SubmitLimit(broker.Buy, bands.Mid, 0)
	}
}

// OnOrderUpdate reacts to engine status changes. Terminal failures are logged
// and nothing is retried.
func (s *BollingerReversion) OnOrderUpdate(o *broker.Order) {
	switch o.Status() {
	case broker.Submitted, broker.Accepted:
		return
	case broker.Expired:
		s.log.Warn().Int64("id", o.ID).Str("side", string(o.Side)).Msg("ORDER EXPIRED")
	case broker.Completed:
		ex := o.Executed()
		if o.IsBuy() {
			s.log.Info().Float64("price", ex.Price).Float64("cost", ex.Value).
				Float64("comm", ex.Comm).Msg("BUY EXECUTED")
		} else {
			s.log.Info().Float64("price", ex.Price).Float64("cost", ex.Value).
				Float64("comm", ex.Comm).Msg("SELL EXECUTED")
		}
		s.lastFillBar = ex.Bar
	case broker.Canceled, broker.Margin, broker.Rejected:
		s.log.Warn().Int64("id", o.ID).Str("status", o.Status().String()).
			Msg("order canceled/margin/rejected")
		return
	}

	if s.entry != nil && s.entry.Status() == broker.Completed {
		s.log.Debug().Msg("ENTRY ORDER EXECUTED")
		s.entry = nil
	}
	if s.exit != nil && s.exit.Status() == broker.Completed {
		s.log.Debug().Msg("PROFIT ORDER EXECUTED")
		s.exit = nil
	}
}

// OnTradeUpdate logs the result of a completed round trip.
func (s *BollingerReversion) OnTradeUpdate(t *broker.Trade) {
	if !t.IsClosed {
		return
	}
	s.log.Info().Float64("gross", t.PnL).Float64("net", t.PnLComm).Msg("OPERATION PROFIT")
	s.log.Info().Time("open", t.OpenTs).Time("close", t.CloseTs).Int("bars", t.BarLen).
		Float64("pnl", t.PnL).Msg("TRADE STATS")
}
