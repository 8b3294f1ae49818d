// Package backtest drives a strategy over bars, historical or streaming.
package backtest

import (
	"context"

	"github.com/rs/zerolog"

	"meanrev-go/internal/broker"
	"meanrev-go/internal/feed"
	"meanrev-go/internal/indicator"
	"meanrev-go/internal/metrics"
	"meanrev-go/internal/strategy"
)

// Engine delivers exactly one of bar/order/trade events at a time, in
// simulation order: pending orders resolve against a bar before the strategy
// sees it.
type Engine struct {
	log   zerolog.Logger
	sim   *broker.Sim
	boll  *indicator.Bollinger
	strat strategy.Strategy

	lastClose float64
}

// Result summarizes a completed run.
type Result struct {
	StartingCash float64
	FinalValue   float64
	PnL          float64
	Trades       []*broker.Trade
}

// NewEngine wires the simulator's notifications into the strategy callbacks.
func NewEngine(sim *broker.Sim, boll *indicator.Bollinger, strat strategy.Strategy, log zerolog.Logger) *Engine {
	sim.OnOrderUpdate(strat.OnOrderUpdate)
	sim.OnTradeUpdate(strat.OnTradeUpdate)
	return &Engine{log: log, sim: sim, boll: boll, strat: strat}
}

// Run replays historical bars in order and returns the marked-to-market result.
func (e *Engine) Run(bars []feed.Bar) Result {
	for _, b := range bars {
		e.step(b)
	}
	return e.result()
}

// RunStream consumes live bars until the context is canceled.
func (e *Engine) RunStream(ctx context.Context, in <-chan feed.Bar) Result {
	for {
		select {
		case <-ctx.Done():
			return e.result()
		case b, ok := <-in:
			if !ok {
				return e.result()
			}
			e.step(b)
		}
	}
}

func (e *Engine) step(b feed.Bar) {
	e.sim.ProcessBar(b)
	metrics.BarsTotal.WithLabelValues(b.Symbol).Inc()
	e.lastClose = b.Close

	e.boll.Update(b.Close)
	if !e.boll.Ready() {
		return
	}
	e.strat.OnBar(b, e.boll.Bands())
}

func (e *Engine) result() Result {
	value := e.sim.Value(e.lastClose)
	res := Result{
		StartingCash: e.sim.StartingCash(),
		FinalValue:   value,
		PnL:          value - e.sim.StartingCash(),
		Trades:       e.sim.Trades(),
	}
	e.log.Info().Float64("value", res.FinalValue).Float64("pnl", res.PnL).
		Int("trades", len(res.Trades)).Msg("run complete")
	return res
}
