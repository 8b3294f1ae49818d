package backtest

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/broker"
	"meanrev-go/internal/feed"
	"meanrev-go/internal/indicator"
	"meanrev-go/internal/risk"
	"meanrev-go/internal/strategy"
)

// roundTripBars warms a 5-bar window with flat closes, breaks above the upper
// band, trades back through it to fill the stop entry, then reverts to the mid
// band to fill the profit exit.
func roundTripBars() []feed.Bar {
	start := time.Date(2019, 1, 29, 9, 15, 0, 0, time.UTC)
	mk := func(i int, o, h, l, c float64) feed.Bar {
		return feed.Bar{Symbol: "NIFTY", Ts: start.Add(time.Duration(i) * time.Hour), Open: o, High: h, Low: l, Close: c, Volume: 1000}
	}
	bars := []feed.Bar{
		mk(0, 100, 100, 100, 100),
		mk(1, 100, 100, 100, 100),
		mk(2, 100, 100, 100, 100),
		mk(3, 100, 100, 100, 100),
		// closes [100 x4, 110]: mid 102, 1.5 dev channel = 96..108, close above
		mk(4, 100, 111, 99, 110),
		// trades down through the 108 trigger
		mk(5, 109, 110, 107, 107.5),
		// touches the 103.5 mid-band exit
		mk(6, 106, 107, 103, 104),
	}
	return bars
}

func newRunFixture() (*Engine, *broker.Sim, *Ledger, *bytes.Buffer) {
	sim := broker.NewSim("NIFTY", 100000, broker.CommissionScheme{}, risk.PercentSizer{Percent: 15}, zerolog.Nop())
	ledger := NewLedger(8)
	sim.SetFillRecorder(ledger)
	var buf bytes.Buffer
	strat := strategy.NewBollingerReversion(sim, zerolog.New(&buf))
	eng := NewEngine(sim, indicator.NewBollinger(5, 1.5), strat, zerolog.Nop())
	return eng, sim, ledger, &buf
}

func TestRunCompletesRoundTrip(t *testing.T) {
	eng, sim, ledger, buf := newRunFixture()

	res := eng.Run(roundTripBars())

	if sim.Position() != 0 {
		t.Fatalf("expected flat position, got %.2f", sim.Position())
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected one closed trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if !tr.IsClosed {
		t.Fatalf("trade not closed")
	}
	if tr.Size >= 0 {
		t.Fatalf("expected a short round trip, size %.2f", tr.Size)
	}
	// short ~138.89 units from 108 down to 103.5
	if math.Abs(tr.PnL-625) > 1e-6 {
		t.Fatalf("unexpected gross pnl: %.4f", tr.PnL)
	}
	if math.Abs(res.FinalValue-(100000+tr.PnLComm)) > 1e-6 {
		t.Fatalf("final value %.4f does not match cash + pnl", res.FinalValue)
	}
	if res.PnL <= 0 {
		t.Fatalf("expected positive run pnl, got %.4f", res.PnL)
	}

	fills := ledger.Snapshot()
	if len(fills) != 2 {
		t.Fatalf("expected entry and exit fills, got %d", len(fills))
	}
	if fills[0].Side != broker.Sell || fills[0].Price != 108 {
		t.Fatalf("unexpected entry fill: %+v", fills[0])
	}
	if fills[1].Side != broker.Buy || fills[1].Price != 103.5 {
		t.Fatalf("unexpected exit fill: %+v", fills[1])
	}

	out := buf.String()
	for _, want := range []string{"SELL EXECUTED", "BUY EXECUTED", "OPERATION PROFIT", "TRADE STATS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in strategy log, got %s", want, out)
		}
	}
}

func TestRunStaysIdleInsideBands(t *testing.T) {
	eng, sim, ledger, _ := newRunFixture()

	start := time.Date(2019, 1, 29, 9, 15, 0, 0, time.UTC)
	var bars []feed.Bar
	for i := 0; i < 10; i++ {
		bars = append(bars, feed.Bar{Symbol: "NIFTY", Ts: start.Add(time.Duration(i) * time.Hour), Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 1000})
	}
	res := eng.Run(bars)

	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades on a flat tape, got %d", len(res.Trades))
	}
	if len(ledger.Snapshot()) != 0 {
		t.Fatalf("expected no fills on a flat tape")
	}
	if sim.Position() != 0 {
		t.Fatalf("expected flat position, got %.2f", sim.Position())
	}
	if res.PnL != 0 {
		t.Fatalf("expected zero pnl, got %.4f", res.PnL)
	}
}

func TestRunStreamConsumesUntilClose(t *testing.T) {
	eng, sim, _, _ := newRunFixture()

	in := make(chan feed.Bar)
	go func() {
		for _, b := range roundTripBars() {
			in <- b
		}
		close(in)
	}()

	res := eng.RunStream(context.Background(), in)
	if len(res.Trades) != 1 {
		t.Fatalf("expected one closed trade from stream, got %d", len(res.Trades))
	}
	if sim.Position() != 0 {
		t.Fatalf("expected flat position, got %.2f", sim.Position())
	}
}
