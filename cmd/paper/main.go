// Binary paper runs the strategy against a live bar stream with simulated
// execution. No real orders are placed.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"meanrev-go/internal/backtest"
	"meanrev-go/internal/broker"
	"meanrev-go/internal/config"
	"meanrev-go/internal/feed"
	"meanrev-go/internal/indicator"
	"meanrev-go/internal/metrics"
	"meanrev-go/internal/risk"
	"meanrev-go/internal/strategy"
	"meanrev-go/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src := feed.NewFeed(cfg.Data.Provider, cfg.Data.Symbol, log)
	bars := make(chan feed.Bar, 64)
	go func() {
		if err := src.Run(ctx, bars); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	comm := broker.CommissionScheme{
		PerContract: cfg.Broker.Commission.PerContract,
		Percent:     cfg.Broker.Commission.Percent,
		Margin:      cfg.Broker.Commission.Margin,
		Mult:        cfg.Broker.Commission.Mult,
	}
	sim := broker.NewSim(cfg.Data.Symbol, cfg.Broker.StartingCash, comm,
		risk.PercentSizer{Percent: cfg.Broker.SizerPercent}, log)
	sim.SetRiskLimits(risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade})

	if cfg.Broker.FillsPath != "" {
		rec, err := backtest.NewJSONLRecorder(cfg.Broker.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open fill recorder")
		}
		defer rec.Close()
		sim.SetFillRecorder(rec)
	}

	strat := strategy.NewBollingerReversion(sim, log)
	boll := indicator.NewBollinger(cfg.Strategy.Window, cfg.Strategy.StdDevMult)
	eng := backtest.NewEngine(sim, boll, strat, log)

	log.Info().Str("provider", cfg.Data.Provider).Msg("paper engine started")
	res := eng.RunStream(ctx, bars)
	log.Info().Float64("value", res.FinalValue).Float64("pnl", res.PnL).
		Int("trades", len(res.Trades)).Msg("shutting down")
}
