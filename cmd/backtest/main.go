// Binary backtest replays a historical bar file through the Bollinger
// mean-reversion strategy and reports the final portfolio value.
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"meanrev-go/internal/backtest"
	"meanrev-go/internal/broker"
	"meanrev-go/internal/config"
	"meanrev-go/internal/feed"
	"meanrev-go/internal/indicator"
	"meanrev-go/internal/risk"
	"meanrev-go/internal/strategy"
	"meanrev-go/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	pretty := flag.Bool("pretty", false, "render human-readable console output")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *pretty {
		log = util.NewConsoleLogger(cfg.App.LogLevel, os.Stdout)
	} else {
		log = util.NewLogger(cfg.App.LogLevel)
	}

	from, to, err := cfg.Data.DateRange()
	if err != nil {
		log.Fatal().Err(err).Msg("parse date range")
	}
	bars, err := feed.LoadCSV(cfg.Data.Path, feed.CSVOptions{
		Symbol:     cfg.Data.Symbol,
		Separator:  cfg.Data.Separator,
		TimeFormat: cfg.Data.TimeFormat,
		From:       from,
		To:         to,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("load history")
	}
	bars = feed.Resample(bars, cfg.Data.ResampleMins, cfg.Data.BoundaryOffsetMins)
	log.Info().Str("symbol", cfg.Data.Symbol).Int("bars", len(bars)).Msg("history loaded")

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

	res := eng.Run(bars)
	log.Info().Float64("value", res.FinalValue).Float64("pnl", res.PnL).
		Int("trades", len(res.Trades)).Msg("final portfolio value")
}
