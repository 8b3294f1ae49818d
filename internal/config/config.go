// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Data describes where historical bars come from and how they are shaped before the run.
type Data struct {
	Path               string `yaml:"path"`
	Symbol             string `yaml:"symbol"`
	Separator          string `yaml:"separator"`
	TimeFormat         string `yaml:"time_format"`
	From               string `yaml:"from"`
	To                 string `yaml:"to"`
	ResampleMins       int    `yaml:"resample_mins"`
	BoundaryOffsetMins int    `yaml:"boundary_offset_mins"`
	Provider           string `yaml:"provider"` // live mode: stub | binance
}

// Commission mirrors a broker fee schedule: either a percentage of notional or a
// futures-style fixed fee per contract with margin and point multiplier.
type Commission struct {
	PerContract float64 `yaml:"per_contract"`
	Percent     float64 `yaml:"percent"`
	Margin      float64 `yaml:"margin"`
	Mult        float64 `yaml:"mult"`
}

// Broker captures simulated account settings: bankroll, sizing, and the fee schedule.
type Broker struct {
	StartingCash float64    `yaml:"starting_cash"`
	SizerPercent float64    `yaml:"sizer_percent"`
	Commission   Commission `yaml:"commission"`
	FillsPath    string     `yaml:"fills_path"`
}

// Risk holds guard-rails applied before an order reaches the book.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"` // 0 disables
}

// Strategy groups the tunable knobs of the Bollinger mean-reversion policy.
type Strategy struct {
	Window     int     `yaml:"window"`
	StdDevMult float64 `yaml:"stddev_mult"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Data     Data     `yaml:"data"`
	Broker   Broker   `yaml:"broker"`
	Risk     Risk     `yaml:"risk"`
	Strategy Strategy `yaml:"strategy"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Data.Separator == "" {
		c.Data.Separator = ";"
	}
	if c.Data.TimeFormat == "" {
		c.Data.TimeFormat = "20060102 150405"
	}
	if c.Strategy.Window <= 0 {
		c.Strategy.Window = 20
	}
	if c.Strategy.StdDevMult <= 0 {
		c.Strategy.StdDevMult = 2
	}
	if c.Broker.Commission.Mult <= 0 {
		c.Broker.Commission.Mult = 1
	}
}

// DateRange parses the optional from/to bounds using the configured time format.
func (d Data) DateRange() (from, to time.Time, err error) {
	if d.From != "" {
		from, err = time.Parse(d.TimeFormat, d.From)
		if err != nil {
			return from, to, fmt.Errorf("parse from: %w", err)
		}
	}
	if d.To != "" {
		to, err = time.Parse(d.TimeFormat, d.To)
		if err != nil {
			return from, to, fmt.Errorf("parse to: %w", err)
		}
	}
	return from, to, nil
}
