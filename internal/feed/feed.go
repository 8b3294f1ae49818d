package feed

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ProviderStub emits deterministic synthetic bars (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams completed klines from Binance public websockets.
	ProviderBinance = "binance"
)

// Feed represents a pluggable streaming source of completed bars.
type Feed struct {
	provider string
	symbol   string
	interval time.Duration
	log      zerolog.Logger
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const defaultBarInterval = time.Minute

// WithInterval overrides the bar cadence for providers that synthesize bars locally.
func WithInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		interval: defaultBarInterval,
		log:      log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run pushes completed bars onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- Bar) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// runStub synthesizes a slow sine-wave price path so downstream consumers see
// band crossings without a network connection.
func (f *Feed) runStub(ctx context.Context, out chan<- Bar) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	const base = 100.0
	step := 0
	prev := base
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			step++
			px := base + 5*math.Sin(float64(step)/7)
			bar := Bar{
				Symbol: f.symbol,
				Ts:     ts,
				Open:   prev,
				High:   math.Max(prev, px) + 0.25,
				Low:    math.Min(prev, px) - 0.25,
				Close:  px,
				Volume: 1000,
			}
			prev = px
			select {
			case out <- bar:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
