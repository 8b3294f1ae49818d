// Package indicator provides technical indicator calculations over bar closes.
package indicator

import "math"

// Bands holds the three Bollinger lines as of the latest update.
type Bands struct {
	Upper float64
	Mid   float64
	Lower float64
}

// Bollinger computes a volatility channel from a rolling window of closes:
// mid is the simple moving average, upper/lower sit mult standard deviations away.
type Bollinger struct {
	window int
	mult   float64
	closes []float64
}

// NewBollinger builds a calculator with the given window length and deviation multiplier.
func NewBollinger(window int, mult float64) *Bollinger {
	if window <= 0 {
		window = 20
	}
	if mult <= 0 {
		mult = 2
	}
	return &Bollinger{
		window: window,
		mult:   mult,
		closes: make([]float64, 0, window),
	}
}

// Update feeds the latest close and slides the window.
func (b *Bollinger) Update(close float64) {
	b.closes = append(b.closes, close)
	if len(b.closes) > b.window {
		b.closes = b.closes[len(b.closes)-b.window:]
	}
}

// Ready reports whether the window has accumulated enough closes.
func (b *Bollinger) Ready() bool {
	return len(b.closes) >= b.window
}

// Bands returns the current channel. Zero value until Ready.
func (b *Bollinger) Bands() Bands {
	if !b.Ready() {
		return Bands{}
	}
	var sum float64
	for _, c := range b.closes {
		sum += c
	}
	mean := sum / float64(len(b.closes))

	var variance float64
	for _, c := range b.closes {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(b.closes))
	dev := b.mult * math.Sqrt(variance)

	return Bands{Upper: mean + dev, Mid: mean, Lower: mean - dev}
}

// Window returns the configured window length.
func (b *Bollinger) Window() int { return b.window }
