package feed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadCSV(t *testing.T) {
	bars, err := LoadCSV(filepath.Join("testdata", "history.txt"), CSVOptions{Symbol: "NIFTY"})
	if err != nil {
		t.Fatalf("LoadCSV returned error: %v", err)
	}
	if len(bars) != 6 {
		t.Fatalf("expected 6 bars, got %d", len(bars))
	}
	first := bars[0]
	if first.Symbol != "NIFTY" {
		t.Fatalf("unexpected symbol: %s", first.Symbol)
	}
	want := time.Date(2019, 1, 29, 9, 15, 0, 0, time.UTC)
	if !first.Ts.Equal(want) {
		t.Fatalf("unexpected timestamp: %s", first.Ts)
	}
	if first.Open != 10845.0 || first.High != 10851.0 || first.Low != 10844.2 || first.Close != 10850.5 {
		t.Fatalf("unexpected OHLC: %+v", first)
	}
	if first.Volume != 1200 {
		t.Fatalf("unexpected volume: %.0f", first.Volume)
	}
}

func TestLoadCSVDateRange(t *testing.T) {
	from := time.Date(2019, 1, 29, 10, 14, 0, 0, time.UTC)
	bars, err := LoadCSV(filepath.Join("testdata", "history.txt"), CSVOptions{Symbol: "NIFTY", From: from})
	if err != nil {
		t.Fatalf("LoadCSV returned error: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars after %s, got %d", from, len(bars))
	}
	for _, b := range bars {
		if b.Ts.Before(from) {
			t.Fatalf("bar %s before from bound", b.Ts)
		}
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.txt"), CSVOptions{})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestResampleBoundaryOffset(t *testing.T) {
	bars, err := LoadCSV(filepath.Join("testdata", "history.txt"), CSVOptions{Symbol: "NIFTY"})
	if err != nil {
		t.Fatalf("LoadCSV returned error: %v", err)
	}

	// With a -15 minute boundary offset the 09:15 session open starts its own
	// hourly bucket, so 09:15-10:14 collapse into one bar and 10:15+ the next.
	out := Resample(bars, 60, -15)
	if len(out) != 2 {
		t.Fatalf("expected 2 resampled bars, got %d", len(out))
	}

	first := out[0]
	if !first.Ts.Equal(time.Date(2019, 1, 29, 9, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket open: %s", first.Ts)
	}
	if first.Open != 10845.0 {
		t.Fatalf("unexpected open: %.2f", first.Open)
	}
	if first.High != 10862.5 {
		t.Fatalf("unexpected high: %.2f", first.High)
	}
	if first.Low != 10840.0 {
		t.Fatalf("unexpected low: %.2f", first.Low)
	}
	if first.Close != 10842.0 {
		t.Fatalf("unexpected close: %.2f", first.Close)
	}
	if first.Volume != 4700 {
		t.Fatalf("unexpected volume: %.0f", first.Volume)
	}

	second := out[1]
	if !second.Ts.Equal(time.Date(2019, 1, 29, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected second bucket open: %s", second.Ts)
	}
	if second.Close != 10831.9 {
		t.Fatalf("unexpected second close: %.2f", second.Close)
	}
}

func TestResamplePassthrough(t *testing.T) {
	bars := []Bar{{Close: 1}, {Close: 2}}
	out := Resample(bars, 1, 0)
	if len(out) != 2 {
		t.Fatalf("expected passthrough, got %d bars", len(out))
	}
}

func TestStubFeedEmitsBars(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	f := NewFeed(ProviderStub, "testsym", zerolog.Nop(), WithInterval(10*time.Millisecond))
	out := make(chan Bar, 4)
	go func() { _ = f.Run(ctx, out) }()

	select {
	case bar := <-out:
		if bar.Symbol != "TESTSYM" {
			t.Fatalf("unexpected symbol: %s", bar.Symbol)
		}
		if bar.High < bar.Low {
			t.Fatalf("high below low: %+v", bar)
		}
		if bar.Close <= 0 {
			t.Fatalf("non-positive close: %+v", bar)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for stub bar")
	}
}
