package feed

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVOptions controls parsing of a separator-delimited history file.
// The layout follows the common intraday export shape:
// datetime;open;high;low;close;volume
type CSVOptions struct {
	Symbol     string
	Separator  string
	TimeFormat string
	From       time.Time // zero value disables the bound
	To         time.Time
}

func (o *CSVOptions) defaults() {
	if o.Separator == "" {
		o.Separator = ";"
	}
	if o.TimeFormat == "" {
		o.TimeFormat = "20060102 150405"
	}
}

// LoadCSV reads a delimited history file into bars, applying the optional date range.
func LoadCSV(path string, opts CSVOptions) ([]Bar, error) {
	opts.defaults()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	var bars []Bar
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		fields := strings.Split(raw, opts.Separator)
		if len(fields) < 6 {
			return nil, fmt.Errorf("line %d: expected 6 fields, got %d", line, len(fields))
		}
		ts, err := time.Parse(opts.TimeFormat, strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse time: %w", line, err)
		}
		if !opts.From.IsZero() && ts.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && ts.After(opts.To) {
			continue
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse field %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		bars = append(bars, Bar{
			Symbol: opts.Symbol,
			Ts:     ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return bars, nil
}

// Resample buckets minute bars into periodMins-sized bars. boundaryOffsetMins shifts
// the bucket boundary so sessions that open off the hour (09:15) aggregate cleanly.
// Resampled bars are stamped at bucket open. Input must be in ascending time order.
func Resample(bars []Bar, periodMins, boundaryOffsetMins int) []Bar {
	if periodMins <= 1 || len(bars) == 0 {
		return bars
	}
	period := int64(periodMins)
	offset := int64(boundaryOffsetMins)

	var out []Bar
	var cur Bar
	var curKey int64
	open := false
	for _, b := range bars {
		key := (b.Ts.Unix()/60 + offset) / period
		if open && key != curKey {
			out = append(out, cur)
			open = false
		}
		if !open {
			start := time.Unix((curKeyStart(key, period, offset))*60, 0).In(b.Ts.Location())
			cur = Bar{Symbol: b.Symbol, Ts: start, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			curKey = key
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if open {
		out = append(out, cur)
	}
	return out
}

func curKeyStart(key, period, offset int64) int64 {
	return key*period - offset
}
