package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type binanceKlineEvent struct {
	Symbol string `json:"s"`
	Kline  struct {
		StartTime int64  `json:"t"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

func (f *Feed) runBinance(ctx context.Context, out chan<- Bar) error {
	if f.symbol == "" {
		return fmt.Errorf("binance feed requires a symbol")
	}

	url := fmt.Sprintf("wss://stream.binance.com:9443/ws/%s@kline_1m", strings.ToLower(f.symbol))
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- Bar) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("symbol", f.symbol).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev binanceKlineEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		if !ev.Kline.Closed {
			continue
		}

		bar, err := ev.toBar()
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid kline from binance")
			continue
		}

		select {
		case out <- bar:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (ev binanceKlineEvent) toBar() (Bar, error) {
	vals := make([]float64, 5)
	for i, raw := range []string{ev.Kline.Open, ev.Kline.High, ev.Kline.Low, ev.Kline.Close, ev.Kline.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Bar{}, err
		}
		vals[i] = v
	}
	return Bar{
		Symbol: strings.ToUpper(ev.Symbol),
		Ts:     time.UnixMilli(ev.Kline.StartTime),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
