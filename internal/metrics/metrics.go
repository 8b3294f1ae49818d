package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_total", Help: "Count of price bars processed"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fills_total", Help: "Orders filled"},
		[]string{"symbol", "side"},
	)
	TradesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_closed_total", Help: "Round-trip trades closed"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(BarsTotal, OrdersTotal, FillsTotal, TradesClosedTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{ Addr: addr, Handler: mux }
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
