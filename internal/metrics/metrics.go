package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cycles_total", Help: "Completed trading cycles"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted to the exchange"},
		[]string{"symbol", "kind"},
	)
	ScanErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scan_errors_total", Help: "Instruments skipped during the scan"},
		[]string{"reason"},
	)
	APICallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "api_calls_total", Help: "REST calls issued to the exchange"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Currently open short positions"},
	)
	DailyPnLPct = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "daily_pnl_pct", Help: "Accumulated daily P&L in percent"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, OrdersTotal, ScanErrorsTotal, APICallsTotal, OpenPositions, DailyPnLPct)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
