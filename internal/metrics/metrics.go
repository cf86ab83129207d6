package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Purchases *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewCheckoutMetrics() *CheckoutMetrics {
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "checkout",
		Name:      "purchases_total",
		Help:      "Total number of purchase attempts.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shop",
		Subsystem: "checkout",
		Name:      "purchase_duration_ms",
		Help:      "Purchase latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"outcome"})

	prometheus.MustRegister(purchases, latency)
	return &CheckoutMetrics{Purchases: purchases, LatencyMS: latency}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
