package mockgw

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered on a per-server registry so several servers can coexist in tests.
type metrics struct {
	registry            *prometheus.Registry
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rpcCalls            *prometheus.CounterVec
	joinsRateLimited    prometheus.Counter
	authentications     *prometheus.CounterVec
	sessionKeys         prometheus.Gauge
	fundsExpired        prometheus.Counter
	expiryRefunds       prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mockgw_http_requests_total",
				Help: "Total number of HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mockgw_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "method"},
		),
		rpcCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mockgw_rpc_calls_total",
				Help: "Total number of JSON-RPC calls by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		joinsRateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mockgw_joins_rate_limited_total",
				Help: "Total number of join requests rejected with 429",
			},
		),
		authentications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mockgw_authentications_total",
				Help: "Total number of authentication attempts by result",
			},
			[]string{"result"},
		),
		sessionKeys: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mockgw_session_keys",
				Help: "Current number of live session keys",
			},
		),
		fundsExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mockgw_funds_expired_wei_total",
				Help: "Total wei returned from session keys to funders on expiry",
			},
		),
		expiryRefunds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mockgw_expiry_refunds_total",
				Help: "Total number of expired deposits refunded",
			},
		),
	}
}
