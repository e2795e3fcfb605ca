package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication Metrics
	LoginTotal         *prometheus.CounterVec
	LogoutTotal        prometheus.Counter
	OAuthCallbackTotal *prometheus.CounterVec

	// Provider Traffic Metrics
	TokenExchangeTotal      *prometheus.CounterVec
	TokenRefreshTotal       *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	// Notification Metrics
	NotifyPushTotal   *prometheus.CounterVec
	NotifyRevokeTotal *prometheus.CounterVec

	// Cache Metrics
	CacheReadsTotal *prometheus.CounterVec

	// Gauges
	UsersTotal        prometheus.Gauge
	NotifyGrantsTotal prometheus.Gauge

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on the enabled flag: Prometheus-backed
// Metrics when true, NoopMetrics when false. Uses sync.Once so the
// Prometheus collectors are only registered once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		LoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"kind", "result"}, // kind: line, general; result: success, failure
		),
		LogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		OAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_callback_total",
				Help: "Total number of OAuth callback attempts",
			},
			[]string{"flow", "result"}, // flow: login, notify; result: success, error
		),

		TokenExchangeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_exchange_total",
				Help: "Total number of authorization-code exchanges",
			},
			[]string{"flow", "result"},
		),
		TokenRefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_refresh_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"},
		),
		ProviderRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Time taken for provider API calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"flow"},
		),

		NotifyPushTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_push_total",
				Help: "Total number of notification messages pushed",
			},
			[]string{"result"},
		),
		NotifyRevokeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_revoke_total",
				Help: "Total number of notification grant revocations",
			},
			[]string{"result"},
		),

		CacheReadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_reads_total",
				Help: "Total number of cache reads",
			},
			[]string{"cache", "result"}, // cache: session, credential; result: hit, miss
		),

		UsersTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "users_total",
				Help: "Current number of registered users",
			},
		),
		NotifyGrantsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_grants_active",
				Help: "Current number of active notification grants",
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001, 0.005, 0.010, 0.025, 0.050,
					0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
	}
}

func result(success bool) string {
	if success {
		return resultSuccess
	}
	return resultFailure
}

func (m *Metrics) RecordLogin(kind string, success bool) {
	m.LoginTotal.WithLabelValues(kind, result(success)).Inc()
}

func (m *Metrics) RecordLogout() {
	m.LogoutTotal.Inc()
}

func (m *Metrics) RecordOAuthCallback(flow string, success bool) {
	res := resultSuccess
	if !success {
		res = resultError
	}
	m.OAuthCallbackTotal.WithLabelValues(flow, res).Inc()
}

func (m *Metrics) RecordTokenExchange(flow string, success bool) {
	res := resultSuccess
	if !success {
		res = resultError
	}
	m.TokenExchangeTotal.WithLabelValues(flow, res).Inc()
}

func (m *Metrics) RecordTokenRefresh(success bool) {
	res := resultSuccess
	if !success {
		res = resultError
	}
	m.TokenRefreshTotal.WithLabelValues(res).Inc()
}

func (m *Metrics) RecordProviderRequest(flow string, duration time.Duration) {
	m.ProviderRequestDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

func (m *Metrics) RecordNotifyPush(success bool) {
	res := resultSuccess
	if !success {
		res = resultError
	}
	m.NotifyPushTotal.WithLabelValues(res).Inc()
}

func (m *Metrics) RecordNotifyRevoke(success bool) {
	res := resultSuccess
	if !success {
		res = resultError
	}
	m.NotifyRevokeTotal.WithLabelValues(res).Inc()
}

func (m *Metrics) RecordCacheRead(cache string, hit bool) {
	res := "miss"
	if hit {
		res = "hit"
	}
	m.CacheReadsTotal.WithLabelValues(cache, res).Inc()
}

func (m *Metrics) SetUsersCount(count int) {
	m.UsersTotal.Set(float64(count))
}

func (m *Metrics) SetActiveGrantsCount(count int) {
	m.NotifyGrantsTotal.Set(float64(count))
}
