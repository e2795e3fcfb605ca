package metrics

import "time"

// Recorder is the metrics surface the services record into. Two
// implementations exist: Prometheus-backed Metrics and NoopMetrics for
// when metrics are disabled.
type Recorder interface {
	// Authentication
	RecordLogin(kind string, success bool)
	RecordLogout()
	RecordOAuthCallback(flow string, success bool)

	// Provider traffic
	RecordTokenExchange(flow string, success bool)
	RecordTokenRefresh(success bool)
	RecordProviderRequest(flow string, duration time.Duration)

	// Notifications
	RecordNotifyPush(success bool)
	RecordNotifyRevoke(success bool)

	// Caches
	RecordCacheRead(cache string, hit bool)

	// Gauges
	SetUsersCount(count int)
	SetActiveGrantsCount(count int)
}
