package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder. All methods
// are empty, providing zero overhead when metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordLogin(kind string, success bool)              {}
func (n *NoopMetrics) RecordLogout()                                      {}
func (n *NoopMetrics) RecordOAuthCallback(flow string, success bool)      {}
func (n *NoopMetrics) RecordTokenExchange(flow string, success bool)      {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)                    {}
func (n *NoopMetrics) RecordProviderRequest(flow string, d time.Duration) {}
func (n *NoopMetrics) RecordNotifyPush(success bool)                      {}
func (n *NoopMetrics) RecordNotifyRevoke(success bool)                    {}
func (n *NoopMetrics) RecordCacheRead(cache string, hit bool)             {}
func (n *NoopMetrics) SetUsersCount(count int)                            {}
func (n *NoopMetrics) SetActiveGrantsCount(count int)                     {}
