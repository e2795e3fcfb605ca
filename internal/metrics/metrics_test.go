package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-linegate/linegate/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	r := Init(false)
	_, ok := r.(*NoopMetrics)
	assert.True(t, ok)

	// Noop recorder accepts every call without side effects.
	r.RecordLogin("line", true)
	r.RecordOAuthCallback("notify", false)
	r.RecordCacheRead("session", true)
	r.SetUsersCount(3)
}

func TestHTTPMetricsMiddleware_NoopPassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(NewNoopMetrics()))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "unmatched", normalizePath(""))
	assert.Equal(t, "/line/login", normalizePath("/line/login"))
}

type fakeGaugeStore struct {
	users  int64
	grants int64
	calls  int
}

func (f *fakeGaugeStore) CountUsers() (int64, error) {
	f.calls++
	return f.users, nil
}

func (f *fakeGaugeStore) CountActiveNotifyGrants() (int64, error) {
	f.calls++
	return f.grants, nil
}

type captureRecorder struct {
	NoopMetrics
	users  int
	grants int
}

func (c *captureRecorder) SetUsersCount(count int)        { c.users = count }
func (c *captureRecorder) SetActiveGrantsCount(count int) { c.grants = count }

func TestGaugeSampler_Sample(t *testing.T) {
	store := &fakeGaugeStore{users: 7, grants: 4}
	rec := &captureRecorder{}
	sampler := NewGaugeSampler(store, cache.NewMemoryCache[int64](), rec, time.Minute)

	require.NoError(t, sampler.Sample(context.Background()))
	assert.Equal(t, 7, rec.users)
	assert.Equal(t, 4, rec.grants)
	assert.Equal(t, 2, store.calls)

	// Second sample inside the TTL is served from the count cache.
	require.NoError(t, sampler.Sample(context.Background()))
	assert.Equal(t, 2, store.calls)
}
