package observability

import (
	"context"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/careplan-backend/internal/platform/envutil"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
)

// Metrics is the gateway's Prometheus-text registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	upstreamRequests *CounterVec
	upstreamLatency  *HistogramVec
	cacheLookups     *CounterVec
	rateLimited      *CounterVec
	research         *CounterVec

	cacheEntries *GaugeFunc

	redisUp   *Gauge
	redisPing *Gauge
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("careplan_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"careplan_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		),
		apiInflight: NewGauge("careplan_api_inflight_requests", "In-flight API requests."),
		upstreamRequests: NewCounterVec(
			"careplan_upstream_requests_total",
			"Upstream LLM calls by operation/outcome.",
			[]string{"operation", "outcome"},
		),
		upstreamLatency: NewHistogramVec(
			"careplan_upstream_duration_seconds",
			"Upstream LLM call latency in seconds by operation/outcome.",
			[]string{"operation", "outcome"},
			[]float64{0.5, 1, 2, 5, 10, 20, 30},
		),
		cacheLookups: NewCounterVec("careplan_cache_lookups_total", "Cache lookups by operation/result.", []string{"operation", "result"}),
		rateLimited:  NewCounterVec("careplan_rate_limited_total", "Requests rejected by the rate limiter.", []string{"route"}),
		research:     NewCounterVec("careplan_research_lookups_total", "Evidence lookups by source/outcome.", []string{"source", "outcome"}),
		cacheEntries: NewGaugeFunc("careplan_cache_entries", "Entries held by the in-process cache, stale ones included."),
		redisUp:      NewGauge("careplan_redis_up", "1 when the last Redis ping succeeded."),
		redisPing:    NewGauge("careplan_redis_ping_seconds", "Latency of the last Redis ping."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveUpstream records one upstream call; outcome is "ok" or an error kind.
func (m *Metrics) ObserveUpstream(operation, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.upstreamRequests.Inc(operation, outcome)
	m.upstreamLatency.Observe(dur.Seconds(), operation, outcome)
}

// IncCache records a cache lookup; result is "hit", "miss" or "error".
func (m *Metrics) IncCache(operation, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Inc(operation, result)
}

func (m *Metrics) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.Inc(route)
}

func (m *Metrics) IncResearch(source, outcome string) {
	if m == nil {
		return
	}
	m.research.Inc(source, outcome)
}

// TrackCacheEntries reports fn() as careplan_cache_entries at scrape time.
func (m *Metrics) TrackCacheEntries(fn func() int) {
	if m == nil {
		return
	}
	m.cacheEntries.Bind(fn)
}

func (m *Metrics) upstreamCount(operation, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.upstreamRequests.Value(operation, outcome)
}

func (m *Metrics) cacheCount(operation, result string) float64 {
	if m == nil {
		return 0
	}
	return m.cacheLookups.Value(operation, result)
}

// StartRedisCollector pings rdb every interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil && ctx.Err() == nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func scrapeInterval() time.Duration {
	n, ok := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS")
	if !ok || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}
