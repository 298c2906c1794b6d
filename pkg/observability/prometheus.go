package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromHooks implements every hook interface on top of a private Prometheus
// registry.
type PromHooks struct {
	registry *prometheus.Registry

	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	buildsTotal     *prometheus.CounterVec
	guardsLast      prometheus.Gauge
	edgesLast       prometheus.Gauge
	visibilityTiles *prometheus.HistogramVec
	visibilityTime  *prometheus.HistogramVec
	cacheEvents     *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
}

// NewPromHooks creates hooks backed by a fresh registry.
func NewPromHooks() *PromHooks {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &PromHooks{
		registry: reg,
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patrolgraph_stage_duration_seconds",
			Help:    "Duration of each build stage",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		stageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolgraph_stage_errors_total",
			Help: "Build stages that returned an error",
		}, []string{"stage"}),
		buildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolgraph_builds_total",
			Help: "Completed builds by result",
		}, []string{"result"}),
		guardsLast: f.NewGauge(prometheus.GaugeOpts{
			Name: "patrolgraph_last_build_guards",
			Help: "Guard count of the most recent successful build",
		}),
		edgesLast: f.NewGauge(prometheus.GaugeOpts{
			Name: "patrolgraph_last_build_edges",
			Help: "Edge count of the most recent successful build",
		}),
		visibilityTiles: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patrolgraph_visibility_tiles",
			Help:    "Free tiles per visibility computation",
			Buckets: prometheus.ExponentialBuckets(16, 4, 8),
		}, []string{"algorithm"}),
		visibilityTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patrolgraph_visibility_duration_seconds",
			Help:    "Visibility computation duration",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"algorithm"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolgraph_cache_events_total",
			Help: "Cache lookups and writes by key type and event",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolgraph_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}, []string{"key_type"}),
	}
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (p *PromHooks) Registry() *prometheus.Registry { return p.registry }

// WriteToTextfile writes all metrics in the text exposition format, for
// pickup by the node exporter textfile collector.
func (p *PromHooks) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

func (p *PromHooks) OnStageStart(context.Context, string) {}

func (p *PromHooks) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		p.stageErrors.WithLabelValues(stage).Inc()
	}
}

func (p *PromHooks) OnBuildComplete(_ context.Context, guards, edges int, _ time.Duration, err error) {
	if err != nil {
		p.buildsTotal.WithLabelValues("error").Inc()
		return
	}
	p.buildsTotal.WithLabelValues("success").Inc()
	p.guardsLast.Set(float64(guards))
	p.edgesLast.Set(float64(edges))
}

func (p *PromHooks) OnComputeStart(_ context.Context, algorithm string, tiles int) {
	p.visibilityTiles.WithLabelValues(algorithm).Observe(float64(tiles))
}

func (p *PromHooks) OnComputeComplete(_ context.Context, algorithm string, _ int, d time.Duration, _ error) {
	p.visibilityTime.WithLabelValues(algorithm).Observe(d.Seconds())
}

func (p *PromHooks) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *PromHooks) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *PromHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

var (
	_ BuildHooks      = (*PromHooks)(nil)
	_ VisibilityHooks = (*PromHooks)(nil)
	_ CacheHooks      = (*PromHooks)(nil)
)
