// Package stats collects Prometheus statistics about stage handler invocations and cache lookups.
package stats

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Collector records statistics on its own registry, so every run starts from zero.
type Collector struct {
	registry *prometheus.Registry

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	cacheLookupsTotal  *prometheus.CounterVec

	mu     sync.Mutex
	builds map[string]struct{}
}

var _ ports.StageObserver = (*Collector)(nil)

// NewCollector creates a Collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		invocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiln_stage_invocations_total",
				Help: "Total number of stage handler invocations",
			},
			[]string{"build", "point", "tag", "status"},
		),
		invocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kiln_stage_invocation_duration_seconds",
				Help:    "Stage handler invocation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"build", "point", "tag"},
		),
		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiln_cache_lookups_total",
				Help: "Total number of snapshot cache lookups",
			},
			[]string{"build", "hit"},
		),
		builds: make(map[string]struct{}),
	}
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveInvocation records one handler invocation.
func (c *Collector) ObserveInvocation(build, point, tag string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.invocationsTotal.WithLabelValues(build, point, tag, status).Inc()
	c.invocationDuration.WithLabelValues(build, point, tag).Observe(elapsed.Seconds())
	c.track(build)
}

// ObserveCache records a cache lookup outcome.
func (c *Collector) ObserveCache(build string, hit bool) {
	c.cacheLookupsTotal.WithLabelValues(build, strconv.FormatBool(hit)).Inc()
	c.track(build)
}

// Builds returns how many distinct Builds have been observed.
func (c *Collector) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.builds)
}

func (c *Collector) track(build string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builds[build] = struct{}{}
}

// WriteFile writes the collected statistics in the text exposition format.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStatsWriteFailed.Error()), "path", path)
	}
	return nil
}
