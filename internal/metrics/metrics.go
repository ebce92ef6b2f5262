package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Audits counts audit requests by outcome (fresh, cached, partial, restricted, failed).
var Audits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "metabear_audits_total",
	Help: "Total number of audit requests by outcome",
}, []string{"outcome"})

// Cache lookups.
var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metabear_cache_hits_total",
		Help: "Total number of audits served from the per-tab cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metabear_cache_misses_total",
		Help: "Total number of audits that required a fresh scan",
	})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metabear_cache_invalidations_total",
		Help: "Total number of cache entries dropped by tab events",
	})
)

// DiscoveryFailures counts robots.txt / sitemap.xml lookups that came back absent.
var DiscoveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "metabear_discovery_failures_total",
	Help: "Total number of robots.txt and sitemap.xml fetches treated as not found",
}, []string{"resource"})

var (
	AuditDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "metabear_audit_duration_seconds",
		Help:    "Time taken by a fresh audit, page load included",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	Scores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "metabear_audit_score",
		Help:    "Distribution of computed audit scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
)
