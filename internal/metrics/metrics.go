// Package metrics provides Prometheus metrics for the proxy print server.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyprint_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxyprint_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Scryfall API Metrics
	ScryfallRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyprint_scryfall_requests_total",
			Help: "Outbound Scryfall API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	ScryfallRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxyprint_scryfall_retries_total",
			Help: "Scryfall requests retried after a retryable failure",
		},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyprint_cache_requests_total",
			Help: "Card cache lookups by cache name and outcome",
		},
		[]string{"cache", "result"}, // result: "hit" or "miss"
	)

	// Bulk Data Store Metrics
	BulkRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyprint_bulk_rebuilds_total",
			Help: "Bulk snapshot rebuilds by result",
		},
		[]string{"result"}, // "success" or "error"
	)

	BulkRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proxyprint_bulk_rebuild_duration_seconds",
			Help:    "Time taken to download and rebuild the bulk snapshot",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	IndexedCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxyprint_indexed_cards_total",
			Help: "Number of card printings in the in-memory indices",
		},
	)

	// Resolution Metrics
	ResolveLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyprint_resolve_lines_total",
			Help: "Decklist lines processed by outcome",
		},
		[]string{"result"}, // "resolved", "unresolved", "parse_error"
	)

	RemoteFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxyprint_remote_fallbacks_total",
			Help: "Lookups that missed the local index and went to the live API",
		},
	)
)
