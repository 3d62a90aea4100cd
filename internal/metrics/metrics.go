// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Outcome labels used by ObserveOutcome.
const (
	OutcomeAccepted = "accepted"
	OutcomeHTTP     = "http_error"
	OutcomeTimeout  = "timeout"
	OutcomeFailed   = "failed"
)

var (
	scraperPagesTotal          *prometheus.CounterVec
	scraperBytesTotal          *prometheus.CounterVec
	scraperFetchDuration       *prometheus.HistogramVec
	scraperOutcomesTotal       *prometheus.CounterVec
	scraperInFlight            prometheus.Gauge
	scraperRateLimitDelays     *prometheus.HistogramVec
	scraperDiscoveredLinks     prometheus.Counter
	scraperUploadsTotal        *prometheus.CounterVec
	scraperCommandDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscraper_pages_total",
				Help: "Total number of job pages fetched, labeled by site and status class.",
			},
			[]string{"site", "status_class"},
		)

		scraperBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscraper_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		scraperFetchDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobscraper_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		scraperOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscraper_outcomes_total",
				Help: "Total number of URL outcomes, labeled by result.",
			},
			[]string{"result"},
		)

		scraperInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobscraper_in_flight_fetches",
				Help: "Number of workers currently holding a concurrency slot.",
			},
		)

		scraperRateLimitDelays = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobscraper_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		scraperDiscoveredLinks = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobscraper_discovered_links_total",
				Help: "Total number of job links found on company pages.",
			},
		)

		scraperUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscraper_uploads_total",
				Help: "Total number of artifact uploads, labeled by provider and result.",
			},
			[]string{"provider", "result"},
		)

		scraperCommandDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobscraper_command_duration_seconds",
				Help:    "Wall time per CLI command.",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600, 14400},
			},
			[]string{"command"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveFetch records one completed page fetch.
func ObserveFetch(site, statusClass string, bytesFetched int, duration time.Duration) {
	Init()
	sanitizedSite := SanitizeSite(site)
	scraperPagesTotal.WithLabelValues(sanitizedSite, statusClass).Inc()
	if bytesFetched > 0 {
		scraperBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
	scraperFetchDuration.WithLabelValues(sanitizedSite).Observe(duration.Seconds())
}

// ObserveOutcome increments the outcome counter for the given result label.
func ObserveOutcome(result string) {
	Init()
	scraperOutcomesTotal.WithLabelValues(result).Inc()
}

// IncInFlight increments the in-flight gauge.
func IncInFlight() {
	Init()
	scraperInFlight.Inc()
}

// DecInFlight decrements the in-flight gauge.
func DecInFlight() {
	Init()
	scraperInFlight.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	scraperRateLimitDelays.WithLabelValues(domain).Observe(duration.Seconds())
}

// AddDiscoveredLinks adds n links found during discovery.
func AddDiscoveredLinks(n int) {
	Init()
	scraperDiscoveredLinks.Add(float64(n))
}

// ObserveUpload records an upload attempt for provider.
func ObserveUpload(provider string, err error) {
	Init()
	result := "success"
	if err != nil {
		result = "error"
	}
	scraperUploadsTotal.WithLabelValues(provider, result).Inc()
}

// ObserveCommand records the wall time of a CLI command.
func ObserveCommand(command string, duration time.Duration) {
	Init()
	scraperCommandDurationSecs.WithLabelValues(command).Observe(duration.Seconds())
}

// Push sends every registered collector to a Prometheus Pushgateway. Batch
// runs exit before a scrape could reach them, so this is the only way the
// numbers leave the process.
func Push(ctx context.Context, gatewayURL, job string) error {
	return PushFrom(ctx, prometheus.DefaultGatherer, gatewayURL, job)
}

// PushFrom pushes the metrics of gatherer to the gateway.
func PushFrom(ctx context.Context, gatherer prometheus.Gatherer, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
