package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the listings backend.
type Metrics struct {
	// Ad serving metrics
	AdRequests       *prometheus.CounterVec
	AdsServed        *prometheus.CounterVec
	SelectionLatency *prometheus.HistogramVec
	AdCacheHits      *prometheus.CounterVec

	// Ad interaction metrics
	AdImpressions *prometheus.CounterVec
	AdClicks      *prometheus.CounterVec

	// Listing metrics
	ListingSubmissions  *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec
	ValidationWarnings  *prometheus.CounterVec

	// Upload metrics
	ImageUploads   *prometheus.CounterVec
	UploadRollback prometheus.Counter

	// Geo metrics
	GeoLookupLatency *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AdRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_requests_total",
				Help:      "Total number of ad serve requests",
			},
			[]string{"page"},
		),
		AdsServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ads_served_total",
				Help:      "Total number of ads placed into buckets",
			},
			[]string{"page", "placement"},
		),
		SelectionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ad_selection_latency_seconds",
				Help:      "Ad selection latency in seconds, fetch included",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache"},
		),
		AdCacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_cache_total",
				Help:      "Ad query cache hits and misses",
			},
			[]string{"result"},
		),
		AdImpressions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_impressions_total",
				Help:      "Total ad impressions recorded",
			},
			[]string{"page", "placement"},
		),
		AdClicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_clicks_total",
				Help:      "Total ad clicks by action type",
			},
			[]string{"action_type"},
		),
		ListingSubmissions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listing_submissions_total",
				Help:      "Listing create/update submissions",
			},
			[]string{"kind", "status"},
		),
		ValidationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listing_validation_failures_total",
				Help:      "Listing validation failures by field",
			},
			[]string{"field"},
		),
		ValidationWarnings: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listing_validation_warnings_total",
				Help:      "Non-blocking listing validation warnings",
			},
			[]string{"code"},
		),
		ImageUploads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_uploads_total",
				Help:      "Image upload attempts by outcome",
			},
			[]string{"status"},
		),
		UploadRollback: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_upload_rollbacks_total",
				Help:      "Batch uploads rolled back after a partial failure",
			},
		),
		GeoLookupLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "geo_lookup_latency_seconds",
				Help:      "Viewer geo lookup latency in seconds",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
			[]string{"cache_hit"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by rate limiting",
			},
			[]string{"path"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAdRequest records one ad serve request.
func (m *Metrics) RecordAdRequest(page string) {
	m.AdRequests.WithLabelValues(page).Inc()
}

// RecordAdsServed records the bucketed ad counts for one serve.
func (m *Metrics) RecordAdsServed(page, placement string, count int) {
	m.AdsServed.WithLabelValues(page, placement).Add(float64(count))
}

// RecordSelection records selection latency.
func (m *Metrics) RecordSelection(cacheHit bool, d time.Duration) {
	m.SelectionLatency.WithLabelValues(strconv.FormatBool(cacheHit)).Observe(d.Seconds())
}

// RecordCache records an ad query cache hit or miss.
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.AdCacheHits.WithLabelValues(result).Inc()
}

// RecordImpression records one ad impression.
func (m *Metrics) RecordImpression(page, placement string) {
	m.AdImpressions.WithLabelValues(page, placement).Inc()
}

// RecordClick records one ad click.
func (m *Metrics) RecordClick(actionType string) {
	m.AdClicks.WithLabelValues(actionType).Inc()
}

// RecordListingSubmission records a listing create/update outcome.
func (m *Metrics) RecordListingSubmission(kind, status string) {
	m.ListingSubmissions.WithLabelValues(kind, status).Inc()
}

// RecordValidationFailure records a blocking validation failure.
func (m *Metrics) RecordValidationFailure(field string) {
	m.ValidationFailures.WithLabelValues(field).Inc()
}

// RecordValidationWarning records a non-blocking validation warning.
func (m *Metrics) RecordValidationWarning(code string) {
	m.ValidationWarnings.WithLabelValues(code).Inc()
}

// RecordImageUpload records one image upload attempt.
func (m *Metrics) RecordImageUpload(status string) {
	m.ImageUploads.WithLabelValues(status).Inc()
}

// RecordUploadRollback records a compensating delete pass.
func (m *Metrics) RecordUploadRollback() {
	m.UploadRollback.Inc()
}

// RecordGeoLookup records viewer geo lookup latency.
func (m *Metrics) RecordGeoLookup(cacheHit bool, d time.Duration) {
	m.GeoLookupLatency.WithLabelValues(strconv.FormatBool(cacheHit)).Observe(d.Seconds())
}

// RecordRateLimitHit records a rate-limited request.
func (m *Metrics) RecordRateLimitHit(path string) {
	m.RateLimitHits.WithLabelValues(path).Inc()
}
