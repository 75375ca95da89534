package observability

import (
	"strconv"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string                 `json:"name"`
	Type      MetricType             `json:"type"`
	Value     float64                `json:"value"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// MetricsCollector collects and stores application metrics in memory
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metric),
	}
}

func metricKey(name string, labels map[string]string) string {
	key := name
	for k, v := range labels {
		key += "." + k + "=" + v
	}
	return key
}

// Inc increments a counter metric
func (mc *MetricsCollector) Inc(name string, labels map[string]string) {
	mc.Add(name, 1, labels)
}

// Add adds a value to a counter metric
func (mc *MetricsCollector) Add(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	if metric, exists := mc.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now()
		return
	}
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      MetricTypeCounter,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Set sets a gauge metric value
func (mc *MetricsCollector) Set(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Observe records a histogram observation. Tracks count and sum; the metric
// value is the running average.
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	metric, exists := mc.metrics[key]
	if !exists {
		mc.metrics[key] = &Metric{
			Name:      name,
			Type:      MetricTypeHistogram,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
			Extra: map[string]interface{}{
				"count": 1.0,
				"sum":   value,
			},
		}
		return
	}

	count := 1.0
	sum := value
	if c, ok := metric.Extra["count"].(float64); ok {
		count = c + 1
	}
	if s, ok := metric.Extra["sum"].(float64); ok {
		sum = s + value
	}
	metric.Extra["count"] = count
	metric.Extra["sum"] = sum
	metric.Value = sum / count
	metric.Timestamp = time.Now()
}

// Get retrieves a metric by name and labels
func (mc *MetricsCollector) Get(name string, labels map[string]string) (*Metric, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metric, exists := mc.metrics[metricKey(name, labels)]
	return metric, exists
}

// GetAll retrieves a copy of all metrics
func (mc *MetricsCollector) GetAll() map[string]*Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*Metric, len(mc.metrics))
	for k, v := range mc.metrics {
		result[k] = v
	}
	return result
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics = make(map[string]*Metric)
}

// Standard metric names
const (
	// Ask pipeline metrics
	MetricAskTotal       = "insight_asks_total"
	MetricAskDuration    = "insight_ask_duration_seconds"
	MetricAskSuccess     = "insight_asks_success_total"
	MetricAskFailure     = "insight_asks_failure_total"
	MetricAskCacheHits   = "insight_cache_hits_total"
	MetricAskCacheMisses = "insight_cache_misses_total"

	// Resolver metrics
	MetricResolverGenerated = "resolver_generated_total"
	MetricResolverFallback  = "resolver_fallback_total"
	MetricSafetyRejections  = "resolver_safety_rejections_total"

	// Translator metrics
	MetricTranslatorRequests = "translator_requests_total"
	MetricTranslatorDuration = "translator_request_duration_seconds"
	MetricTranslatorErrors   = "translator_errors_total"
	MetricEmbeddingRequests  = "translator_embedding_requests_total"

	// Database metrics
	MetricDBQueries  = "database_queries_total"
	MetricDBDuration = "database_query_duration_seconds"
	MetricDBErrors   = "database_errors_total"

	// Chart metrics
	MetricChartSelected = "charts_selected_total"

	// Auth metrics
	MetricAuthAttempts = "auth_attempts_total"
	MetricAuthSuccess  = "auth_success_total"
	MetricAuthFailure  = "auth_failure_total"

	// HTTP metrics
	MetricHTTPRequests = "http_requests_total"
	MetricHTTPDuration = "http_request_duration_seconds"
	MetricHTTPErrors   = "http_errors_total"
)

// Global metrics collector instance
var globalMetrics = NewMetricsCollector()

// GetGlobalMetrics returns the global metrics collector
func GetGlobalMetrics() *MetricsCollector {
	return globalMetrics
}

// RecordAskMetrics records metrics for one ask through the pipeline.
// source is how the SQL was obtained: "generated", "fallback", or "default".
func RecordAskMetrics(duration time.Duration, source string, success bool, cached bool) {
	metrics := GetGlobalMetrics()

	metrics.Inc(MetricAskTotal, nil)

	if success {
		metrics.Inc(MetricAskSuccess, nil)
	} else {
		metrics.Inc(MetricAskFailure, nil)
	}

	if cached {
		metrics.Inc(MetricAskCacheHits, nil)
	} else {
		metrics.Inc(MetricAskCacheMisses, nil)
	}

	if source != "" {
		if source == "generated" {
			metrics.Inc(MetricResolverGenerated, nil)
		} else {
			metrics.Inc(MetricResolverFallback, map[string]string{"source": source})
		}
	}

	metrics.Observe(MetricAskDuration, duration.Seconds(), nil)
}

// RecordSafetyRejection counts a safety check rejection by reason
func RecordSafetyRejection(reason string) {
	GetGlobalMetrics().Inc(MetricSafetyRejections, map[string]string{"reason": reason})
}

// RecordChartSelection counts which chart kind the selector chose
func RecordChartSelection(kind string) {
	GetGlobalMetrics().Inc(MetricChartSelected, map[string]string{"kind": kind})
}

// RecordTranslatorMetrics records metrics for translator calls
func RecordTranslatorMetrics(operation string, duration time.Duration, err error) {
	metrics := GetGlobalMetrics()
	labels := map[string]string{"operation": operation}

	metrics.Inc(MetricTranslatorRequests, labels)
	metrics.Observe(MetricTranslatorDuration, duration.Seconds(), labels)

	if err != nil {
		metrics.Inc(MetricTranslatorErrors, labels)
	}
}

// RecordDBMetrics records metrics for database operations
func RecordDBMetrics(operation string, duration time.Duration, err error) {
	metrics := GetGlobalMetrics()
	labels := map[string]string{"operation": operation}

	metrics.Inc(MetricDBQueries, labels)
	metrics.Observe(MetricDBDuration, duration.Seconds(), labels)

	if err != nil {
		metrics.Inc(MetricDBErrors, labels)
	}
}

// RecordHTTPMetrics records metrics for HTTP requests
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(statusCode),
	}

	metrics.Inc(MetricHTTPRequests, labels)
	metrics.Observe(MetricHTTPDuration, duration.Seconds(), labels)

	if statusCode >= 400 {
		metrics.Inc(MetricHTTPErrors, labels)
	}
}
