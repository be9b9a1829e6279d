// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，实现 llm.Recorder 与 upload.Recorder
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 推理指标
	inferenceTotal    *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec

	// 上传指标
	uploadsStaged   prometheus.Counter
	uploadBytes     prometheus.Histogram
	uploadsReleased *prometheus.CounterVec
	uploadsInFlight prometheus.Gauge

	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewCollector 创建指标收集器。registry 为 nil 时注册到默认 registry。
func NewCollector(namespace string, registry *prometheus.Registry, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if registry != nil {
		registerer, gatherer = registry, registry
	}
	factory := promauto.With(registerer)

	c := &Collector{
		gatherer: gatherer,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 推理指标
	c.inferenceTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      "Total number of model inference calls",
		},
		[]string{"provider", "modality", "status"},
	)

	c.inferenceDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Model inference duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "modality"},
	)

	// 上传指标
	c.uploadsStaged = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_staged_total",
		Help:      "Total number of uploads written to the staging directory",
	})

	c.uploadBytes = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_size_bytes",
		Help:      "Size of staged uploads in bytes",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})

	c.uploadsReleased = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_released_total",
			Help:      "Total number of staged uploads released",
		},
		[]string{"result"}, // ok, error
	)

	c.uploadsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uploads_in_flight",
		Help:      "Number of uploads currently staged on disk",
	})

	return c
}

// Handler 返回暴露本收集器所在 registry 的 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// =============================================================================
// 📝 记录方法
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if requestSize > 0 {
		c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordInference 记录一次推理调用（实现 llm.Recorder）
func (c *Collector) RecordInference(provider, modality, status string, duration time.Duration) {
	c.inferenceTotal.WithLabelValues(provider, modality, status).Inc()
	c.inferenceDuration.WithLabelValues(provider, modality).Observe(duration.Seconds())
}

// RecordUploadStored 记录一次暂存（实现 upload.Recorder）
func (c *Collector) RecordUploadStored(bytes int64) {
	c.uploadsStaged.Inc()
	c.uploadBytes.Observe(float64(bytes))
	c.uploadsInFlight.Inc()
}

// RecordUploadReleased 记录一次释放（实现 upload.Recorder）
func (c *Collector) RecordUploadReleased(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
		c.logger.Debug("staged upload could not be removed")
	}
	c.uploadsReleased.WithLabelValues(result).Inc()
	c.uploadsInFlight.Dec()
}

func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
