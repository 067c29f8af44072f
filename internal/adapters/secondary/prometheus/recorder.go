package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ports "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// Recorder owns the service's collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	inferences      *prometheus.CounterVec
	inferLatency    *prometheus.HistogramVec
	detections      *prometheus.HistogramVec
	assessments     *prometheus.CounterVec
	assessmentTimes *prometheus.HistogramVec
}

var _ ports.MetricsRecorder = (*Recorder)(nil)

// NewRecorder registers the collectors under namespace, e.g. "baseer".
func NewRecorder(namespace, service string) *Recorder {
	constLabels := prometheus.Labels{"service": service}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_requests_total",
			Help:        "HTTP requests by route, method and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inferences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "inference_total",
			Help:        "Detector invocations by model and outcome.",
			ConstLabels: constLabels,
		}, []string{"model", "outcome"}),
		inferLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "inference_duration_seconds",
			Help:        "Detector latency.",
			ConstLabels: constLabels,
			Buckets:     []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"model"}),
		detections: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "inference_detections",
			Help:        "Detections returned per successful inference.",
			ConstLabels: constLabels,
			Buckets:     []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"model"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "assessments_total",
			Help:        "Finished assessments by final state.",
			ConstLabels: constLabels,
		}, []string{"state"}),
		assessmentTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "assessment_duration_seconds",
			Help:        "Assessment pipeline duration.",
			ConstLabels: constLabels,
			Buckets:     []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"state"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests, r.httpLatency,
		r.inferences, r.inferLatency, r.detections,
		r.assessments, r.assessmentTimes,
	)
	return r
}

func (r *Recorder) ObserveHTTP(method, route string, status int, took time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(took.Seconds())
}

func (r *Recorder) ObserveInference(model string, took time.Duration, detections int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.inferences.WithLabelValues(model, outcome).Inc()
	r.inferLatency.WithLabelValues(model).Observe(took.Seconds())
	if err == nil {
		r.detections.WithLabelValues(model).Observe(float64(detections))
	}
}

func (r *Recorder) ObserveAssessment(state string, took time.Duration) {
	r.assessments.WithLabelValues(state).Inc()
	r.assessmentTimes.WithLabelValues(state).Observe(took.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
