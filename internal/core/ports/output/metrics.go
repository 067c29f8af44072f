package ports

import "time"

// MetricsRecorder receives inference and assessment measurements.
type MetricsRecorder interface {
	ObserveInference(model string, took time.Duration, detections int, err error)
	ObserveAssessment(state string, took time.Duration)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) ObserveInference(string, time.Duration, int, error) {}
func (NopMetrics) ObserveAssessment(string, time.Duration)            {}
