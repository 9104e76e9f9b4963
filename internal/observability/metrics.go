package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	submissionOutcomes   *prometheus.CounterVec
	transcriptionSeconds *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_submission_outcomes_total",
			Help: "Per-submission outcomes produced by batch grading runs.",
		}, []string{"mode", "status"})

		transcriptionSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_transcription_seconds",
			Help:    "Time spent transcribing a document, including upload and processing wait.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"kind", "outcome"})

		prometheus.MustRegister(submissionOutcomes, transcriptionSeconds)
	})
}

// SubmissionOutcomes exposes the per-submission outcome counter.
func SubmissionOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionOutcomes
}

// ObserveTranscription records how long a transcription took and whether it failed.
func ObserveTranscription(kind string, start time.Time, err error) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	transcriptionSeconds.WithLabelValues(kind, outcome).Observe(time.Since(start).Seconds())
}
