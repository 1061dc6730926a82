package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records counters for the submission pipeline.
type PipelineMetrics struct {
	submissions     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	reviewDuration  *prometheus.HistogramVec
	photoFailures   *prometheus.CounterVec
	similarityFlags *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_received",
		Help: "Submissions accepted into the pending queue.",
	}, []string{"type", "source"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_decisions",
		Help: "Moderation decisions by outcome and submission type.",
	}, []string{"decision", "type"})
	reviewDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_duration_seconds",
		Help:    "Duration of a single review operation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"decision"})
	photoFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "photo_failures",
		Help: "Photo lifecycle failures by stage.",
	}, []string{"stage"})
	similarityFlags := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "similarity_flags",
		Help: "Submissions flagged by the similarity resolver.",
	}, []string{"level"})
	reg.MustRegister(submissions, decisions, reviewDuration, photoFailures, similarityFlags)
	return &PipelineMetrics{
		submissions:     submissions,
		decisions:       decisions,
		reviewDuration:  reviewDuration,
		photoFailures:   photoFailures,
		similarityFlags: similarityFlags,
	}
}

// IncSubmission increments the intake counter for a submission type and source.
func (m *PipelineMetrics) IncSubmission(subType, source string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(subType), normalizeLabel(source)).Inc()
}

// IncDecision increments the decision counter for an outcome and submission type.
func (m *PipelineMetrics) IncDecision(decision, subType string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decision), normalizeLabel(subType)).Inc()
}

// ObserveReviewDuration records how long a review took.
func (m *PipelineMetrics) ObserveReviewDuration(decision string, duration time.Duration) {
	if m == nil || m.reviewDuration == nil {
		return
	}
	m.reviewDuration.WithLabelValues(normalizeLabel(decision)).Observe(duration.Seconds())
}

// IncPhotoFailure increments the photo failure counter for a lifecycle stage.
func (m *PipelineMetrics) IncPhotoFailure(stage string) {
	if m == nil || m.photoFailures == nil {
		return
	}
	m.photoFailures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncSimilarityFlag increments the similarity flag counter for a level.
func (m *PipelineMetrics) IncSimilarityFlag(level string) {
	if m == nil || m.similarityFlags == nil {
		return
	}
	m.similarityFlags.WithLabelValues(normalizeLabel(level)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
