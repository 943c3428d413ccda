package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission triggers.
const (
	TriggerManual  = "manual"
	TriggerTimeout = "timeout"
)

var (
	interviewsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_started_total",
		Help: "Total interviews started",
	})
	interviewsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_completed_total",
		Help: "Total interviews that reached completed",
	})
	answersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_answers_submitted_total",
		Help: "Answers appended to a session, by trigger",
	}, []string{"trigger"})
	staleSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_stale_submissions_total",
		Help: "Submissions discarded because the question index had already advanced",
	}, []string{"trigger"})
	generationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_question_generation_failures_total",
		Help: "Question generation attempts that failed or returned nothing",
	})
	evaluationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_evaluation_fallbacks_total",
		Help: "Evaluations replaced by the zero-score fallback",
	})
	parseFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_resume_parse_fallbacks_total",
		Help: "Resume parses replaced by empty fields",
	})
	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by group",
	}, []string{"group"})
	panicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_http_panics_recovered_total",
		Help: "Handler panics turned into 500 responses, by route",
	}, []string{"route"})
	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_llm_duration_seconds",
		Help:    "Latency of AI collaborator calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"operation", "status"})
)

// IncInterviewStarted increments the started counter.
func IncInterviewStarted() {
	interviewsStarted.Inc()
}

// IncInterviewCompleted increments the completed counter.
func IncInterviewCompleted() {
	interviewsCompleted.Inc()
}

// IncAnswerSubmitted counts an applied submission.
func IncAnswerSubmitted(trigger string) {
	answersSubmitted.WithLabelValues(trigger).Inc()
}

// IncStaleSubmission counts a discarded submission.
func IncStaleSubmission(trigger string) {
	staleSubmissions.WithLabelValues(trigger).Inc()
}

// IncGenerationFailure counts a blocking question generation failure.
func IncGenerationFailure() {
	generationFailures.Inc()
}

// IncEvaluationFallback counts a degraded evaluation.
func IncEvaluationFallback() {
	evaluationFallbacks.Inc()
}

// IncParseFallback counts a resume parse that fell back to empty fields.
func IncParseFallback() {
	parseFallbacks.Inc()
}

// IncRateLimited counts a request rejected by the limiter.
func IncRateLimited(group string) {
	rateLimited.WithLabelValues(group).Inc()
}

// IncPanicRecovered counts a recovered handler panic.
func IncPanicRecovered(route string) {
	panicsRecovered.WithLabelValues(route).Inc()
}

// ObserveLLM records the latency of an AI call.
func ObserveLLM(operation string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
