package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the service's Prometheus collectors. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	providerAttempts *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	pipelineRuns     *prometheus.CounterVec
	stageLatency     *prometheus.HistogramVec
	llmInits         *prometheus.CounterVec
	publishes        *prometheus.CounterVec
	mcpRejections    *prometheus.CounterVec
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer in
// binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		providerAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_provider_attempts_total",
				Help: "Total number of series fetch attempts per provider",
			},
			[]string{"provider"},
		),
		providerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_provider_failures_total",
				Help: "Total number of failed series fetches per provider",
			},
			[]string{"provider", "reason"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_cache_lookups_total",
				Help: "Series cache lookups by result",
			},
			[]string{"result"},
		),
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_pipeline_runs_total",
				Help: "Pipeline runs by terminal outcome",
			},
			[]string{"outcome"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		llmInits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_llm_inits_total",
				Help: "Analysis backend initialization attempts by result",
			},
			[]string{"backend", "result"},
		),
		publishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_reports_published_total",
				Help: "Reports handed to the publisher by result",
			},
			[]string{"result"},
		),
		mcpRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_mcp_http_rejections_total",
				Help: "MCP HTTP requests refused before reaching the server, by reason",
			},
			[]string{"reason"},
		),
	}
}

func (r *Recorder) ProviderAttempt(provider string) {
	if r == nil {
		return
	}
	r.providerAttempts.WithLabelValues(provider).Inc()
}

func (r *Recorder) ProviderFailure(provider, reason string) {
	if r == nil {
		return
	}
	r.providerFailures.WithLabelValues(provider, reason).Inc()
}

func (r *Recorder) CacheHit() {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues("hit").Inc()
}

func (r *Recorder) CacheMiss() {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues("miss").Inc()
}

// PipelineRun counts a finished run; outcome is "done" or the failing stage.
func (r *Recorder) PipelineRun(outcome string) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(outcome).Inc()
}

func (r *Recorder) StageLatency(stage string, seconds float64) {
	if r == nil {
		return
	}
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) LLMInit(backend string, ok bool) {
	if r == nil {
		return
	}
	r.llmInits.WithLabelValues(backend, result(ok)).Inc()
}

func (r *Recorder) Publish(ok bool) {
	if r == nil {
		return
	}
	r.publishes.WithLabelValues(result(ok)).Inc()
}

// MCPRejected counts a request the MCP HTTP guard refused.
func (r *Recorder) MCPRejected(reason string) {
	if r == nil {
		return
	}
	r.mcpRejections.WithLabelValues(reason).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
