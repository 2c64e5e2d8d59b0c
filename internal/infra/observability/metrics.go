package observability

import (
	"time"

	"github.com/evcharge/ev-support-bfa-go/internal/continuity"
	"github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration      *prometheus.HistogramVec
	externalErrors       *prometheus.CounterVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	tokensUsed           *prometheus.CounterVec
	turnsTotal           *prometheus.CounterVec
	actionsTotal         *prometheus.CounterVec
	engineWarnings       *prometheus.CounterVec
	resolutionConfidence *prometheus.HistogramVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_conversation_turns_total",
				Help: "Conversation turns processed, by stage after the turn.",
			},
			[]string{"stage"},
		),
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_conversation_actions_total",
				Help: "Actions returned to the caller (continue, end, transfer).",
			},
			[]string{"action"},
		),
		engineWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_continuity_warnings_total",
				Help: "Non-fatal warnings raised while advancing a conversation.",
			},
			[]string{"kind"},
		),
		resolutionConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_resolution_confidence",
				Help:    "Confidence of the resolution signal per turn.",
				Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"resolved"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records LLM token usage.
func (m *Metrics) RecordTokens(total int) {
	m.tokensUsed.WithLabelValues("total").Add(float64(total))
}

// RecordTurn counts a processed turn and its resolution signal.
func (m *Metrics) RecordTurn(stage continuity.Stage, signal continuity.ResolutionSignal) {
	m.turnsTotal.WithLabelValues(string(stage)).Inc()
	resolved := "false"
	if signal.Resolved {
		resolved = "true"
	}
	m.resolutionConfidence.WithLabelValues(resolved).Observe(signal.Confidence)
}

// IncrAction counts the action handed back to the caller.
func (m *Metrics) IncrAction(action string) {
	m.actionsTotal.WithLabelValues(action).Inc()
}

// IncrWarning counts a non-fatal engine warning.
func (m *Metrics) IncrWarning(kind string) {
	m.engineWarnings.WithLabelValues(kind).Inc()
}

// GetConversationSnapshot returns a snapshot of conversation metrics suitable
// for the GET /v1/metrics/conversations endpoint. Counters are cumulative.
func (m *Metrics) GetConversationSnapshot() *domain.ConversationMetrics {
	byStage := make(map[string]int64, len(continuity.Stages))
	var turns float64
	for _, st := range continuity.Stages {
		v := getCounterValue(m.turnsTotal, string(st))
		byStage[string(st)] = int64(v)
		turns += v
	}

	transfers := getCounterValue(m.actionsTotal, "transfer")
	endings := getCounterValue(m.actionsTotal, "end")
	cacheHits := getCounterValue(m.cacheHits, "profile")
	cacheMisses := getCounterValue(m.cacheMisses, "profile")

	transferRate := float64(0)
	cacheHitRate := float64(0)
	if actions := transfers + endings + getCounterValue(m.actionsTotal, "continue"); actions > 0 {
		transferRate = transfers / actions
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.ConversationMetrics{
		TotalTurns:        int64(turns),
		TurnsByStage:      byStage,
		Transfers:         int64(transfers),
		Endings:           int64(endings),
		TransferRate:      transferRate,
		ResolvedSignals:   int64(getHistogramCount(m.resolutionConfidence, "true")),
		TokensUsed:        int64(getCounterValue(m.tokensUsed, "total")),
		ProfileCacheRatio: cacheHitRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getHistogramCount(hv *prometheus.HistogramVec, label string) uint64 {
	m := &dto.Metric{}
	if err := hv.WithLabelValues(label).(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Histogram != nil && m.Histogram.SampleCount != nil {
		return *m.Histogram.SampleCount
	}
	return 0
}
