package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency,
// derived from the state of its circuit breaker.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Circuit     string `json:"circuit,omitempty"` // closed, half-open, open
	LastChecked string `json:"lastChecked"`
}

// ConversationMetrics is returned by GET /v1/metrics/conversations.
type ConversationMetrics struct {
	TotalTurns        int64            `json:"totalTurns"`
	TurnsByStage      map[string]int64 `json:"turnsByStage"`
	Transfers         int64            `json:"transfers"`
	Endings           int64            `json:"endings"`
	TransferRate      float64          `json:"transferRate"`
	ResolvedSignals   int64            `json:"resolvedSignals"`
	TokensUsed        int64            `json:"tokensUsed"`
	ProfileCacheRatio float64          `json:"profileCacheHitRate"`
	Period            string           `json:"period"`
}
