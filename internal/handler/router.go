package handler

import (
	"net/http"
	"time"

	chathandler "github.com/evcharge/ev-support-bfa-go/internal/chat/handler"
	chatservice "github.com/evcharge/ev-support-bfa-go/internal/chat/service"
	"github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/observability"
	"github.com/evcharge/ev-support-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// NewRouter creates the HTTP router with all routes and middleware.
// A nil tokens disables service-token auth on /v1; a nil chatSvc leaves
// only the operational endpoints mounted.
func NewRouter(
	chatSvc *chatservice.ChatService,
	tokens *service.TokenService,
	breakers []*gobreaker.CircuitBreaker,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(breakers))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if tokens != nil {
			r.Use(ServiceAuthMiddleware(tokens, logger))
		}

		// =============================================
		// Conversations
		// =============================================
		if chatSvc != nil {
			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", chathandler.StartConversationHandler(chatSvc, logger))
				r.Get("/guidance/{stage}", chathandler.GuidanceHandler(chatSvc))
				r.Post("/{conversationId}/turns", chathandler.TurnHandler(chatSvc, logger))
				r.Post("/{conversationId}/stage", chathandler.StageHandler(chatSvc, logger))
				r.Post("/{conversationId}/satisfaction", chathandler.SatisfactionHandler(chatSvc, logger))
				r.Post("/{conversationId}/attempts", chathandler.AttemptsHandler(chatSvc, logger))
			})
		}

		// =============================================
		// Metrics
		// =============================================
		r.Get("/metrics/conversations", conversationMetricsHandler(metrics))
	})

	return r
}

// healthzHandler reports each dependency through its circuit breaker:
// closed → healthy, half-open → degraded, open → unhealthy.
func healthzHandler(breakers []*gobreaker.CircuitBreaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}
		for _, cb := range breakers {
			state := cb.State()
			status := "healthy"
			switch state {
			case gobreaker.StateHalfOpen:
				status = "degraded"
			case gobreaker.StateOpen:
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name:        cb.Name(),
				Status:      status,
				Circuit:     state.String(),
				LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				// A failing dependency degrades the BFA; it keeps serving.
				overallStatus = "degraded"
				break
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func conversationMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetConversationSnapshot())
	}
}
