package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/handler"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/observability"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"
	"github.com/evcharge/ev-support-bfa-go/internal/service"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHealthz_OpenBreakerDegrades(t *testing.T) {
	cb := resilience.NewCircuitBreaker("chat-agent")
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, errors.New("down") })
	}
	router := handler.NewRouter(nil, nil, []*gobreaker.CircuitBreaker{cb}, observability.NewMetrics(), zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("expected degraded, got %s", health.Status)
	}
	if len(health.Services) != 2 || health.Services[1].Status != "unhealthy" || health.Services[1].Circuit != "open" {
		t.Errorf("unexpected services %+v", health.Services)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestConversationMetrics(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics/conversations", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap domain.ConversationMetrics
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Period != "all_time" {
		t.Errorf("expected all_time period, got %q", snap.Period)
	}
}

func TestServiceAuth(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Minute, zap.NewNop())
	router := handler.NewRouter(nil, tokens, nil, observability.NewMetrics(), zap.NewNop())

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics/conversations", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("bad scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/metrics/conversations", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := tokens.Issue("kiosk-app", "chat")
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/v1/metrics/conversations", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("operational endpoints stay public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}
