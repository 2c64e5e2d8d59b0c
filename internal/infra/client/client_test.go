package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evcharge/ev-support-bfa-go/internal/continuity"
	"github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/client"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"
)

var testCfg = resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

func TestProfileClient_GetProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/drivers/drv-1/profile" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.DriverProfile{
			CustomerID:     "drv-1",
			VehicleModel:   "아이오닉5",
			PaymentMethods: []string{"신용카드"},
		})
	}))
	defer srv.Close()

	c := client.NewProfileClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("profile"), testCfg)
	p, err := c.GetProfile(context.Background(), "drv-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.VehicleModel != "아이오닉5" {
		t.Errorf("expected vehicle 아이오닉5, got %q", p.VehicleModel)
	}
}

func TestProfileClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := client.NewProfileClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("profile"), testCfg)
	_, err := c.GetProfile(context.Background(), "ghost")

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestIntentClient_DetectIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string            `json:"message"`
			History []continuity.Turn `json:"history"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Message != "결제가 안 돼요" || len(body.History) != 1 {
			t.Errorf("unexpected body %+v", body)
		}
		json.NewEncoder(w).Encode(domain.IntentResult{Intent: "payment_issue", Confidence: 0.91})
	}))
	defer srv.Close()

	c := client.NewIntentClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("intent"), testCfg)
	got, err := c.DetectIntent(context.Background(), "결제가 안 돼요", []continuity.Turn{{Role: "user", Content: "결제가 안 돼요"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Intent != "payment_issue" {
		t.Errorf("expected payment_issue, got %q", got.Intent)
	}
}

func TestIntentClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := client.NewIntentClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("intent"), testCfg)
	_, err := c.DetectIntent(context.Background(), "hi", nil)

	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) || ext.Service != "intent" {
		t.Fatalf("expected ErrExternalService for intent, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestIntentClient_CircuitOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}
	c := client.NewIntentClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("intent"), cfg)
	for i := 0; i < 5; i++ {
		_, _ = c.DetectIntent(context.Background(), "hi", nil)
	}

	_, err := c.DetectIntent(context.Background(), "hi", nil)
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}
