// Package handler implements the /v1/conversations routes.
//
//	POST /v1/conversations                          → start (id + initial state)
//	POST /v1/conversations/{conversationId}/turns   → advance one turn
//	POST /v1/conversations/{conversationId}/stage   → explicit stage change / reopen
//	POST /v1/conversations/{conversationId}/satisfaction
//	POST /v1/conversations/{conversationId}/attempts
//	GET  /v1/conversations/guidance/{stage}
//
// Handlers are thin: decode, validate the shape, delegate to the ChatService.
// The conversation state travels in the request and response bodies.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evcharge/ev-support-bfa-go/internal/chat/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/chat/service"
	maindomain "github.com/evcharge/ev-support-bfa-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// tracer is the OpenTelemetry tracer for chat/handler.
var tracer = otel.Tracer("chat/handler")

// maxBodyBytes bounds request bodies; transcripts are sent on every turn.
const maxBodyBytes = 1 << 20

// StartConversationHandler handles POST /v1/conversations.
func StartConversationHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/conversations")
		defer span.End()

		writeJSON(w, http.StatusCreated, chatSvc.StartConversation(ctx))
	}
}

// TurnHandler handles POST /v1/conversations/{conversationId}/turns.
//
// Request:
//
//	{"customerId": "drv-1", "message": "2번 충전기가 고장났어요", "history": [...], "state": {...}}
//
// Response (200 OK):
//
//	{"answer": "...", "action": "continue", "state": {...}, "missingSlots": [...], ...}
func TurnHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/conversations/{id}/turns")
		defer span.End()

		conversationID := chi.URLParam(r, "conversationId")
		span.SetAttributes(attribute.String("conversation.id", conversationID))

		var req domain.TurnRequest
		if !decode(w, r, &req, `invalid request body: expected {"message": "...", "state": {...}}`) {
			return
		}
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

		resp, err := chatSvc.ProcessTurn(ctx, conversationID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// StageHandler handles POST /v1/conversations/{conversationId}/stage.
func StageHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/conversations/{id}/stage")
		defer span.End()

		var req domain.StageRequest
		if !decode(w, r, &req, `invalid request body: expected {"state": {...}, "stage": "..."}`) {
			return
		}
		if req.Stage == "" && !req.Reopen {
			writeError(w, http.StatusBadRequest, "stage or reopen is required")
			return
		}

		resp, err := chatSvc.ChangeStage(ctx, chi.URLParam(r, "conversationId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// SatisfactionHandler handles POST /v1/conversations/{conversationId}/satisfaction.
func SatisfactionHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/conversations/{id}/satisfaction")
		defer span.End()

		var req domain.SatisfactionRequest
		if !decode(w, r, &req, `invalid request body: expected {"state": {...}, "score": 1-5}`) {
			return
		}

		resp, err := chatSvc.RateSatisfaction(ctx, chi.URLParam(r, "conversationId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// AttemptsHandler handles POST /v1/conversations/{conversationId}/attempts.
func AttemptsHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/conversations/{id}/attempts")
		defer span.End()

		var req domain.AttemptRequest
		if !decode(w, r, &req, `invalid request body: expected {"state": {...}}`) {
			return
		}
		writeJSON(w, http.StatusOK, chatSvc.RecordAttempt(ctx, chi.URLParam(r, "conversationId"), &req))
	}
}

// GuidanceHandler handles GET /v1/conversations/guidance/{stage}.
func GuidanceHandler(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, chatSvc.Guidance(chi.URLParam(r, "stage")))
	}
}

// ============================================================
// Helpers
// ============================================================

func decode(w http.ResponseWriter, r *http.Request, dst any, msg string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError maps domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *maindomain.ErrValidation
	var notFound *maindomain.ErrNotFound
	var circuitOpen *maindomain.ErrCircuitOpen
	var timeout *maindomain.ErrTimeout
	var external *maindomain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.String("service", circuitOpen.Service))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "operation timed out")
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(external.Err))
		writeError(w, http.StatusBadGateway, "external service unavailable: "+external.Service)
	case errors.Is(err, context.Canceled):
		logger.Debug("request cancelled by client")
	default:
		logger.Error("unexpected error in chat handler", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
