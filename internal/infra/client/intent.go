package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/evcharge/ev-support-bfa-go/internal/continuity"
	"github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// IntentClient classifies user messages through the Intent API.
type IntentClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewIntentClient creates a new IntentClient.
func NewIntentClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *IntentClient {
	return &IntentClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

type intentRequest struct {
	Message string            `json:"message"`
	History []continuity.Turn `json:"history,omitempty"`
}

// DetectIntent posts the message (and recent history) to the detector.
func (c *IntentClient) DetectIntent(ctx context.Context, message string, history []continuity.Turn) (*domain.IntentResult, error) {
	ctx, span := tracer.Start(ctx, "IntentClient.DetectIntent")
	defer span.End()

	body, err := json.Marshal(intentRequest{Message: message, History: history})
	if err != nil {
		return nil, fmt.Errorf("marshal intent request: %w", err)
	}

	result, err := c.cb.Execute(func() (any, error) {
		var intent domain.IntentResult
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/intents/detect", bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")
			injectTraceHeaders(ctx, req)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return statusError("intent API", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&intent)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &intent, nil
	})

	if err != nil {
		span.RecordError(err)
		return nil, resilience.ExternalError("intent", err)
	}

	intent := result.(*domain.IntentResult)
	span.SetAttributes(
		attribute.String("intent.id", intent.Intent),
		attribute.Float64("intent.confidence", intent.Confidence),
	)
	return intent, nil
}
