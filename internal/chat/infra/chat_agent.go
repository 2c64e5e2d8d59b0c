package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/evcharge/ev-support-bfa-go/internal/chat/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// tracer is the OpenTelemetry tracer for chat/infra.
var tracer = otel.Tracer("chat/infra")

// ============================================================
// ChatAgentClient — HTTP client for the LLM agent
// ============================================================
//
// Contract:
//
//	Request:  {"query": "...", "context": "charger_issue", "conversation": {...}}
//	Response: {"answer": "...", "sources": [...], "tokens_used": 830, ...}

type ChatAgentClient struct {
	httpClient *http.Client
	baseURL    string // without the trailing /v1/chat
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewChatAgentClient creates the client for the LLM agent.
func NewChatAgentClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ChatAgentClient {
	return &ChatAgentClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// SendChat posts the request to {baseURL}/v1/chat under the circuit breaker,
// retrying transient failures with backoff.
func (c *ChatAgentClient) SendChat(ctx context.Context, req *domain.ChatAgentRequest) (*domain.ChatAgentResponse, error) {
	ctx, span := tracer.Start(ctx, "ChatAgentClient.SendChat")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.id", req.ConversationID),
		attribute.String("intent.id", req.Context),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	result, err := c.cb.Execute(func() (any, error) {
		var agentResp domain.ChatAgentResponse
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(fmt.Errorf("create http request: %w", err))
			}
			httpReq.Header.Set("Content-Type", "application/json")
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return fmt.Errorf("http call to agent: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
			case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
				return resilience.Permanent(fmt.Errorf("agent /v1/chat returned status %d", resp.StatusCode))
			default:
				return fmt.Errorf("agent /v1/chat returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&agentResp)
		})

		if innerErr != nil {
			return nil, innerErr
		}
		return &agentResp, nil
	})

	if err != nil {
		span.RecordError(err)
		return nil, resilience.ExternalError("chat-agent", err)
	}

	agentResp := result.(*domain.ChatAgentResponse)
	span.SetAttributes(attribute.Int("llm.tokens", agentResp.TokensUsed))
	return agentResp, nil
}
