// Package service implements the ChatService, the orchestrator behind the
// /v1/conversations routes.
//
// ============================================================
// ARCHITECTURE — continuity engine + strategy routing
// ============================================================
//
// Every turn goes through the same pipeline:
//  1. Handler receives POST /v1/conversations/{id}/turns
//  2. ChatService.ProcessTurn fetches the driver profile (cached) and detects
//     the intent concurrently; an explicit intentId skips the detector
//  3. The continuity engine advances the caller-owned state: slots, missing
//     information, resolution signal, follow-ups, stage
//  4. The first strategy whose CanHandle accepts the turn answers it
//  5. With no match, the LLM agent is asked, with the continuity context
//     folded into the prompt payload
//
// Strategies:
//   - EscalationStrategy: hands the driver over to a human agent
//   - ClosingStrategy: wraps up solved, satisfied conversations
//   - default: LLM agent (POST /v1/chat), bounded by a bulkhead
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcharge/ev-support-bfa-go/internal/chat/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/chat/port"
	"github.com/evcharge/ev-support-bfa-go/internal/continuity"
	maindomain "github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/observability"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"
	mainport "github.com/evcharge/ev-support-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// chatTracer is the OpenTelemetry tracer for the chat module.
var chatTracer = otel.Tracer("chat/service")

const (
	// maxPromptFollowUps caps how many ranked follow-ups reach the prompt.
	maxPromptFollowUps = 3
	// maxPromptHistory caps how many trailing turns reach the prompt.
	maxPromptHistory = 12
)

// ============================================================
// ChatStrategy — interface each routing rule implements
// ============================================================

// ChatStrategy decides whether it owns a turn and, if so, answers it.
type ChatStrategy interface {
	// CanHandle reports whether this strategy answers the advanced turn.
	CanHandle(chatCtx *domain.ChatContext) bool

	// Handle produces the answer and the action for the caller.
	Handle(ctx context.Context, chatCtx *domain.ChatContext) (*domain.StrategyReply, error)
}

// ============================================================
// ChatService — orchestrator
// ============================================================

// ChatService drives the continuity engine for every conversation route.
type ChatService struct {
	engine      *continuity.Engine
	agentClient port.ChatAgentCaller
	profiles    mainport.ProfileFetcher
	intents     mainport.IntentDetector
	cache       mainport.Cache[*maindomain.DriverProfile]
	bulkhead    *resilience.Bulkhead

	// strategies are tried in order; the first that accepts the turn wins.
	strategies []ChatStrategy

	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewChatService creates the ChatService with its dependencies injected.
func NewChatService(
	engine *continuity.Engine,
	agentClient port.ChatAgentCaller,
	profiles mainport.ProfileFetcher,
	intents mainport.IntentDetector,
	cache mainport.Cache[*maindomain.DriverProfile],
	bulkhead *resilience.Bulkhead,
	strategies []ChatStrategy,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		engine:      engine,
		agentClient: agentClient,
		profiles:    profiles,
		intents:     intents,
		cache:       cache,
		bulkhead:    bulkhead,
		strategies:  strategies,
		metrics:     metrics,
		logger:      logger,
	}
}

// StartConversation allocates a conversation id and the initial state.
func (s *ChatService) StartConversation(ctx context.Context) *domain.StartResponse {
	_, span := chatTracer.Start(ctx, "ChatService.StartConversation")
	defer span.End()

	id := uuid.NewString()
	state := s.engine.Init()
	span.SetAttributes(attribute.String("conversation.id", id))
	s.logger.Info("conversation started", zap.String("conversation_id", id))

	return &domain.StartResponse{
		ConversationID: id,
		State:          state,
		Guidance:       continuity.GuidanceFor(state.IssueStage),
	}
}

// ProcessTurn is the main entry point of the chat.
func (s *ChatService) ProcessTurn(ctx context.Context, conversationID string, req *domain.TurnRequest) (*domain.TurnResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, &maindomain.ErrValidation{Field: "message", Message: "message is required"}
	}

	ctx, span := chatTracer.Start(ctx, "ChatService.ProcessTurn")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", conversationID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("turn", time.Since(start))
	}()

	state := s.engine.Init()
	if req.State != nil {
		state = *req.State
	}
	history := transcript(req.History, req.Message)

	// --- Step 1: profile + intent concurrently ---
	var (
		profile *maindomain.DriverProfile
		intent  = req.IntentID
	)

	g, gCtx := errgroup.WithContext(ctx)
	if req.CustomerID != "" {
		g.Go(func() error {
			profile = s.fetchProfile(gCtx, req.CustomerID)
			return nil
		})
	}
	if intent == "" {
		g.Go(func() error {
			intent = s.detectIntent(gCtx, req.Message, history, state)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- Step 2: advance the conversation ---
	turn := s.engine.Advance(state, continuity.TurnInput{
		UserMessage: req.Message,
		IntentID:    intent,
		Profile:     profileContext(profile),
		History:     history,
	})
	s.logWarnings(conversationID, turn.Warnings)

	span.SetAttributes(
		attribute.String("intent.id", intent),
		attribute.String("stage.before", string(state.IssueStage)),
		attribute.String("stage.after", string(turn.State.IssueStage)),
		attribute.Int("missing.count", len(turn.MissingSlots)),
	)
	s.logger.Info("turn advanced",
		zap.String("conversation_id", conversationID),
		zap.String("intent", intent),
		zap.String("stage", string(turn.State.IssueStage)),
		zap.Int("interaction_count", turn.State.InteractionCount),
		zap.Bool("resolved", turn.Resolution.Resolved),
		zap.Float64("confidence", turn.Resolution.Confidence),
		zap.Int("missing_slots", len(turn.MissingSlots)),
	)

	// --- Step 3: strategy routing ---
	chatCtx := &domain.ChatContext{
		ConversationID: conversationID,
		CustomerID:     req.CustomerID,
		Query:          req.Message,
		DetectedIntent: intent,
		History:        history,
		Turn:           turn,
	}

	reply, err := s.route(ctx, chatCtx)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTurn(turn.State.IssueStage, turn.Resolution)
	s.metrics.IncrAction(string(reply.Action))

	return &domain.TurnResponse{
		ConversationID:     conversationID,
		TurnID:             uuid.NewString(),
		Answer:             reply.Answer,
		Action:             reply.Action,
		Intent:             intent,
		State:              turn.State,
		Resolution:         turn.Resolution,
		MissingSlots:       turn.MissingSlots,
		FollowUps:          turn.FollowUps,
		AttemptedSolutions: turn.AttemptedSolutions,
	}, nil
}

func (s *ChatService) route(ctx context.Context, chatCtx *domain.ChatContext) (*domain.StrategyReply, error) {
	for _, strategy := range s.strategies {
		if strategy.CanHandle(chatCtx) {
			s.logger.Debug("delegating to strategy",
				zap.String("conversation_id", chatCtx.ConversationID),
				zap.String("strategy", fmt.Sprintf("%T", strategy)),
			)
			return strategy.Handle(ctx, chatCtx)
		}
	}
	return s.defaultHandle(ctx, chatCtx)
}

// defaultHandle asks the LLM agent, passing the continuity context.
// When the agent is down and information is still missing, the driver is
// asked for it directly instead of failing the turn.
func (s *ChatService) defaultHandle(ctx context.Context, chatCtx *domain.ChatContext) (*domain.StrategyReply, error) {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, &maindomain.ErrTimeout{Operation: "chat-agent"}
	}
	defer s.bulkhead.Release()

	agentReq := &domain.ChatAgentRequest{
		Query:          chatCtx.Query,
		CustomerID:     chatCtx.CustomerID,
		ConversationID: chatCtx.ConversationID,
		Context:        chatCtx.DetectedIntent,
		Conversation:   conversationContext(chatCtx),
	}

	agentStart := time.Now()
	agentResp, err := s.agentClient.SendChat(ctx, agentReq)
	s.metrics.RecordRequestDuration("chat-agent", time.Since(agentStart))

	if err != nil {
		s.metrics.IncrExternalError("chat-agent")
		if missing := chatCtx.Turn.MissingSlots; len(missing) > 0 {
			s.logger.Warn("agent call failed, asking for missing information",
				zap.String("conversation_id", chatCtx.ConversationID),
				zap.Error(err),
			)
			return &domain.StrategyReply{Answer: askForMissing(missing), Action: domain.ActionContinue}, nil
		}
		s.logger.Error("agent call failed",
			zap.String("conversation_id", chatCtx.ConversationID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordTokens(agentResp.TokensUsed)
	return &domain.StrategyReply{Answer: agentResp.Answer, Action: domain.ActionContinue}, nil
}

// ============================================================
// State routes — stage, satisfaction, attempts, guidance
// ============================================================

// ChangeStage moves the conversation along the stage graph, or reopens it.
func (s *ChatService) ChangeStage(ctx context.Context, conversationID string, req *domain.StageRequest) (*domain.StateResponse, error) {
	_, span := chatTracer.Start(ctx, "ChatService.ChangeStage")
	defer span.End()

	if req.Reopen {
		state := s.engine.Reopen(req.State)
		s.logger.Info("conversation reopened",
			zap.String("conversation_id", conversationID),
			zap.String("from", string(req.State.IssueStage)),
		)
		return stateResponse(conversationID, state), nil
	}

	next, ok := continuity.ParseStage(req.Stage)
	if !ok {
		return nil, &maindomain.ErrValidation{Field: "stage", Message: fmt.Sprintf("unknown stage %q", req.Stage)}
	}

	state, err := s.engine.UpdateIssueStage(req.State, next)
	if err != nil {
		var illegal *continuity.ErrIllegalTransition
		if errors.As(err, &illegal) {
			return nil, &maindomain.ErrValidation{Field: "stage", Message: err.Error(), Cause: err}
		}
		return nil, err
	}

	s.logger.Info("stage changed",
		zap.String("conversation_id", conversationID),
		zap.String("from", string(req.State.IssueStage)),
		zap.String("to", string(next)),
	)
	return stateResponse(conversationID, state), nil
}

// RateSatisfaction records the driver's 1..5 score.
func (s *ChatService) RateSatisfaction(ctx context.Context, conversationID string, req *domain.SatisfactionRequest) (*domain.StateResponse, error) {
	_, span := chatTracer.Start(ctx, "ChatService.RateSatisfaction")
	defer span.End()
	span.SetAttributes(attribute.Int("satisfaction.score", req.Score))

	state, err := s.engine.UpdateUserSatisfaction(req.State, req.Score)
	if err != nil {
		return nil, &maindomain.ErrValidation{Field: "score", Message: err.Error(), Cause: err}
	}

	s.logger.Info("satisfaction recorded",
		zap.String("conversation_id", conversationID),
		zap.Int("score", req.Score),
	)
	return stateResponse(conversationID, state), nil
}

// RecordAttempt counts one more resolution attempt.
func (s *ChatService) RecordAttempt(ctx context.Context, conversationID string, req *domain.AttemptRequest) *domain.StateResponse {
	_, span := chatTracer.Start(ctx, "ChatService.RecordAttempt")
	defer span.End()

	state := s.engine.RecordResolutionAttempt(req.State)
	s.logger.Debug("resolution attempt recorded",
		zap.String("conversation_id", conversationID),
		zap.Int("attempts", state.ResolutionAttempts),
	)
	return stateResponse(conversationID, state)
}

// Guidance returns the prompt guidance for a stage. Unknown stages get the
// generic guidance.
func (s *ChatService) Guidance(stage string) *domain.GuidanceResponse {
	return &domain.GuidanceResponse{
		Stage:    stage,
		Guidance: continuity.GuidanceFor(continuity.Stage(stage)),
	}
}

// ============================================================
// Internal helpers
// ============================================================

func (s *ChatService) fetchProfile(ctx context.Context, customerID string) *maindomain.DriverProfile {
	cacheKey := "profile:" + customerID
	if p, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("profile")
		return p
	}
	s.metrics.IncrCacheMiss("profile")

	p, err := s.profiles.GetProfile(ctx, customerID)
	if err != nil {
		var notFound *maindomain.ErrNotFound
		if errors.As(err, &notFound) {
			s.logger.Debug("no driver profile", zap.String("customer_id", customerID))
			return nil
		}
		s.metrics.IncrExternalError("profile")
		s.logger.Warn("profile fetch failed, continuing without profile",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return nil
	}
	s.cache.Set(cacheKey, p)
	return p
}

// detectIntent falls back to the issue already tracked in state when the
// detector is unavailable.
func (s *ChatService) detectIntent(ctx context.Context, message string, history []continuity.Turn, state continuity.ConversationState) string {
	res, err := s.intents.DetectIntent(ctx, message, history)
	if err == nil && res != nil && res.Intent != "" {
		return res.Intent
	}

	fallback := ""
	if state.CurrentIssue != nil {
		fallback = *state.CurrentIssue
	}
	if err != nil {
		s.metrics.IncrExternalError("intent")
		s.logger.Warn("intent detection failed",
			zap.String("fallback_intent", fallback),
			zap.Error(err),
		)
	}
	return fallback
}

func (s *ChatService) logWarnings(conversationID string, warnings []error) {
	for _, w := range warnings {
		kind := "other"
		var unparseable *continuity.ErrUnparseableTurn
		var unknown *continuity.ErrUnrecognizedIntent
		switch {
		case errors.As(w, &unparseable):
			kind = "unparseable_turn"
		case errors.As(w, &unknown):
			kind = "unrecognized_intent"
		}
		s.metrics.IncrWarning(kind)
		s.logger.Warn("continuity warning",
			zap.String("conversation_id", conversationID),
			zap.String("kind", kind),
			zap.Error(w),
		)
	}
}

// transcript returns history with the latest message appended unless it is
// already the last user turn.
func transcript(history []continuity.Turn, message string) []continuity.Turn {
	out := make([]continuity.Turn, 0, len(history)+1)
	out = append(out, history...)
	if n := len(out); n > 0 && out[n-1].FromUser() && out[n-1].Content == message {
		return out
	}
	return append(out, continuity.Turn{Role: string(continuity.RoleUser), Content: message})
}

func profileContext(p *maindomain.DriverProfile) continuity.ProfileContext {
	if p == nil {
		return continuity.ProfileContext{}
	}
	return continuity.ProfileContext{
		VehicleModel:   p.VehicleModel,
		Location:       p.PreferredLocation,
		PaymentMethods: p.PaymentMethods,
	}
}

func conversationContext(chatCtx *domain.ChatContext) *domain.ConversationContext {
	turn := chatCtx.Turn

	followUps := make([]string, 0, maxPromptFollowUps)
	for i, q := range turn.FollowUps {
		if i == maxPromptFollowUps {
			break
		}
		followUps = append(followUps, q.Text)
	}

	history := chatCtx.History
	if len(history) > maxPromptHistory {
		history = history[len(history)-maxPromptHistory:]
	}

	experience, _ := turn.Slots[continuity.SlotExperienceLevel].(string)

	return &domain.ConversationContext{
		Stage:              string(turn.State.IssueStage),
		Guidance:           continuity.GuidanceFor(turn.State.IssueStage),
		CollectedInfo:      turn.Slots,
		MissingInfo:        turn.MissingSlots,
		FollowUpQuestions:  followUps,
		AttemptedSolutions: turn.AttemptedSolutions,
		ExperienceLevel:    experience,
		History:            history,
	}
}

func askForMissing(labels []string) string {
	return "원활한 안내를 위해 " + strings.Join(labels, ", ") + " 정보를 알려주시겠어요?"
}

func actionFor(state continuity.ConversationState) domain.Action {
	switch {
	case continuity.ShouldTransferToAgent(state):
		return domain.ActionTransfer
	case continuity.ShouldEndConversation(state):
		return domain.ActionEnd
	default:
		return domain.ActionContinue
	}
}

func stateResponse(conversationID string, state continuity.ConversationState) *domain.StateResponse {
	return &domain.StateResponse{
		ConversationID: conversationID,
		State:          state,
		Action:         actionFor(state),
	}
}
