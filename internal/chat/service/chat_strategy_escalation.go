package service

import (
	"context"

	"github.com/evcharge/ev-support-bfa-go/internal/chat/domain"

	"go.uber.org/zap"
)

// EscalationStrategy hands the driver over to a human agent once repeated
// attempts have failed and satisfaction is low. The LLM is not called.
type EscalationStrategy struct {
	logger *zap.Logger
}

// NewEscalationStrategy creates the escalation strategy.
func NewEscalationStrategy(logger *zap.Logger) *EscalationStrategy {
	return &EscalationStrategy{logger: logger}
}

// CanHandle accepts turns whose folded state calls for a transfer.
func (s *EscalationStrategy) CanHandle(chatCtx *domain.ChatContext) bool {
	return chatCtx.Turn.ShouldTransfer
}

// Handle returns the hand-off message.
func (s *EscalationStrategy) Handle(_ context.Context, chatCtx *domain.ChatContext) (*domain.StrategyReply, error) {
	state := chatCtx.Turn.State
	fields := []zap.Field{
		zap.String("conversation_id", chatCtx.ConversationID),
		zap.String("intent", chatCtx.DetectedIntent),
		zap.Int("resolution_attempts", state.ResolutionAttempts),
		zap.Strings("attempted_solutions", chatCtx.Turn.AttemptedSolutions),
	}
	if state.UserSatisfaction != nil {
		fields = append(fields, zap.Int("satisfaction", *state.UserSatisfaction))
	}
	s.logger.Info("transferring conversation to a human agent", fields...)

	return &domain.StrategyReply{
		Answer: "불편을 드려 죄송합니다. 지금까지 확인한 내용을 전달하여 상담원에게 연결해 드리겠습니다. 잠시만 기다려 주세요.",
		Action: domain.ActionTransfer,
	}, nil
}
