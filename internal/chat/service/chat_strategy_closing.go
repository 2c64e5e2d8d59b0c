package service

import (
	"context"

	"github.com/evcharge/ev-support-bfa-go/internal/chat/domain"

	"go.uber.org/zap"
)

// ClosingStrategy ends conversations where the problem is solved, nothing
// is pending and the driver rated the help 4 or better.
type ClosingStrategy struct {
	logger *zap.Logger
}

// NewClosingStrategy creates the closing strategy.
func NewClosingStrategy(logger *zap.Logger) *ClosingStrategy {
	return &ClosingStrategy{logger: logger}
}

// CanHandle accepts turns whose folded state says the conversation is over.
func (s *ClosingStrategy) CanHandle(chatCtx *domain.ChatContext) bool {
	return chatCtx.Turn.ShouldEnd
}

// Handle returns the closing message.
func (s *ClosingStrategy) Handle(_ context.Context, chatCtx *domain.ChatContext) (*domain.StrategyReply, error) {
	s.logger.Info("closing conversation",
		zap.String("conversation_id", chatCtx.ConversationID),
		zap.String("intent", chatCtx.DetectedIntent),
		zap.Int("interaction_count", chatCtx.Turn.State.InteractionCount),
	)
	return &domain.StrategyReply{
		Answer: "문제가 해결되어 다행입니다. 이용해 주셔서 감사합니다. 안전하고 즐거운 충전 되세요!",
		Action: domain.ActionEnd,
	}, nil
}
