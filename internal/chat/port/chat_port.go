// Package port defines the port the chat service uses to reach the LLM agent
// (POST /v1/chat). The ChatService depends on this interface, not on the
// concrete HTTP client.
package port

import (
	"context"

	chatdomain "github.com/evcharge/ev-support-bfa-go/internal/chat/domain"
)

// ChatAgentCaller sends a prompt with conversation context to the agent.
type ChatAgentCaller interface {
	SendChat(ctx context.Context, req *chatdomain.ChatAgentRequest) (*chatdomain.ChatAgentResponse, error)
}
