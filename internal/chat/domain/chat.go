// Package domain defines the types exchanged by the conversation routes
// (/v1/conversations/...) and the LLM chat agent.
//
// The conversation state is owned by the caller: every request carries the
// state returned by the previous response, and the BFA never stores it.
// That keeps the BFA horizontally scalable; the continuity engine is a pure
// function over (state, turn).
//
// Full turn flow:
//  1. Caller sends POST /v1/conversations/{id}/turns with message, history, state
//  2. BFA fetches the driver profile and detects the intent concurrently
//  3. BFA advances the continuity engine (slots, missing info, resolution, stage)
//  4. A strategy decides: escalate, close, or ask the LLM agent
//  5. BFA returns the answer, the new state and the action
package domain

import "github.com/evcharge/ev-support-bfa-go/internal/continuity"

// ============================================================
// Action — what the caller should do after the turn
// ============================================================

// Action tells the chat front-end how to proceed.
type Action string

const (
	ActionContinue Action = "continue"
	ActionEnd      Action = "end"
	ActionTransfer Action = "transfer"
)

// ============================================================
// Conversation — Request/Response between the caller and the BFA
// ============================================================

// StartResponse is returned by POST /v1/conversations.
type StartResponse struct {
	ConversationID string                       `json:"conversationId"`
	State          continuity.ConversationState `json:"state"`
	Guidance       string                       `json:"guidance"`
}

// TurnRequest is the body of POST /v1/conversations/{id}/turns.
type TurnRequest struct {
	// CustomerID identifies the driver. Empty for anonymous chats, in which
	// case no profile is fetched.
	CustomerID string `json:"customerId,omitempty"`

	// Message is the user's latest message (required).
	Message string `json:"message"`

	// IntentID skips intent detection when the caller already knows it.
	IntentID string `json:"intentId,omitempty"`

	// History is the ordered transcript so far. The latest message is
	// appended when it is not already the last user turn.
	History []continuity.Turn `json:"history,omitempty"`

	// State is the state returned by the previous response; nil starts a
	// fresh conversation.
	State *continuity.ConversationState `json:"state,omitempty"`
}

// TurnResponse is returned by POST /v1/conversations/{id}/turns.
type TurnResponse struct {
	ConversationID     string                        `json:"conversationId"`
	TurnID             string                        `json:"turnId"`
	Answer             string                        `json:"answer"`
	Action             Action                        `json:"action"`
	Intent             string                        `json:"intent"`
	State              continuity.ConversationState  `json:"state"`
	Resolution         continuity.ResolutionSignal   `json:"resolution"`
	MissingSlots       []string                      `json:"missingSlots"`
	FollowUps          []continuity.FollowUpQuestion `json:"followUps"`
	AttemptedSolutions []string                      `json:"attemptedSolutions"`
}

// StageRequest is the body of POST /v1/conversations/{id}/stage.
// Reopen ignores Stage and sends the conversation back to identification.
type StageRequest struct {
	State  continuity.ConversationState `json:"state"`
	Stage  string                       `json:"stage,omitempty"`
	Reopen bool                         `json:"reopen,omitempty"`
}

// SatisfactionRequest is the body of POST /v1/conversations/{id}/satisfaction.
type SatisfactionRequest struct {
	State continuity.ConversationState `json:"state"`
	Score int                          `json:"score"`
}

// AttemptRequest is the body of POST /v1/conversations/{id}/attempts.
type AttemptRequest struct {
	State continuity.ConversationState `json:"state"`
}

// StateResponse is returned by the state-mutating routes.
type StateResponse struct {
	ConversationID string                       `json:"conversationId"`
	State          continuity.ConversationState `json:"state"`
	Action         Action                       `json:"action"`
}

// GuidanceResponse is returned by GET /v1/conversations/guidance/{stage}.
type GuidanceResponse struct {
	Stage    string `json:"stage"`
	Guidance string `json:"guidance"`
}

// ============================================================
// Chat — Request/Response between the BFA and the LLM agent
// ============================================================

// ChatAgentRequest is the payload sent to the agent (POST /v1/chat).
type ChatAgentRequest struct {
	// Query is the user's message (required).
	Query string `json:"query"`

	CustomerID     string `json:"customer_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`

	// Context is the detected intent, e.g. "charger_issue".
	Context string `json:"context,omitempty"`

	// Conversation is the structured continuity context for the prompt.
	Conversation *ConversationContext `json:"conversation,omitempty"`
}

// ConversationContext is what the agent needs to keep the dialogue coherent.
type ConversationContext struct {
	Stage              string            `json:"stage"`
	Guidance           string            `json:"guidance"`
	CollectedInfo      map[string]any    `json:"collected_info,omitempty"`
	MissingInfo        []string          `json:"missing_info,omitempty"`
	FollowUpQuestions  []string          `json:"follow_up_questions,omitempty"`
	AttemptedSolutions []string          `json:"attempted_solutions,omitempty"`
	ExperienceLevel    string            `json:"experience_level,omitempty"`
	History            []continuity.Turn `json:"history,omitempty"`
}

// ChatAgentResponse is the agent's reply.
//
//	{
//	  "answer": "2번 충전기의 화면에 에러 코드가 보이시나요?",
//	  "sources": ["charger_faults.md"],
//	  "tokens_used": 830,
//	  "timestamp": "2026-03-01T14:30:00"
//	}
type ChatAgentResponse struct {
	CustomerID string   `json:"customer_id"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	TokensUsed int      `json:"tokens_used"`
	Timestamp  string   `json:"timestamp"`
}

// ============================================================
// Strategy Context — what a strategy receives
// ============================================================

// ChatContext bundles everything a strategy needs to answer a turn.
// It is assembled by the ChatService after the engine has advanced.
type ChatContext struct {
	ConversationID string
	CustomerID     string
	Query          string
	DetectedIntent string
	History        []continuity.Turn
	Turn           continuity.TurnResult
}

// StrategyReply is a strategy's answer plus the action it decided.
type StrategyReply struct {
	Answer string
	Action Action
}
