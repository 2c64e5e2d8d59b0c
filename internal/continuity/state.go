// Package continuity implements the per-turn conversation continuity engine
// used by the EV-charging support chat: stage tracking, slot extraction,
// resolution scoring, missing-information analysis, follow-up questions and
// the end/escalation policies.
//
// Every operation is a pure function over an explicit ConversationState value
// and explicit text inputs. The engine owns no session storage; the host is
// expected to persist the returned state and hand it back on the next turn.
package continuity

import (
	"maps"
	"time"
)

// ============================================================
// Stage — finite conversation state machine
// ============================================================

// Stage is one phase of the support conversation.
type Stage string

const (
	StageIdentification  Stage = "identification"
	StageTroubleshooting Stage = "troubleshooting"
	StageResolution      Stage = "resolution"
	StageConfirmation    Stage = "confirmation"
	StageCompleted       Stage = "completed"
)

// Stages lists every stage in forward order.
var Stages = []Stage{
	StageIdentification,
	StageTroubleshooting,
	StageResolution,
	StageConfirmation,
	StageCompleted,
}

// transitions is the directed graph of legal stage changes.
// Same-stage updates are always allowed and only refresh the timestamp.
var transitions = map[Stage][]Stage{
	StageIdentification:  {StageTroubleshooting},
	StageTroubleshooting: {StageResolution},
	StageResolution:      {StageConfirmation},
	StageConfirmation:    {StageCompleted, StageTroubleshooting},
	StageCompleted:       nil,
}

// ParseStage converts a raw string into a Stage.
func ParseStage(s string) (Stage, bool) {
	for _, st := range Stages {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// CanTransition reports whether moving from one stage to another is a legal edge.
func CanTransition(from, to Stage) bool {
	if from == to {
		_, known := transitions[from]
		return known
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ============================================================
// ConversationState
// ============================================================

// ConversationState is the value round-tripped through the host between turns.
type ConversationState struct {
	ProblemSolved       bool           `json:"problemSolved"`
	CurrentIssue        *string        `json:"currentIssue"`
	IssueStage          Stage          `json:"issueStage"`
	FollowUpNeeded      bool           `json:"followUpNeeded"`
	LastInteractionTime time.Time      `json:"lastInteractionTime"`
	InteractionCount    int            `json:"interactionCount"`
	UserSatisfaction    *int           `json:"userSatisfaction"`
	ResolutionAttempts  int            `json:"resolutionAttempts"`
	ContextualInfo      map[string]any `json:"contextualInfo"`
}

// clone returns a copy whose maps and pointers are not shared with s.
func (s ConversationState) clone() ConversationState {
	out := s
	out.ContextualInfo = maps.Clone(s.ContextualInfo)
	if out.ContextualInfo == nil {
		out.ContextualInfo = map[string]any{}
	}
	if s.CurrentIssue != nil {
		issue := *s.CurrentIssue
		out.CurrentIssue = &issue
	}
	if s.UserSatisfaction != nil {
		score := *s.UserSatisfaction
		out.UserSatisfaction = &score
	}
	return out
}

// Init returns the state for a brand-new session.
func (e *Engine) Init() ConversationState {
	return ConversationState{
		IssueStage:          StageIdentification,
		LastInteractionTime: e.now(),
		ContextualInfo:      map[string]any{},
	}
}

// UpdateIssueStage moves the state to next. Jumps outside the transition graph
// are rejected with *ErrIllegalTransition and the input state is returned as is.
func (e *Engine) UpdateIssueStage(state ConversationState, next Stage) (ConversationState, error) {
	if !CanTransition(state.IssueStage, next) {
		return state, &ErrIllegalTransition{From: state.IssueStage, To: next}
	}
	out := state.clone()
	out.IssueStage = next
	out.LastInteractionTime = e.now()
	return out, nil
}

// Reopen is the explicit edge back to identification, usable from any stage.
// Counters and collected info are preserved.
func (e *Engine) Reopen(state ConversationState) ConversationState {
	out := state.clone()
	out.IssueStage = StageIdentification
	out.ProblemSolved = false
	out.FollowUpNeeded = true
	out.LastInteractionTime = e.now()
	return out
}

// UpdateContextualInfo shallow-merges info into the state and counts one interaction.
func (e *Engine) UpdateContextualInfo(state ConversationState, info map[string]any) ConversationState {
	out := state.clone()
	maps.Copy(out.ContextualInfo, info)
	out.InteractionCount++
	out.LastInteractionTime = e.now()
	return out
}

// UpdateUserSatisfaction records a 1..5 satisfaction score.
func (e *Engine) UpdateUserSatisfaction(state ConversationState, score int) (ConversationState, error) {
	if score < 1 || score > 5 {
		return state, &ErrInvalidSatisfaction{Score: score}
	}
	out := state.clone()
	out.UserSatisfaction = &score
	return out, nil
}

// MarkProblemSolved sets the problemSolved flag.
func (e *Engine) MarkProblemSolved(state ConversationState, solved bool) ConversationState {
	out := state.clone()
	out.ProblemSolved = solved
	return out
}

// SetCurrentIssue records the issue the conversation is about.
func (e *Engine) SetCurrentIssue(state ConversationState, issue string) ConversationState {
	out := state.clone()
	if issue == "" {
		out.CurrentIssue = nil
	} else {
		out.CurrentIssue = &issue
	}
	return out
}

// SetFollowUpNeeded sets the followUpNeeded flag.
func (e *Engine) SetFollowUpNeeded(state ConversationState, needed bool) ConversationState {
	out := state.clone()
	out.FollowUpNeeded = needed
	return out
}

// RecordResolutionAttempt counts one troubleshooting action taken by the host.
func (e *Engine) RecordResolutionAttempt(state ConversationState) ConversationState {
	out := state.clone()
	out.ResolutionAttempts++
	out.LastInteractionTime = e.now()
	return out
}

// ============================================================
// Terminal policies
// ============================================================

// ShouldEndConversation: solved, rated 4 or better, nothing left to ask.
func ShouldEndConversation(state ConversationState) bool {
	return state.ProblemSolved &&
		state.UserSatisfaction != nil &&
		*state.UserSatisfaction >= 4 &&
		!state.FollowUpNeeded
}

// ShouldTransferToAgent: unsolved after 3+ attempts and rated 2 or worse.
func ShouldTransferToAgent(state ConversationState) bool {
	return !state.ProblemSolved &&
		state.ResolutionAttempts >= 3 &&
		state.UserSatisfaction != nil &&
		*state.UserSatisfaction <= 2
}
