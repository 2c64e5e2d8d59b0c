package continuity

// TurnInput is everything the host knows about the current turn.
type TurnInput struct {
	UserMessage string         `json:"userMessage"`
	IntentID    string         `json:"intentId"`
	Profile     ProfileContext `json:"profile"`
	// History is the conversation so far. When it does not already end with
	// UserMessage as a user turn, the message is appended before extraction.
	History []Turn `json:"history"`
}

// TurnResult is the folded state plus the per-turn analysis the prompt
// assembler consumes. Nothing except State is meant to be persisted.
type TurnResult struct {
	State              ConversationState  `json:"state"`
	Slots              map[string]any     `json:"slots"`
	Resolution         ResolutionSignal   `json:"resolution"`
	MissingSlots       []string           `json:"missingSlots"`
	FollowUps          []FollowUpQuestion `json:"followUps"`
	AttemptedSolutions []string           `json:"attemptedSolutions"`
	Guidance           string             `json:"guidance"`
	ShouldEnd          bool               `json:"shouldEnd"`
	ShouldTransfer     bool               `json:"shouldTransfer"`
	// Warnings carries the non-fatal *ErrUnrecognizedIntent and
	// *ErrUnparseableTurn values raised while processing the turn.
	Warnings []error `json:"-"`
}

// Advance runs one full turn: extraction, missing-slot analysis, resolution
// scoring and follow-up generation over the pre-turn state, then folds the
// results into a new state and evaluates the end/escalation policies.
func (e *Engine) Advance(state ConversationState, in TurnInput) TurnResult {
	if state.IssueStage == "" {
		state.IssueStage = StageIdentification
	}
	history := withLatest(in.History, in.UserMessage)

	slots, warnings := e.extractEntities(history, in.Profile)
	assistantTexts, _ := turnsBy(history, RoleAssistant)
	attempts := attemptedSolutions(assistantTexts)

	if in.IntentID != "" && !KnownIntent(in.IntentID) {
		warnings = append(warnings, &ErrUnrecognizedIntent{IntentID: in.IntentID})
	}
	missing := e.FindMissingSlots(in.IntentID, slots)
	signal := e.CheckResolutionStatus(state, in.UserMessage)
	followUps := e.GenerateFollowUps(state.IssueStage, in.IntentID, slots)

	next := e.fold(state, in.IntentID, slots, missing, attempts, signal)

	return TurnResult{
		State:              next,
		Slots:              slots,
		Resolution:         signal,
		MissingSlots:       missing,
		FollowUps:          followUps,
		AttemptedSolutions: attempts,
		Guidance:           GuidanceFor(next.IssueStage),
		ShouldEnd:          ShouldEndConversation(next),
		ShouldTransfer:     ShouldTransferToAgent(next),
		Warnings:           warnings,
	}
}

func (e *Engine) fold(
	state ConversationState,
	intentID string,
	slots map[string]any,
	missing []string,
	attempts []string,
	signal ResolutionSignal,
) ConversationState {
	next := e.UpdateContextualInfo(state, slots)
	if next.CurrentIssue == nil && intentID != "" {
		next = e.SetCurrentIssue(next, intentID)
	}

	negative := !signal.Resolved && signal.Confidence > 0
	if stageIndex(next.IssueStage) >= stageIndex(StageResolution) {
		switch {
		case signal.Resolved:
			next.ProblemSolved = true
		case negative:
			next.ProblemSolved = false
		}
	}
	next.FollowUpNeeded = len(missing) > 0 || !signal.Resolved

	target := next.IssueStage
	switch next.IssueStage {
	case StageIdentification:
		identified := intentID != "" && (KnownIntent(intentID) || len(e.DefaultRequirements) > 0)
		if identified && len(missing) == 0 {
			target = StageTroubleshooting
		}
	case StageTroubleshooting:
		if len(attempts) > 0 {
			target = StageResolution
		}
	case StageResolution:
		if signal.Resolved {
			target = StageConfirmation
		}
	case StageConfirmation:
		switch {
		case signal.Resolved:
			target = StageCompleted
		case negative:
			target = StageTroubleshooting
		}
	}
	if target != next.IssueStage {
		// Targets above are all graph edges; a failure here leaves the stage as is.
		if moved, err := e.UpdateIssueStage(next, target); err == nil {
			next = moved
		}
	}
	return next
}

// withLatest makes sure the current user message is the last user turn.
func withLatest(history []Turn, userMessage string) []Turn {
	if userMessage == "" {
		return history
	}
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.FromUser() && last.Content == userMessage {
			return history
		}
	}
	out := make([]Turn, 0, len(history)+1)
	out = append(out, history...)
	return append(out, Turn{Role: string(RoleUser), Content: userMessage})
}

func stageIndex(s Stage) int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}
