package continuity_test

import (
	"testing"
	"time"

	"github.com/evcharge/ev-support-bfa-go/internal/continuity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

func newEngine() *continuity.Engine {
	return &continuity.Engine{Clock: func() time.Time { return fixedNow }}
}

func intPtr(v int) *int { return &v }

func TestInit(t *testing.T) {
	t.Run("Should start at identification with zero counters", func(t *testing.T) {
		st := newEngine().Init()
		assert.Equal(t, continuity.StageIdentification, st.IssueStage)
		assert.Zero(t, st.InteractionCount)
		assert.Zero(t, st.ResolutionAttempts)
		assert.False(t, st.ProblemSolved)
		assert.False(t, st.FollowUpNeeded)
		assert.Nil(t, st.CurrentIssue)
		assert.Nil(t, st.UserSatisfaction)
		assert.Empty(t, st.ContextualInfo)
		assert.Equal(t, fixedNow, st.LastInteractionTime)
	})
}

func TestUpdateIssueStage(t *testing.T) {
	e := newEngine()

	t.Run("Should follow the forward path", func(t *testing.T) {
		st := e.Init()
		for _, next := range continuity.Stages[1:] {
			var err error
			st, err = e.UpdateIssueStage(st, next)
			require.NoError(t, err)
			assert.Equal(t, next, st.IssueStage)
		}
	})

	t.Run("Should allow confirmation to loop back to troubleshooting", func(t *testing.T) {
		st := e.Init()
		st.IssueStage = continuity.StageConfirmation
		st, err := e.UpdateIssueStage(st, continuity.StageTroubleshooting)
		require.NoError(t, err)
		assert.Equal(t, continuity.StageTroubleshooting, st.IssueStage)
	})

	t.Run("Should reject illegal jumps and keep the state", func(t *testing.T) {
		st := e.Init()
		st.IssueStage = continuity.StageConfirmation
		out, err := e.UpdateIssueStage(st, continuity.StageIdentification)
		require.Error(t, err)
		var illegal *continuity.ErrIllegalTransition
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, continuity.StageConfirmation, illegal.From)
		assert.Equal(t, continuity.StageIdentification, illegal.To)
		assert.Equal(t, continuity.StageConfirmation, out.IssueStage)
	})

	t.Run("Should reject skipping stages", func(t *testing.T) {
		_, err := e.UpdateIssueStage(e.Init(), continuity.StageCompleted)
		assert.Error(t, err)
	})

	t.Run("Should reject unknown stages", func(t *testing.T) {
		_, err := e.UpdateIssueStage(e.Init(), continuity.Stage("escalated"))
		assert.Error(t, err)
	})
}

func TestReopen(t *testing.T) {
	t.Run("Should return to identification and keep counters", func(t *testing.T) {
		e := newEngine()
		st := e.Init()
		st.IssueStage = continuity.StageCompleted
		st.ProblemSolved = true
		st.InteractionCount = 4
		st.ResolutionAttempts = 2

		out := e.Reopen(st)
		assert.Equal(t, continuity.StageIdentification, out.IssueStage)
		assert.False(t, out.ProblemSolved)
		assert.True(t, out.FollowUpNeeded)
		assert.Equal(t, 4, out.InteractionCount)
		assert.Equal(t, 2, out.ResolutionAttempts)
	})
}

func TestUpdateContextualInfo(t *testing.T) {
	t.Run("Should merge shallowly and count the interaction", func(t *testing.T) {
		e := newEngine()
		st := e.UpdateContextualInfo(e.Init(), map[string]any{"charger_number": "3", "location": "잠실"})
		st2 := e.UpdateContextualInfo(st, map[string]any{"charger_number": "7"})

		assert.Equal(t, 2, st2.InteractionCount)
		assert.Equal(t, "7", st2.ContextualInfo["charger_number"])
		assert.Equal(t, "잠실", st2.ContextualInfo["location"])
		// the previous value is not mutated
		assert.Equal(t, "3", st.ContextualInfo["charger_number"])
		assert.Equal(t, 1, st.InteractionCount)
	})
}

func TestUpdateUserSatisfaction(t *testing.T) {
	e := newEngine()

	t.Run("Should store scores in range", func(t *testing.T) {
		st, err := e.UpdateUserSatisfaction(e.Init(), 4)
		require.NoError(t, err)
		require.NotNil(t, st.UserSatisfaction)
		assert.Equal(t, 4, *st.UserSatisfaction)
	})

	t.Run("Should reject scores out of range", func(t *testing.T) {
		for _, score := range []int{0, 6, -1} {
			_, err := e.UpdateUserSatisfaction(e.Init(), score)
			var invalid *continuity.ErrInvalidSatisfaction
			assert.ErrorAs(t, err, &invalid)
		}
	})
}

func TestShouldTransferToAgent(t *testing.T) {
	base := continuity.ConversationState{ResolutionAttempts: 3, UserSatisfaction: intPtr(1)}

	t.Run("Should escalate after three failed attempts with low satisfaction", func(t *testing.T) {
		assert.True(t, continuity.ShouldTransferToAgent(base))
	})

	t.Run("Should not escalate before the third attempt", func(t *testing.T) {
		st := base
		st.ResolutionAttempts = 2
		assert.False(t, continuity.ShouldTransferToAgent(st))
	})

	t.Run("Should not escalate without a satisfaction score", func(t *testing.T) {
		st := base
		st.UserSatisfaction = nil
		assert.False(t, continuity.ShouldTransferToAgent(st))
	})

	t.Run("Should not escalate solved problems", func(t *testing.T) {
		st := base
		st.ProblemSolved = true
		assert.False(t, continuity.ShouldTransferToAgent(st))
	})
}

func TestShouldEndConversation(t *testing.T) {
	base := continuity.ConversationState{ProblemSolved: true, UserSatisfaction: intPtr(5)}

	t.Run("Should end solved and satisfied conversations", func(t *testing.T) {
		assert.True(t, continuity.ShouldEndConversation(base))
	})

	t.Run("Should keep going while a follow-up is needed", func(t *testing.T) {
		st := base
		st.FollowUpNeeded = true
		assert.False(t, continuity.ShouldEndConversation(st))
	})

	t.Run("Should keep going below satisfaction 4", func(t *testing.T) {
		st := base
		st.UserSatisfaction = intPtr(3)
		assert.False(t, continuity.ShouldEndConversation(st))
	})

	t.Run("Should never satisfy both policies", func(t *testing.T) {
		for _, solved := range []bool{true, false} {
			for score := 1; score <= 5; score++ {
				st := continuity.ConversationState{
					ProblemSolved:      solved,
					UserSatisfaction:   intPtr(score),
					ResolutionAttempts: 5,
				}
				assert.False(t, continuity.ShouldEndConversation(st) && continuity.ShouldTransferToAgent(st))
			}
		}
	})
}

func TestParseStage(t *testing.T) {
	st, ok := continuity.ParseStage("resolution")
	assert.True(t, ok)
	assert.Equal(t, continuity.StageResolution, st)

	_, ok = continuity.ParseStage("escalated")
	assert.False(t, ok)
}

func TestGuidanceFor(t *testing.T) {
	for _, st := range continuity.Stages {
		assert.NotEmpty(t, continuity.GuidanceFor(st))
	}
	assert.NotEqual(t, continuity.GuidanceFor(continuity.StageIdentification), continuity.GuidanceFor("unknown"))
	assert.NotEmpty(t, continuity.GuidanceFor("unknown"))
}
