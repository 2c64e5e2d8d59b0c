package continuity_test

import (
	"testing"

	"github.com/evcharge/ev-support-bfa-go/internal/continuity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvance_FirstTurn(t *testing.T) {
	e := newEngine()

	res := e.Advance(e.Init(), continuity.TurnInput{
		UserMessage: "2번 충전기가 고장났어요",
		IntentID:    continuity.IntentChargerIssue,
	})

	assert.Equal(t, "2", res.Slots[continuity.SlotChargerNumber])
	assert.Equal(t, []string{"충전소 위치", "차량 모델"}, res.MissingSlots)
	require.Len(t, res.FollowUps, 3)
	assert.Equal(t, "check_error_code", res.FollowUps[0].ID)
	assert.Equal(t, 5, res.FollowUps[0].Priority)
	assert.Equal(t, "try_other_charger", res.FollowUps[1].ID)
	assert.Equal(t, 4, res.FollowUps[1].Priority)
	assert.Equal(t, "overall_satisfaction", res.FollowUps[2].ID)
	assert.Equal(t, 2, res.FollowUps[2].Priority)

	assert.Equal(t, continuity.StageIdentification, res.State.IssueStage)
	assert.Equal(t, 1, res.State.InteractionCount)
	require.NotNil(t, res.State.CurrentIssue)
	assert.Equal(t, continuity.IntentChargerIssue, *res.State.CurrentIssue)
	assert.True(t, res.State.FollowUpNeeded)
	assert.False(t, res.ShouldEnd)
	assert.False(t, res.ShouldTransfer)
	assert.Empty(t, res.Warnings)
}

func TestAdvance_FullJourney(t *testing.T) {
	e := newEngine()
	state := e.Init()
	var history []continuity.Turn

	turn := func(assistantReply, userMessage string) continuity.TurnResult {
		if assistantReply != "" {
			history = append(history, assistant(assistantReply))
		}
		history = append(history, user(userMessage))
		res := e.Advance(state, continuity.TurnInput{
			UserMessage: userMessage,
			IntentID:    continuity.IntentChargerIssue,
			History:     history,
		})
		state = res.State
		return res
	}

	res := turn("", "2번 충전기가 고장났어요")
	assert.Equal(t, continuity.StageIdentification, res.State.IssueStage)

	res = turn("충전소 위치와 차량 모델을 알려주시겠어요?", "강남역이고 아이오닉5예요")
	assert.Empty(t, res.MissingSlots)
	assert.Equal(t, continuity.StageTroubleshooting, res.State.IssueStage)

	res = turn("충전기를 재시작한 후 다시 시도해 보세요.", "해볼게요")
	assert.Equal(t, []string{"다시 시도", "충전기 재시작"}, res.AttemptedSolutions)
	assert.Equal(t, continuity.StageResolution, res.State.IssueStage)
	assert.False(t, res.State.ProblemSolved)

	res = turn("", "이제 잘 돼요 감사합니다")
	assert.True(t, res.Resolution.Resolved)
	assert.True(t, res.State.ProblemSolved)
	assert.False(t, res.State.FollowUpNeeded)
	assert.Equal(t, continuity.StageConfirmation, res.State.IssueStage)
	assert.Equal(t, 4, res.State.InteractionCount)
	assert.False(t, res.ShouldEnd, "no satisfaction score yet")

	rated, err := e.UpdateUserSatisfaction(state, 5)
	require.NoError(t, err)
	assert.True(t, continuity.ShouldEndConversation(rated))
}

func TestAdvance_ConfirmationLoopsBack(t *testing.T) {
	e := newEngine()
	state := e.Init()
	state.IssueStage = continuity.StageConfirmation
	state.ProblemSolved = true

	res := e.Advance(state, continuity.TurnInput{
		UserMessage: "아직 안 돼요",
		IntentID:    continuity.IntentChargerIssue,
		Profile:     continuity.ProfileContext{VehicleModel: "EV6", Location: "판교"},
	})

	assert.False(t, res.Resolution.Resolved)
	assert.False(t, res.State.ProblemSolved)
	assert.Equal(t, continuity.StageTroubleshooting, res.State.IssueStage)
	assert.True(t, res.State.FollowUpNeeded)
}

func TestAdvance_ComplaintDoesNotComplete(t *testing.T) {
	e := newEngine()
	state := e.Init()
	state.IssueStage = continuity.StageConfirmation
	state.ProblemSolved = true

	res := e.Advance(state, continuity.TurnInput{
		UserMessage: "예약 결제가 실패했어요",
		IntentID:    continuity.IntentPaymentIssue,
	})

	assert.False(t, res.Resolution.Resolved)
	assert.False(t, res.State.ProblemSolved)
	assert.True(t, res.State.FollowUpNeeded)
	assert.Equal(t, continuity.StageTroubleshooting, res.State.IssueStage)
	assert.False(t, res.ShouldEnd)
}

func TestAdvance_Escalation(t *testing.T) {
	e := newEngine()
	state := e.Init()
	state.IssueStage = continuity.StageResolution
	for i := 0; i < 3; i++ {
		state = e.RecordResolutionAttempt(state)
	}
	state, err := e.UpdateUserSatisfaction(state, 1)
	require.NoError(t, err)

	res := e.Advance(state, continuity.TurnInput{UserMessage: "여전히 충전이 안 돼요", IntentID: continuity.IntentChargerIssue})
	assert.True(t, res.ShouldTransfer)
	assert.False(t, res.ShouldEnd)
	assert.Equal(t, 3, res.State.ResolutionAttempts)
}

func TestAdvance_Warnings(t *testing.T) {
	e := newEngine()
	res := e.Advance(e.Init(), continuity.TurnInput{
		UserMessage: "환불 받고 싶어요",
		IntentID:    "refund_request",
		History:     []continuity.Turn{{Role: "", Content: "???"}, user("환불 받고 싶어요")},
	})

	require.Len(t, res.Warnings, 2)
	var unparseable *continuity.ErrUnparseableTurn
	assert.ErrorAs(t, res.Warnings[0], &unparseable)
	assert.Equal(t, 0, unparseable.Index)
	var unknown *continuity.ErrUnrecognizedIntent
	assert.ErrorAs(t, res.Warnings[1], &unknown)
	assert.Equal(t, "refund_request", unknown.IntentID)

	assert.Empty(t, res.MissingSlots)
	assert.Equal(t, continuity.StageIdentification, res.State.IssueStage, "unknown intents do not advance")
}

func TestAdvance_DoesNotMutateInput(t *testing.T) {
	e := newEngine()
	state := e.UpdateContextualInfo(e.Init(), map[string]any{continuity.SlotChargerNumber: "3"})

	_ = e.Advance(state, continuity.TurnInput{UserMessage: "7번 충전기예요", IntentID: continuity.IntentChargerIssue})

	assert.Equal(t, "3", state.ContextualInfo[continuity.SlotChargerNumber])
	assert.Equal(t, 1, state.InteractionCount)
}
