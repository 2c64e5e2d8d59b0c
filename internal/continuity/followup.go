package continuity

import "sort"

// FollowUpQuestion is a candidate next question for the assistant to ask.
type FollowUpQuestion struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Priority int             `json:"priority"`
	Context  map[string]bool `json:"context,omitempty"`
}

// questionTemplate is a static table row. slot, when set, ties the question
// to a slot so its context can report whether the value is already known.
type questionTemplate struct {
	id       string
	text     string
	priority int
	slot     string
}

// anyIntent keys the rows that apply to every intent of a stage.
const anyIntent = "*"

var questionBank = map[Stage]map[string][]questionTemplate{
	StageIdentification: {
		IntentChargerIssue: {
			{id: "check_error_code", text: "충전기 화면에 표시된 에러 코드가 있나요?", priority: 5, slot: SlotErrorCode},
			{id: "try_other_charger", text: "다른 충전기에서도 같은 문제가 발생하나요?", priority: 4},
		},
		IntentPaymentIssue: {
			{id: "payment_method", text: "어떤 결제 수단(카드, 앱, 멤버십)을 사용하셨나요?", priority: 5, slot: SlotPaymentMethods},
			{id: "payment_error_message", text: "결제할 때 표시된 오류 메시지가 있었나요?", priority: 4, slot: SlotErrorCode},
		},
		IntentFindCharger: {
			{id: "current_location", text: "지금 계신 위치나 목적지를 알려주시겠어요?", priority: 5, slot: SlotLocation},
			{id: "preferred_charger_type", text: "급속과 완속 중 어떤 충전기를 찾으시나요?", priority: 4, slot: SlotChargerType},
		},
		IntentUsageGuide: {
			{id: "vehicle_model", text: "어떤 차량을 이용하고 계신가요?", priority: 5, slot: SlotVehicleModel},
			{id: "first_time", text: "전기차 충전이 처음이신가요?", priority: 4, slot: SlotExperienceLevel},
		},
	},
	StageTroubleshooting: {
		anyIntent: {
			{id: "step_completed", text: "안내해 드린 방법을 시도해 보셨나요?", priority: 5},
			{id: "step_result", text: "시도해 보신 후 어떤 변화가 있었나요?", priority: 4},
		},
		IntentChargerIssue: {
			{id: "cable_connected", text: "충전 케이블이 차량에 끝까지 연결되어 있나요?", priority: 3},
		},
		IntentPaymentIssue: {
			{id: "other_card", text: "다른 카드로 결제를 시도해 보셨나요?", priority: 3, slot: SlotPaymentMethods},
		},
	},
	StageResolution: {
		anyIntent: {
			{id: "solution_worked", text: "안내해 드린 해결 방법이 효과가 있었나요?", priority: 5},
			{id: "remaining_issue", text: "아직 남아 있는 문제가 있으신가요?", priority: 3},
		},
	},
	StageConfirmation: {
		anyIntent: {
			{id: "resolution_check", text: "문제가 완전히 해결되었나요?", priority: 5},
			{id: "additional_help", text: "그 밖에 도움이 필요하신 부분이 있나요?", priority: 3},
		},
	},
}

// satisfactionQuestion is appended to every candidate set.
var satisfactionQuestion = questionTemplate{
	id:       "overall_satisfaction",
	text:     "오늘 상담에 전반적으로 만족하셨나요?",
	priority: 2,
}

// GenerateFollowUps rebuilds the ranked follow-up candidates for a stage and
// intent: stage-wide rows, then intent rows, then the satisfaction question,
// stable-sorted by descending priority. Deduplication against questions
// already shown is left to the caller.
func (e *Engine) GenerateFollowUps(stage Stage, intentID string, slots map[string]any) []FollowUpQuestion {
	rows := questionBank[stage]

	var pool []questionTemplate
	pool = append(pool, rows[anyIntent]...)
	if intentID != anyIntent {
		pool = append(pool, rows[intentID]...)
	}
	pool = append(pool, satisfactionQuestion)

	out := make([]FollowUpQuestion, 0, len(pool))
	for _, q := range pool {
		out = append(out, q.build(slots))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

func (q questionTemplate) build(slots map[string]any) FollowUpQuestion {
	fq := FollowUpQuestion{ID: q.id, Text: q.text, Priority: q.priority}
	if q.slot != "" {
		fq.Context = map[string]bool{q.slot + "_known": present(slots[q.slot])}
	}
	return fq
}

