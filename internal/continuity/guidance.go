package continuity

var stageGuidance = map[Stage]string{
	StageIdentification:  "고객의 문제를 정확히 파악하는 단계입니다. 충전기 번호, 위치, 차량 모델, 에러 코드 등 필요한 정보를 자연스럽게 질문하세요.",
	StageTroubleshooting: "파악된 문제에 대해 단계별 해결 방법을 안내하는 단계입니다. 한 번에 하나의 조치만 제안하고, 이미 시도한 방법은 반복하지 마세요.",
	StageResolution:      "안내한 해결 방법의 결과를 확인하는 단계입니다. 문제가 해결되었는지 구체적으로 확인하세요.",
	StageConfirmation:    "문제 해결 여부를 최종 확인하는 단계입니다. 추가로 도움이 필요한 부분이 있는지 물어보세요.",
	StageCompleted:       "상담이 마무리되는 단계입니다. 감사 인사와 함께 만족도를 정중하게 여쭤보세요.",
}

const defaultGuidance = "고객의 질문에 친절하고 정확하게 답변하세요."

// GuidanceFor returns the prompt guidance for a stage, or a generic fallback
// for values outside the stage enum.
func GuidanceFor(stage Stage) string {
	if g, ok := stageGuidance[stage]; ok {
		return g
	}
	return defaultGuidance
}
