package continuity

// Intent ids with a requirement table entry.
const (
	IntentChargerIssue = "charger_issue"
	IntentPaymentIssue = "payment_issue"
	IntentFindCharger  = "find_charger"
	IntentUsageGuide   = "usage_guide"
)

// slotLabels are the human-readable names handed to the prompt assembler.
var slotLabels = map[string]string{
	SlotChargerNumber:   "충전기 번호",
	SlotErrorCode:       "에러 코드",
	SlotVehicleModel:    "차량 모델",
	SlotLocation:        "충전소 위치",
	SlotChargerType:     "충전기 종류",
	SlotExperienceLevel: "충전 경험",
	SlotPaymentMethods:  "결제 수단",
}

// requiredSlots lists, per intent, the slots needed before troubleshooting.
// Order is the order the labels are reported in.
var requiredSlots = map[string][]string{
	IntentChargerIssue: {SlotChargerNumber, SlotLocation, SlotVehicleModel},
	IntentPaymentIssue: {SlotPaymentMethods, SlotChargerNumber},
	IntentFindCharger:  {SlotLocation, SlotVehicleModel, SlotChargerType},
	IntentUsageGuide:   {SlotVehicleModel, SlotChargerType},
}

// KnownIntent reports whether intentID has a requirement table entry.
func KnownIntent(intentID string) bool {
	_, ok := requiredSlots[intentID]
	return ok
}

// SlotLabel returns the display label for a slot key, or the key itself.
func SlotLabel(slot string) string {
	if label, ok := slotLabels[slot]; ok {
		return label
	}
	return slot
}

// FindMissingSlots returns the labels of the required slots that are absent
// or empty in slots, in table order. Intents without an entry use
// Engine.DefaultRequirements (none by default).
func (e *Engine) FindMissingSlots(intentID string, slots map[string]any) []string {
	required, ok := requiredSlots[intentID]
	if !ok {
		required = e.DefaultRequirements
	}

	missing := make([]string, 0, len(required))
	for _, slot := range required {
		if !present(slots[slot]) {
			missing = append(missing, SlotLabel(slot))
		}
	}
	return missing
}

// present is the truthiness check for slot values.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	case bool:
		return val
	case int:
		return val != 0
	case float64:
		return val != 0
	}
	return true
}
