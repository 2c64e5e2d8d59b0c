package continuity

import "regexp"

// Slot keys understood by the engine.
const (
	SlotChargerNumber   = "charger_number"
	SlotErrorCode       = "error_code"
	SlotVehicleModel    = "vehicle_model"
	SlotLocation        = "location"
	SlotChargerType     = "charger_type"
	SlotExperienceLevel = "experience_level"
	SlotPaymentMethods  = "payment_methods"
)

// ExperienceBeginner is the value stored under experience_level when the
// user says it is their first time.
const ExperienceBeginner = "beginner"

// ProfileContext is the static customer profile supplied by the host.
type ProfileContext struct {
	VehicleModel   string   `json:"vehicleModel,omitempty"`
	Location       string   `json:"location,omitempty"`
	PaymentMethods []string `json:"paymentMethods,omitempty"`
}

// extractionRule maps a pattern onto a slot key. value, when set, replaces
// the captured text (used for flag-style slots).
type extractionRule struct {
	slot    string
	pattern *regexp.Regexp
	value   string
	// profileWins marks identity slots the profile takes precedence over.
	profileWins bool
}

var extractionRules = []extractionRule{
	{
		slot:    SlotChargerNumber,
		pattern: regexp.MustCompile(`(\d+)\s*번\s*(?:충전기|기기|충전 기기)|충전기\s*번호\s*(?:는|은|가)?\s*[:：]?\s*(\d+)|충전기\s*(\d+)\s*번`),
	},
	{
		slot:    SlotErrorCode,
		// Codes longer than four digits are not truncated; they do not match.
		pattern: regexp.MustCompile(`(?i)(?:에러|오류|error|코드)\s*(?:코드)?\s*[:：]?\s*([A-Z]{0,3}-?\d{2,4})(?:\D|$)|\b(E-?\d{2,4})\b`),
	},
	{
		slot:        SlotVehicleModel,
		pattern:     regexp.MustCompile(`(?i)(아이오닉\s?[56]|EV[369]|니로\s?EV|니로|코나\s?일렉트릭|코나|GV60|테슬라\s?모델\s?[3YSX]|모델\s?[3YSX]|model\s?[3ysx]|테슬라|볼트\s?EV|ID\.4|타이칸|폴스타\s?2|토레스\s?EVX)`),
		profileWins: true,
	},
	{
		slot:        SlotLocation,
		pattern:     regexp.MustCompile(`(강남역|강남|잠실|홍대|여의도|판교|분당|일산|서울역|수원|인천|부산|대구|대전|광주|울산|세종|제주)|([가-힣]{2,10}(?:휴게소|주차장|아파트))`),
		profileWins: true,
	},
	{
		slot:    SlotChargerType,
		pattern: regexp.MustCompile(`(?i)(초급속|급속|완속|DC\s?콤보|차데모|CHAdeMO|AC\s?3상|슈퍼차저|\d{2,3}\s?kW)`),
	},
	{
		slot:    SlotExperienceLevel,
		pattern: regexp.MustCompile(`(처음|초보|첫\s?충전|잘\s?몰라|어떻게\s?하는지\s?몰라)`),
		value:   ExperienceBeginner,
	},
}

// ExtractEntities builds the slot map for the current turn. Only user turns
// are scanned; within a rule the most recent match wins. Identity slots
// (vehicle_model, location) keep the profile value when one is set.
func (e *Engine) ExtractEntities(history []Turn, profile ProfileContext) map[string]any {
	slots, _ := e.extractEntities(history, profile)
	return slots
}

func (e *Engine) extractEntities(history []Turn, profile ProfileContext) (map[string]any, []error) {
	slots := map[string]any{}
	if profile.VehicleModel != "" {
		slots[SlotVehicleModel] = profile.VehicleModel
	}
	if profile.Location != "" {
		slots[SlotLocation] = profile.Location
	}
	if len(profile.PaymentMethods) > 0 {
		slots[SlotPaymentMethods] = append([]string(nil), profile.PaymentMethods...)
	}

	texts, warnings := turnsBy(history, RoleUser)
	for _, rule := range extractionRules {
		found, ok := lastMatch(rule.pattern, texts)
		if !ok {
			continue
		}
		if rule.profileWins {
			if _, set := slots[rule.slot]; set {
				continue
			}
		}
		if rule.value != "" {
			found = rule.value
		}
		slots[rule.slot] = found
	}
	return slots, warnings
}

// lastMatch scans every text in order and returns the first non-empty
// capture group of the last match found.
func lastMatch(re *regexp.Regexp, texts []string) (string, bool) {
	var last string
	var ok bool
	for _, text := range texts {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v := firstGroup(m); v != "" {
				last, ok = v, true
			}
		}
	}
	return last, ok
}

func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
