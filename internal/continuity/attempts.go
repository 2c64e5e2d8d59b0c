package continuity

import "regexp"

// remedy is a known troubleshooting step and the phrases that mention it.
type remedy struct {
	label   string
	pattern *regexp.Regexp
}

var remedies = []remedy{
	{label: "다시 시도", pattern: regexp.MustCompile(`다시\s*시도|재시도|(?i:retry|try again)`)},
	{label: "충전기 재시작", pattern: regexp.MustCompile(`재부팅|재시작|리셋|(?i:reboot|restart)`)},
	{label: "앱 재실행", pattern: regexp.MustCompile(`앱을?\s*(?:종료|껐다|다시\s*실행|재실행)`)},
	{label: "로그아웃 후 재로그인", pattern: regexp.MustCompile(`로그아웃|(?i:log\s?out)`)},
	{label: "앱 업데이트", pattern: regexp.MustCompile(`업데이트|(?i:update)`)},
	{label: "케이블 재연결", pattern: regexp.MustCompile(`케이블을?\s*(?:분리|뽑|다시\s*연결|재연결|다시\s*꽂)|커넥터를?\s*(?:분리|다시)`)},
	{label: "다른 충전기 이용", pattern: regexp.MustCompile(`다른\s*충전기`)},
	{label: "결제 카드 변경", pattern: regexp.MustCompile(`다른\s*카드|카드를?\s*(?:변경|교체|바꿔)`)},
	{label: "설정 확인", pattern: regexp.MustCompile(`설정을?\s*확인|설정에서`)},
}

// ExtractAttemptedSolutions lists the remedies the assistant has already
// suggested, de-duplicated in first-seen order. It does not touch
// resolutionAttempts; counting attempts is the host's call.
func (e *Engine) ExtractAttemptedSolutions(history []Turn) []string {
	texts, _ := turnsBy(history, RoleAssistant)
	return attemptedSolutions(texts)
}

func attemptedSolutions(texts []string) []string {
	seen := make(map[string]bool, len(remedies))
	out := []string{}
	for _, text := range texts {
		for _, r := range remedies {
			if seen[r.label] || !r.pattern.MatchString(text) {
				continue
			}
			seen[r.label] = true
			out = append(out, r.label)
		}
	}
	return out
}
