package continuity

import (
	"math"
	"regexp"
	"unicode/utf8"
)

// ResolutionSignal is the per-turn resolved/unresolved judgment.
type ResolutionSignal struct {
	Resolved   bool    `json:"resolved"`
	Confidence float64 `json:"confidence"`
}

// ResolutionPolicy tunes CheckResolutionStatus. Zero fields fall back to
// the defaults below.
type ResolutionPolicy struct {
	// ShortReplyRunes: replies shorter than this many code points get the bonus.
	ShortReplyRunes int
	// ShortReplyBonus is added to the raw score of short replies.
	ShortReplyBonus float64
	// SaturationHits is the net score that maps to full confidence.
	SaturationHits float64
}

const (
	defaultShortReplyRunes = 15
	defaultShortReplyBonus = 0.3
	defaultSaturationHits  = 3
)

func (p ResolutionPolicy) withDefaults() ResolutionPolicy {
	if p.ShortReplyRunes <= 0 {
		p.ShortReplyRunes = defaultShortReplyRunes
	}
	if p.ShortReplyBonus == 0 {
		p.ShortReplyBonus = defaultShortReplyBonus
	}
	if p.SaturationHits <= 0 {
		p.SaturationHits = defaultSaturationHits
	}
	return p
}

// cue is one resolution pattern. A message matching unless does not count
// for pattern.
type cue struct {
	pattern *regexp.Regexp
	unless  *regexp.Regexp
}

func (c cue) matches(msg string) bool {
	if !c.pattern.MatchString(msg) {
		return false
	}
	return c.unless == nil || !c.unless.MatchString(msg)
}

// Confirmation words must stand alone: 예약, 네비, 응급 are not a yes.
const replyEnd = `(?:\s|[.,!?~]|$)`

// Positive cues: gratitude, confirmation, "resolved", "understood",
// "works now", "no problem".
var positiveCues = []cue{
	{pattern: regexp.MustCompile(`감사|고마워|고맙습니다|(?i:thank)`)},
	{pattern: regexp.MustCompile(`^\s*(?:네|넵|예|응|ㅇㅋ|오케이)` + replyEnd + `|^\s*(?i:ok|okay|yes)\b`)},
	{pattern: regexp.MustCompile(`해결(?:됐|되었|했|완료)`)},
	{pattern: regexp.MustCompile(`알겠|이해(?:했|됐|되었)|(?i:got it)`)},
	{pattern: regexp.MustCompile(`(?:이제|다시)\s*(?:잘\s*)?(?:돼|됩니다|되네|작동|충전(?:이\s*)?(?:돼|됩니다|되네))`)},
	{pattern: regexp.MustCompile(`문제\s*(?:없|없어|없습니다)|괜찮아요|(?i:no\s+(?:problem|worries))`)},
}

// Negative cues: "still not", "still broken", "no", "failed",
// "doesn't work", "didn't help", "don't understand", "explain again".
var negativeCues = []cue{
	{pattern: regexp.MustCompile(`아직(?:도)?\s*(?:안|못)`)},
	{pattern: regexp.MustCompile(`여전히|계속\s*(?:안|고장)`)},
	{
		pattern: regexp.MustCompile(`^\s*(?:아니|아뇨|(?i:no)\b)`),
		unless:  regexp.MustCompile(`^\s*(?i:no\s+(?:problem|worries))`),
	},
	{pattern: regexp.MustCompile(`실패|(?i:fail)`)},
	{pattern: regexp.MustCompile(`안\s*(?:돼|됩니다|되네|되요|돼요|됐|되었)|작동(?:하지|을)?\s*(?:않|안)`)},
	{pattern: regexp.MustCompile(`해결(?:이)?\s*안`)},
	{pattern: regexp.MustCompile(`도움이\s*(?:안|되지)`)},
	{pattern: regexp.MustCompile(`이해가\s*안|모르겠`)},
	{pattern: regexp.MustCompile(`다시\s*설명`)},
}

// CheckResolutionStatus scores the user's latest message. The state is
// accepted for symmetry with the other state operations and is not consulted.
//
// score = positives - negatives (+ bonus for short replies);
// resolved = score > 0; confidence = min(|score| / saturation, 1).
// A message that matches no pattern carries no signal: {false, 0}.
func (e *Engine) CheckResolutionStatus(_ ConversationState, userMessage string) ResolutionSignal {
	policy := e.Resolution.withDefaults()
	msg := normalize(userMessage)

	positive := countMatches(positiveCues, msg)
	negative := countMatches(negativeCues, msg)
	if positive == 0 && negative == 0 {
		return ResolutionSignal{}
	}

	total := float64(positive - negative)
	if utf8.RuneCountInString(msg) < policy.ShortReplyRunes {
		total += policy.ShortReplyBonus
	}

	return ResolutionSignal{
		Resolved:   total > 0,
		Confidence: math.Min(math.Abs(total)/policy.SaturationHits, 1),
	}
}

func countMatches(cues []cue, msg string) int {
	n := 0
	for _, c := range cues {
		if c.matches(msg) {
			n++
		}
	}
	return n
}
