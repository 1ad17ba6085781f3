package stats

import "fmt"

// Accuracy returns the percentage of answered questions that were correct,
// rounded to the nearest whole percent. Zero answered means zero percent,
// not a division error.
func Accuracy(score, answered int) int {
	if answered <= 0 {
		return 0
	}
	return int(float64(score)/float64(answered)*100 + 0.5)
}

// Level derives the study level from the cumulative score: one level for
// every ten correct answers, starting at level 1.
func Level(score int) int {
	return score/10 + 1
}

// FormatStudyTime renders accumulated minutes as "Xm" under an hour and
// "Xh Ym" from an hour up.
func FormatStudyTime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// FormatClock renders elapsed seconds as a MM:SS timer string.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Tier is the session-completion performance band.
type Tier int

const (
	TierEncouragement Tier = iota
	TierMid
	TierHigh
	TierTop
)

// CompletionTier buckets a session's percentage score into a performance
// band: 90+ top, 70+ high, 50+ mid, everything below encouragement.
func CompletionTier(percentage int) Tier {
	switch {
	case percentage >= 90:
		return TierTop
	case percentage >= 70:
		return TierHigh
	case percentage >= 50:
		return TierMid
	default:
		return TierEncouragement
	}
}

// Message returns the display text for a completion tier. Wording mirrors
// the in-app achievement popup.
func (t Tier) Message() string {
	switch t {
	case TierTop:
		return "Outstanding! You're a master!"
	case TierHigh:
		return "Great job! Keep it up!"
	case TierMid:
		return "Good effort! Practice more!"
	default:
		return "Keep practicing! You'll improve!"
	}
}
