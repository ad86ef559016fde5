package spam

import "strings"

// Level buckets a score for display.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// triggers are phrases that commonly raise filter scores. Each counts at
// most once regardless of how often it appears.
var triggers = []string{
	"free", "act now", "limited time", "offer", "discount", "buy now",
	"cash", "clearance", "lowest price", "guarantee", "urgent", "immediate",
	"winner", "congratulations", "prize", "!!!!", "$$", "click here",
	"order now", "don't delete", "100% free", "risk free", "no risk",
	"special promotion", "unlimited", "instant", "best price",
}

// Result is one scoring pass over a draft message.
type Result struct {
	Score    int // 0-100
	Found    []string
	Triggers int
	Words    int
}

// Score rates text against the trigger list. The score scales the trigger
// count by text length, so a long message tolerates more hits than a
// short one.
func Score(text string) Result {
	lower := strings.ToLower(text)

	var found []string
	for _, t := range triggers {
		if strings.Contains(lower, t) {
			found = append(found, t)
		}
	}

	words := len(strings.Fields(text))
	density := float64(words) / 10
	if density < 1 {
		density = 1
	}
	score := int(float64(len(found)) / density * 100)
	if score > 100 {
		score = 100
	}

	return Result{Score: score, Found: found, Triggers: len(found), Words: words}
}

// Level buckets the score: under 20 is low, under 50 medium, else high.
func (r Result) Level() Level {
	switch {
	case r.Score < 20:
		return LevelLow
	case r.Score < 50:
		return LevelMedium
	default:
		return LevelHigh
	}
}
