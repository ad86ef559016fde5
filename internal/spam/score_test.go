package spam

import (
	"strings"
	"testing"
)

func TestScoreCleanText(t *testing.T) {
	r := Score("Hello, I wanted to follow up on our conversation from last week about the partnership proposal.")
	if r.Score != 0 {
		t.Errorf("score: got %d, want 0", r.Score)
	}
	if r.Triggers != 0 {
		t.Errorf("triggers: got %d, want 0", r.Triggers)
	}
	if r.Level() != LevelLow {
		t.Errorf("level: got %s, want %s", r.Level(), LevelLow)
	}
}

func TestScoreCountsTriggerOnce(t *testing.T) {
	r := Score("free free free free free")
	if r.Triggers != 1 {
		t.Errorf("triggers: got %d, want 1 (repeats count once)", r.Triggers)
	}
}

func TestScoreDensityFloor(t *testing.T) {
	// Three words, two triggers. Density floors at 1, so the score is
	// triggers * 100 capped, not triggers / 0.3.
	r := Score("free cash now")
	if r.Score != 100 {
		t.Errorf("score: got %d, want 100", r.Score)
	}
	if r.Level() != LevelHigh {
		t.Errorf("level: got %s, want %s", r.Level(), LevelHigh)
	}
}

func TestScoreScalesWithLength(t *testing.T) {
	padding := strings.Repeat("perfectly ordinary businesslike wording here ", 20)

	short := Score("free offer " + strings.Repeat("word ", 18)) // 20 words, 2 triggers
	long := Score("free offer " + padding)

	if long.Score >= short.Score {
		t.Errorf("longer text should score lower: short %d, long %d", short.Score, long.Score)
	}
}

func TestScoreCaseInsensitive(t *testing.T) {
	r := Score("FREE CASH for you")
	if r.Triggers != 2 {
		t.Errorf("triggers: got %d, want 2", r.Triggers)
	}
}

func TestScoreCapped(t *testing.T) {
	r := Score("free cash prize winner urgent")
	if r.Score > 100 {
		t.Errorf("score exceeds cap: %d", r.Score)
	}
}

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{19, LevelLow},
		{20, LevelMedium},
		{49, LevelMedium},
		{50, LevelHigh},
		{100, LevelHigh},
	}

	for _, tt := range tests {
		r := Result{Score: tt.score}
		if got := r.Level(); got != tt.want {
			t.Errorf("Level(%d): got %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScoreReportsFoundPhrases(t *testing.T) {
	r := Score("This is a limited time offer, click here!")

	want := map[string]bool{"limited time": true, "offer": true, "click here": true}
	if len(r.Found) != len(want) {
		t.Fatalf("found: got %v", r.Found)
	}
	for _, f := range r.Found {
		if !want[f] {
			t.Errorf("unexpected phrase %q", f)
		}
	}
}
