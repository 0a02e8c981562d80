package progression

import (
	"math"
	"testing"
)

func TestCalculateLevelBoundaries(t *testing.T) {
	// default curve: 100, 283, 520, ...
	cases := []struct {
		xp   int64
		want Level
	}{
		{0, Level{Level: 1, CurrentXP: 0, XPForNext: 100}},
		{99, Level{Level: 1, CurrentXP: 99, XPForNext: 100}},
		{100, Level{Level: 2, CurrentXP: 0, XPForNext: 283}},
		{382, Level{Level: 2, CurrentXP: 282, XPForNext: 283}},
		{383, Level{Level: 3, CurrentXP: 0, XPForNext: 520}},
	}
	for _, tc := range cases {
		if got := CalculateLevel(tc.xp); got != tc.want {
			t.Errorf("CalculateLevel(%d) = %+v, want %+v", tc.xp, got, tc.want)
		}
	}
}

func TestCalculateLevelMonotonic(t *testing.T) {
	prev := CalculateLevel(0)
	for xp := int64(1); xp < 50_000; xp++ {
		got := CalculateLevel(xp)
		if got.Level < prev.Level {
			t.Fatalf("level decreased at xp=%d: %d -> %d", xp, prev.Level, got.Level)
		}
		if got.CurrentXP < 0 || got.CurrentXP >= got.XPForNext {
			t.Fatalf("xp=%d: current %d not in [0,%d)", xp, got.CurrentXP, got.XPForNext)
		}
		if DefaultLevelCurve.Threshold(got.Level)+got.CurrentXP != xp {
			t.Fatalf("xp=%d: threshold(%d)+current != xp", xp, got.Level)
		}
		prev = got
	}
}

func TestCalculateLevelLargeInput(t *testing.T) {
	curve := LevelCurve{BaseXP: 1e15, Exponent: 2}
	got := curve.Calculate(math.MaxInt64)
	if got.Level < 1 || got.CurrentXP >= got.XPForNext {
		t.Fatalf("unexpected level for max xp: %+v", got)
	}
	if got := CalculateLevel(-5); got.Level != 1 || got.CurrentXP != 0 {
		t.Fatalf("negative xp: %+v", got)
	}
}

func TestLevelProgress(t *testing.T) {
	l := Level{Level: 2, CurrentXP: 50, XPForNext: 200}
	if got := l.Progress(); got != 25 {
		t.Fatalf("Progress() = %v, want 25", got)
	}
}

func TestCalculateRank(t *testing.T) {
	cases := []struct {
		earned int64
		rank   int
		title  string
	}{
		{0, 1, "Bronze"},
		{999, 1, "Bronze"},
		{1_000, 2, "Silver"},
		{9_999, 2, "Silver"},
		{10_000, 3, "Gold"},
		{250_000, 5, "Diamond"},
		{5_000_000, 7, "Grandmaster"},
		{math.MaxInt64, 7, "Grandmaster"},
	}
	for _, tc := range cases {
		got := CalculateRank(tc.earned)
		if got.Rank != tc.rank || got.Title != tc.title {
			t.Errorf("CalculateRank(%d) = %+v, want rank %d %s", tc.earned, got, tc.rank, tc.title)
		}
		if got.Icon == "" {
			t.Errorf("CalculateRank(%d): empty icon", tc.earned)
		}
	}
}

func TestCalculateRankMonotonic(t *testing.T) {
	prev := 0
	for earned := int64(0); earned < 6_000_000; earned += 997 {
		got := CalculateRank(earned).Rank
		if got < prev {
			t.Fatalf("rank decreased at %d: %d -> %d", earned, prev, got)
		}
		prev = got
	}
}

func TestRankTableNext(t *testing.T) {
	next, ok := DefaultRanks.Next(CalculateRank(0))
	if !ok || next.Title != "Silver" {
		t.Fatalf("Next(Bronze) = %+v, %v", next, ok)
	}
	if _, ok := DefaultRanks.Next(CalculateRank(math.MaxInt64)); ok {
		t.Fatal("top tier should have no next tier")
	}
	if got := (RankTable{}).Calculate(100); got.Rank != 1 {
		t.Fatalf("empty table rank = %+v", got)
	}
}
