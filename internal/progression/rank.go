package progression

// Tier is one row of the rank ladder.
type Tier struct {
	Threshold int64  `json:"threshold"`
	Title     string `json:"title"`
	Icon      string `json:"icon"`
}

// RankTable is ordered by ascending threshold; the first row must start at 0.
type RankTable []Tier

// Rank is a user's tier. Rank is the ordinal of the tier, not a leaderboard position.
type Rank struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

var DefaultRanks = RankTable{
	{Threshold: 0, Title: "Bronze", Icon: "🥉"},
	{Threshold: 1_000, Title: "Silver", Icon: "🥈"},
	{Threshold: 10_000, Title: "Gold", Icon: "🥇"},
	{Threshold: 50_000, Title: "Platinum", Icon: "💎"},
	{Threshold: 250_000, Title: "Diamond", Icon: "💠"},
	{Threshold: 1_000_000, Title: "Master", Icon: "🏆"},
	{Threshold: 5_000_000, Title: "Grandmaster", Icon: "👑"},
}

// CalculateRank classifies lifetime earnings on the default ladder.
func CalculateRank(totalEarned int64) Rank {
	return DefaultRanks.Calculate(totalEarned)
}

// Calculate returns the highest tier whose threshold is <= totalEarned.
// Earnings below the first threshold still land on the first tier.
func (t RankTable) Calculate(totalEarned int64) Rank {
	if len(t) == 0 {
		return Rank{Rank: 1}
	}
	idx := 0
	for i, tier := range t {
		if tier.Threshold > totalEarned {
			break
		}
		idx = i
	}
	return Rank{Rank: idx + 1, Title: t[idx].Title, Icon: t[idx].Icon}
}

// Next returns the tier after r, if any.
func (t RankTable) Next(r Rank) (Tier, bool) {
	if r.Rank < 1 || r.Rank >= len(t) {
		return Tier{}, false
	}
	return t[r.Rank], true
}
