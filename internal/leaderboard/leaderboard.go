package leaderboard

import (
	"net/url"
	"sort"

	"uc_coin/internal/numfmt"
	"uc_coin/internal/progression"
	"uc_coin/internal/types"
)

// Entry - one row of the leaderboard
type Entry struct {
	Position    int              `json:"position"`
	UserID      int64            `json:"userId"`
	Name        string           `json:"name"`
	AvatarURL   string           `json:"avatarUrl"`
	TotalEarned int64            `json:"totalEarned"`
	Formatted   string           `json:"formatted"`
	Rank        progression.Rank `json:"rank"`
	Badge       string           `json:"badge,omitempty"`
	Icon        string           `json:"icon"`
}

// Build ranks users by lifetime earnings, highest first. Ties go to the lower
// user id. limit <= 0 returns everyone.
func Build(users []types.User, ranks progression.RankTable, limit int) []Entry {
	sorted := make([]types.User, len(users))
	copy(sorted, users)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalEarned != sorted[j].TotalEarned {
			return sorted[i].TotalEarned > sorted[j].TotalEarned
		}
		return sorted[i].ID < sorted[j].ID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]Entry, len(sorted))
	for i, u := range sorted {
		pos := i + 1
		out[i] = Entry{
			Position:    pos,
			UserID:      u.ID,
			Name:        nameOf(u),
			AvatarURL:   AvatarURL(nameOf(u)),
			TotalEarned: u.TotalEarned,
			Formatted:   numfmt.Format(u.TotalEarned),
			Rank:        ranks.Calculate(u.TotalEarned),
			Badge:       Badge(pos),
			Icon:        Icon(pos),
		}
	}
	return out
}

// Position returns the 1-based place of userID, or 0 if absent.
func Position(users []types.User, userID int64) int {
	var target *types.User
	for i := range users {
		if users[i].ID == userID {
			target = &users[i]
			break
		}
	}
	if target == nil {
		return 0
	}
	pos := 1
	for _, u := range users {
		if u.TotalEarned > target.TotalEarned || (u.TotalEarned == target.TotalEarned && u.ID < target.ID) {
			pos++
		}
	}
	return pos
}

func Badge(position int) string {
	switch position {
	case 1:
		return "CHAMPION"
	case 2:
		return "RUNNER-UP"
	case 3:
		return "THIRD PLACE"
	default:
		return ""
	}
}

func Icon(position int) string {
	switch {
	case position == 1:
		return "👑"
	case position == 2:
		return "🥈"
	case position == 3:
		return "🥉"
	case position <= 10:
		return "🏆"
	case position <= 50:
		return "🎖️"
	default:
		return "⭐"
	}
}

// AvatarURL is the generated initials avatar used when a user has no photo.
func AvatarURL(name string) string {
	if name == "" {
		name = "User"
	}
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "random")
	return "https://ui-avatars.com/api/?" + q.Encode()
}

func nameOf(u types.User) string {
	if n := u.DisplayName(); n != "" {
		return n
	}
	return "User"
}
