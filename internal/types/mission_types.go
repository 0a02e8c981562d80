package types

type MissionType string

const (
	MissionJoinChannel MissionType = "join_channel"
	MissionJoinGroup   MissionType = "join_group"
	MissionURLTimer    MissionType = "url_timer"
	MissionPromoCode   MissionType = "promo_code"
)

const (
	DefaultRequiredCount = 1
	DefaultPriority      = 999
)

// Mission is an externally authored mission definition.
// PromoCode and PromoCodeHash are never sent to clients; use PublicMission.
type Mission struct {
	ID            string      `json:"id"`
	Type          MissionType `json:"type"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Category      string      `json:"category"`
	URL           string      `json:"url,omitempty"`
	Reward        int64       `json:"reward"`
	RequiredCount int64       `json:"requiredCount,omitempty"`
	Priority      int64       `json:"priority,omitempty"`
	Active        bool        `json:"active"`
	PromoCode     string      `json:"promoCode,omitempty"`
	PromoCodeHash string      `json:"promoCodeHash,omitempty"`
	TimerSeconds  int64       `json:"timerSeconds,omitempty"`
	ChatID        string      `json:"chatId,omitempty"`
}

// Required returns RequiredCount with the default applied.
func (m Mission) Required() int64 {
	if m.RequiredCount <= 0 {
		return DefaultRequiredCount
	}
	return m.RequiredCount
}

// EffectivePriority returns Priority with the default applied.
func (m Mission) EffectivePriority() int64 {
	if m.Priority == 0 {
		return DefaultPriority
	}
	return m.Priority
}

// PublicMission is the client-facing view of a mission.
type PublicMission struct {
	ID            string      `json:"id"`
	Type          MissionType `json:"type"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Category      string      `json:"category"`
	URL           string      `json:"url,omitempty"`
	Reward        int64       `json:"reward"`
	RequiredCount int64       `json:"requiredCount"`
	Priority      int64       `json:"priority"`
	Active        bool        `json:"active"`
}

func (m Mission) Public() PublicMission {
	return PublicMission{
		ID:            m.ID,
		Type:          m.Type,
		Title:         m.Title,
		Description:   m.Description,
		Category:      m.Category,
		URL:           m.URL,
		Reward:        m.Reward,
		RequiredCount: m.Required(),
		Priority:      m.EffectivePriority(),
		Active:        m.Active,
	}
}

// UserMission is a user's progress on one mission. The zero value means
// the user has not touched the mission yet.
type UserMission struct {
	Started      bool  `json:"started"`
	Completed    bool  `json:"completed"`
	Claimed      bool  `json:"claimed"`
	CurrentCount int64 `json:"currentCount"`
}

// DisplayCount clamps CurrentCount to [0, required] for progress bars.
func (um UserMission) DisplayCount(required int64) int64 {
	switch {
	case um.CurrentCount < 0:
		return 0
	case um.CurrentCount > required:
		return required
	default:
		return um.CurrentCount
	}
}
