package mission

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"uc_coin/internal/types"
)

// Catalog is the id-keyed set of mission definitions.
type Catalog map[string]types.Mission

func (c Catalog) Get(id string) (types.Mission, bool) {
	m, ok := c[id]
	if ok && m.ID == "" {
		m.ID = id
	}
	return m, ok
}

// Validate checks the authoring rules a catalog must satisfy before it is served.
func (c Catalog) Validate() error {
	for id, m := range c {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("mission with empty id")
		}
		if m.ID != "" && m.ID != id {
			return fmt.Errorf("mission %q: id mismatch %q", id, m.ID)
		}
		if m.Reward <= 0 {
			return fmt.Errorf("mission %q: reward must be > 0", id)
		}
		if m.RequiredCount < 0 {
			return fmt.Errorf("mission %q: required count must be >= 1", id)
		}
		if strings.TrimSpace(string(m.Type)) == "" {
			return fmt.Errorf("mission %q: missing type", id)
		}
		if m.Type == types.MissionPromoCode && strings.TrimSpace(m.PromoCode) == "" && m.PromoCodeHash == "" {
			return fmt.Errorf("mission %q: promo_code mission without a code", id)
		}
		if IsJoin(m) {
			if _, _, ok := JoinChat(m); !ok {
				return fmt.Errorf("mission %q: join mission needs chatId or a public t.me link", id)
			}
		}
		if m.TimerSeconds < 0 {
			return fmt.Errorf("mission %q: timer must be >= 0", id)
		}
	}
	return nil
}

// LoadCatalog reads a JSON array or id-keyed object of missions.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read missions: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (Catalog, error) {
	trimmed := strings.TrimSpace(string(raw))
	c := Catalog{}
	if strings.HasPrefix(trimmed, "[") {
		var list []types.Mission
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parse missions: %w", err)
		}
		for _, m := range list {
			if _, dup := c[m.ID]; dup {
				return nil, fmt.Errorf("duplicate mission id %q", m.ID)
			}
			c[m.ID] = m
		}
	} else {
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse missions: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultCatalog is served when no missions file is configured. The promo
// mission is only included when a code is provided.
func DefaultCatalog(promoCode string) Catalog {
	c := Catalog{
		"join_channel": {
			ID:          "join_channel",
			Type:        types.MissionJoinChannel,
			Title:       "Join UC Channel",
			Description: "Subscribe to the official UC Coin channel",
			Category:    "Social",
			URL:         "https://t.me/uccoin_news",
			Reward:      1_000,
			Priority:    1,
			Active:      true,
		},
		"join_group": {
			ID:          "join_group",
			Type:        types.MissionJoinGroup,
			Title:       "Join UC Community",
			Description: "Say hi in the community chat",
			Category:    "Social",
			URL:         "https://t.me/uccoin_chat",
			Reward:      750,
			Priority:    2,
			Active:      true,
		},
		"visit_site": {
			ID:           "visit_site",
			Type:         types.MissionURLTimer,
			Title:        "Visit Website",
			Description:  "Spend a few seconds on the UC Coin website",
			Category:     "Explore",
			URL:          "https://uccoin.app",
			Reward:       500,
			Priority:     3,
			Active:       true,
			TimerSeconds: 15,
		},
	}
	if code := strings.TrimSpace(promoCode); code != "" {
		c["daily_code"] = types.Mission{
			ID:          "daily_code",
			Type:        types.MissionPromoCode,
			Title:       "Secret Code",
			Description: "Find today's code in the channel",
			Category:    "Code",
			URL:         "https://t.me/uccoin_news",
			Reward:      2_000,
			Priority:    4,
			Active:      true,
			PromoCode:   code,
		}
	}
	return c
}
