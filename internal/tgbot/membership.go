package tgbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"uc_coin/internal/mission"
	"uc_coin/internal/types"
)

var ErrUnknownChat = errors.New("cannot resolve telegram chat for mission")

// MemberGetter is the part of *tgbotapi.BotAPI the checker needs.
type MemberGetter interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Checker computes the external progress signal for missions that are not
// promo codes: channel/group membership via the Bot API and dwell time for
// url_timer missions.
type Checker struct {
	members      MemberGetter
	defaultTimer time.Duration
	warnOnce     sync.Once
}

// NewBot connects to the Bot API. An empty token yields (nil, nil) so the
// server can run without Telegram.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("🤖 Telegram bot authorized as @%s", bot.Self.UserName)
	return bot, nil
}

// NewChecker builds a checker. members may be nil, in which case join
// missions are trusted once started.
func NewChecker(members MemberGetter, defaultTimer time.Duration) *Checker {
	if defaultTimer <= 0 {
		defaultTimer = 15 * time.Second
	}
	return &Checker{members: members, defaultTimer: defaultTimer}
}

func (c *Checker) Progress(ctx context.Context, userID int64, m types.Mission, startedAt, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch m.Type {
	case types.MissionJoinChannel, types.MissionJoinGroup:
		return c.membership(userID, m)
	case types.MissionURLTimer:
		timer := c.defaultTimer
		if m.TimerSeconds > 0 {
			timer = time.Duration(m.TimerSeconds) * time.Second
		}
		if startedAt.IsZero() || now.Sub(startedAt) < timer {
			return 0, nil
		}
		return m.Required(), nil
	default:
		return 0, nil
	}
}

func (c *Checker) membership(userID int64, m types.Mission) (int64, error) {
	if c.members == nil {
		c.warnOnce.Do(func() {
			log.Printf("⚠️ BOT_TOKEN not set, join missions complete without a membership check")
		})
		return m.Required(), nil
	}

	chat, err := ChatFor(m)
	if err != nil {
		return 0, err
	}
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             chat.ID,
			SuperGroupUsername: chat.Username,
			UserID:             userID,
		},
	}
	member, err := c.members.GetChatMember(cfg)
	if err != nil {
		return 0, fmt.Errorf("getChatMember %s: %w", chat, err)
	}
	if !isMember(member) {
		return 0, nil
	}
	return m.Required(), nil
}

func isMember(cm tgbotapi.ChatMember) bool {
	switch cm.Status {
	case "creator", "administrator", "member":
		return true
	case "restricted":
		return cm.IsMember
	default:
		return false
	}
}

// Chat identifies a Telegram chat either by numeric id or by @username.
type Chat struct {
	ID       int64
	Username string
}

func (c Chat) String() string {
	if c.Username != "" {
		return c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// ChatFor resolves the chat a join mission points at.
func ChatFor(m types.Mission) (Chat, error) {
	id, username, ok := mission.JoinChat(m)
	if !ok {
		return Chat{}, ErrUnknownChat
	}
	return Chat{ID: id, Username: username}, nil
}
