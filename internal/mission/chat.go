package mission

import (
	"net/url"
	"strconv"
	"strings"

	"uc_coin/internal/types"
)

// IsJoin reports whether the mission completes on channel or group membership.
func IsJoin(m types.Mission) bool {
	return m.Type == types.MissionJoinChannel || m.Type == types.MissionJoinGroup
}

// JoinChat resolves the chat a join mission points at: the explicit ChatID
// ("@name" or a numeric id) or a public t.me link. Invite links
// (t.me/+hash, t.me/joinchat/...) carry no username and do not resolve.
func JoinChat(m types.Mission) (id int64, username string, ok bool) {
	if raw := strings.TrimSpace(m.ChatID); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, "", true
		}
		return 0, "@" + strings.TrimPrefix(raw, "@"), true
	}

	u, err := url.Parse(strings.TrimSpace(m.URL))
	if err != nil || (u.Host != "t.me" && u.Host != "telegram.me") {
		return 0, "", false
	}
	name := strings.Trim(u.Path, "/")
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	if name == "" || strings.HasPrefix(name, "+") || name == "joinchat" {
		return 0, "", false
	}
	return 0, "@" + name, true
}
