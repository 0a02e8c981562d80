package mission

import (
	"sort"

	"uc_coin/internal/types"
)

// Filter selects missions for display. Type "" or "all" keeps every type.
type Filter struct {
	Type            types.MissionType
	IncludeInactive bool
}

const FilterAll types.MissionType = "all"

type Entry struct {
	Mission  types.Mission     `json:"-"`
	Progress types.UserMission `json:"progress"`
	State    State             `json:"state"`
}

// Percent is the clamped progress towards RequiredCount.
func (e Entry) Percent() int64 {
	req := e.Mission.Required()
	return e.Progress.DisplayCount(req) * 100 / req
}

// List filters the catalog and orders it: incomplete missions first, then by
// ascending priority, then by id so the order is stable.
func List(catalog Catalog, progress map[string]types.UserMission, f Filter) []Entry {
	out := make([]Entry, 0, len(catalog))
	for id, m := range catalog {
		if !m.Active && !f.IncludeInactive {
			continue
		}
		if f.Type != "" && f.Type != FilterAll && m.Type != f.Type {
			continue
		}
		if m.ID == "" {
			m.ID = id
		}
		um := progress[id]
		out = append(out, Entry{Mission: m, Progress: um, State: StateOf(um)})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Progress.Completed != b.Progress.Completed {
			return !a.Progress.Completed
		}
		if pa, pb := a.Mission.EffectivePriority(), b.Mission.EffectivePriority(); pa != pb {
			return pa < pb
		}
		return a.Mission.ID < b.Mission.ID
	})
	return out
}

// ActiveCount is the number of entries still waiting to be completed.
func ActiveCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if !e.Progress.Completed {
			n++
		}
	}
	return n
}
