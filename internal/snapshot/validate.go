package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/omarshaarawi/flagcoach/internal/models"
)

// Validate rejects documents that cannot be repaired by Normalize. It never
// modifies state.
func Validate(state *models.State, formation models.Formation) error {
	if state.Settings.TeamSize < 1 {
		return invalid("settings.teamSize", "must be at least 1, got %d", state.Settings.TeamSize)
	}
	if state.Settings.RepeatWindow < 0 {
		return invalid("settings.repeatWindow", "must not be negative, got %d", state.Settings.RepeatWindow)
	}
	if state.Series < 0 {
		return invalid("series", "must not be negative, got %d", state.Series)
	}
	if state.Game < 1 {
		return invalid("game", "must be at least 1, got %d", state.Game)
	}

	ids := make(map[string]bool, len(state.Players))
	names := make(map[string]bool, len(state.Players))
	for i, p := range state.Players {
		field := fmt.Sprintf("players[%d]", i)
		if strings.TrimSpace(p.ID) == "" {
			return invalid(field+".id", "missing")
		}
		if ids[p.ID] {
			return invalid(field+".id", "duplicate id %q", p.ID)
		}
		ids[p.ID] = true

		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return invalid(field+".name", "missing")
		}
		if names[name] {
			return invalid(field+".name", "duplicate name %q", p.Name)
		}
		names[name] = true

		if p.Sits < 0 {
			return invalid(field+".sits", "must not be negative")
		}
		if p.Captain < 0 {
			return invalid(field+".captain", "must not be negative")
		}
		for role, n := range p.Pos {
			if n < 0 {
				return invalid(field+".pos."+string(role), "must not be negative")
			}
		}
	}

	for i, h := range state.History {
		field := fmt.Sprintf("history[%d]", i)
		if !h.Phase.Valid() {
			return invalid(field+".phase", "unknown phase %q", h.Phase)
		}
		if h.Series < 1 {
			return invalid(field+".series", "must be at least 1")
		}
		if h.Advance < 1 {
			return invalid(field+".advance", "must be at least 1")
		}
		for _, m := range []map[models.RoleID]string{h.Offense, h.Defense} {
			for role := range m {
				if !formation.Has(role) {
					return invalid(field, "unknown role %q", role)
				}
			}
		}
	}

	c := state.Captains
	if c.GamesRemaining < 0 {
		return invalid("captains.gamesRemaining", "must not be negative")
	}
	for _, g := range c.Groups {
		if g < 0 {
			return invalid("captains.groups", "group sizes must not be negative")
		}
	}
	if c.Next < 0 || c.Next > len(c.Groups) {
		return invalid("captains.next", "out of range: %d", c.Next)
	}
	return nil
}

// Normalize brings a validated state to the current in-memory shape:
// every role has a counter, legacy role keys are migrated, references to
// unknown players are pruned and the queue matches the active roster.
func Normalize(state *models.State, formation models.Formation) {
	state.Version = CurrentVersion

	for i := range state.Players {
		p := &state.Players[i]
		p.Name = strings.TrimSpace(p.Name)
		pos := make(map[models.RoleID]int, len(formation.All()))
		for _, role := range formation.All() {
			pos[role] = 0
		}
		for key, n := range p.Pos {
			if role, ok := MigrateRoleKey(string(key), formation); ok {
				pos[role] += n
			}
		}
		p.Pos = pos
		p.Blocked = normalizeRoles(p.Blocked, formation)
		p.Allowed = normalizeRoles(p.Allowed, formation)
	}
	if state.Players == nil {
		state.Players = []models.Player{}
	}
	state.SortPlayers()

	if state.Recent == nil {
		state.Recent = map[string]models.RecentRole{}
	}
	if state.History == nil {
		state.History = []models.HistoryEntry{}
	}
	for i := range state.History {
		h := &state.History[i]
		if h.Sitting == nil {
			h.Sitting = []string{}
		}
		if h.Playing == nil {
			h.Playing = []string{}
		}
		if h.RecentBefore == nil {
			h.RecentBefore = map[string]models.RecentRole{}
		}
	}
	if state.Captains.Groups == nil {
		state.Captains.Groups = []int{}
	}
	if state.Captains.Picks == nil {
		state.Captains.Picks = []models.CaptainPick{}
	}
	if state.Season == nil {
		state.Season = []models.GameSummary{}
	}
	for i := range state.Season {
		if state.Season[i].Attendance == nil {
			state.Season[i].Attendance = []string{}
		}
	}

	known := make(map[string]bool, len(state.Players))
	for _, p := range state.Players {
		known[p.ID] = true
	}
	state.PrunePlayers(func(id string) bool { return known[id] })
	state.ReconcileQueue()
}

func normalizeRoles(roles []models.RoleID, formation models.Formation) []models.RoleID {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[models.RoleID]bool, len(roles))
	var out []models.RoleID
	for _, r := range roles {
		role, ok := MigrateRoleKey(string(r), formation)
		if !ok || seen[role] {
			continue
		}
		seen[role] = true
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
