package models

import (
	"sort"
	"strings"
	"time"
)

type Player struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Active  bool           `json:"active"`
	Sits    int            `json:"sits"`
	Pos     map[RoleID]int `json:"pos"`
	Blocked []RoleID       `json:"blocked,omitempty"`
	Allowed []RoleID       `json:"allowed,omitempty"`
	Captain int            `json:"captain"`
}

// CanFill reports whether the player may be given role. Blocked roles are
// never allowed; a non-empty Allowed list restricts the player to it.
func (p *Player) CanFill(role RoleID) bool {
	if containsRole(p.Blocked, role) {
		return false
	}
	return len(p.Allowed) == 0 || containsRole(p.Allowed, role)
}

func (p Player) Clone() Player {
	c := p
	c.Pos = make(map[RoleID]int, len(p.Pos))
	for k, v := range p.Pos {
		c.Pos[k] = v
	}
	c.Blocked = cloneRoles(p.Blocked)
	c.Allowed = cloneRoles(p.Allowed)
	return c
}

type Settings struct {
	TeamSize          int  `json:"teamSize"`
	RepeatWindow      int  `json:"repeatWindow"`
	BlockFamilyRepeat bool `json:"blockFamilyRepeat"`
}

func DefaultSettings() Settings {
	return Settings{TeamSize: 7, RepeatWindow: 1, BlockFamilyRepeat: true}
}

// RecentRole is the last role family a player was given and in which series.
type RecentRole struct {
	Family string `json:"family"`
	Series int    `json:"series"`
}

// HistoryEntry records one applied series. RecentBefore holds recent-role
// memory as it was before the series so undo can restore it exactly.
type HistoryEntry struct {
	Phase        Phase                 `json:"phase"`
	Series       int                   `json:"series"`
	Sitting      []string              `json:"sitting"`
	Playing      []string              `json:"playing"`
	Offense      map[RoleID]string     `json:"offense"`
	Defense      map[RoleID]string     `json:"defense"`
	Open         []RoleID              `json:"open,omitempty"`
	Relaxed      []RoleID              `json:"relaxed,omitempty"`
	Advance      int                   `json:"advance"`
	RecentBefore map[string]RecentRole `json:"recentBefore"`
}

// Assignments returns the mapping of whichever phase this entry ran.
func (h HistoryEntry) Assignments() map[RoleID]string {
	if h.Phase == PhaseDefense {
		return h.Defense
	}
	return h.Offense
}

func (h HistoryEntry) Clone() HistoryEntry {
	c := h
	c.Sitting = cloneStrings(h.Sitting)
	c.Playing = cloneStrings(h.Playing)
	c.Offense = cloneMapping(h.Offense)
	c.Defense = cloneMapping(h.Defense)
	if h.Open != nil {
		c.Open = cloneRoles(h.Open)
	}
	if h.Relaxed != nil {
		c.Relaxed = cloneRoles(h.Relaxed)
	}
	c.RecentBefore = CloneRecent(h.RecentBefore)
	return c
}

type CaptainPick struct {
	Game int      `json:"game"`
	IDs  []string `json:"ids"`
}

// CaptainPlan splits the active roster into GamesRemaining groups; each pick
// consumes Groups[Next].
type CaptainPlan struct {
	GamesRemaining int           `json:"gamesRemaining"`
	Groups         []int         `json:"groups"`
	Next           int           `json:"next"`
	Picks          []CaptainPick `json:"picks"`
}

func (c CaptainPlan) Clone() CaptainPlan {
	out := c
	out.Groups = make([]int, len(c.Groups))
	copy(out.Groups, c.Groups)
	out.Picks = make([]CaptainPick, len(c.Picks))
	for i, p := range c.Picks {
		out.Picks[i] = CaptainPick{Game: p.Game, IDs: cloneStrings(p.IDs)}
	}
	return out
}

type GameSummary struct {
	Game       int       `json:"game"`
	EndedAt    time.Time `json:"endedAt"`
	Attendance []string  `json:"attendance"`
	Series     int       `json:"series"`
}

// State is everything the rotation engine owns. It serializes to the
// snapshot document without loss.
type State struct {
	Version  int                   `json:"version"`
	Settings Settings              `json:"settings"`
	Players  []Player              `json:"players"`
	Queue    []string              `json:"queue"`
	Series   int                   `json:"series"`
	History  []HistoryEntry        `json:"history"`
	Recent   map[string]RecentRole `json:"recent"`
	Captains CaptainPlan           `json:"captains"`
	Game     int                   `json:"game"`
	Season   []GameSummary         `json:"season"`
}

func NewState(version int, settings Settings) *State {
	return &State{
		Version:  version,
		Settings: settings,
		Players:  []Player{},
		Queue:    []string{},
		History:  []HistoryEntry{},
		Recent:   map[string]RecentRole{},
		Captains: CaptainPlan{Groups: []int{}, Picks: []CaptainPick{}},
		Game:     1,
		Season:   []GameSummary{},
	}
}

func (s *State) Clone() *State {
	c := *s
	c.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		c.Players[i] = p.Clone()
	}
	c.Queue = cloneStrings(s.Queue)
	c.History = make([]HistoryEntry, len(s.History))
	for i, h := range s.History {
		c.History[i] = h.Clone()
	}
	c.Recent = CloneRecent(s.Recent)
	c.Captains = s.Captains.Clone()
	c.Season = make([]GameSummary, len(s.Season))
	for i, g := range s.Season {
		g.Attendance = cloneStrings(g.Attendance)
		c.Season[i] = g
	}
	return &c
}

// Index maps player ids to pointers into s.Players. It is invalidated by any
// append to or removal from s.Players.
func (s *State) Index() map[string]*Player {
	idx := make(map[string]*Player, len(s.Players))
	for i := range s.Players {
		idx[s.Players[i].ID] = &s.Players[i]
	}
	return idx
}

func (s *State) ActiveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Active {
			n++
		}
	}
	return n
}

// SortPlayers orders the roster by case-insensitive name.
func (s *State) SortPlayers() {
	sort.SliceStable(s.Players, func(i, j int) bool {
		a, b := strings.ToLower(s.Players[i].Name), strings.ToLower(s.Players[j].Name)
		if a != b {
			return a < b
		}
		return s.Players[i].ID < s.Players[j].ID
	})
}

// ReconcileQueue makes the bench queue hold exactly the active player ids.
// Ids already queued keep their relative order; newly active ids are
// appended in roster order.
func (s *State) ReconcileQueue() {
	active := make(map[string]bool)
	for _, p := range s.Players {
		if p.Active {
			active[p.ID] = true
		}
	}
	queued := make(map[string]bool, len(s.Queue))
	queue := make([]string, 0, len(active))
	for _, id := range s.Queue {
		if active[id] && !queued[id] {
			queue = append(queue, id)
			queued[id] = true
		}
	}
	for _, p := range s.Players {
		if p.Active && !queued[p.ID] {
			queue = append(queue, p.ID)
			queued[p.ID] = true
		}
	}
	s.Queue = queue
}

// PrunePlayers drops every reference to ids for which keep returns false:
// queue, recent-role memory, history entries and captain picks.
func (s *State) PrunePlayers(keep func(id string) bool) {
	s.Queue = filterIDs(s.Queue, keep)
	for id := range s.Recent {
		if !keep(id) {
			delete(s.Recent, id)
		}
	}
	for i := range s.History {
		h := &s.History[i]
		h.Sitting = filterIDs(h.Sitting, keep)
		h.Playing = filterIDs(h.Playing, keep)
		h.Offense = pruneMapping(h.Offense, keep)
		h.Defense = pruneMapping(h.Defense, keep)
		for id := range h.RecentBefore {
			if !keep(id) {
				delete(h.RecentBefore, id)
			}
		}
	}
	for i := range s.Captains.Picks {
		s.Captains.Picks[i].IDs = filterIDs(s.Captains.Picks[i].IDs, keep)
	}
}

func CloneRecent(m map[string]RecentRole) map[string]RecentRole {
	out := make(map[string]RecentRole, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func filterIDs(ids []string, keep func(string) bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// pruneMapping removes assignments to dropped players; the role becomes open.
func pruneMapping(m map[RoleID]string, keep func(string) bool) map[RoleID]string {
	if m == nil {
		return nil
	}
	for role, id := range m {
		if !keep(id) {
			delete(m, role)
		}
	}
	return m
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneRoles(r []RoleID) []RoleID {
	if r == nil {
		return nil
	}
	out := make([]RoleID, len(r))
	copy(out, r)
	return out
}

func cloneMapping(m map[RoleID]string) map[RoleID]string {
	if m == nil {
		return nil
	}
	out := make(map[RoleID]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func containsRole(roles []RoleID, role RoleID) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
