package rotation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/omarshaarawi/flagcoach/internal/models"
)

// Players returns a copy of the roster in name order.
func (e *Engine) Players() []models.Player {
	out := make([]models.Player, len(e.state.Players))
	for i, p := range e.state.Players {
		out[i] = p.Clone()
	}
	return out
}

func (e *Engine) Player(id string) (models.Player, bool) {
	for _, p := range e.state.Players {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return models.Player{}, false
}

// AddPlayer puts a new, active player on the roster with zeroed counters.
func (e *Engine) AddPlayer(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Reason: "missing"}
	}

	var id string
	err := e.apply(func(s *models.State) error {
		for _, p := range s.Players {
			if strings.EqualFold(p.Name, name) {
				return &DuplicateNameError{Name: name}
			}
		}
		id = e.newID()
		p := models.Player{
			ID:     id,
			Name:   name,
			Active: true,
			Pos:    make(map[models.RoleID]int),
		}
		for _, role := range e.formation.All() {
			p.Pos[role] = 0
		}
		s.Players = append(s.Players, p)
		s.SortPlayers()
		syncRoster(s)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RemovePlayer deletes the player and every reference to them.
func (e *Engine) RemovePlayer(id string) error {
	return e.apply(func(s *models.State) error {
		i := slices.IndexFunc(s.Players, func(p models.Player) bool { return p.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
		}
		s.Players = slices.Delete(s.Players, i, i+1)
		s.PrunePlayers(func(other string) bool { return other != id })
		syncRoster(s)
		return nil
	})
}

// ToggleActive flips attendance and returns the new value.
func (e *Engine) ToggleActive(id string) (bool, error) {
	var active bool
	err := e.apply(func(s *models.State) error {
		p, ok := s.Index()[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
		}
		p.Active = !p.Active
		active = p.Active
		syncRoster(s)
		return nil
	})
	return active, err
}

// SetRoleEligibility allows or blocks one role for one player.
func (e *Engine) SetRoleEligibility(id string, role models.RoleID, eligible bool) error {
	if !e.formation.Has(role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return e.apply(func(s *models.State) error {
		p, ok := s.Index()[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
		}
		blocked := slices.DeleteFunc(p.Blocked, func(r models.RoleID) bool { return r == role })
		if !eligible {
			blocked = append(blocked, role)
			slices.Sort(blocked)
		}
		if len(blocked) == 0 {
			blocked = nil
		}
		p.Blocked = blocked
		return nil
	})
}

// RestrictRoles limits a player to roles. No roles lifts the restriction.
func (e *Engine) RestrictRoles(id string, roles ...models.RoleID) error {
	for _, r := range roles {
		if !e.formation.Has(r) {
			return fmt.Errorf("%w: %s", ErrUnknownRole, r)
		}
	}
	return e.apply(func(s *models.State) error {
		p, ok := s.Index()[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
		}
		var allowed []models.RoleID
		if len(roles) > 0 {
			allowed = slices.Clone(roles)
			slices.Sort(allowed)
			allowed = slices.Compact(allowed)
		}
		p.Allowed = allowed
		return nil
	})
}

// ResetPositionsOnly zeroes role and bench counters. Captain counts, roster
// membership, history and the queue are kept.
func (e *Engine) ResetPositionsOnly() {
	_ = e.apply(func(s *models.State) error {
		zeroCounters(s)
		return nil
	})
}

// StartNewGame archives the current game and starts the next one with
// zeroed counters, an empty history, no recent-role memory and a freshly
// shuffled bench queue.
func (e *Engine) StartNewGame() models.GameSummary {
	var summary models.GameSummary
	_ = e.apply(func(s *models.State) error {
		attendance := []string{}
		for _, p := range s.Players {
			if p.Active {
				attendance = append(attendance, p.Name)
			}
		}
		summary = models.GameSummary{
			Game:       s.Game,
			EndedAt:    e.now().UTC(),
			Attendance: attendance,
			Series:     s.Series,
		}
		s.Season = append(s.Season, summary)

		zeroCounters(s)
		s.History = []models.HistoryEntry{}
		s.Recent = map[string]models.RecentRole{}
		s.Series = 0
		s.Game++

		s.Queue = []string{}
		s.ReconcileQueue()
		e.rng.Shuffle(len(s.Queue), func(i, j int) {
			s.Queue[i], s.Queue[j] = s.Queue[j], s.Queue[i]
		})
		return nil
	})
	summary.Attendance = slices.Clone(summary.Attendance)
	return summary
}

func zeroCounters(s *models.State) {
	for i := range s.Players {
		p := &s.Players[i]
		p.Sits = 0
		for role := range p.Pos {
			p.Pos[role] = 0
		}
	}
}

// syncRoster restores the invariants that depend on who is active.
func syncRoster(s *models.State) {
	s.ReconcileQueue()
	rebalanceCaptains(s)
}
