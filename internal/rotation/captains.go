package rotation

import (
	"fmt"
	"slices"

	"github.com/omarshaarawi/flagcoach/internal/models"
)

// CaptainGroups splits players into games groups whose sizes differ by at
// most one, larger groups last. The sizes always sum to players.
func CaptainGroups(players, games int) []int {
	if games < 1 {
		return []int{}
	}
	players = max(0, players)
	base, extra := players/games, players%games
	groups := make([]int, games)
	for i := range groups {
		groups[i] = base
		if i >= games-extra {
			groups[i]++
		}
	}
	return groups
}

// SeasonPlan is the number of captaincies each player should get if every
// game names perGame captains.
func SeasonPlan(players, games, perGame int) int {
	if players < 1 || games < 1 || perGame < 1 {
		return 0
	}
	total := games * perGame
	return (total + players - 1) / players
}

// SetCaptainSeason plans captaincies so the active roster is covered over
// the next games games.
func (e *Engine) SetCaptainSeason(games int) error {
	if games < 1 {
		return fmt.Errorf("%w: games remaining must be at least 1, got %d", ErrInvalidSetting, games)
	}
	return e.apply(func(s *models.State) error {
		s.Captains.GamesRemaining = games
		s.Captains.Groups = CaptainGroups(s.ActiveCount(), games)
		s.Captains.Next = 0
		return nil
	})
}

func (e *Engine) CaptainPlan() models.CaptainPlan {
	return e.state.Captains.Clone()
}

// PickCaptains names the next group of captains among active players,
// preferring those who have captained least. When every group has been
// used the plan starts a new cycle. Each pick names at least one captain.
func (e *Engine) PickCaptains() (models.CaptainPick, error) {
	var pick models.CaptainPick
	err := e.apply(func(s *models.State) error {
		plan := &s.Captains
		if plan.GamesRemaining < 1 || len(plan.Groups) == 0 {
			return ErrNoCaptainPlan
		}
		active := make([]*models.Player, 0, len(s.Players))
		for i := range s.Players {
			if s.Players[i].Active {
				active = append(active, &s.Players[i])
			}
		}
		if len(active) == 0 {
			return &InsufficientPlayersError{Active: 0, Needed: 1}
		}

		if plan.Next >= len(plan.Groups) {
			plan.Next = 0
		}
		want := min(max(1, plan.Groups[plan.Next]), len(active))
		plan.Next++

		e.rng.Shuffle(len(active), func(i, j int) {
			active[i], active[j] = active[j], active[i]
		})
		slices.SortStableFunc(active, func(a, b *models.Player) int {
			return a.Captain - b.Captain
		})

		pick = models.CaptainPick{Game: s.Game, IDs: make([]string, 0, want)}
		for _, p := range active[:want] {
			p.Captain++
			pick.IDs = append(pick.IDs, p.ID)
		}
		plan.Picks = append(plan.Picks, pick)
		return nil
	})
	if err != nil {
		return models.CaptainPick{}, err
	}
	return models.CaptainPick{Game: pick.Game, IDs: slices.Clone(pick.IDs)}, nil
}

// ResetCaptains zeroes every captain count and forgets past picks. The plan
// itself is kept.
func (e *Engine) ResetCaptains() {
	_ = e.apply(func(s *models.State) error {
		for i := range s.Players {
			s.Players[i].Captain = 0
		}
		s.Captains.Picks = []models.CaptainPick{}
		s.Captains.Next = 0
		return nil
	})
}

// rebalanceCaptains rebuilds the groups when the active count no longer
// matches them.
func rebalanceCaptains(s *models.State) {
	plan := &s.Captains
	if plan.GamesRemaining < 1 {
		return
	}
	active := s.ActiveCount()
	total := 0
	for _, g := range plan.Groups {
		total += g
	}
	if total == active && len(plan.Groups) == plan.GamesRemaining {
		return
	}
	plan.Groups = CaptainGroups(active, plan.GamesRemaining)
	plan.Next = min(plan.Next, len(plan.Groups))
}
