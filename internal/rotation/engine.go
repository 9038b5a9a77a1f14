// Package rotation assigns formation roles and bench turns for a youth
// flag-football roster, one series at a time.
//
// An Engine owns a single models.State. Every exported operation is one
// state transition: it runs against a copy of the state and the copy only
// replaces the current state when the whole operation succeeded, so callers
// never observe a partly applied command. Engines are not safe for
// concurrent use.
package rotation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omarshaarawi/flagcoach/internal/models"
	"github.com/omarshaarawi/flagcoach/internal/snapshot"
)

type Engine struct {
	formation models.Formation
	rng       Rand
	now       func() time.Time
	newID     func() string
	state     *models.State
}

type Option func(*Engine)

func WithRand(rng Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithFormation(f models.Formation) Option {
	return func(e *Engine) { e.formation = f }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func New(settings models.Settings, opts ...Option) (*Engine, error) {
	e := &Engine{
		formation: models.DefaultFormation(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand(0)
	}
	if err := e.formation.Validate(); err != nil {
		return nil, err
	}
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	e.state = models.NewState(snapshot.CurrentVersion, settings)
	return e, nil
}

func validateSettings(s models.Settings) error {
	if s.TeamSize < 1 {
		return fmt.Errorf("%w: team size must be at least 1, got %d", ErrInvalidSetting, s.TeamSize)
	}
	if s.RepeatWindow < 0 {
		return fmt.Errorf("%w: repeat window must not be negative, got %d", ErrInvalidSetting, s.RepeatWindow)
	}
	return nil
}

// apply runs fn against a copy of the state and adopts the copy only if fn
// succeeds.
func (e *Engine) apply(fn func(s *models.State) error) error {
	next := e.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	e.state = next
	return nil
}

func (e *Engine) Formation() models.Formation {
	return e.formation
}

// State returns a copy of the current state.
func (e *Engine) State() *models.State {
	return e.state.Clone()
}

func (e *Engine) Settings() models.Settings {
	return e.state.Settings
}

func (e *Engine) UpdateSettings(settings models.Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	return e.apply(func(s *models.State) error {
		s.Settings = settings
		return nil
	})
}

// Lineup is who would sit and play if a series ran now.
func (e *Engine) Lineup() (sitting, playing []string) {
	return split(e.state.Queue, e.state.Settings.TeamSize)
}

// RunSeries assigns every role of phase's formation and commits the result.
// Roles nobody can fill are reported in the entry's Open list.
func (e *Engine) RunSeries(phase models.Phase) (models.HistoryEntry, error) {
	if !phase.Valid() {
		return models.HistoryEntry{}, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	roles := e.formation.Roles(phase)

	var entry models.HistoryEntry
	err := e.apply(func(s *models.State) error {
		active := s.ActiveCount()
		if active < s.Settings.TeamSize {
			return &InsufficientPlayersError{Active: active, Needed: s.Settings.TeamSize}
		}

		players := s.Index()
		sitting, playing := split(s.Queue, s.Settings.TeamSize)
		series := s.Series + 1

		assigned := make(map[string]bool, len(playing))
		mapping := make(map[models.RoleID]string, len(roles))
		var open, relaxed []models.RoleID
		for _, role := range roles {
			pool, wasRelaxed := eligiblePool(s, players, poolRequest{
				role:       role,
				candidates: playing,
				assigned:   assigned,
				series:     series,
			})
			id, ok := selectFair(pool, role, players, e.rng)
			if !ok {
				open = append(open, role)
				continue
			}
			if wasRelaxed {
				relaxed = append(relaxed, role)
			}
			assigned[id] = true
			mapping[role] = id
		}

		recentBefore := models.CloneRecent(s.Recent)
		for _, id := range sitting {
			players[id].Sits++
		}
		for role, id := range mapping {
			players[id].Pos[role]++
			s.Recent[id] = models.RecentRole{Family: role.Family(), Series: series}
		}

		advance := advanceBy(len(sitting))
		entry = models.HistoryEntry{
			Phase:        phase,
			Series:       series,
			Sitting:      sitting,
			Playing:      playing,
			Open:         open,
			Relaxed:      relaxed,
			Advance:      advance,
			RecentBefore: recentBefore,
		}
		if phase == models.PhaseOffense {
			entry.Offense = mapping
		} else {
			entry.Defense = mapping
		}
		s.History = append(s.History, entry)
		s.Queue = rotateLeft(s.Queue, advance)
		s.Series = series
		return nil
	})
	if err != nil {
		return models.HistoryEntry{}, err
	}
	return entry.Clone(), nil
}

// Undo reverses the most recent series and returns the entry it removed.
func (e *Engine) Undo() (models.HistoryEntry, error) {
	var undone models.HistoryEntry
	err := e.apply(func(s *models.State) error {
		n := len(s.History)
		if n == 0 {
			return ErrNothingToUndo
		}
		last := s.History[n-1]
		s.History = s.History[:n-1]

		players := s.Index()
		for _, id := range last.Sitting {
			if p, ok := players[id]; ok && p.Sits > 0 {
				p.Sits--
			}
		}
		for role, id := range last.Assignments() {
			if p, ok := players[id]; ok && p.Pos[role] > 0 {
				p.Pos[role]--
			}
		}
		s.Recent = models.CloneRecent(last.RecentBefore)
		s.Queue = rotateRight(s.Queue, last.Advance)
		s.Series = max(0, s.Series-1)
		undone = last
		return nil
	})
	if err != nil {
		return models.HistoryEntry{}, err
	}
	return undone.Clone(), nil
}

func (e *Engine) ExportSnapshot() ([]byte, error) {
	return snapshot.Encode(e.state)
}

// ImportSnapshot replaces the whole state with data. A document that fails
// validation leaves the current state untouched.
func (e *Engine) ImportSnapshot(data []byte) error {
	state, err := snapshot.Decode(data, e.formation)
	if err != nil {
		return err
	}
	syncRoster(state)
	e.state = state
	return nil
}
