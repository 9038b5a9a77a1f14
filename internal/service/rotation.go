package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/omarshaarawi/flagcoach/internal/models"
	"github.com/omarshaarawi/flagcoach/internal/repository/memory"
	"github.com/omarshaarawi/flagcoach/internal/rotation"
	"github.com/omarshaarawi/flagcoach/internal/snapshot"
)

type Store interface {
	Save(data []byte) error
	Load() ([]byte, error)
}

var ErrPlayerNotFound = errors.New("player not found")

// RotationService is the only owner of the rotation engine. Every change is
// followed by a snapshot written to the cache and the store.
type RotationService struct {
	mu         sync.Mutex
	engine     *rotation.Engine
	cache      *memory.Repository
	store      Store
	configured models.Settings
	dirty      bool
}

// NewRotationService takes the engine's current settings as the configured
// ones; Restore keeps them over whatever a saved snapshot carries.
func NewRotationService(engine *rotation.Engine, cache *memory.Repository, store Store) *RotationService {
	return &RotationService{engine: engine, cache: cache, store: store, configured: engine.Settings()}
}

// Restore loads the stored snapshot, if any, into the engine and then
// applies the configured settings.
func (s *RotationService) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if data == nil {
		slog.Info("No saved snapshot, starting fresh")
		s.persistLocked()
		return nil
	}
	if err := s.engine.ImportSnapshot(data); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	if saved := s.engine.Settings(); saved != s.configured {
		slog.Info("Applying configured settings over snapshot",
			"saved_team_size", saved.TeamSize, "team_size", s.configured.TeamSize,
			"saved_repeat_window", saved.RepeatWindow, "repeat_window", s.configured.RepeatWindow,
			"block_family_repeat", s.configured.BlockFamilyRepeat)
		if err := s.engine.UpdateSettings(s.configured); err != nil {
			return fmt.Errorf("applying configured settings: %w", err)
		}
	}
	state := s.engine.State()
	slog.Info("Snapshot restored", "players", len(state.Players), "game", state.Game, "series", state.Series)
	s.persistLocked()
	return nil
}

func (s *RotationService) persistLocked() {
	data, err := s.engine.ExportSnapshot()
	if err != nil {
		slog.Error("Failed to export snapshot", "error", err)
		return
	}
	if err := s.cache.Save(data); err != nil {
		slog.Error("Failed to cache snapshot", "error", err)
	}
	if err := s.store.Save(data); err != nil {
		s.dirty = true
		slog.Error("Failed to save snapshot", "error", err)
		return
	}
	s.dirty = false
}

// Flush retries a store write that failed earlier. It is a no-op when the
// store is up to date.
func (s *RotationService) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	data, err := s.cache.Load()
	if err != nil || data == nil {
		return fmt.Errorf("no cached snapshot to flush")
	}
	if err := s.store.Save(data); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	s.dirty = false
	slog.Info("Snapshot flushed")
	return nil
}

func (s *RotationService) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ExportSnapshot()
}

func (s *RotationService) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.ImportSnapshot(data); err != nil {
		slog.Warn("Snapshot import refused", "error", err)
		return err
	}
	s.persistLocked()
	slog.Info("Snapshot imported")
	return nil
}

func (s *RotationService) Players() []models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Players()
}

func (s *RotationService) AddPlayer(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.engine.AddPlayer(name); err != nil {
		return "", err
	}
	s.persistLocked()
	slog.Info("Player added", "name", name)
	return fmt.Sprintf("✅ Added *%s*. %d players on the roster.", escape(strings.TrimSpace(name)), len(s.engine.Players())), nil
}

func (s *RotationService) RemovePlayer(query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findPlayerLocked(query)
	if err != nil {
		return "", err
	}
	if err := s.engine.RemovePlayer(p.ID); err != nil {
		return "", err
	}
	s.persistLocked()
	slog.Info("Player removed", "name", p.Name)
	return fmt.Sprintf("🗑 Removed *%s*.", escape(p.Name)), nil
}

func (s *RotationService) ToggleAttendance(query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findPlayerLocked(query)
	if err != nil {
		return "", err
	}
	active, err := s.engine.ToggleActive(p.ID)
	if err != nil {
		return "", err
	}
	s.persistLocked()
	state := s.engine.State()
	if active {
		return fmt.Sprintf("🙋 *%s* is here. %d active.", escape(p.Name), state.ActiveCount()), nil
	}
	return fmt.Sprintf("🚫 *%s* is out. %d active.", escape(p.Name), state.ActiveCount()), nil
}

func (s *RotationService) SetEligibility(query, role string, eligible bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findPlayerLocked(query)
	if err != nil {
		return "", err
	}
	roleID, ok := snapshot.MigrateRoleKey(role, s.engine.Formation())
	if !ok {
		return "", fmt.Errorf("%w: %s", rotation.ErrUnknownRole, role)
	}
	if err := s.engine.SetRoleEligibility(p.ID, roleID, eligible); err != nil {
		return "", err
	}
	s.persistLocked()
	if eligible {
		return fmt.Sprintf("*%s* may play %s again.", escape(p.Name), roleLabel(roleID)), nil
	}
	return fmt.Sprintf("*%s* will not be put at %s.", escape(p.Name), roleLabel(roleID)), nil
}

func (s *RotationService) RunSeries(phase models.Phase) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.engine.RunSeries(phase)
	if err != nil {
		slog.Warn("Series rejected", "phase", phase, "error", err)
		return "", err
	}
	s.persistLocked()
	slog.Info("Series applied", "phase", phase, "series", entry.Series, "open", len(entry.Open), "relaxed", len(entry.Relaxed))
	return s.formatSeries(entry), nil
}

func (s *RotationService) Undo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.engine.Undo()
	if err != nil {
		return "", err
	}
	s.persistLocked()
	slog.Info("Series undone", "phase", entry.Phase, "series", entry.Series)
	return fmt.Sprintf("↩️ Undid series %d (%s).", entry.Series, entry.Phase), nil
}

func (s *RotationService) NewGame() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := s.engine.StartNewGame()
	s.persistLocked()
	slog.Info("New game started", "archived", summary.Game, "series", summary.Series)
	return fmt.Sprintf("🆕 Game %d archived after %d series. Game %d is ready.", summary.Game, summary.Series, summary.Game+1)
}

func (s *RotationService) ResetPositions() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.ResetPositionsOnly()
	s.persistLocked()
	return "🔄 Position and bench counts reset."
}

func (s *RotationService) SetSeason(games int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetCaptainSeason(games); err != nil {
		return "", err
	}
	s.persistLocked()
	plan := s.engine.CaptainPlan()
	parts := make([]string, len(plan.Groups))
	for i, g := range plan.Groups {
		parts[i] = fmt.Sprintf("%d", g)
	}
	return fmt.Sprintf("📅 Captains planned over %d games: %s per game.", games, strings.Join(parts, ", ")), nil
}

func (s *RotationService) PickCaptains() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pick, err := s.engine.PickCaptains()
	if err != nil {
		return "", err
	}
	s.persistLocked()

	names := s.namesLocked()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎖 *Game %d Captains*\n\n", pick.Game))
	for _, id := range pick.IDs {
		sb.WriteString(fmt.Sprintf("• %s\n", names[id]))
	}
	return sb.String(), nil
}

func (s *RotationService) Roster() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.engine.State()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 *Roster* (game %d, series %d)\n\n", state.Game, state.Series))
	if len(state.Players) == 0 {
		sb.WriteString("No players yet. Use /add <name>.")
		return sb.String()
	}
	for _, p := range state.Players {
		mark := "✅"
		if !p.Active {
			mark = "▫️"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* sat %d, captain %d", mark, escape(p.Name), p.Sits, p.Captain))
		if played := playedRoles(p, s.engine.Formation()); played != "" {
			sb.WriteString(" · " + played)
		}
		if len(p.Blocked) > 0 {
			labels := make([]string, len(p.Blocked))
			for i, r := range p.Blocked {
				labels[i] = roleLabel(r)
			}
			sb.WriteString(" · no " + strings.Join(labels, "/"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Bench previews who sits and plays if a series ran now.
func (s *RotationService) Bench() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sitting, playing := s.engine.Lineup()
	names := s.namesLocked()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🪑 *Next series* (team of %d)\n\n", s.engine.Settings().TeamSize))
	sb.WriteString("*Sitting:* " + joinNames(sitting, names) + "\n")
	sb.WriteString("*Playing:* " + joinNames(playing, names) + "\n")
	return sb.String()
}

func (s *RotationService) SeasonSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.engine.State()
	var sb strings.Builder
	sb.WriteString("🏆 *Season So Far*\n\n")
	if len(state.Season) == 0 {
		sb.WriteString("No games archived yet.")
		return sb.String()
	}
	for _, g := range state.Season {
		sb.WriteString(fmt.Sprintf("Game %d (%s): %d series, %d players\n",
			g.Game, g.EndedAt.Format("Jan 2"), g.Series, len(g.Attendance)))
	}
	return sb.String()
}

// GameDayReport is sent before kickoff so the coach can fix attendance.
func (s *RotationService) GameDayReport() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.engine.State()
	var here, out []string
	for _, p := range state.Players {
		if p.Active {
			here = append(here, escape(p.Name))
		} else {
			out = append(out, escape(p.Name))
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏈 *Game Day: game %d*\n\n", state.Game))
	sb.WriteString(fmt.Sprintf("*Marked here (%d):* %s\n", len(here), strings.Join(here, ", ")))
	if len(out) > 0 {
		sb.WriteString(fmt.Sprintf("*Marked out (%d):* %s\n", len(out), strings.Join(out, ", ")))
	}
	if len(here) < state.Settings.TeamSize {
		sb.WriteString(fmt.Sprintf("\n⚠️ Need %d players for a full team.", state.Settings.TeamSize))
	}
	return sb.String()
}

func (s *RotationService) formatSeries(entry models.HistoryEntry) string {
	names := s.namesLocked()
	roles := s.engine.Formation().Roles(entry.Phase)
	assignments := entry.Assignments()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏈 *Series %d: %s*\n\n", entry.Series, titleCase(string(entry.Phase))))
	for _, role := range roles {
		id, ok := assignments[role]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("*%s*: %s\n", roleLabel(role), names[id]))
	}
	if len(entry.Open) > 0 {
		labels := make([]string, len(entry.Open))
		for i, r := range entry.Open {
			labels[i] = roleLabel(r)
		}
		sb.WriteString(fmt.Sprintf("\n*Open:* %s\n", strings.Join(labels, ", ")))
	}
	if len(entry.Sitting) > 0 {
		sb.WriteString(fmt.Sprintf("\n🪑 *Sitting:* %s\n", joinNames(entry.Sitting, names)))
	}
	return sb.String()
}

// namesLocked maps ids to display names escaped for Telegram Markdown.
func (s *RotationService) namesLocked() map[string]string {
	names := make(map[string]string)
	for _, p := range s.engine.Players() {
		names[p.ID] = escape(p.Name)
	}
	return names
}

func (s *RotationService) findPlayerLocked(query string) (models.Player, error) {
	p, ok := matchPlayer(s.engine.Players(), query)
	if !ok {
		return models.Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, query)
	}
	return p, nil
}

// matchPlayer resolves what a coach typed to a roster entry: exact id or
// name first, then the closest name containing the typed letters in order,
// then the closest name by edit distance.
func matchPlayer(players []models.Player, query string) (models.Player, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Player{}, false
	}
	for _, p := range players {
		if p.ID == query || strings.EqualFold(p.Name, query) {
			return p, true
		}
	}

	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	if ranks := fuzzy.RankFindFold(query, names); len(ranks) > 0 {
		sort.Sort(ranks)
		return players[ranks[0].OriginalIndex], true
	}

	var bestMatch *models.Player
	bestScore := 0.0
	threshold := 0.6
	for i, p := range players {
		name := strings.ToLower(p.Name)
		distance := fuzzy.LevenshteinDistance(strings.ToLower(query), name)
		maxLen := float64(max(len(query), len(name)))
		similarity := 1 - float64(distance)/maxLen
		if similarity >= threshold && similarity > bestScore {
			bestScore = similarity
			bestMatch = &players[i]
		}
	}
	if bestMatch == nil {
		return models.Player{}, false
	}
	return *bestMatch, true
}

func playedRoles(p models.Player, f models.Formation) string {
	var parts []string
	for _, role := range f.All() {
		if n := p.Pos[role]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s×%d", roleLabel(role), n))
		}
	}
	return strings.Join(parts, " ")
}

// roleLabel turns "off_wr2" into "WR2".
func roleLabel(role models.RoleID) string {
	label := string(role)
	if i := strings.IndexByte(label, '_'); i >= 0 {
		label = label[i+1:]
	}
	return strings.ToUpper(label)
}

func joinNames(ids []string, names map[string]string) string {
	if len(ids) == 0 {
		return "nobody"
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = names[id]
	}
	return strings.Join(out, ", ")
}

// escape keeps coach-typed names from breaking Markdown replies.
func escape(name string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, name)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
