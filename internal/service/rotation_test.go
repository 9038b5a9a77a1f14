package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/omarshaarawi/flagcoach/internal/models"
	"github.com/omarshaarawi/flagcoach/internal/repository/memory"
	"github.com/omarshaarawi/flagcoach/internal/rotation"
)

type fakeStore struct {
	data []byte
	fail bool
}

func (f *fakeStore) Save(data []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	f.data = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) Load() ([]byte, error) {
	return f.data, nil
}

func newTestService(t *testing.T, store Store, teamSize int) *RotationService {
	t.Helper()
	n := 0
	settings := models.DefaultSettings()
	settings.TeamSize = teamSize
	engine, err := rotation.New(settings,
		rotation.WithRand(rotation.NewRand(7)),
		rotation.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("p%02d", n)
		}),
	)
	if err != nil {
		t.Fatalf("rotation.New: %v", err)
	}
	return NewRotationService(engine, memory.NewRepository(), store)
}

func addAll(t *testing.T, s *RotationService, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := s.AddPlayer(name); err != nil {
			t.Fatalf("AddPlayer(%s): %v", name, err)
		}
	}
}

func TestMatchPlayer(t *testing.T) {
	players := []models.Player{
		{ID: "p01", Name: "Ava"},
		{ID: "p02", Name: "Ben"},
		{ID: "p03", Name: "Cora"},
		{ID: "p04", Name: "Jonah"},
	}
	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"p02", "Ben", true},
		{"cora", "Cora", true},
		{" AVA ", "Ava", true},
		{"cor", "Cora", true},
		{"jon", "Jonah", true},
		{"Bem", "Ben", true},
		{"zzz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := matchPlayer(players, tt.query)
			if ok != tt.ok || got.Name != tt.want {
				t.Errorf("matchPlayer(%q) = %q, %t; want %q, %t", tt.query, got.Name, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRotationService_PersistsEveryChange(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(t, store, 2)
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if store.data == nil {
		t.Fatal("fresh start should write an initial snapshot")
	}

	addAll(t, s, "Ava", "Ben", "Cora")
	report, err := s.RunSeries(models.PhaseOffense)
	if err != nil {
		t.Fatalf("RunSeries: %v", err)
	}
	if !strings.Contains(report, "Series 1: Offense") {
		t.Errorf("report missing header:\n%s", report)
	}
	if !strings.Contains(report, "Sitting:") {
		t.Errorf("report missing bench line:\n%s", report)
	}

	want, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.Equal(store.data, want) {
		t.Error("store is behind the engine")
	}

	restored := newTestService(t, store, 2)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := restored.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("restored snapshot differs\ngot  %s\nwant %s", got, want)
	}
}

func TestRotationService_RestoreKeepsConfiguredSettings(t *testing.T) {
	store := &fakeStore{}
	saved := newTestService(t, store, 7)
	addAll(t, saved, "Ava", "Ben", "Cora", "Dev", "Eli", "Finn", "Gus")
	if _, err := saved.RunSeries(models.PhaseOffense); err != nil {
		t.Fatalf("RunSeries: %v", err)
	}

	engine, err := rotation.New(models.Settings{TeamSize: 5, RepeatWindow: 0, BlockFamilyRepeat: false})
	if err != nil {
		t.Fatalf("rotation.New: %v", err)
	}
	restarted := NewRotationService(engine, memory.NewRepository(), store)
	if err := restarted.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	want := models.Settings{TeamSize: 5, RepeatWindow: 0, BlockFamilyRepeat: false}
	if got := engine.Settings(); got != want {
		t.Errorf("settings after restore %+v, want %+v", got, want)
	}
	state := engine.State()
	if state.Series != 1 || len(state.Players) != 7 {
		t.Errorf("series %d players %d, want the saved game kept", state.Series, len(state.Players))
	}
	if !strings.Contains(string(store.data), `"teamSize": 5`) {
		t.Error("configured settings were not persisted")
	}
	if !strings.Contains(restarted.Bench(), "team of 5") {
		t.Errorf("bench preview ignores the configured team size:\n%s", restarted.Bench())
	}
}

func TestRotationService_EscapesNames(t *testing.T) {
	s := newTestService(t, &fakeStore{}, 1)
	msg, err := s.AddPlayer("Jo_Jo*")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if !strings.Contains(msg, `*Jo\_Jo\**`) {
		t.Errorf("name not escaped in reply: %s", msg)
	}
	report, err := s.RunSeries(models.PhaseOffense)
	if err != nil {
		t.Fatalf("RunSeries: %v", err)
	}
	if !strings.Contains(report, `Jo\_Jo\*`) || strings.Contains(report, "Jo_Jo") {
		t.Errorf("series card leaks raw Markdown:\n%s", report)
	}
	if !strings.Contains(s.Roster(), `Jo\_Jo\*`) {
		t.Errorf("roster leaks raw Markdown:\n%s", s.Roster())
	}
}

func TestRotationService_FlushRetriesFailedSave(t *testing.T) {
	store := &fakeStore{fail: true}
	s := newTestService(t, store, 2)
	addAll(t, s, "Ava")

	if err := s.Flush(); err == nil {
		t.Fatal("Flush should fail while the store is failing")
	}
	store.fail = false
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want, _ := s.Export()
	if !bytes.Equal(store.data, want) {
		t.Error("flush did not write the latest snapshot")
	}
	if err := s.Flush(); err != nil {
		t.Errorf("Flush with nothing pending: %v", err)
	}
}

func TestRotationService_Commands(t *testing.T) {
	s := newTestService(t, &fakeStore{}, 2)
	addAll(t, s, "Ava", "Ben", "Cora")

	if _, err := s.RemovePlayer("Zed"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("RemovePlayer(Zed): got %v, want ErrPlayerNotFound", err)
	}
	if _, err := s.AddPlayer("ava"); err == nil {
		t.Error("duplicate name accepted")
	}

	msg, err := s.ToggleAttendance("cor")
	if err != nil {
		t.Fatalf("ToggleAttendance: %v", err)
	}
	if !strings.Contains(msg, "Cora") || !strings.Contains(msg, "2 active") {
		t.Errorf("unexpected attendance reply: %s", msg)
	}

	if _, err := s.SetEligibility("Ava", "qb", false); err != nil {
		t.Fatalf("SetEligibility: %v", err)
	}
	if _, err := s.SetEligibility("Ava", "kicker", false); !errors.Is(err, rotation.ErrUnknownRole) {
		t.Errorf("unknown role: got %v, want ErrUnknownRole", err)
	}
	if !strings.Contains(s.Roster(), "no QB") {
		t.Errorf("roster does not show the block:\n%s", s.Roster())
	}

	if _, err := s.Undo(); !errors.Is(err, rotation.ErrNothingToUndo) {
		t.Errorf("Undo on empty history: got %v", err)
	}
	if _, err := s.RunSeries(models.PhaseDefense); err != nil {
		t.Fatalf("RunSeries: %v", err)
	}
	if msg, err := s.Undo(); err != nil || !strings.Contains(msg, "series 1") {
		t.Errorf("Undo = %q, %v", msg, err)
	}

	if _, err := s.PickCaptains(); !errors.Is(err, rotation.ErrNoCaptainPlan) {
		t.Errorf("PickCaptains without plan: got %v", err)
	}
	if _, err := s.SetSeason(2); err != nil {
		t.Fatalf("SetSeason: %v", err)
	}
	msg, err = s.PickCaptains()
	if err != nil {
		t.Fatalf("PickCaptains: %v", err)
	}
	if !strings.Contains(msg, "Game 1 Captains") {
		t.Errorf("unexpected captains reply: %s", msg)
	}

	if msg := s.NewGame(); !strings.Contains(msg, "Game 2 is ready") {
		t.Errorf("unexpected new game reply: %s", msg)
	}
	if !strings.Contains(s.SeasonSummary(), "Game 1") {
		t.Errorf("season summary missing game 1:\n%s", s.SeasonSummary())
	}
}

func TestRoleLabel(t *testing.T) {
	if got := roleLabel("off_wr2"); got != "WR2" {
		t.Errorf("roleLabel(off_wr2) = %q", got)
	}
	if got := roleLabel("def_rush"); got != "RUSH" {
		t.Errorf("roleLabel(def_rush) = %q", got)
	}
}
