package rotation

import (
	"bytes"
	"errors"
	"testing"

	"github.com/omarshaarawi/flagcoach/internal/models"
)

func TestAddPlayer(t *testing.T) {
	e := newTestEngine(t, 0, 7, 1)
	for _, name := range []string{"Zed", "amy", "  Moe "} {
		if _, err := e.AddPlayer(name); err != nil {
			t.Fatalf("AddPlayer(%q): %v", name, err)
		}
	}

	players := e.Players()
	want := []string{"amy", "Moe", "Zed"}
	for i, p := range players {
		if p.Name != want[i] {
			t.Errorf("players[%d] %q, want %q", i, p.Name, want[i])
		}
		if !p.Active || p.Sits != 0 || p.Captain != 0 {
			t.Errorf("%s should start active with zero counters, got %+v", p.Name, p)
		}
		if len(p.Pos) != len(e.Formation().All()) {
			t.Errorf("%s has %d role counters, want %d", p.Name, len(p.Pos), len(e.Formation().All()))
		}
	}

	queue := e.State().Queue
	if len(queue) != 3 || queue[0] != "p01" || queue[2] != "p03" {
		t.Errorf("queue %v, want players in the order they were added", queue)
	}
}

func TestAddPlayer_Rejects(t *testing.T) {
	e := newTestEngine(t, 2, 7, 1)
	before := export(t, e)

	_, err := e.AddPlayer("AVA")
	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Errorf("got %v, want DuplicateNameError", err)
	}
	var invalid *ValidationError
	if _, err := e.AddPlayer("   "); !errors.As(err, &invalid) {
		t.Errorf("got %v, want ValidationError", err)
	}
	if after := export(t, e); !bytes.Equal(before, after) {
		t.Error("rejected add changed state")
	}
}

func TestToggleActive_ReconcilesQueue(t *testing.T) {
	e := newTestEngine(t, 8, 7, 1)
	mustRun(t, e, models.PhaseOffense)

	active, err := e.ToggleActive("p02")
	if err != nil {
		t.Fatalf("ToggleActive: %v", err)
	}
	if active {
		t.Error("p02 should now be absent")
	}
	queue := e.State().Queue
	for _, id := range queue {
		if id == "p02" {
			t.Fatalf("absent player still queued: %v", queue)
		}
	}
	if len(queue) != 7 {
		t.Errorf("len(queue) %d, want 7", len(queue))
	}

	if active, _ = e.ToggleActive("p02"); !active {
		t.Error("p02 should be back")
	}
	queue = e.State().Queue
	if queue[len(queue)-1] != "p02" {
		t.Errorf("returning player should join the back of the queue, got %v", queue)
	}

	if _, err := e.ToggleActive("missing"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("got %v, want ErrUnknownPlayer", err)
	}
}

func TestRemovePlayer_PurgesReferences(t *testing.T) {
	e := newTestEngine(t, 8, 7, 19)
	if err := e.SetCaptainSeason(2); err != nil {
		t.Fatalf("SetCaptainSeason: %v", err)
	}
	pick, err := e.PickCaptains()
	if err != nil {
		t.Fatalf("PickCaptains: %v", err)
	}
	mustRun(t, e, models.PhaseOffense)
	mustRun(t, e, models.PhaseDefense)

	victim := pick.IDs[0]
	if err := e.RemovePlayer(victim); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}

	state := e.State()
	if _, ok := state.Index()[victim]; ok {
		t.Fatal("player still on roster")
	}
	for _, id := range state.Queue {
		if id == victim {
			t.Error("player still queued")
		}
	}
	if _, ok := state.Recent[victim]; ok {
		t.Error("player still in recent-role memory")
	}
	for _, h := range state.History {
		for _, ids := range [][]string{h.Sitting, h.Playing} {
			for _, id := range ids {
				if id == victim {
					t.Error("player still referenced by history")
				}
			}
		}
		for _, id := range h.Assignments() {
			if id == victim {
				t.Error("player still assigned in history")
			}
		}
		if _, ok := h.RecentBefore[victim]; ok {
			t.Error("player still in history memory snapshot")
		}
	}
	for _, p := range state.Captains.Picks {
		for _, id := range p.IDs {
			if id == victim {
				t.Error("player still in captain picks")
			}
		}
	}

	if err := e.RemovePlayer(victim); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("got %v, want ErrUnknownPlayer", err)
	}
	// Undo still works against the pruned history.
	if _, err := e.Undo(); err != nil {
		t.Errorf("Undo after remove: %v", err)
	}
}

func TestRestrictRoles(t *testing.T) {
	e := newTestEngine(t, 1, 1, 1)
	if err := e.RestrictRoles("p01", "off_wr2", "off_c", "off_c"); err != nil {
		t.Fatalf("RestrictRoles: %v", err)
	}
	p, _ := e.Player("p01")
	if len(p.Allowed) != 2 || p.Allowed[0] != "off_c" || p.Allowed[1] != "off_wr2" {
		t.Errorf("Allowed %v, want [off_c off_wr2]", p.Allowed)
	}
	if err := e.RestrictRoles("p01"); err != nil {
		t.Fatalf("RestrictRoles: %v", err)
	}
	if p, _ = e.Player("p01"); p.Allowed != nil {
		t.Errorf("Allowed %v, want unrestricted", p.Allowed)
	}
	if err := e.RestrictRoles("p01", "punter"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("got %v, want ErrUnknownRole", err)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	e := newTestEngine(t, 10, 7, 31)
	if err := e.SetRoleEligibility("p03", "off_qb", false); err != nil {
		t.Fatalf("SetRoleEligibility: %v", err)
	}
	if err := e.SetCaptainSeason(3); err != nil {
		t.Fatalf("SetCaptainSeason: %v", err)
	}
	if _, err := e.PickCaptains(); err != nil {
		t.Fatalf("PickCaptains: %v", err)
	}
	mustRun(t, e, models.PhaseOffense)
	mustRun(t, e, models.PhaseDefense)
	e.StartNewGame()
	mustRun(t, e, models.PhaseDefense)
	mustRun(t, e, models.PhaseOffense)
	if err := e.RemovePlayer("p07"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}

	data := export(t, e)
	if err := e.ImportSnapshot(data); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if again := export(t, e); !bytes.Equal(data, again) {
		t.Errorf("import/export not a round trip:\nfirst  %s\nsecond %s", data, again)
	}

	other := newTestEngine(t, 0, 3, 99)
	if err := other.ImportSnapshot(data); err != nil {
		t.Fatalf("ImportSnapshot into fresh engine: %v", err)
	}
	if got := export(t, other); !bytes.Equal(data, got) {
		t.Error("fresh engine did not adopt the snapshot exactly")
	}
	if _, err := other.Undo(); err != nil {
		t.Errorf("Undo after import: %v", err)
	}
}

func TestImportSnapshot_RejectsCorruptDocument(t *testing.T) {
	e := newTestEngine(t, 8, 7, 5)
	mustRun(t, e, models.PhaseOffense)
	before := export(t, e)

	bad := bytes.Replace(before, []byte(`"teamSize": 7`), []byte(`"teamSize": 0`), 1)
	var invalid *ValidationError
	if err := e.ImportSnapshot(bad); !errors.As(err, &invalid) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if err := e.ImportSnapshot([]byte("{not json")); !errors.As(err, &invalid) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if after := export(t, e); !bytes.Equal(before, after) {
		t.Error("refused import changed state")
	}
}
