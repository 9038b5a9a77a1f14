package snapshot

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/omarshaarawi/flagcoach/internal/models"
)

// Version 1 documents were written before role ids carried a phase prefix
// and before history was undoable across reloads.
type legacyPlayer struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Active       *bool          `json:"active"`
	Sits         int            `json:"sits"`
	Pos          map[string]int `json:"pos"`
	CanQB        *bool          `json:"canQB"`
	CaptainCount int            `json:"captainCount"`
}

type legacyState struct {
	Players     []legacyPlayer `json:"players"`
	BenchQueue  []string       `json:"benchQueue"`
	SeriesCount int            `json:"seriesCount"`
	TeamSize    int            `json:"teamSize"`
	GameNumber  int            `json:"gameNumber"`
}

var legacyRoleKeys = map[string]models.RoleID{
	"QB":   "off_qb",
	"C":    "off_c",
	"RB":   "off_rb",
	"WR1":  "off_wr1",
	"WR2":  "off_wr2",
	"WR3":  "off_wr3",
	"TE":   "off_te",
	"RUSH": "def_rush",
	"MLB":  "def_mlb",
	"LB":   "def_lb",
	"CB1":  "def_cb1",
	"CB2":  "def_cb2",
	"S1":   "def_s1",
	"S2":   "def_s2",
}

// legacyNamespace seeds deterministic ids for v1 players saved without one.
var legacyNamespace = uuid.MustParse("9b7c2f3e-4d8a-4f61-9a43-6f0e3c1d2b7a")

// MigrateRoleKey maps a legacy role key to the current id. Keys that are
// already current pass through; unknown keys report false.
func MigrateRoleKey(key string, formation models.Formation) (models.RoleID, bool) {
	if formation.Has(models.RoleID(key)) {
		return models.RoleID(key), true
	}
	role, ok := legacyRoleKeys[strings.ToUpper(strings.TrimSpace(key))]
	if !ok || !formation.Has(role) {
		return "", false
	}
	return role, true
}

// upgradeV1 carries over roster, counters and queue order. Legacy history
// and recent-role memory are dropped.
func upgradeV1(data []byte, formation models.Formation) (*models.State, error) {
	var legacy legacyState
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, invalid("", "malformed legacy document: %v", err)
	}

	settings := models.DefaultSettings()
	if legacy.TeamSize > 0 {
		settings.TeamSize = legacy.TeamSize
	}

	state := models.NewState(CurrentVersion, settings)
	state.Series = legacy.SeriesCount
	if legacy.GameNumber > 0 {
		state.Game = legacy.GameNumber
	}

	for _, lp := range legacy.Players {
		id := strings.TrimSpace(lp.ID)
		if id == "" {
			id = uuid.NewSHA1(legacyNamespace, []byte(strings.ToLower(strings.TrimSpace(lp.Name)))).String()
		}
		p := models.Player{
			ID:      id,
			Name:    lp.Name,
			Active:  lp.Active == nil || *lp.Active,
			Sits:    lp.Sits,
			Pos:     make(map[models.RoleID]int),
			Captain: lp.CaptainCount,
		}
		for key, n := range lp.Pos {
			if role, ok := MigrateRoleKey(key, formation); ok {
				p.Pos[role] += n
			}
		}
		if lp.CanQB != nil && !*lp.CanQB && formation.Has("off_qb") {
			p.Blocked = append(p.Blocked, "off_qb")
		}
		state.Players = append(state.Players, p)
	}
	if legacy.BenchQueue != nil {
		state.Queue = legacy.BenchQueue
	}
	return state, nil
}
