package rotation

import "github.com/omarshaarawi/flagcoach/internal/models"

type poolRequest struct {
	role       models.RoleID
	candidates []string
	assigned   map[string]bool
	series     int
}

// eligiblePool narrows candidates for one role. The anti-repeat step is
// dropped for this pick when it would leave nobody; relaxed reports that.
func eligiblePool(state *models.State, players map[string]*models.Player, req poolRequest) (pool []string, relaxed bool) {
	able := make([]string, 0, len(req.candidates))
	for _, id := range req.candidates {
		if req.assigned[id] {
			continue
		}
		p, ok := players[id]
		if !ok || !p.CanFill(req.role) {
			continue
		}
		able = append(able, id)
	}
	if len(able) == 0 {
		return nil, false
	}

	window := state.Settings.RepeatWindow
	if !state.Settings.BlockFamilyRepeat || window <= 0 {
		return able, false
	}

	family := req.role.Family()
	fresh := make([]string, 0, len(able))
	for _, id := range able {
		if recent, ok := state.Recent[id]; ok && recent.Family == family && req.series-recent.Series <= window {
			continue
		}
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return able, true
	}
	return fresh, false
}
