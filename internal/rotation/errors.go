package rotation

import (
	"errors"
	"fmt"

	"github.com/omarshaarawi/flagcoach/internal/snapshot"
)

var (
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrUnknownRole    = errors.New("unknown role")
	ErrUnknownPhase   = errors.New("unknown phase")
	ErrNoCaptainPlan  = errors.New("captain plan not set")
	ErrInvalidSetting = errors.New("invalid setting")
)

// ValidationError is returned when an imported snapshot is refused.
type ValidationError = snapshot.ValidationError

type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a player named %q is already on the roster", e.Name)
}

type InsufficientPlayersError struct {
	Active int
	Needed int
}

func (e *InsufficientPlayersError) Error() string {
	return fmt.Sprintf("need %d active players, have %d", e.Needed, e.Active)
}
