package rotation

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/omarshaarawi/flagcoach/internal/models"
)

// Rand is the randomness the engine draws from. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a ChaCha8-backed source. A zero seed draws one from
// crypto/rand.
func NewRand(seed uint64) *rand.Rand {
	var key [32]byte
	if seed == 0 {
		_, _ = crand.Read(key[:])
	} else {
		binary.LittleEndian.PutUint64(key[:], seed)
	}
	return rand.New(rand.NewChaCha8(key))
}

// selectFair picks the player who has played role the fewest times this
// game. Players who never played it go first; ties are broken uniformly at
// random, never by name or queue order.
func selectFair(pool []string, role models.RoleID, players map[string]*models.Player, rng Rand) (string, bool) {
	if len(pool) == 0 {
		return "", false
	}

	var zero []string
	for _, id := range pool {
		if players[id].Pos[role] == 0 {
			zero = append(zero, id)
		}
	}
	if len(zero) > 0 {
		return zero[rng.IntN(len(zero))], true
	}

	least := players[pool[0]].Pos[role]
	for _, id := range pool[1:] {
		least = min(least, players[id].Pos[role])
	}
	fewest := make([]string, 0, len(pool))
	for _, id := range pool {
		if players[id].Pos[role] == least {
			fewest = append(fewest, id)
		}
	}
	return fewest[rng.IntN(len(fewest))], true
}
