package monkey

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultChance - 0.1% error chance
const DefaultChance = 0.001

// Error is returned by an injected failure.
type Error struct{}

func (Error) Error() string {
	return "monkey error"
}

// Monkey injects random failures, safe for concurrent use.
type Monkey struct {
	mu     sync.Mutex
	chance float64
	rnd    *rand.Rand
}

// New returns a Monkey failing with the given probability, values outside
// (0, 1] fall back to DefaultChance.
func New(chance float64, seed int64) *Monkey {
	if chance <= 0 || chance > 1 {
		chance = DefaultChance
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Monkey{
		chance: chance,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

// RandomizeError with some probability replaces a nil err with Error.
func (m *Monkey) RandomizeError(err error) error {
	if err != nil {
		return err
	}
	m.mu.Lock()
	roll := m.rnd.Float64()
	m.mu.Unlock()
	if roll >= m.chance {
		return nil
	}
	return Error{}
}
