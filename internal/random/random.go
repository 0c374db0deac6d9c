package random

import (
	"math/rand"
	"sync"
	"time"
)

// Join codes avoid ambiguous characters (0/O, 1/I/L)
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// Generator provides shuffling, uniform picks and join codes.
// Safe for concurrent use; rand.Rand itself is not.
type Generator struct {
	mu     sync.Mutex
	random *rand.Rand
}

// Config for the generator
type Config struct {
	// Optional seed for testing
	Seed int64
}

// New creates a new generator
func New(cfg *Config) *Generator {
	var seed int64
	if cfg != nil && cfg.Seed != 0 {
		seed = cfg.Seed
	} else {
		seed = time.Now().UnixNano()
	}

	source := rand.NewSource(seed)

	return &Generator{
		random: rand.New(source),
	}
}

// Shuffle returns a new slice with the ids in random order
func (g *Generator) Shuffle(ids []string) []string {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.random.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}

// Pick returns one id chosen uniformly at random, or empty for no ids
func (g *Generator) Pick(ids []string) string {
	if len(ids) == 0 {
		return ""
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return ids[g.random.Intn(len(ids))]
}

// JoinCode generates a human-typeable room code of the given length
func (g *Generator) JoinCode(length int) string {
	if length < 1 {
		length = 5
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	code := make([]byte, length)
	for i := range code {
		code[i] = codeAlphabet[g.random.Intn(len(codeAlphabet))]
	}

	return string(code)
}
