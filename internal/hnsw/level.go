package hnsw

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/vsearch/persistence"
)

// levelGenerator draws node levels from floor(-ln(u) / ln(M)).
type levelGenerator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	mult float64
}

func newLevelGenerator(m int, src rand.Source, seed *int64) *levelGenerator {
	if src == nil {
		if seed != nil {
			src = rand.NewSource(*seed)
		} else {
			src = rand.NewSource(time.Now().UnixNano())
		}
	}
	// ln(1) is zero; M=1 uses the M=2 distribution.
	base := float64(max(m, 2))
	return &levelGenerator{
		rng:  rand.New(src),
		mult: 1 / math.Log(base),
	}
}

func (lg *levelGenerator) next() int {
	lg.mu.Lock()
	u := 1 - lg.rng.Float64() // (0, 1]
	lg.mu.Unlock()

	level := int(math.Floor(-math.Log(u) * lg.mult))
	return min(level, persistence.MaxLevel)
}

// skip discards n draws. A seeded generator then continues exactly where a
// generator that produced n levels left off.
func (lg *levelGenerator) skip(n int) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	for range n {
		lg.rng.Float64()
	}
}
