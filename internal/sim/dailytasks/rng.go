package dailytasks

import (
	"fmt"
	"hash/fnv"
	"math"
)

// RNG is a mulberry32 generator. The whole sequence is a function of the
// seed string, so a rotation can be replayed exactly.
type RNG struct {
	state uint32
}

func NewRNG(seed string) *RNG {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return &RNG{state: h.Sum32()}
}

// Float64 returns a value in [0, 1).
func (r *RNG) Float64() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return float64(t^t>>14) / 4294967296.0
}

// Intn returns a value in [0, n). n <= 0 yields 0.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// SeedFor salts the day key with the reroll index, the tier and the order
// of magnitude of the prestige multiplier.
func SeedFor(dateKey string, reroll, tier int, prestigeMult float64) string {
	return fmt.Sprintf("%s|r%d|t%d|p%d", dateKey, reroll, tier, prestigeBucket(prestigeMult))
}

func prestigeBucket(m float64) int {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 1 {
		return 0
	}
	return int(math.Floor(math.Log10(m)))
}
