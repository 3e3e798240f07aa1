package infomap

import (
	"math"
	"sync/atomic"
)

var invLog2 = 1.0 / math.Ln2

// Log2 returns the base-2 logarithm of p.
func Log2(p float64) float64 {
	return math.Log(p) * invLog2
}

// negativePlogpArgs counts calls of Plogp with a negative argument. The
// optimizer clamps flow differences, so it stays zero during a run.
var negativePlogpArgs atomic.Int64

// Plogp returns p*log2(p), or 0 when p is not positive.
func Plogp(p float64) float64 {
	if p > 0 {
		return p * Log2(p)
	}
	if p < 0 {
		negativePlogpArgs.Add(1)
	}
	return 0
}

// RandomPermutation returns a shuffled permutation of 0..n-1.
func RandomPermutation(n int, rng *Lcg) []int {
	order := make([]int, n)
	shuffleIndices(order, rng)
	return order
}

// shuffleIndices fills order with 0..len(order)-1 and shuffles it in place.
// The draw sequence matches NextIntn(size-i-1) for every position, including
// the last one.
func shuffleIndices(order []int, rng *Lcg) {
	size := len(order)
	for i := range order {
		order[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + rng.NextIntn(size-i-1)
		order[i], order[j] = order[j], order[i]
	}
}
