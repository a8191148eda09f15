package random

import (
	"fmt"
	"math/rand"
	"sort"
)

// Sample draws one key from a discrete distribution. The probabilities
// must sum to roughly 1; iteration over the map is ordered by key so the
// draw is reproducible for a given rng state.
func Sample[K ~int32 | ~int](rng *rand.Rand, probs map[K]float32) (K, error) {
	keys := make([]K, 0, len(probs))
	var sum float32
	for k, p := range probs {
		keys = append(keys, k)
		sum += p
	}
	if len(keys) == 0 {
		var zero K
		return zero, fmt.Errorf("empty distribution")
	}
	if sum < 0.95 || sum > 1.05 {
		var zero K
		return zero, fmt.Errorf("invalid probs sum %.3f != 1", sum)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	r := rng.Float32() * sum
	var cum float32
	for _, k := range keys {
		cum += probs[k]
		if r < cum {
			return k, nil
		}
	}
	return keys[len(keys)-1], nil
}

// WeightedIndex draws an index proportionally to weights. Total weight
// must be positive.
func WeightedIndex(rng *rand.Rand, weights []float32) int {
	var total float32
	for _, w := range weights {
		total += w
	}
	r := rng.Float32() * total
	var cum float32
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}
