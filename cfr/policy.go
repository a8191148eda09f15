package cfr

import (
	"holdemcfr/common/f32"
	"holdemcfr/nolimitholdem"
)

// RegretMatch converts predicted regrets into a policy: negative
// regrets are clipped to zero and the remainder normalized over the
// legal actions. All-zero regrets yield the uniform policy.
func RegretMatch(pred []float32, legal []nolimitholdem.Action) nolimitholdem.Strategy {
	clipped := make([]float32, len(legal))
	for i, a := range legal {
		if v := pred[a]; v > 0 {
			clipped[i] = v
		}
	}

	strategy := make(nolimitholdem.Strategy, len(legal))
	if total := f32.Sum(clipped); total > 0 {
		for i, a := range legal {
			strategy[a] = clipped[i] / total
		}
	} else {
		uniform := 1.0 / float32(len(legal))
		for _, a := range legal {
			strategy[a] = uniform
		}
	}
	return strategy
}
