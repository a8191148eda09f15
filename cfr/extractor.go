package cfr

import (
	"math/rand"

	"holdemcfr/nolimitholdem"
)

// Extractor reconstructs playable policies from the per-player
// snapshot arenas. The average policy is obtained without a separate
// strategy network: a historical snapshot is drawn with probability
// proportional to its iteration weight and regret-matched in place.
type Extractor struct {
	arenas []*SnapshotArena
	rng    *rand.Rand
}

func NewExtractor(seed int64, arenas []*SnapshotArena) *Extractor {
	return &Extractor{
		arenas: arenas,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// CurrentPolicy regret-matches the newest snapshot of the acting
// player. Before any snapshot exists the policy is uniform.
func (e *Extractor) CurrentPolicy(is *InfoSet) nolimitholdem.Strategy {
	model := e.arenas[is.Key.Player].Latest()
	if model == nil {
		return uniform(is.Legal)
	}
	return RegretMatch(model.Predict(is), is.Legal)
}

// AveragePolicy draws one weighted snapshot and regret-matches it.
// Each call resamples, so repeated play through this method realizes
// the average strategy in expectation.
func (e *Extractor) AveragePolicy(is *InfoSet) nolimitholdem.Strategy {
	model := e.arenas[is.Key.Player].Sample(e.rng)
	if model == nil {
		return uniform(is.Legal)
	}
	return RegretMatch(model.Predict(is), is.Legal)
}

// AveragePolicyN averages draws explicit snapshot policies and
// renormalizes, trading reconstruction noise for compute.
func (e *Extractor) AveragePolicyN(is *InfoSet, draws int) nolimitholdem.Strategy {
	if draws <= 0 {
		draws = 1
	}
	arena := e.arenas[is.Key.Player]
	if arena.Len() == 0 {
		return uniform(is.Legal)
	}

	acc := make(nolimitholdem.Strategy, len(is.Legal))
	for i := 0; i < draws; i++ {
		model := arena.Sample(e.rng)
		for a, p := range RegretMatch(model.Predict(is), is.Legal) {
			acc[a] += p
		}
	}
	total := float32(0)
	for _, p := range acc {
		total += p
	}
	for a := range acc {
		acc[a] /= total
	}
	return acc
}

func uniform(legal []nolimitholdem.Action) nolimitholdem.Strategy {
	strategy := make(nolimitholdem.Strategy, len(legal))
	p := 1.0 / float32(len(legal))
	for _, a := range legal {
		strategy[a] = p
	}
	return strategy
}
