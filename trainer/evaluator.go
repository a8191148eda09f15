package trainer

import (
	"math/rand"

	"holdemcfr/cfr"
	"holdemcfr/nolimitholdem"
)

// estimateExploitability plays sampled hands where one seat responds
// greedily to its own advantage estimates while the others follow the
// reconstructed average policy, and reports the responder's mean
// winnings in big blinds per hand, averaged over responder seats. A
// full best response is intractable at this tree size; the greedy
// responder gives a cheap lower-bound trend that is comparable across
// evaluations of the same run.
func (o *Orchestrator) estimateExploitability() float64 {
	hands := o.cfg.Train.EvalHands
	if hands <= 0 {
		hands = 1000
	}
	n := o.cfg.Game.NumPlayers
	perSeat := hands / n
	if perSeat == 0 {
		perSeat = 1
	}

	seed := o.cfg.Game.Seed + int64(o.Iteration())
	extractor := cfr.NewExtractor(seed, o.arenas)
	rng := rand.New(rand.NewSource(seed + 7))

	game := nolimitholdem.NewGame(nolimitholdem.GameConfig{
		RandomSeed:         seed + 13,
		ChipsForEach:       o.cfg.Game.ChipsForEach,
		NumPlayers:         n,
		SmallBlindChips:    o.cfg.Game.SmallBlindChips,
		MaxRaisesPerStreet: o.cfg.Game.MaxRaisesPerStreet,
	})
	tree := cfr.NewHoldemTree(game, o.encoder)

	var total float64
	for responder := 0; responder < n; responder++ {
		for h := 0; h < perSeat; h++ {
			total += float64(o.playEvalHand(tree, extractor, rng, responder))
		}
	}
	return total / float64(perSeat*n)
}

// playEvalHand runs one hand to completion and returns the responder's
// payoff in big blinds.
func (o *Orchestrator) playEvalHand(tree *cfr.HoldemTree, extractor *cfr.Extractor, rng *rand.Rand, responder int) float32 {
	tree.Reset()
	for !tree.IsOver() {
		player := tree.CurrentPlayer()
		is := tree.InfoSet(player)

		var action nolimitholdem.Action
		if player == responder {
			action = greedyAction(o.nets[player].Predict(is), is.Legal)
		} else {
			action = sampleStrategy(rng, extractor.AveragePolicy(is), is.Legal)
		}
		tree.Step(action)
	}
	return tree.Payoffs()[responder]
}

func greedyAction(pred []float32, legal []nolimitholdem.Action) nolimitholdem.Action {
	best := legal[0]
	for _, a := range legal[1:] {
		if pred[a] > pred[best] {
			best = a
		}
	}
	return best
}

func sampleStrategy(rng *rand.Rand, strategy nolimitholdem.Strategy, legal []nolimitholdem.Action) nolimitholdem.Action {
	r := rng.Float32()
	var cum float32
	for _, a := range legal {
		cum += strategy[a]
		if r < cum {
			return a
		}
	}
	return legal[len(legal)-1]
}
