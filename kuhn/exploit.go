package kuhn

import (
	"holdemcfr/cfr"
	"holdemcfr/nolimitholdem"
)

// Policy maps an infoset to an action distribution.
type Policy func(is *cfr.InfoSet) nolimitholdem.Strategy

// Exploitability computes how much a best responder wins on average
// against the policy, in chips per hand, exactly over all deals. The
// responder sees only its own card and the betting line; the hidden
// card is marginalized over the opponent's reach weights. Zero at a
// Nash equilibrium.
func Exploitability(policy Policy) float32 {
	var total float32
	for exploiter := 0; exploiter < 2; exploiter++ {
		var br float32
		for card := 0; card < NumCards; card++ {
			weights := make([]float32, NumCards)
			for opp := 0; opp < NumCards; opp++ {
				if opp != card {
					weights[opp] = 1.0 / float32(NumCards-1)
				}
			}
			br += bestResponse(NewGame(0), policy, exploiter, card, weights)
		}
		total += br / NumCards
	}
	return total / 2
}

// bestResponse returns the exploiter's reach-weighted expected payoff
// from the current history. weights[c] carries the joint probability
// that the opponent holds c and played to reach this node; at exploiter
// nodes the maximum is taken once across the whole weight vector, which
// is exactly a per-infoset choice.
func bestResponse(g *Game, policy Policy, exploiter, card int, weights []float32) float32 {
	if g.IsOver() {
		var ev float32
		g.setHole(exploiter, card)
		for opp, w := range weights {
			if w == 0 {
				continue
			}
			g.setHole(1-exploiter, opp)
			ev += w * g.Payoffs()[exploiter]
		}
		return ev
	}

	player := g.CurrentPlayer()

	if player == exploiter {
		g.setHole(exploiter, card)
		is := g.InfoSet(player)
		best := float32(0)
		first := true
		for _, a := range is.Legal {
			g.Step(a)
			v := bestResponse(g, policy, exploiter, card, weights)
			g.StepBack()
			if first || v > best {
				best = v
				first = false
			}
		}
		return best
	}

	// Opponent node: each hidden card advances with its own strategy,
	// scaling that card's reach weight.
	var ev float32
	for _, a := range g.legal() {
		child := make([]float32, len(weights))
		live := false
		for opp, w := range weights {
			if w == 0 {
				continue
			}
			g.setHole(player, opp)
			if p := policy(g.InfoSet(player))[a]; p > 0 {
				child[opp] = w * p
				live = true
			}
		}
		if !live {
			continue
		}
		g.Step(a)
		ev += bestResponse(g, policy, exploiter, card, child)
		g.StepBack()
	}
	return ev
}
