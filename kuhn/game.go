// Package kuhn implements three-card Kuhn poker on the same traversal
// surface as the full game. Its equilibrium is known in closed form,
// which makes it the reference workload for solver correctness.
package kuhn

import (
	"hash/fnv"
	"math/rand"

	"holdemcfr/cfr"
	"holdemcfr/nolimitholdem"
)

// Card values: 0 jack, 1 queen, 2 king.
const NumCards = 3

// Game is one heads-up Kuhn hand. Both players ante one chip; the
// only sizing is a one-chip bet, mapped onto the pot-raise slot of the
// shared action set.
type Game struct {
	rng     *rand.Rand
	cards   [2]int
	history []nolimitholdem.Action
}

func NewGame(seed int64) *Game {
	return &Game{rng: rand.New(rand.NewSource(seed))}
}

// SetCards fixes the deal, for exhaustive evaluation.
func (g *Game) SetCards(c0, c1 int) {
	g.cards = [2]int{c0, c1}
	g.history = g.history[:0]
}

// setHole swaps one seat's card without touching the history, so the
// best-response walk can evaluate the same public line under every
// hidden holding.
func (g *Game) setHole(player, card int) {
	g.cards[player] = card
}

func (g *Game) Reset() {
	c0 := g.rng.Intn(NumCards)
	c1 := g.rng.Intn(NumCards - 1)
	if c1 >= c0 {
		c1++
	}
	g.SetCards(c0, c1)
}

func (g *Game) NumPlayers() int    { return 2 }
func (g *Game) CurrentPlayer() int { return len(g.history) % 2 }

func (g *Game) IsOver() bool {
	n := len(g.history)
	if n < 2 {
		return false
	}
	last := g.history[n-1]
	if last == nolimitholdem.ACTION_FOLD {
		return true
	}
	// A call closes a bet; two checks close the hand.
	if last == nolimitholdem.ACTION_CHECK_CALL {
		return g.history[n-2] == nolimitholdem.ACTION_RAISE_POT || n == 2
	}
	return false
}

func (g *Game) Payoffs() []float32 {
	n := len(g.history)
	last := g.history[n-1]

	if last == nolimitholdem.ACTION_FOLD {
		// The folder loses the ante.
		folder := (n - 1) % 2
		out := []float32{1, 1}
		out[folder] = -1
		out[1-folder] = 1
		return out
	}

	// Showdown. Pot per player is the ante plus one if a bet was
	// called.
	stake := float32(1)
	for _, a := range g.history {
		if a == nolimitholdem.ACTION_RAISE_POT {
			stake = 2
			break
		}
	}
	if g.cards[0] > g.cards[1] {
		return []float32{stake, -stake}
	}
	return []float32{-stake, stake}
}

func (g *Game) InfoSet(player int) *cfr.InfoSet {
	h := fnv.New64a()
	for _, a := range g.history {
		h.Write([]byte{byte(a)})
	}

	vec := make([]float32, NumCards+3)
	vec[g.cards[player]] = 1
	for i, a := range g.history {
		if i >= 3 {
			break
		}
		vec[NumCards+i] = (float32(a) + 1) / float32(nolimitholdem.NUM_ACTIONS)
	}

	return &cfr.InfoSet{
		Key: cfr.Key{
			Player:      uint8(player),
			HoleBucket:  uint16(g.cards[player]),
			HistoryHash: h.Sum64(),
		},
		Vector: vec,
		Legal:  g.legal(),
	}
}

func (g *Game) legal() []nolimitholdem.Action {
	if len(g.history) > 0 && g.history[len(g.history)-1] == nolimitholdem.ACTION_RAISE_POT {
		return []nolimitholdem.Action{nolimitholdem.ACTION_FOLD, nolimitholdem.ACTION_CHECK_CALL}
	}
	return []nolimitholdem.Action{nolimitholdem.ACTION_CHECK_CALL, nolimitholdem.ACTION_RAISE_POT}
}

func (g *Game) Step(a nolimitholdem.Action) {
	g.history = append(g.history, a)
}

func (g *Game) StepBack() {
	g.history = g.history[:len(g.history)-1]
}
