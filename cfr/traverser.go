package cfr

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"holdemcfr/common/random"
	"holdemcfr/nolimitholdem"
)

type Stats struct {
	NodesVisited   atomic.Int64
	TreesTraversed atomic.Int64
}

// Traverser walks one game per call using external sampling: chance
// outcomes and opponent actions are sampled, while every legal action
// of the traversing player is explored to produce one regret sample
// per decision point. Recursion depth is statically bounded by the
// raise cap and the street count.
type Traverser struct {
	tree   GameTree
	actors []Actor
	sink   SampleSink
	stats  *Stats
	rng    *rand.Rand
}

func New(seed int64, tree GameTree, actors []Actor, sink SampleSink, stats *Stats) *Traverser {
	if len(actors) != tree.NumPlayers() {
		panic(fmt.Sprintf("cfr: %d actors for %d players", len(actors), tree.NumPlayers()))
	}
	return &Traverser{
		tree:   tree,
		actors: actors,
		sink:   sink,
		stats:  stats,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// TraverseTree deals a fresh hand and traverses it for learnerId at
// the given iteration, returning the sampled root payoffs.
func (h *Traverser) TraverseTree(learnerId, iteration int) ([]float32, error) {
	h.tree.Reset()
	payoffs, err := h.traverse(learnerId, iteration)
	if err != nil {
		return nil, err
	}
	if h.stats != nil {
		h.stats.TreesTraversed.Add(1)
	}
	return payoffs, nil
}

func (h *Traverser) traverse(learnerId, iteration int) ([]float32, error) {
	if h.stats != nil {
		h.stats.NodesVisited.Add(1)
	}
	if h.tree.IsOver() {
		return h.tree.Payoffs(), nil
	}

	currentPlayer := h.tree.CurrentPlayer()
	is := h.tree.InfoSet(currentPlayer)

	strategy, err := h.actors[currentPlayer].GetStrategy(is)
	if err != nil {
		return nil, err
	}

	// Opponent node: sample one action from the current policy and
	// follow only that branch.
	if currentPlayer != learnerId {
		action, err := random.Sample(h.rng, strategy)
		if err != nil {
			return nil, fmt.Errorf("sampling opponent action: %w", err)
		}
		h.tree.Step(action)
		childPayoffs, err := h.traverse(learnerId, iteration)
		if err != nil {
			return nil, err
		}
		h.tree.StepBack()
		return childPayoffs, nil
	}

	// Own node: explore every legal action. The node value is the
	// policy-weighted mix of the branch values.
	totalPayoffs := make([]float32, h.tree.NumPlayers())
	branchValues := make([]float32, len(is.Legal))
	for i, action := range is.Legal {
		h.tree.Step(action)
		childPayoffs, err := h.traverse(learnerId, iteration)
		if err != nil {
			return nil, err
		}
		h.tree.StepBack()

		branchValues[i] = childPayoffs[learnerId]
		prob := strategy[action]
		for p, v := range childPayoffs {
			totalPayoffs[p] += v * prob
		}
	}

	regrets := make([]float32, nolimitholdem.NUM_ACTIONS)
	for i, action := range is.Legal {
		regrets[action] = branchValues[i] - totalPayoffs[learnerId]
	}
	h.sink.AddSample(&Sample{
		Key:     is.Key,
		Vector:  append([]float32(nil), is.Vector...),
		Legal:   append([]nolimitholdem.Action(nil), is.Legal...),
		Regrets: regrets,
		Iter:    iteration,
		Weight:  float32(iteration),
	})

	return totalPayoffs, nil
}
