package nolimitholdem

import "math/rand"

// RandomActor plays uniformly random legal actions. Used for smoke
// tests and engine benchmarks.
type RandomActor struct {
	rand *rand.Rand
}

func NewRandomActor(rand *rand.Rand) *RandomActor {
	return &RandomActor{rand: rand}
}

func (h *RandomActor) GetAction(state *GameState) Action {
	probs := h.GetProbs(state)
	maxV := float32(-1)
	maxAct := ACTION_CHECK_CALL
	for a, v := range probs {
		if v > maxV {
			maxV = v
			maxAct = a
		}
	}
	return maxAct
}

func (h *RandomActor) GetProbs(state *GameState) Strategy {
	r := make(Strategy, len(state.LegalActions))
	sum := float32(0)
	for act := range state.LegalActions {
		v := h.rand.Float32() + 1e-6
		r[act] = v
		sum += v
	}
	for act, v := range r {
		r[act] = v / sum
	}
	return r
}
