package cfr

import (
	"holdemcfr/nolimitholdem"
)

// HoldemTree adapts a hold'em game to the traversal surface. Payoffs
// are normalized by the big blind so sample magnitudes stay comparable
// across stack configurations.
type HoldemTree struct {
	game    *nolimitholdem.Game
	encoder *Encoder
	bb      float32
}

func NewHoldemTree(game *nolimitholdem.Game, encoder *Encoder) *HoldemTree {
	return &HoldemTree{
		game:    game,
		encoder: encoder,
		bb:      float32(2 * game.Config().SmallBlindChips),
	}
}

func (t *HoldemTree) Reset() {
	t.game.Reset()
}

func (t *HoldemTree) IsOver() bool {
	return t.game.IsOver()
}

func (t *HoldemTree) Payoffs() []float32 {
	payoffs := t.game.GetPayoffs()
	for i := range payoffs {
		payoffs[i] /= t.bb
	}
	return payoffs
}

func (t *HoldemTree) CurrentPlayer() int {
	return t.game.CurrentPlayer()
}

func (t *HoldemTree) NumPlayers() int {
	return t.game.PlayersCount()
}

func (t *HoldemTree) InfoSet(player int) *InfoSet {
	is := t.encoder.Encode(t.game.GetState(player), player)
	return &is
}

func (t *HoldemTree) Step(action nolimitholdem.Action) {
	t.game.Step(action)
}

func (t *HoldemTree) StepBack() {
	t.game.StepBack()
}
