package nolimitholdem

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() GameConfig {
	return GameConfig{
		RandomSeed:         42,
		ChipsForEach:       500,
		NumPlayers:         3,
		SmallBlindChips:    20,
		MaxRaisesPerStreet: 4,
	}
}

func TestHandRollback(t *testing.T) {
	game := NewGame(testConfig())
	actor := NewRandomActor(rand.New(rand.NewSource(7)))

	for hand := 0; hand < 50; hand++ {
		game.Reset()

		var hashes []GameStateHash
		var actions []Action
		for !game.IsOver() {
			state := game.GetState(game.CurrentPlayer())
			hashes = append(hashes, state.Hash())
			actions = append(actions, actor.GetAction(state))
			game.Step(actions[len(actions)-1])
		}

		// Unwind completely, then replay and compare every state.
		for range actions {
			game.StepBack()
		}
		for i, action := range actions {
			state := game.GetState(game.CurrentPlayer())
			require.Equal(t, hashes[i], state.Hash(), "hand %d step %d", hand, i)
			game.Step(action)
		}
		require.True(t, game.IsOver())
	}
}

func TestPayoffsZeroSum(t *testing.T) {
	game := NewGame(testConfig())
	actor := NewRandomActor(rand.New(rand.NewSource(11)))

	for hand := 0; hand < 200; hand++ {
		game.Reset()
		for !game.IsOver() {
			game.Step(actor.GetAction(game.GetState(game.CurrentPlayer())))
		}
		sum := float32(0)
		for _, p := range game.GetPayoffs() {
			sum += p
		}
		require.Equal(t, float32(0), sum, "hand %d", hand)
	}
}

func TestSidePotSplit(t *testing.T) {
	game := NewGame(testConfig())
	game.Reset()
	game.dealerId = 0

	// Short stack is all-in for 100 with the best hand; the two
	// covering players fight over the 400-chip side pot.
	board := []Card{
		NewCard(0, 0),  // 2c
		NewCard(5, 1),  // 7d
		NewCard(7, 2),  // 9h
		NewCard(9, 3),  // Js
		NewCard(1, 1),  // 3d
	}
	game.publicCards = board
	game.players[0] = &Player{HoleCards: [2]Card{NewCard(12, 3), NewCard(12, 2)}, InChips: 100, Status: PLAYERSTATUS_ALLIN}
	game.players[1] = &Player{HoleCards: [2]Card{NewCard(11, 3), NewCard(11, 2)}, InChips: 300, Status: PLAYERSTATUS_ACTIVE}
	game.players[2] = &Player{HoleCards: [2]Card{NewCard(10, 3), NewCard(10, 2)}, InChips: 300, Status: PLAYERSTATUS_ACTIVE}

	payoffs := game.GetPayoffs()
	require.Equal(t, []float32{200, 100, -300}, payoffs)
}

func TestSidePotFoldedChipsStayInPot(t *testing.T) {
	game := NewGame(testConfig())
	game.Reset()
	game.dealerId = 0

	// The folded seat's 50 chips are still distributed.
	game.publicCards = []Card{
		NewCard(0, 0), NewCard(5, 1), NewCard(7, 2), NewCard(9, 3), NewCard(1, 1),
	}
	game.players[0] = &Player{HoleCards: [2]Card{NewCard(12, 3), NewCard(12, 2)}, InChips: 200, Status: PLAYERSTATUS_ACTIVE}
	game.players[1] = &Player{HoleCards: [2]Card{NewCard(11, 3), NewCard(11, 2)}, InChips: 200, Status: PLAYERSTATUS_ACTIVE}
	game.players[2] = &Player{HoleCards: [2]Card{NewCard(10, 3), NewCard(10, 2)}, InChips: 50, Status: PLAYERSTATUS_FOLDED}

	payoffs := game.GetPayoffs()
	require.Equal(t, []float32{250, -200, -50}, payoffs)
}

func TestLegalActionsCollapseUnderLowSPR(t *testing.T) {
	game := NewGame(GameConfig{
		RandomSeed:         3,
		ChipsForEach:       15,
		NumPlayers:         2,
		SmallBlindChips:    5,
		MaxRaisesPerStreet: 4,
	})
	game.Reset()

	// Pot 15, acting stack 10: SPR < 1, sizing tiers collapse.
	legal := game.LegalActions()
	require.Contains(t, legal, ACTION_FOLD)
	require.Contains(t, legal, ACTION_CHECK_CALL)
	require.Contains(t, legal, ACTION_ALL_IN)
	require.NotContains(t, legal, ACTION_RAISE_POT)
	require.NotContains(t, legal, ACTION_RAISE_HALFPOT)
}

func TestRaiseCapBoundsBranching(t *testing.T) {
	game := NewGame(GameConfig{
		RandomSeed:         5,
		ChipsForEach:       10000,
		NumPlayers:         2,
		SmallBlindChips:    5,
		MaxRaisesPerStreet: 1,
	})
	game.Reset()

	require.Contains(t, game.LegalActions(), ACTION_RAISE_POT)
	game.Step(ACTION_RAISE_POT)

	legal := game.LegalActions()
	require.NotContains(t, legal, ACTION_RAISE_POT)
	require.NotContains(t, legal, ACTION_RAISE_HALFPOT)
	require.NotContains(t, legal, ACTION_ALL_IN)
	require.Contains(t, legal, ACTION_FOLD)
	require.Contains(t, legal, ACTION_CHECK_CALL)
}

func BenchmarkRandomPlayouts(b *testing.B) {
	game := NewGame(testConfig())
	actor := NewRandomActor(rand.New(rand.NewSource(42)))

	steps := 0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		game.Reset()
		for !game.IsOver() {
			game.Step(actor.GetAction(game.GetState(game.CurrentPlayer())))
			steps++
		}
		game.GetPayoffs()
	}
	b.ReportMetric(float64(steps)/float64(b.N), "steps/hand")
}
