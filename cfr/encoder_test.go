package cfr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdemcfr/abstraction"
	"holdemcfr/nolimitholdem"
)

func testTable(t *testing.T) *abstraction.Table {
	t.Helper()
	return abstraction.Build(abstraction.Config{
		Seed:              1,
		PreflopBuckets:    8,
		FlopBuckets:       6,
		TurnBuckets:       6,
		RiverBuckets:      6,
		FlopBoardBuckets:  4,
		TurnBoardBuckets:  4,
		RiverBoardBuckets: 4,
		BoardSamples:      120,
		HoleSamples:       120,
		EquityRunouts:     6,
		EquityOpponents:   4,
		KMeansIterations:  8,
	})
}

func testGame(seed int64) *nolimitholdem.Game {
	return nolimitholdem.NewGame(nolimitholdem.GameConfig{
		RandomSeed:         seed,
		ChipsForEach:       200,
		NumPlayers:         2,
		SmallBlindChips:    1,
		MaxRaisesPerStreet: 3,
	})
}

func TestEncoderFixedWidth(t *testing.T) {
	table := testTable(t)
	enc := NewEncoder(table, 2, 3)
	game := testGame(11)

	game.Reset()
	dims := enc.Dims()
	for step := 0; step < 30 && !game.IsOver(); step++ {
		player := game.CurrentPlayer()
		is := enc.Encode(game.GetState(player), player)
		require.Len(t, is.Vector, dims)
		require.NotEmpty(t, is.Legal)

		// Keep the hand alive to visit every street.
		action := is.Legal[len(is.Legal)-1]
		for _, a := range is.Legal {
			if a == nolimitholdem.ACTION_CHECK_CALL {
				action = a
			}
		}
		game.Step(action)
	}
}

func TestEncoderDeterministic(t *testing.T) {
	table := testTable(t)
	enc := NewEncoder(table, 2, 3)
	game := testGame(5)

	game.Reset()
	player := game.CurrentPlayer()
	a := enc.Encode(game.GetState(player), player)
	b := enc.Encode(game.GetState(player), player)

	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, a.Vector, b.Vector)
	assert.Equal(t, a.Legal, b.Legal)
}

func TestEncoderDealerRelativePosition(t *testing.T) {
	table := testTable(t)
	enc := NewEncoder(table, 2, 3)
	game := testGame(7)

	game.Reset()
	for player := 0; player < 2; player++ {
		state := game.GetState(player)
		is := enc.Encode(state, player)
		want := float32(0.5)
		if int32(player) == state.DealerId {
			want = 0
		}
		assert.InDelta(t, want, is.Vector[4], 1e-6)
	}
}

func TestEncoderLongSequenceRetained(t *testing.T) {
	table := testTable(t)
	enc := NewEncoder(table, 6, 4)

	// Longer than any single street, so the sequence block must be
	// sized for the full-orbit worst case to keep every record.
	history := make([]nolimitholdem.ActionRecord, 70)
	for i := range history {
		history[i] = nolimitholdem.ActionRecord{
			Player: int8(i % 6),
			Stage:  nolimitholdem.STAGE_RIVER,
			Action: nolimitholdem.ACTION_CHECK_CALL,
		}
	}
	state := &nolimitholdem.GameState{
		PlayersPots:  make([]int32, 6),
		Stakes:       []int32{200, 200, 200, 200, 200, 200},
		LegalActions: map[nolimitholdem.Action]struct{}{nolimitholdem.ACTION_CHECK_CALL: {}},
		Stage:        nolimitholdem.STAGE_RIVER,
		PublicCards: []nolimitholdem.Card{
			nolimitholdem.NewCard(0, 0), nolimitholdem.NewCard(3, 1), nolimitholdem.NewCard(7, 2),
			nolimitholdem.NewCard(9, 3), nolimitholdem.NewCard(1, 0),
		},
		PrivateCards: []nolimitholdem.Card{nolimitholdem.NewCard(12, 0), nolimitholdem.NewCard(12, 1)},
		History:      history,
	}

	is := enc.Encode(state, 2)
	start := 4 + 1 + 1 + 3 + 2*6 + 2
	kept := 0
	for i := 0; i < (len(is.Vector)-start)/2; i++ {
		if is.Vector[start+2*i] != 0 {
			kept++
		}
	}
	assert.Equal(t, len(history), kept)
}

func TestEncoderKeySeparatesPlayers(t *testing.T) {
	table := testTable(t)
	enc := NewEncoder(table, 2, 3)
	game := testGame(5)

	game.Reset()
	a := enc.Encode(game.GetState(0), 0)
	b := enc.Encode(game.GetState(1), 1)
	assert.NotEqual(t, a.Key, b.Key)
	assert.Equal(t, a.Key.HistoryHash, b.Key.HistoryHash,
		"public betting sequence is shared")
}

func TestEncoderKeyTracksHistory(t *testing.T) {
	table := testTable(t)
	enc := NewEncoder(table, 2, 3)
	game := testGame(5)

	game.Reset()
	player := game.CurrentPlayer()
	before := enc.Encode(game.GetState(player), player)

	game.Step(nolimitholdem.ACTION_CHECK_CALL)
	next := game.CurrentPlayer()
	after := enc.Encode(game.GetState(next), next)

	assert.NotEqual(t, before.Key.HistoryHash, after.Key.HistoryHash)
}

func TestEncoderLegalSorted(t *testing.T) {
	table := testTable(t)
	enc := NewEncoder(table, 2, 3)
	game := testGame(9)

	game.Reset()
	player := game.CurrentPlayer()
	is := enc.Encode(game.GetState(player), player)
	for i := 1; i < len(is.Legal); i++ {
		assert.Less(t, is.Legal[i-1], is.Legal[i])
	}
}
