package cfr

import (
	"sort"

	"holdemcfr/abstraction"
	"holdemcfr/nolimitholdem"
)

// Encoder turns a game state into a fixed-width feature vector and an
// abstraction key. Vector width depends only on the table geometry, so
// every infoset of a given game configuration encodes to Dims() floats.
type Encoder struct {
	table      *abstraction.Table
	numPlayers int
	maxRaises  int
	seqLen     int
}

func NewEncoder(table *abstraction.Table, numPlayers, maxRaises int) *Encoder {
	// Upper bound on actions per street: the opening round plus one
	// full orbit of responses per capped raise.
	perStreet := numPlayers * (1 + maxRaises)
	return &Encoder{
		table:      table,
		numPlayers: numPlayers,
		maxRaises:  maxRaises,
		seqLen:     4 * perStreet,
	}
}

// Dims reports the encoded vector width.
func (e *Encoder) Dims() int {
	// street one-hot + position + hole bucket + 3 board buckets +
	// per-seat commitments and stacks + pot + SPR + action sequence.
	return 4 + 1 + 1 + 3 + 2*e.numPlayers + 2 + 2*e.seqLen
}

func (e *Encoder) Encode(state *nolimitholdem.GameState, player int) InfoSet {
	street := uint8(state.Stage)
	holeBucket := e.table.HoleBucket(state.Stage, state.PrivateCards, state.PublicCards)
	key := Key{
		Player:      uint8(player),
		Street:      street,
		HoleBucket:  uint16(holeBucket),
		BoardBucket: 0,
		HistoryHash: state.HistoryHash(),
	}
	if state.Stage > nolimitholdem.STAGE_PREFLOP {
		key.BoardBucket = uint16(e.table.BoardBucket(state.Stage, state.PublicCards))
	}

	vec := make([]float32, e.Dims())
	at := 0

	vec[at+int(street)] = 1
	at += 4

	// Seat relative to the dealer, scaled to [0,1].
	rel := (player - int(state.DealerId) + e.numPlayers) % e.numPlayers
	vec[at] = float32(rel) / float32(e.numPlayers)
	at++

	vec[at] = float32(key.HoleBucket) / float32(e.table.HoleBucketCount(state.Stage))
	at++

	// Board buckets for each postflop street reached so far.
	for _, s := range []nolimitholdem.GameStage{
		nolimitholdem.STAGE_FLOP, nolimitholdem.STAGE_TURN, nolimitholdem.STAGE_RIVER,
	} {
		if state.Stage >= s {
			prefix := boardPrefix(state.PublicCards, s)
			vec[at] = float32(e.table.BoardBucket(s, prefix)) / float32(e.table.BoardBucketCount(s))
		}
		at++
	}

	total := float32(0)
	for _, p := range state.PlayersPots {
		total += float32(p)
	}
	stake := float32(state.Stakes[player])
	pot := float32(state.Pot())
	for i := 0; i < e.numPlayers; i++ {
		if pot > 0 {
			vec[at] = float32(state.PlayersPots[i]) / pot
		}
		vec[at+1] = float32(state.Stakes[i]) / (float32(state.Stakes[i]) + total + 1)
		at += 2
	}

	vec[at] = pot / (pot + stake + 1)
	at++
	if pot > 0 {
		spr := stake / pot
		if spr > 1 {
			spr = 1
		}
		vec[at] = spr
	}
	at++

	// Betting sequence: per record one slot for the action id and one
	// for the committed fraction of the pot, zero padded to seqLen.
	for i, rec := range state.History {
		if i >= e.seqLen {
			break
		}
		vec[at+2*i] = (float32(rec.Action) + 1) / float32(nolimitholdem.NUM_ACTIONS)
		frac := rec.SizeFrac
		if frac > 2 {
			frac = 2
		}
		vec[at+2*i+1] = frac / 2
	}

	return InfoSet{
		Key:    key,
		Vector: vec,
		Legal:  sortedLegal(state.LegalActions),
	}
}

func sortedLegal(set map[nolimitholdem.Action]struct{}) []nolimitholdem.Action {
	legal := make([]nolimitholdem.Action, 0, len(set))
	for a := range set {
		legal = append(legal, a)
	}
	sort.Slice(legal, func(i, j int) bool { return legal[i] < legal[j] })
	return legal
}

func boardPrefix(board []nolimitholdem.Card, stage nolimitholdem.GameStage) []nolimitholdem.Card {
	n := 3
	switch stage {
	case nolimitholdem.STAGE_TURN:
		n = 4
	case nolimitholdem.STAGE_RIVER:
		n = 5
	}
	if n > len(board) {
		n = len(board)
	}
	return board[:n]
}
