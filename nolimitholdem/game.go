package nolimitholdem

import (
	"math/rand"
	"slices"
	"sort"
)

type GameConfig struct {
	RandomSeed      int64
	ChipsForEach    int
	NumPlayers      int
	SmallBlindChips int
	// MaxRaisesPerStreet bounds branching of the betting tree.
	MaxRaisesPerStreet int
}

// Game simulates one hand at a time. A hand is advanced only through
// Step, which snapshots the full state first; StepBack restores it, so
// traversal sees the hand as a sequence of immutable states.
type Game struct {
	randGen *rand.Rand
	config  GameConfig

	deck    *Deck
	players []*Player

	publicCards []Card
	stage       GameStage

	dealerId    int
	gamePointer int

	round        *Round
	roundCounter int
	handNumber   int

	records []ActionRecord

	history []*Game
}

func NewGame(config GameConfig) *Game {
	if config.MaxRaisesPerStreet <= 0 {
		config.MaxRaisesPerStreet = 4
	}
	h := &Game{
		randGen:     rand.New(rand.NewSource(config.RandomSeed)),
		config:      config,
		players:     make([]*Player, config.NumPlayers),
		publicCards: make([]Card, 0),
		history:     make([]*Game, 0),
	}
	h.deck = NewDeck(h.randGen)
	return h
}

func (h *Game) DeepCopy() *Game {
	cp := &Game{
		config:       h.config,
		stage:        h.stage,
		dealerId:     h.dealerId,
		gamePointer:  h.gamePointer,
		roundCounter: h.roundCounter,
		handNumber:   h.handNumber,
		randGen:      h.randGen,
	}
	cp.deck = h.deck.DeepCopy()
	if h.players != nil {
		cp.players = make([]*Player, len(h.players))
		for i, player := range h.players {
			if player != nil {
				cp.players[i] = player.DeepCopy()
			}
		}
	}
	cp.publicCards = append([]Card(nil), h.publicCards...)
	cp.records = append([]ActionRecord(nil), h.records...)
	if h.round != nil {
		cp.round = h.round.DeepCopy()
	}
	return cp
}

func (h *Game) load(cp *Game) {
	if cp == nil {
		return
	}
	h.config = cp.config
	h.stage = cp.stage
	h.dealerId = cp.dealerId
	h.gamePointer = cp.gamePointer
	h.roundCounter = cp.roundCounter
	h.handNumber = cp.handNumber
	h.randGen = cp.randGen

	h.players = make([]*Player, len(cp.players))
	copy(h.players, cp.players)
	h.publicCards = append([]Card(nil), cp.publicCards...)
	h.records = append([]ActionRecord(nil), cp.records...)
	h.round = cp.round
	h.deck = cp.deck
}

// Reset deals a fresh hand and returns the first acting player's state.
func (h *Game) Reset() *GameState {
	h.deck.Reset()
	for i := range h.config.NumPlayers {
		h.players[i] = &Player{
			InitChips:     h.config.ChipsForEach,
			RemainedChips: h.config.ChipsForEach,
			HoleCards:     [2]Card{h.deck.Get(), h.deck.Get()},
			Status:        PLAYERSTATUS_ACTIVE,
		}
	}
	h.history = h.history[:0]
	h.records = h.records[:0]
	h.stage = STAGE_PREFLOP
	h.roundCounter = 0
	h.publicCards = h.publicCards[:0]
	h.handNumber++

	h.dealerId = int(h.randGen.Int63()) % h.config.NumPlayers

	sb := (h.dealerId + 1) % h.config.NumPlayers
	bb := (h.dealerId + 2) % h.config.NumPlayers
	if h.config.NumPlayers == 2 {
		// Heads-up: the dealer posts the small blind.
		sb = h.dealerId
		bb = (h.dealerId + 1) % h.config.NumPlayers
	}

	h.players[sb].Bet(h.config.SmallBlindChips)
	h.players[bb].Bet(h.config.SmallBlindChips * 2)

	h.gamePointer = (bb + 1) % h.config.NumPlayers

	h.round = newRound(roundConfig{
		numPlayers: h.config.NumPlayers,
		bigBlind:   h.config.SmallBlindChips * 2,
		dealerId:   h.dealerId,
		maxRaises:  h.config.MaxRaisesPerStreet,
	})
	h.round.StartNewRound(h.gamePointer, h.players)

	return h.GetState(h.gamePointer)
}

func (h *Game) LegalActions() map[Action]struct{} {
	return h.round.LegalActions(h.players)
}

func (h *Game) Step(action Action) {
	if _, ex := h.LegalActions()[action]; !ex {
		panic("action not allowed")
	}

	// Snapshot before any mutation.
	h.history = append(h.history, h.DeepCopy())

	actor := h.gamePointer
	potBefore := 0
	for _, p := range h.players {
		potBefore += p.InChips
	}
	committedBefore := h.players[actor].InChips

	h.gamePointer = h.round.ProceedRound(h.players, action)

	sizeFrac := float32(0)
	if potBefore > 0 {
		sizeFrac = float32(h.players[actor].InChips-committedBefore) / float32(potBefore)
	}
	h.records = append(h.records, ActionRecord{
		Player:   int8(actor),
		Stage:    h.stage,
		Action:   action,
		SizeFrac: sizeFrac,
	})

	bypassedCount := 0
	inBypass := make([]int, h.config.NumPlayers)
	remaining := -1
	for i, p := range h.players {
		if p.Status == PLAYERSTATUS_FOLDED || p.Status == PLAYERSTATUS_ALLIN {
			inBypass[i] = 1
			bypassedCount++
		} else {
			remaining = i
		}
	}

	// A single live player who already covers every bet has no decision
	// left: run the board out.
	if h.config.NumPlayers-bypassedCount == 1 {
		if h.round.streetRaised[remaining] >= slices.Max(h.round.streetRaised) {
			inBypass[remaining] = 1
			bypassedCount++
		}
	}

	if h.round.IsOver() {
		h.gamePointer = (h.dealerId + 1) % h.config.NumPlayers
		if bypassedCount < h.config.NumPlayers {
			for inBypass[h.gamePointer] == 1 {
				h.gamePointer = (h.gamePointer + 1) % h.config.NumPlayers
			}
		}

		if h.roundCounter == 0 {
			h.stage = STAGE_FLOP
			h.publicCards = append(h.publicCards, h.deck.Get(), h.deck.Get(), h.deck.Get())
			if h.config.NumPlayers == bypassedCount {
				h.roundCounter++
			}
		}
		if h.roundCounter == 1 {
			h.stage = STAGE_TURN
			h.publicCards = append(h.publicCards, h.deck.Get())
			if h.config.NumPlayers == bypassedCount {
				h.roundCounter++
			}
		}
		if h.roundCounter == 2 {
			h.stage = STAGE_RIVER
			h.publicCards = append(h.publicCards, h.deck.Get())
			if h.config.NumPlayers == bypassedCount {
				h.roundCounter++
			}
		}
		h.roundCounter++
		h.round.StartNewRound(h.gamePointer, h.players)
	}
}

func (h *Game) StepBack() {
	if len(h.history) == 0 {
		panic("no snapshot to step back to")
	}
	popped := h.history[len(h.history)-1]
	h.history = h.history[:len(h.history)-1]
	h.load(popped)
}

func (h *Game) IsOver() bool {
	alive := 0
	for _, p := range h.players {
		if p.Status == PLAYERSTATUS_ACTIVE || p.Status == PLAYERSTATUS_ALLIN {
			alive++
		}
	}
	return alive == 1 || h.roundCounter >= 4
}

// GetPayoffs settles the hand with exact side pots: each contribution
// layer is awarded to the best live hand among the seats that funded
// it, ties split the layer with odd chips going to the earliest seat
// left of the dealer. Returned values are net chips won or lost.
func (h *Game) GetPayoffs() []float32 {
	n := h.config.NumPlayers
	bets := make([]int, n)
	live := make([]bool, n)
	liveCount := 0
	for i, p := range h.players {
		bets[i] = p.InChips
		if p.Status != PLAYERSTATUS_FOLDED {
			live[i] = true
			liveCount++
		}
	}

	won := make([]int, n)
	if liveCount == 1 {
		pot := 0
		for _, b := range bets {
			pot += b
		}
		for i := range live {
			if live[i] {
				won[i] = pot
			}
		}
		return h.netPayoffs(won, bets)
	}

	ranks := make([]HandRank, n)
	for i, p := range h.players {
		if live[i] {
			ranks[i] = EvaluateHandRank(ConcatCards(p.HoleCards[:], h.publicCards))
		}
	}

	// Contribution levels, ascending, one side pot per layer.
	levels := append([]int(nil), bets...)
	sort.Ints(levels)
	levels = slices.Compact(levels)

	prev := 0
	for _, level := range levels {
		if level == 0 {
			continue
		}
		layer := 0
		var eligible []int
		for i := range bets {
			layer += min(bets[i], level) - min(bets[i], prev)
			if live[i] && bets[i] >= level {
				eligible = append(eligible, i)
			}
		}
		prev = level
		if layer == 0 || len(eligible) == 0 {
			continue
		}

		var best HandRank
		for _, i := range eligible {
			if best == nil || CompareHandRanks(ranks[i], best) > 0 {
				best = ranks[i]
			}
		}
		var winners []int
		for _, i := range eligible {
			if CompareHandRanks(ranks[i], best) == 0 {
				winners = append(winners, i)
			}
		}

		share := layer / len(winners)
		odd := layer % len(winners)
		// Odd chips to the winner closest left of the dealer.
		sort.Slice(winners, func(a, b int) bool {
			return h.seatOrder(winners[a]) < h.seatOrder(winners[b])
		})
		for wi, i := range winners {
			won[i] += share
			if wi < odd {
				won[i]++
			}
		}
	}
	return h.netPayoffs(won, bets)
}

func (h *Game) seatOrder(seat int) int {
	return (seat - h.dealerId - 1 + h.config.NumPlayers) % h.config.NumPlayers
}

func (h *Game) netPayoffs(won, bets []int) []float32 {
	payoffs := make([]float32, len(won))
	for i := range payoffs {
		payoffs[i] = float32(won[i] - bets[i])
	}
	return payoffs
}

func (h *Game) CurrentPlayer() int {
	return h.gamePointer
}

func (h *Game) PlayersCount() int {
	return h.config.NumPlayers
}

func (h *Game) Config() GameConfig {
	return h.config
}

func (h *Game) DealerId() int {
	return h.dealerId
}

func (h *Game) GetState(playerId int) *GameState {
	state := &GameState{
		ActivePlayersMask: make([]int32, len(h.players)),
		PlayersPots:       make([]int32, len(h.players)),
		Stakes:            make([]int32, len(h.players)),
		Stage:             h.stage,
		CurrentPlayer:     int32(h.gamePointer),
		DealerId:          int32(h.dealerId),
		PublicCards:       append([]Card(nil), h.publicCards...),
		PrivateCards:      append([]Card(nil), h.players[playerId].HoleCards[:]...),
		History:           append([]ActionRecord(nil), h.records...),
		LegalActions:      h.LegalActions(),
	}
	for i, ply := range h.players {
		if ply.Status != PLAYERSTATUS_FOLDED {
			state.ActivePlayersMask[i] = 1
		}
		state.PlayersPots[i] = int32(ply.InChips)
		state.Stakes[i] = int32(ply.RemainedChips)
	}
	return state
}
