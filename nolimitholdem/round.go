package nolimitholdem

import "slices"

// Round tracks betting within a single street: who still has to act,
// how much every seat has committed this street, and how many raises
// the street has seen (bounded by maxRaises to cap tree branching).
type Round struct {
	numPlayers int
	bigBlind   int
	dealerId   int
	maxRaises  int

	gamePointer     int
	notPlayingCount int
	notRaiseCount   int
	raisesMade      int
	streetRaised    []int
}

type roundConfig struct {
	numPlayers int
	bigBlind   int
	dealerId   int
	maxRaises  int
}

func newRound(cfg roundConfig) *Round {
	return &Round{
		numPlayers:   cfg.numPlayers,
		bigBlind:     cfg.bigBlind,
		dealerId:     cfg.dealerId,
		maxRaises:    cfg.maxRaises,
		streetRaised: make([]int, cfg.numPlayers),
		gamePointer:  -1,
	}
}

func (h *Round) DeepCopy() *Round {
	cp := *h
	cp.streetRaised = make([]int, len(h.streetRaised))
	copy(cp.streetRaised, h.streetRaised)
	return &cp
}

func (h *Round) StartNewRound(gamePointer int, players []*Player) {
	h.notRaiseCount = 0
	h.raisesMade = 0
	h.gamePointer = gamePointer
	for i := range h.streetRaised {
		h.streetRaised[i] = players[i].InChips
	}
}

func (h *Round) potSize(players []*Player) int {
	pot := 0
	for _, p := range players {
		pot += p.InChips
	}
	return pot
}

// callAmount is what the acting player owes to continue.
func (h *Round) callAmount(players []*Player) int {
	return slices.Max(h.streetRaised) - h.streetRaised[h.gamePointer]
}

// ProceedRound applies the action for the current player and returns
// the seat index of the next player to act.
func (h *Round) ProceedRound(players []*Player, action Action) int {
	player := players[h.gamePointer]
	maxRaised := slices.Max(h.streetRaised)

	switch action {
	case ACTION_FOLD:
		player.Status = PLAYERSTATUS_FOLDED

	case ACTION_CHECK_CALL:
		diff := maxRaised - h.streetRaised[h.gamePointer]
		bet := min(diff, player.RemainedChips)
		h.streetRaised[h.gamePointer] += bet
		player.Bet(bet)
		h.notRaiseCount++

	case ACTION_RAISE_HALFPOT, ACTION_RAISE_POT:
		call := maxRaised - h.streetRaised[h.gamePointer]
		potAfterCall := call + h.potSize(players)
		raise := potAfterCall
		if action == ACTION_RAISE_HALFPOT {
			raise = potAfterCall / 2
		}
		bet := call + raise
		h.streetRaised[h.gamePointer] += bet
		player.Bet(bet)
		h.notRaiseCount = 1
		h.raisesMade++

	case ACTION_ALL_IN:
		bet := player.RemainedChips
		h.streetRaised[h.gamePointer] += bet
		player.Bet(bet)
		if h.streetRaised[h.gamePointer] > maxRaised {
			h.notRaiseCount = 1
			h.raisesMade++
		} else {
			h.notRaiseCount++
		}
	}

	if player.RemainedChips == 0 && player.Status != PLAYERSTATUS_FOLDED {
		player.Status = PLAYERSTATUS_ALLIN
	}
	if player.Status == PLAYERSTATUS_ALLIN {
		h.notPlayingCount++
		h.notRaiseCount--
	}
	if player.Status == PLAYERSTATUS_FOLDED {
		h.notPlayingCount++
	}

	// Advance to the next seat still able to act.
	h.gamePointer = (h.gamePointer + 1) % h.numPlayers
	for i := 0; i < h.numPlayers; i++ {
		if players[h.gamePointer].Status == PLAYERSTATUS_ACTIVE {
			break
		}
		h.gamePointer = (h.gamePointer + 1) % h.numPlayers
	}
	return h.gamePointer
}

// LegalActions computes the legal subset of the action menu for the
// acting player. Once the street's raise cap is reached only fold/call
// remain; with stack-to-pot ratio below 1 the sizing tiers collapse to
// {fold, call, all-in}.
func (h *Round) LegalActions(players []*Player) map[Action]struct{} {
	actions := map[Action]struct{}{
		ACTION_FOLD:       {},
		ACTION_CHECK_CALL: {},
	}

	player := players[h.gamePointer]
	call := h.callAmount(players)

	// Calling alone consumes the stack: nothing to raise with.
	if call >= player.RemainedChips {
		return actions
	}
	if h.raisesMade >= h.maxRaises {
		return actions
	}

	potAfterCall := call + h.potSize(players)
	if potAfterCall > 0 && player.RemainedChips < potAfterCall {
		// SPR < 1: shoving is the only meaningful aggression left.
		actions[ACTION_ALL_IN] = struct{}{}
		return actions
	}

	actions[ACTION_ALL_IN] = struct{}{}
	if bet := call + potAfterCall; bet <= player.RemainedChips {
		actions[ACTION_RAISE_POT] = struct{}{}
	}
	if bet := call + potAfterCall/2; bet <= player.RemainedChips && bet > call {
		actions[ACTION_RAISE_HALFPOT] = struct{}{}
	}
	return actions
}

func (h *Round) IsOver() bool {
	return h.notRaiseCount+h.notPlayingCount >= h.numPlayers
}
