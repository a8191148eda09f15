package nolimitholdem

// Strategy is a distribution over the abstracted action set.
type Strategy = map[Action]float32

type GameStage int

const (
	STAGE_PREFLOP = GameStage(0)
	STAGE_FLOP    = GameStage(1)
	STAGE_TURN    = GameStage(2)
	STAGE_RIVER   = GameStage(3)
)

// Action is a closed tagged set: the bet-sizing menu is fixed, so every
// decision point selects from at most NUM_ACTIONS slots.
type Action = int32

const (
	ACTION_FOLD          = Action(0)
	ACTION_CHECK_CALL    = Action(1)
	ACTION_RAISE_HALFPOT = Action(2)
	ACTION_RAISE_POT     = Action(3)
	ACTION_ALL_IN        = Action(4)

	NUM_ACTIONS = 5
)

var Action2string = map[Action]string{
	ACTION_FOLD:          "FOLD",
	ACTION_CHECK_CALL:    "CHECK_CALL",
	ACTION_RAISE_HALFPOT: "RAISE_HALFPOT",
	ACTION_RAISE_POT:     "RAISE_POT",
	ACTION_ALL_IN:        "ALL_IN",
}

type Card int32

const DECK_SIZE = 52

func NewCard(rank, suit int16) Card {
	return Card(suit*13 + rank)
}

// 0..3
func (card Card) Suit() int16 {
	return int16(card / 13)
}

// 0..12, 12 is the ace
func (card Card) Rank() int16 {
	return int16(card % 13)
}

const (
	rankNames = "23456789TJQKA"
	suitNames = "cdhs"
)

func (card Card) String() string {
	return string(rankNames[card.Rank()]) + string(suitNames[card.Suit()])
}
