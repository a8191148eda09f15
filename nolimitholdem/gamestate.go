package nolimitholdem

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"sort"
)

// ActionRecord is one entry of the public betting sequence. SizeFrac is
// the chips committed by the action as a fraction of the pot at the
// decision point, zero for fold/check.
type ActionRecord struct {
	Player   int8
	Stage    GameStage
	Action   Action
	SizeFrac float32
}

// GameState is the immutable observation of one player at one decision
// point. Instances are built by Game.GetState and never mutated.
type GameState struct {
	PlayersPots       []int32
	Stakes            []int32
	ActivePlayersMask []int32
	LegalActions      map[Action]struct{}
	Stage             GameStage
	CurrentPlayer     int32
	DealerId          int32

	PublicCards  []Card
	PrivateCards []Card

	History []ActionRecord
}

type GameStateHash uint64

func (gs *GameState) Hash() GameStateHash {
	if gs == nil {
		return 0
	}
	h := fnv.New64a()
	gs.WriteHash(h)
	return GameStateHash(h.Sum64())
}

func (gs *GameState) WriteHash(h hash.Hash64) {
	for _, pot := range gs.PlayersPots {
		binary.Write(h, binary.LittleEndian, pot)
	}
	for _, ap := range gs.ActivePlayersMask {
		binary.Write(h, binary.LittleEndian, ap)
	}
	for _, stake := range gs.Stakes {
		binary.Write(h, binary.LittleEndian, stake)
	}

	// Legal action set, sorted for determinism.
	actions := make([]Action, 0, len(gs.LegalActions))
	for a := range gs.LegalActions {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	for _, a := range actions {
		binary.Write(h, binary.LittleEndian, a)
	}

	h.Write([]byte{byte(gs.Stage), byte(gs.CurrentPlayer), byte(gs.DealerId)})
	for _, card := range gs.PublicCards {
		binary.Write(h, binary.LittleEndian, card)
	}
	for _, card := range gs.PrivateCards {
		binary.Write(h, binary.LittleEndian, card)
	}
	gs.writeHistoryHash(h)
}

// HistoryHash folds only the betting sequence, for infoset keying:
// two states with identical public sequences share it regardless of
// the hidden cards.
func (gs *GameState) HistoryHash() uint64 {
	h := fnv.New64a()
	gs.writeHistoryHash(h)
	return h.Sum64()
}

func (gs *GameState) writeHistoryHash(h hash.Hash64) {
	for _, rec := range gs.History {
		h.Write([]byte{byte(rec.Player), byte(rec.Stage), byte(rec.Action)})
		binary.Write(h, binary.LittleEndian, rec.SizeFrac)
	}
}

func (gs *GameState) Clone() *GameState {
	cp := &GameState{
		Stage:         gs.Stage,
		CurrentPlayer: gs.CurrentPlayer,
		DealerId:      gs.DealerId,
	}

	cp.ActivePlayersMask = append([]int32(nil), gs.ActivePlayersMask...)
	cp.PlayersPots = append([]int32(nil), gs.PlayersPots...)
	cp.Stakes = append([]int32(nil), gs.Stakes...)
	cp.PublicCards = append([]Card(nil), gs.PublicCards...)
	cp.PrivateCards = append([]Card(nil), gs.PrivateCards...)
	cp.History = append([]ActionRecord(nil), gs.History...)

	cp.LegalActions = make(map[Action]struct{}, len(gs.LegalActions))
	for action := range gs.LegalActions {
		cp.LegalActions[action] = struct{}{}
	}
	return cp
}

// Pot is the total chips committed by all seats.
func (gs *GameState) Pot() int32 {
	var pot int32
	for _, p := range gs.PlayersPots {
		pot += p
	}
	return pot
}
