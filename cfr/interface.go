package cfr

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"holdemcfr/nolimitholdem"
)

// Key identifies an information set: strategically identical situations
// must map to the same key, and situations the abstraction is meant to
// distinguish must not collide.
type Key struct {
	Player      uint8
	Street      uint8
	HoleBucket  uint16
	BoardBucket uint16
	HistoryHash uint64
}

func (k Key) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte{k.Player, k.Street})
	binary.Write(h, binary.LittleEndian, k.HoleBucket)
	binary.Write(h, binary.LittleEndian, k.BoardBucket)
	binary.Write(h, binary.LittleEndian, k.HistoryHash)
	return h.Sum64()
}

var streetLetters = [...]string{"p", "f", "t", "r"}

// String renders a stable textual form used as the artifact key.
func (k Key) String() string {
	return fmt.Sprintf("%s%d/h%d/b%d/%016x",
		streetLetters[k.Street], k.Player, k.HoleBucket, k.BoardBucket, k.HistoryHash)
}

// InfoSet is one encoded decision point: the lookup key, the network
// feature vector and the legal subset of the action menu (ascending).
type InfoSet struct {
	Key    Key
	Vector []float32
	Legal  []nolimitholdem.Action
}

// GameTree is the traversal surface of a game. Chance is embedded in
// the game itself (Reset deals, street transitions deal), so walking
// the tree samples exactly one chance outcome per node, which is what
// external sampling requires.
type GameTree interface {
	Reset()
	IsOver() bool
	Payoffs() []float32
	CurrentPlayer() int
	NumPlayers() int
	InfoSet(player int) *InfoSet
	Step(action nolimitholdem.Action)
	StepBack()
}

// Predictor estimates per-action cumulative regret for an infoset.
// Implementations must be safe for concurrent Predict calls.
type Predictor interface {
	Predict(is *InfoSet) []float32
}

// Advantage is a trainable Predictor.
type Advantage interface {
	Predictor
	// Train fits one gradient step against the batch and returns the
	// weighted MSE loss. ErrDiverged signals a non-finite result.
	Train(batch []*Sample) (loss float32, err error)
	// Snapshot returns an immutable copy usable for average-strategy
	// reconstruction and checkpointing.
	Snapshot() Predictor
	// Restore replaces the parameters with a previous snapshot.
	Restore(p Predictor) error
}

// SampleSink receives regret samples produced by traversal.
type SampleSink interface {
	AddSample(s *Sample)
}

// Actor supplies the acting policy during traversal.
type Actor interface {
	GetStrategy(is *InfoSet) (nolimitholdem.Strategy, error)
}
