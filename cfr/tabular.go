package cfr

import (
	"encoding/gob"
	"sync"

	"holdemcfr/nolimitholdem"
)

// Tabular accumulates exact cumulative regrets per infoset key. It is
// only tractable for small games and serves as the reference
// approximator in convergence tests; it implements both SampleSink
// (direct accumulation during traversal) and Predictor.
type Tabular struct {
	mu      sync.RWMutex
	regrets map[Key][]float32
}

func NewTabular() *Tabular {
	return &Tabular{regrets: make(map[Key][]float32)}
}

// AddSample implements SampleSink.
func (t *Tabular) AddSample(s *Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, ok := t.regrets[s.Key]
	if !ok {
		acc = make([]float32, nolimitholdem.NUM_ACTIONS)
		t.regrets[s.Key] = acc
	}
	for _, a := range s.Legal {
		acc[a] += s.Regrets[a]
	}
}

// Predict implements Predictor.
func (t *Tabular) Predict(is *InfoSet) []float32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float32, nolimitholdem.NUM_ACTIONS)
	if acc, ok := t.regrets[is.Key]; ok {
		copy(out, acc)
	}
	return out
}

// TabularSnapshot is a frozen copy of the regret table.
type TabularSnapshot struct {
	Regrets map[Key][]float32
}

func (s *TabularSnapshot) Predict(is *InfoSet) []float32 {
	out := make([]float32, nolimitholdem.NUM_ACTIONS)
	if acc, ok := s.Regrets[is.Key]; ok {
		copy(out, acc)
	}
	return out
}

func (t *Tabular) Snapshot() Predictor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make(map[Key][]float32, len(t.regrets))
	for k, v := range t.regrets {
		cp[k] = append([]float32(nil), v...)
	}
	return &TabularSnapshot{Regrets: cp}
}

func init() {
	gob.Register(&TabularSnapshot{})
}
