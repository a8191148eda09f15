package cfr

import (
	"math/rand"
	"sync"

	"holdemcfr/common/random"
)

// RetentionMode controls how the snapshot arena behaves over long
// runs; the source material leaves this open, so both variants are
// supported.
type RetentionMode string

const (
	// RetainAll keeps every snapshot.
	RetainAll = RetentionMode("all")
	// RetainThinned caps the arena size: when full, the lightest
	// snapshot is dropped and its weight folded into its successor so
	// the total iteration weight is preserved.
	RetainThinned = RetentionMode("thin")
)

type SnapshotRecord struct {
	Iter   int
	Weight float32
	Model  Predictor
}

// SnapshotArena is the append-only indexed sequence of approximator
// snapshots underlying average-strategy reconstruction. Sampling is by
// iteration weight (linear CFR weighting).
type SnapshotArena struct {
	mu      sync.RWMutex
	records []SnapshotRecord
	mode    RetentionMode
	maxSize int
}

func NewSnapshotArena(mode RetentionMode, maxSize int) *SnapshotArena {
	if mode == "" {
		mode = RetainAll
	}
	return &SnapshotArena{mode: mode, maxSize: maxSize}
}

// Push appends a snapshot taken at the given iteration.
func (a *SnapshotArena) Push(iter int, model Predictor) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = append(a.records, SnapshotRecord{
		Iter:   iter,
		Weight: float32(iter),
		Model:  model,
	})
	if a.mode == RetainThinned && a.maxSize > 0 && len(a.records) > a.maxSize {
		a.thin()
	}
}

// thin drops the lightest record (never the newest) and folds its
// weight into the following record.
func (a *SnapshotArena) thin() {
	lightest := 0
	for i := 0; i < len(a.records)-1; i++ {
		if a.records[i].Weight < a.records[lightest].Weight {
			lightest = i
		}
	}
	a.records[lightest+1].Weight += a.records[lightest].Weight
	a.records = append(a.records[:lightest], a.records[lightest+1:]...)
}

// Sample draws one snapshot with probability proportional to its
// weight. Returns nil if the arena is empty.
func (a *SnapshotArena) Sample(rng *rand.Rand) Predictor {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.records) == 0 {
		return nil
	}
	weights := make([]float32, len(a.records))
	for i, rec := range a.records {
		weights[i] = rec.Weight
	}
	return a.records[random.WeightedIndex(rng, weights)].Model
}

// Latest returns the most recent snapshot, or nil.
func (a *SnapshotArena) Latest() Predictor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.records) == 0 {
		return nil
	}
	return a.records[len(a.records)-1].Model
}

func (a *SnapshotArena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

// Records returns a copy of the record slice for checkpointing.
func (a *SnapshotArena) Records() []SnapshotRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]SnapshotRecord(nil), a.records...)
}

// SetRecords replaces the arena contents (checkpoint restore).
func (a *SnapshotArena) SetRecords(records []SnapshotRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append([]SnapshotRecord(nil), records...)
}
