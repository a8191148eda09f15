package cfr

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"
	"sync"

	"holdemcfr/nolimitholdem"
)

// Sample is one regret observation: the encoded infoset, the
// instantaneous regret per action slot (zero on illegal slots) and the
// iteration it was collected at. Immutable once stored.
type Sample struct {
	Key     Key
	Vector  []float32
	Legal   []nolimitholdem.Action
	Regrets []float32
	Iter    int
	Weight  float32
}

// Reservoir is a bounded sample store with reservoir-sampling
// eviction: after n offers every sample seen so far is retained with
// probability capacity/n. Offer is safe to call from multiple
// traversal workers.
type Reservoir struct {
	mx       sync.Mutex
	capacity int
	samples  []*Sample
	seen     int64
	rng      *rand.Rand
}

func NewReservoir(capacity int, seed int64) *Reservoir {
	return &Reservoir{
		capacity: capacity,
		samples:  make([]*Sample, 0, capacity),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Offer inserts the sample, or evicts a uniformly chosen slot once the
// reservoir is full. Returns whether the sample was retained.
func (r *Reservoir) Offer(s *Sample) bool {
	r.mx.Lock()
	defer r.mx.Unlock()

	r.seen++
	if len(r.samples) < r.capacity {
		r.samples = append(r.samples, s)
		return true
	}
	if m := r.rng.Int63n(r.seen); m < int64(r.capacity) {
		r.samples[m] = s
		return true
	}
	return false
}

func (r *Reservoir) Len() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.samples)
}

func (r *Reservoir) Seen() int64 {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.seen
}

// SampleBatch draws a uniform random subset of at most n samples.
func (r *Reservoir) SampleBatch(n int) []*Sample {
	r.mx.Lock()
	defer r.mx.Unlock()

	if n >= len(r.samples) {
		return append([]*Sample(nil), r.samples...)
	}
	batch := make([]*Sample, 0, n)
	for _, idx := range r.rng.Perm(len(r.samples))[:n] {
		batch = append(batch, r.samples[idx])
	}
	return batch
}

type reservoirState struct {
	Capacity int
	Seen     int64
	Samples  []*Sample
}

// GobEncode implements gob.GobEncoder for checkpointing.
func (r *Reservoir) GobEncode() ([]byte, error) {
	r.mx.Lock()
	defer r.mx.Unlock()

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(reservoirState{
		Capacity: r.capacity,
		Seen:     r.seen,
		Samples:  r.samples,
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (r *Reservoir) GobDecode(data []byte) error {
	var st reservoirState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	r.capacity = st.Capacity
	r.seen = st.Seen
	r.samples = st.Samples
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(st.Seen + 1))
	}
	return nil
}

// Memory groups per-player reservoirs behind the SampleSink interface
// keyed by the sample's acting player.
type Memory struct {
	reservoirs []*Reservoir
}

func NewMemory(players, capacity int, seed int64) *Memory {
	m := &Memory{reservoirs: make([]*Reservoir, players)}
	for i := range m.reservoirs {
		m.reservoirs[i] = NewReservoir(capacity, seed+int64(i))
	}
	return m
}

func (m *Memory) AddSample(s *Sample) {
	m.reservoirs[s.Key.Player].Offer(s)
}

func (m *Memory) Player(player int) *Reservoir {
	return m.reservoirs[player]
}

func (m *Memory) Players() int {
	return len(m.reservoirs)
}

// Reservoirs exposes the underlying reservoirs for checkpointing.
func (m *Memory) Reservoirs() []*Reservoir {
	return append([]*Reservoir(nil), m.reservoirs...)
}

// Restore replaces the reservoirs from a checkpoint. Panics unless the
// player count matches, which the caller validates first.
func (m *Memory) Restore(reservoirs []*Reservoir) {
	if len(reservoirs) != len(m.reservoirs) {
		panic(fmt.Sprintf("restore %d reservoirs into memory of %d players",
			len(reservoirs), len(m.reservoirs)))
	}
	copy(m.reservoirs, reservoirs)
}
