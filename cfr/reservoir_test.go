package cfr

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdemcfr/nolimitholdem"
)

func mkSample(iter int) *Sample {
	return &Sample{
		Key:     Key{Player: 0, Street: 0, HistoryHash: uint64(iter)},
		Vector:  []float32{float32(iter)},
		Legal:   []nolimitholdem.Action{nolimitholdem.ACTION_FOLD, nolimitholdem.ACTION_CHECK_CALL},
		Regrets: []float32{1, -1, 0, 0, 0},
		Iter:    iter,
		Weight:  float32(iter),
	}
}

func TestReservoirFillsToCapacity(t *testing.T) {
	r := NewReservoir(10, 1)
	for i := 1; i <= 10; i++ {
		assert.True(t, r.Offer(mkSample(i)))
	}
	assert.Equal(t, 10, r.Len())
	assert.EqualValues(t, 10, r.Seen())
}

func TestReservoirUniformRetention(t *testing.T) {
	// With capacity C and N offers each sample survives with
	// probability C/N. Check the early half is not systematically
	// flushed out by the late half.
	const capacity, total, trials = 50, 1000, 40

	earlySurvivors := 0
	for trial := 0; trial < trials; trial++ {
		r := NewReservoir(capacity, int64(trial))
		for i := 1; i <= total; i++ {
			r.Offer(mkSample(i))
		}
		require.Equal(t, capacity, r.Len())
		for _, s := range r.SampleBatch(capacity) {
			if s.Iter <= total/2 {
				earlySurvivors++
			}
		}
	}

	// Expected share of early samples is 1/2; allow wide slack.
	share := float64(earlySurvivors) / float64(capacity*trials)
	assert.Greater(t, share, 0.40)
	assert.Less(t, share, 0.60)
}

func TestReservoirSampleBatchBounds(t *testing.T) {
	r := NewReservoir(20, 7)
	for i := 1; i <= 5; i++ {
		r.Offer(mkSample(i))
	}
	assert.Len(t, r.SampleBatch(3), 3)
	assert.Len(t, r.SampleBatch(100), 5)
}

func TestReservoirGobRoundTrip(t *testing.T) {
	r := NewReservoir(8, 3)
	for i := 1; i <= 20; i++ {
		r.Offer(mkSample(i))
	}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(r))

	restored := &Reservoir{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(restored))

	assert.Equal(t, r.Len(), restored.Len())
	assert.Equal(t, r.Seen(), restored.Seen())

	orig := r.SampleBatch(100)
	back := restored.SampleBatch(100)
	require.Equal(t, len(orig), len(back))
	for i := range orig {
		assert.Equal(t, orig[i].Key, back[i].Key)
		assert.Equal(t, orig[i].Regrets, back[i].Regrets)
		assert.Equal(t, orig[i].Weight, back[i].Weight)
	}
}

func TestMemoryRoutesByPlayer(t *testing.T) {
	m := NewMemory(3, 10, 1)
	s := mkSample(1)
	s.Key.Player = 2
	m.AddSample(s)

	assert.Equal(t, 0, m.Player(0).Len())
	assert.Equal(t, 0, m.Player(1).Len())
	assert.Equal(t, 1, m.Player(2).Len())
	assert.Equal(t, 3, m.Players())
}
