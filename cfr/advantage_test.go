package cfr

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdemcfr/nolimitholdem"
)

// synthetic regression task: regrets are a fixed linear function of
// the two input features.
func syntheticBatch(rng *rand.Rand, n int) []*Sample {
	legal := []nolimitholdem.Action{
		nolimitholdem.ACTION_FOLD,
		nolimitholdem.ACTION_CHECK_CALL,
		nolimitholdem.ACTION_RAISE_POT,
	}
	batch := make([]*Sample, n)
	for i := range batch {
		x0 := rng.Float32()
		x1 := rng.Float32()
		batch[i] = &Sample{
			Vector:  []float32{x0, x1},
			Legal:   legal,
			Regrets: []float32{x0 - x1, 2 * x1, 0, 0.5 * x0, 0},
			Iter:    1,
			Weight:  1,
		}
	}
	return batch
}

func TestNetFitsSyntheticTarget(t *testing.T) {
	net := NewNet(NetConfig{InputDim: 2, HiddenDim: 32, LearningRate: 5e-3, Seed: 1})
	rng := rand.New(rand.NewSource(2))

	first, err := net.Train(syntheticBatch(rng, 64))
	require.NoError(t, err)

	var last float32
	for i := 0; i < 400; i++ {
		last, err = net.Train(syntheticBatch(rng, 64))
		require.NoError(t, err)
	}
	assert.Less(t, last, first/4, "loss should shrink substantially")

	is := &InfoSet{Vector: []float32{0.8, 0.2}}
	pred := net.Predict(is)
	assert.InDelta(t, 0.6, pred[nolimitholdem.ACTION_FOLD], 0.2)
	assert.InDelta(t, 0.4, pred[nolimitholdem.ACTION_CHECK_CALL], 0.2)
}

func TestNetTrainWeightsSamples(t *testing.T) {
	// Two contradictory targets for the same input; the heavier one
	// must dominate the fit.
	legal := []nolimitholdem.Action{nolimitholdem.ACTION_FOLD}
	heavy := &Sample{Vector: []float32{1, 1}, Legal: legal, Regrets: []float32{1, 0, 0, 0, 0}, Weight: 20}
	light := &Sample{Vector: []float32{1, 1}, Legal: legal, Regrets: []float32{-1, 0, 0, 0, 0}, Weight: 1}

	net := NewNet(NetConfig{InputDim: 2, HiddenDim: 16, LearningRate: 1e-2, Seed: 3})
	for i := 0; i < 500; i++ {
		_, err := net.Train([]*Sample{heavy, light})
		require.NoError(t, err)
	}
	pred := net.Predict(&InfoSet{Vector: []float32{1, 1}})
	assert.Greater(t, pred[nolimitholdem.ACTION_FOLD], float32(0.5))
}

func TestNetSnapshotIsImmutable(t *testing.T) {
	net := NewNet(NetConfig{InputDim: 2, HiddenDim: 8, Seed: 5})
	is := &InfoSet{Vector: []float32{0.3, 0.7}}

	snap := net.Snapshot()
	before := snap.Predict(is)

	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 50; i++ {
		_, err := net.Train(syntheticBatch(rng, 32))
		require.NoError(t, err)
	}

	assert.Equal(t, before, snap.Predict(is))
	assert.NotEqual(t, before, net.Predict(is))
}

func TestNetRestoreRollsBack(t *testing.T) {
	net := NewNet(NetConfig{InputDim: 2, HiddenDim: 8, Seed: 7})
	is := &InfoSet{Vector: []float32{0.5, 0.5}}

	snap := net.Snapshot()
	want := snap.Predict(is)

	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 50; i++ {
		_, err := net.Train(syntheticBatch(rng, 32))
		require.NoError(t, err)
	}
	require.NoError(t, net.Restore(snap))
	assert.Equal(t, want, net.Predict(is))
}

func TestNetRestoreRejectsDimMismatch(t *testing.T) {
	net := NewNet(NetConfig{InputDim: 2, HiddenDim: 8, Seed: 9})
	other := NewNet(NetConfig{InputDim: 3, HiddenDim: 8, Seed: 9})
	assert.Error(t, net.Restore(other.Snapshot()))
}

func TestNetDivergenceDetected(t *testing.T) {
	net := NewNet(NetConfig{InputDim: 1, HiddenDim: 4, Seed: 11})
	bad := &Sample{
		Vector:  []float32{1},
		Legal:   []nolimitholdem.Action{nolimitholdem.ACTION_FOLD},
		Regrets: []float32{float32(math.Inf(1)), 0, 0, 0, 0},
		Weight:  1,
	}
	_, err := net.Train([]*Sample{bad})
	assert.ErrorIs(t, err, ErrDiverged)
}
