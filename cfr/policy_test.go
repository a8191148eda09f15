package cfr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdemcfr/nolimitholdem"
)

func TestRegretMatchPositiveOnly(t *testing.T) {
	pred := []float32{-2, 6, 0, 2, -1}
	legal := []nolimitholdem.Action{
		nolimitholdem.ACTION_FOLD,
		nolimitholdem.ACTION_CHECK_CALL,
		nolimitholdem.ACTION_RAISE_POT,
	}

	strategy := RegretMatch(pred, legal)
	require.Len(t, strategy, len(legal))
	assert.InDelta(t, 0.0, strategy[nolimitholdem.ACTION_FOLD], 1e-6)
	assert.InDelta(t, 0.75, strategy[nolimitholdem.ACTION_CHECK_CALL], 1e-6)
	assert.InDelta(t, 0.25, strategy[nolimitholdem.ACTION_RAISE_POT], 1e-6)
}

func TestRegretMatchAllNonPositiveUniform(t *testing.T) {
	pred := []float32{-1, -3, 0, -0.5, -2}
	legal := []nolimitholdem.Action{
		nolimitholdem.ACTION_FOLD,
		nolimitholdem.ACTION_CHECK_CALL,
		nolimitholdem.ACTION_ALL_IN,
	}

	strategy := RegretMatch(pred, legal)
	require.Len(t, strategy, 3)
	for _, a := range legal {
		assert.InDelta(t, 1.0/3.0, strategy[a], 1e-6)
	}
}

func TestRegretMatchSupportIsLegalSet(t *testing.T) {
	pred := []float32{5, 5, 5, 5, 5}
	legal := []nolimitholdem.Action{nolimitholdem.ACTION_FOLD, nolimitholdem.ACTION_CHECK_CALL}

	strategy := RegretMatch(pred, legal)
	require.Len(t, strategy, 2)
	_, hasRaise := strategy[nolimitholdem.ACTION_RAISE_POT]
	assert.False(t, hasRaise)

	var sum float32
	for _, p := range strategy {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}
