package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdemcfr/cfr"
	"holdemcfr/nolimitholdem"
)

func TestQuantiseDominant(t *testing.T) {
	q := Quantise(nolimitholdem.Strategy{
		nolimitholdem.ACTION_RAISE_POT:  0.75,
		nolimitholdem.ACTION_CHECK_CALL: 0.20,
		nolimitholdem.ACTION_FOLD:       0.05,
	}, DefaultHighCutoff, DefaultLowCutoff)

	assert.Equal(t, "RAISE_POT", q.Dominant)
	assert.Empty(t, q.Steps)
}

func TestQuantiseCumulativeThresholds(t *testing.T) {
	q := Quantise(nolimitholdem.Strategy{
		nolimitholdem.ACTION_CHECK_CALL: 0.60,
		nolimitholdem.ACTION_RAISE_POT:  0.35,
		nolimitholdem.ACTION_FOLD:       0.05,
	}, DefaultHighCutoff, DefaultLowCutoff)

	assert.Empty(t, q.Dominant)
	require.Len(t, q.Steps, 2)
	assert.Equal(t, Step{Action: "CHECK_CALL", CumulativePct: 60}, q.Steps[0])
	assert.Equal(t, Step{Action: "RAISE_POT", CumulativePct: 95}, q.Steps[1])
}

func TestQuantiseKeepsTopWhenAllBelowCutoff(t *testing.T) {
	q := Quantise(nolimitholdem.Strategy{
		nolimitholdem.ACTION_FOLD:          0.25,
		nolimitholdem.ACTION_CHECK_CALL:    0.25,
		nolimitholdem.ACTION_RAISE_HALFPOT: 0.25,
		nolimitholdem.ACTION_RAISE_POT:     0.25,
	}, DefaultHighCutoff, DefaultLowCutoff)

	require.Len(t, q.Steps, 1)
}

func TestBuildPriorPrecedence(t *testing.T) {
	key := cfr.Key{Player: 0, Street: 0, HoleBucket: 3}
	solver := nolimitholdem.Strategy{
		nolimitholdem.ACTION_ALL_IN: 0.9,
		nolimitholdem.ACTION_FOLD:   0.1,
	}
	prior := nolimitholdem.Strategy{
		nolimitholdem.ACTION_FOLD: 1.0,
	}
	priors := map[string]Prior{key.String(): {Freqs: prior}}
	cfg := BuildConfig{PriorOverrideVisits: 100}

	// Under-visited: the prior wins.
	art := Build("run", []Observation{{Key: key, Freqs: solver, Visits: 50}}, priors, cfg)
	entry := art.Entries[key.String()]
	assert.True(t, entry.FromPrior)
	assert.Equal(t, "FOLD", entry.Dominant)

	// Well-visited: solver output overrides.
	art = Build("run", []Observation{{Key: key, Freqs: solver, Visits: 5000}}, priors, cfg)
	entry = art.Entries[key.String()]
	assert.False(t, entry.FromPrior)
	assert.Equal(t, "ALL_IN", entry.Dominant)
}

func TestBuildUnvisitedPriorIncluded(t *testing.T) {
	priors := map[string]Prior{
		"p0/h7/b0/0000000000000000": {Freqs: nolimitholdem.Strategy{nolimitholdem.ACTION_CHECK_CALL: 1}},
	}
	art := Build("run", nil, priors, BuildConfig{})
	entry, ok := art.Entries["p0/h7/b0/0000000000000000"]
	require.True(t, ok)
	assert.True(t, entry.FromPrior)
	assert.Equal(t, "CHECK_CALL", entry.Dominant)
}

func TestLoadPriorsChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "priors.json")
	chart := `{
		"p0/h3/b0/0000000000000000": {"FOLD": 0.25, "ALL_IN": 0.75},
		"p1/h7/b0/0000000000000000": {"CHECK_CALL": 1}
	}`
	require.NoError(t, os.WriteFile(path, []byte(chart), 0o644))

	priors, err := LoadPriors(path)
	require.NoError(t, err)
	require.Len(t, priors, 2)
	assert.InDelta(t, 0.75, priors["p0/h3/b0/0000000000000000"].Freqs[nolimitholdem.ACTION_ALL_IN], 1e-6)
	assert.InDelta(t, 0.25, priors["p0/h3/b0/0000000000000000"].Freqs[nolimitholdem.ACTION_FOLD], 1e-6)
	assert.InDelta(t, 1.0, priors["p1/h7/b0/0000000000000000"].Freqs[nolimitholdem.ACTION_CHECK_CALL], 1e-6)
}

func TestLoadPriorsRejectsUnknownAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "priors.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"k": {"LIMP": 1}}`), 0o644))

	_, err := LoadPriors(path)
	assert.ErrorContains(t, err, "unknown action")
}

func TestArtifactRoundTrip(t *testing.T) {
	key := cfr.Key{Player: 1, Street: 2, HoleBucket: 4, BoardBucket: 2, HistoryHash: 0xabcd}
	art := Build("run-7", []Observation{{
		Key: key,
		Freqs: nolimitholdem.Strategy{
			nolimitholdem.ACTION_CHECK_CALL: 0.55,
			nolimitholdem.ACTION_RAISE_POT:  0.45,
		},
		Visits: 123,
	}}, nil, BuildConfig{})

	path := filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, art.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, art.RunID, loaded.RunID)
	assert.Equal(t, art.Entries, loaded.Entries)
	assert.Equal(t, []string{key.String()}, loaded.Keys())
}
