package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyPathDisablesStore(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, s.Close())
}

func TestRecordAndQueryCycles(t *testing.T) {
	s := openTest(t)

	require.NoError(t, s.RecordRun(Run{RunID: "r1", StartedAt: time.Now().UTC(), Config: "{}"}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.RecordCycle(Cycle{
			RunID:        "r1",
			Iteration:    i * 100,
			RecordedAt:   time.Now().UTC(),
			NodesVisited: int64(i * 1000),
			Trees:        int64(i * 10),
		}))
	}

	cycles, err := s.Cycles("r1")
	require.NoError(t, err)
	require.Len(t, cycles, 3)
	assert.Equal(t, 100, cycles[0].Iteration)
	assert.Equal(t, 300, cycles[2].Iteration)
	assert.EqualValues(t, 3000, cycles[2].NodesVisited)
}

func TestCycleUpsert(t *testing.T) {
	s := openTest(t)

	c := Cycle{RunID: "r1", Iteration: 100, RecordedAt: time.Now().UTC(), NodesVisited: 1, Trees: 1}
	require.NoError(t, s.RecordCycle(c))
	c.NodesVisited = 2
	require.NoError(t, s.RecordCycle(c))

	cycles, err := s.Cycles("r1")
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.EqualValues(t, 2, cycles[0].NodesVisited)
}

func TestRetrainingAndEvaluationRows(t *testing.T) {
	s := openTest(t)

	require.NoError(t, s.RecordRetraining(Retraining{
		RunID: "r1", Iteration: 100, Player: 0, Loss: 0.5, Samples: 4096,
	}))
	require.NoError(t, s.RecordRetraining(Retraining{
		RunID: "r1", Iteration: 100, Player: 1, Loss: 0.7, Samples: 4096, Skipped: true,
	}))

	require.NoError(t, s.RecordEvaluation(Evaluation{RunID: "r1", Iteration: 100, Exploitability: 0.3}))
	require.NoError(t, s.RecordEvaluation(Evaluation{RunID: "r1", Iteration: 200, Exploitability: 0.2}))

	evals, err := s.Evaluations("r1")
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Less(t, evals[1].Exploitability, evals[0].Exploitability)
}

func TestRunsIsolated(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.RecordCycle(Cycle{RunID: "a", Iteration: 1, RecordedAt: time.Now().UTC()}))
	require.NoError(t, s.RecordCycle(Cycle{RunID: "b", Iteration: 2, RecordedAt: time.Now().UTC()}))

	cycles, err := s.Cycles("a")
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, 1, cycles[0].Iteration)
}
