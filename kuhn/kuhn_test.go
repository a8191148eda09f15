package kuhn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdemcfr/cfr"
	"holdemcfr/nolimitholdem"
)

func TestTerminalLines(t *testing.T) {
	check := nolimitholdem.ACTION_CHECK_CALL
	bet := nolimitholdem.ACTION_RAISE_POT
	fold := nolimitholdem.ACTION_FOLD

	cases := []struct {
		name     string
		line     []nolimitholdem.Action
		terminal bool
	}{
		{"check", []nolimitholdem.Action{check}, false},
		{"check check", []nolimitholdem.Action{check, check}, true},
		{"bet", []nolimitholdem.Action{bet}, false},
		{"bet fold", []nolimitholdem.Action{bet, fold}, true},
		{"bet call", []nolimitholdem.Action{bet, check}, true},
		{"check bet", []nolimitholdem.Action{check, bet}, false},
		{"check bet fold", []nolimitholdem.Action{check, bet, fold}, true},
		{"check bet call", []nolimitholdem.Action{check, bet, check}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGame(1)
			g.SetCards(2, 0)
			for _, a := range tc.line {
				require.False(t, g.IsOver())
				g.Step(a)
			}
			assert.Equal(t, tc.terminal, g.IsOver())
		})
	}
}

func TestPayoffs(t *testing.T) {
	check := nolimitholdem.ACTION_CHECK_CALL
	bet := nolimitholdem.ACTION_RAISE_POT
	fold := nolimitholdem.ACTION_FOLD

	cases := []struct {
		name string
		line []nolimitholdem.Action
		c0   int
		c1   int
		want []float32
	}{
		{"showdown after checks", []nolimitholdem.Action{check, check}, 2, 0, []float32{1, -1}},
		{"showdown after bet call", []nolimitholdem.Action{bet, check}, 0, 2, []float32{-2, 2}},
		{"first to act folds to bet", []nolimitholdem.Action{check, bet, fold}, 2, 0, []float32{-1, 1}},
		{"second folds to bet", []nolimitholdem.Action{bet, fold}, 0, 2, []float32{1, -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGame(1)
			g.SetCards(tc.c0, tc.c1)
			for _, a := range tc.line {
				g.Step(a)
			}
			require.True(t, g.IsOver())
			assert.Equal(t, tc.want, g.Payoffs())
		})
	}
}

func uniformPolicy(is *cfr.InfoSet) nolimitholdem.Strategy {
	s := make(nolimitholdem.Strategy, len(is.Legal))
	for _, a := range is.Legal {
		s[a] = 1.0 / float32(len(is.Legal))
	}
	return s
}

func TestUniformPolicyIsExploitable(t *testing.T) {
	exp := Exploitability(uniformPolicy)
	assert.Greater(t, exp, float32(0.1))
}

// equilibriumPolicy is a known optimal profile: the first player never
// opens, the second bets a jack one third of the time behind a check,
// checks a queen and always bets a king, and both seats defend a bet
// by folding a jack, calling a queen one third of the time and always
// calling a king.
func equilibriumPolicy(is *cfr.InfoSet) nolimitholdem.Strategy {
	check := nolimitholdem.ACTION_CHECK_CALL
	bet := nolimitholdem.ACTION_RAISE_POT
	fold := nolimitholdem.ACTION_FOLD

	facingBet := false
	for _, a := range is.Legal {
		if a == fold {
			facingBet = true
		}
	}
	card := int(is.Key.HoleBucket)

	if facingBet {
		switch card {
		case 0:
			return nolimitholdem.Strategy{fold: 1}
		case 1:
			return nolimitholdem.Strategy{fold: 2.0 / 3.0, check: 1.0 / 3.0}
		default:
			return nolimitholdem.Strategy{check: 1}
		}
	}
	if is.Key.Player == 0 {
		return nolimitholdem.Strategy{check: 1}
	}
	switch card {
	case 0:
		return nolimitholdem.Strategy{check: 2.0 / 3.0, bet: 1.0 / 3.0}
	case 1:
		return nolimitholdem.Strategy{check: 1}
	default:
		return nolimitholdem.Strategy{bet: 1}
	}
}

// A responder that conditioned on the hidden card would still win
// roughly 0.28 per hand against this profile; an information-set best
// response wins nothing.
func TestEquilibriumPolicyNotExploitable(t *testing.T) {
	exp := Exploitability(equilibriumPolicy)
	assert.InDelta(t, 0, exp, 1e-3)
}

// mixRecords computes the exact weighted average of the regret-matched
// snapshot policies.
func mixRecords(records []cfr.SnapshotRecord) Policy {
	return func(is *cfr.InfoSet) nolimitholdem.Strategy {
		acc := make(nolimitholdem.Strategy, len(is.Legal))
		var total float32
		for _, rec := range records {
			s := cfr.RegretMatch(rec.Model.Predict(is), is.Legal)
			for a, p := range s {
				acc[a] += rec.Weight * p
			}
			total += rec.Weight
		}
		for a := range acc {
			acc[a] /= total
		}
		return acc
	}
}

type playerSink struct {
	tabs [2]*cfr.Tabular
}

func (s *playerSink) AddSample(smp *cfr.Sample) {
	s.tabs[smp.Key.Player].AddSample(smp)
}

func TestSelfPlayConverges(t *testing.T) {
	sink := &playerSink{tabs: [2]*cfr.Tabular{cfr.NewTabular(), cfr.NewTabular()}}
	actors := []cfr.Actor{
		cfr.NewAdvantageActor(0, sink.tabs[0], nil),
		cfr.NewAdvantageActor(1, sink.tabs[1], nil),
	}
	game := NewGame(42)
	tr := cfr.New(43, game, actors, sink, nil)

	arenas := [2]*cfr.SnapshotArena{
		cfr.NewSnapshotArena(cfr.RetainAll, 0),
		cfr.NewSnapshotArena(cfr.RetainAll, 0),
	}

	const iterations = 20000
	const snapshotEvery = 200

	var early float32
	for iter := 1; iter <= iterations; iter++ {
		for learner := 0; learner < 2; learner++ {
			_, err := tr.TraverseTree(learner, iter)
			require.NoError(t, err)
		}
		if iter%snapshotEvery == 0 {
			for p := 0; p < 2; p++ {
				arenas[p].Push(iter, sink.tabs[p].Snapshot())
			}
		}
		if iter == 1000 {
			early = profileExploitability(arenas)
		}
	}

	final := profileExploitability(arenas)
	assert.Less(t, final, float32(0.05), "average policy should approach equilibrium")
	assert.Less(t, final, early, "exploitability should shrink with training")
}

func profileExploitability(arenas [2]*cfr.SnapshotArena) float32 {
	policies := [2]Policy{
		mixRecords(arenas[0].Records()),
		mixRecords(arenas[1].Records()),
	}
	return Exploitability(func(is *cfr.InfoSet) nolimitholdem.Strategy {
		return policies[is.Key.Player](is)
	})
}
