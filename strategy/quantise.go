// Package strategy turns raw policy frequencies into a compact,
// human-interpretable artifact: per situation either one dominant
// action or an ordered cumulative-threshold list.
package strategy

import (
	"sort"

	"holdemcfr/nolimitholdem"
)

const (
	// DefaultHighCutoff promotes an action to the sole prescription.
	DefaultHighCutoff = 0.70
	// DefaultLowCutoff drops rarely taken actions from the artifact.
	DefaultLowCutoff = 0.30
)

// Step is one rung of a probabilistic prescription: play Action when a
// uniform percentile roll lands at or below CumulativePct.
type Step struct {
	Action        string `json:"action"`
	CumulativePct int    `json:"cumulative_pct"`
}

// Quantised is the artifact form of one infoset policy.
type Quantised struct {
	Dominant string `json:"dominant,omitempty"`
	Steps    []Step `json:"steps,omitempty"`
}

// Quantise compresses an action distribution. A frequency at or above
// highCut yields a single dominant action; otherwise actions are
// ordered by frequency and emitted with cumulative percentage
// thresholds, dropping those at or below lowCut. If every action falls
// below the low cutoff the most frequent one is kept.
func Quantise(freqs nolimitholdem.Strategy, highCut, lowCut float32) Quantised {
	type af struct {
		action nolimitholdem.Action
		freq   float32
	}
	ordered := make([]af, 0, len(freqs))
	for a, f := range freqs {
		ordered = append(ordered, af{a, f})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].freq != ordered[j].freq {
			return ordered[i].freq > ordered[j].freq
		}
		return ordered[i].action < ordered[j].action
	})

	if len(ordered) == 0 {
		return Quantised{}
	}
	if ordered[0].freq >= highCut {
		return Quantised{Dominant: nolimitholdem.Action2string[ordered[0].action]}
	}

	kept := make([]af, 0, len(ordered))
	for _, e := range ordered {
		if e.freq > lowCut {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		kept = ordered[:1]
	}

	// Thresholds are raw cumulative percentages; a roll above the last
	// threshold falls back to the final listed action.
	steps := make([]Step, len(kept))
	var cum float32
	for i, e := range kept {
		cum += e.freq
		steps[i] = Step{
			Action:        nolimitholdem.Action2string[e.action],
			CumulativePct: int(cum*100 + 0.5),
		}
	}
	return Quantised{Steps: steps}
}
