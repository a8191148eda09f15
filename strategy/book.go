package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"holdemcfr/cfr"
	"holdemcfr/nolimitholdem"
)

// Observation is the raw solver output for one infoset: the extracted
// action frequencies and how often traversal visited the situation.
type Observation struct {
	Key    cfr.Key
	Freqs  nolimitholdem.Strategy
	Visits int64
}

// Prior is an externally supplied policy for a chart-governed
// situation, already expressed over the solver's action set.
type Prior struct {
	Freqs nolimitholdem.Strategy
}

// Entry is one artifact record.
type Entry struct {
	Quantised
	Visits    int64 `json:"visits"`
	FromPrior bool  `json:"from_prior,omitempty"`
}

// Artifact is the exported strategy book, keyed by the textual infoset
// key.
type Artifact struct {
	Version   int              `json:"version"`
	RunID     string           `json:"run_id"`
	Generated time.Time        `json:"generated"`
	Entries   map[string]Entry `json:"entries"`
}

// BuildConfig tunes quantisation and prior precedence.
type BuildConfig struct {
	HighCutoff float32
	LowCutoff  float32
	// PriorOverrideVisits is the visit count above which solver output
	// replaces a supplied prior. At or below it the prior wins.
	PriorOverrideVisits int64
}

func (c *BuildConfig) defaults() {
	if c.HighCutoff <= 0 {
		c.HighCutoff = DefaultHighCutoff
	}
	if c.LowCutoff <= 0 {
		c.LowCutoff = DefaultLowCutoff
	}
}

// Build quantises observations into an artifact, merging priors: a
// prior is used as-is unless the solver visited the situation more
// than the override threshold.
func Build(runID string, observations []Observation, priors map[string]Prior, cfg BuildConfig) *Artifact {
	cfg.defaults()

	entries := make(map[string]Entry, len(observations))
	for _, obs := range observations {
		key := obs.Key.String()
		if prior, ok := priors[key]; ok && obs.Visits <= cfg.PriorOverrideVisits {
			entries[key] = Entry{
				Quantised: Quantise(prior.Freqs, cfg.HighCutoff, cfg.LowCutoff),
				Visits:    obs.Visits,
				FromPrior: true,
			}
			continue
		}
		entries[key] = Entry{
			Quantised: Quantise(obs.Freqs, cfg.HighCutoff, cfg.LowCutoff),
			Visits:    obs.Visits,
		}
	}

	// Priors for situations traversal never reached still apply.
	for key, prior := range priors {
		if _, seen := entries[key]; !seen {
			entries[key] = Entry{
				Quantised: Quantise(prior.Freqs, cfg.HighCutoff, cfg.LowCutoff),
				FromPrior: true,
			}
		}
	}

	return &Artifact{
		Version:   1,
		RunID:     runID,
		Generated: time.Now().UTC(),
		Entries:   entries,
	}
}

// Save writes the artifact as indented JSON.
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode strategy artifact: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadPriors reads an external chart: a JSON object mapping infoset
// keys to action-name frequency maps. Unknown action names are
// rejected so a malformed chart fails loudly instead of silently
// skewing the merge.
func LoadPriors(path string) (map[string]Prior, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]map[string]float32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode priors chart: %w", err)
	}

	byName := make(map[string]nolimitholdem.Action, len(nolimitholdem.Action2string))
	for a, name := range nolimitholdem.Action2string {
		byName[name] = a
	}

	priors := make(map[string]Prior, len(raw))
	for key, freqs := range raw {
		p := Prior{Freqs: make(nolimitholdem.Strategy, len(freqs))}
		for name, f := range freqs {
			a, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("priors chart %s: unknown action %q", key, name)
			}
			p.Freqs[a] = f
		}
		priors[key] = p
	}
	return priors, nil
}

// LoadArtifact reads a previously exported artifact.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode strategy artifact: %w", err)
	}
	return &a, nil
}

// Keys lists entry keys in stable order, for deterministic reporting.
func (a *Artifact) Keys() []string {
	keys := make([]string, 0, len(a.Entries))
	for k := range a.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
