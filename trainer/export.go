package trainer

import (
	"math/rand"

	"holdemcfr/cfr"
	"holdemcfr/nolimitholdem"
	"holdemcfr/strategy"
)

// ExportStrategy samples self-play hands under the average policy,
// collects the visited infosets with their action frequencies and
// visit counts, and writes the quantised strategy artifact.
func (o *Orchestrator) ExportStrategy(path string, priors map[string]strategy.Prior, hands int) error {
	if hands <= 0 {
		hands = 5000
	}

	seed := o.cfg.Game.Seed + int64(o.Iteration()) + 97
	extractor := cfr.NewExtractor(seed, o.arenas)
	rng := rand.New(rand.NewSource(seed + 1))

	game := nolimitholdem.NewGame(nolimitholdem.GameConfig{
		RandomSeed:         seed + 2,
		ChipsForEach:       o.cfg.Game.ChipsForEach,
		NumPlayers:         o.cfg.Game.NumPlayers,
		SmallBlindChips:    o.cfg.Game.SmallBlindChips,
		MaxRaisesPerStreet: o.cfg.Game.MaxRaisesPerStreet,
	})
	tree := cfr.NewHoldemTree(game, o.encoder)

	type visit struct {
		freqs  nolimitholdem.Strategy
		visits int64
	}
	seen := make(map[cfr.Key]*visit)

	const policyDraws = 32
	for h := 0; h < hands; h++ {
		tree.Reset()
		for !tree.IsOver() {
			player := tree.CurrentPlayer()
			is := tree.InfoSet(player)

			v, ok := seen[is.Key]
			if !ok {
				v = &visit{freqs: extractor.AveragePolicyN(is, policyDraws)}
				seen[is.Key] = v
			}
			v.visits++

			tree.Step(sampleStrategy(rng, v.freqs, is.Legal))
		}
	}

	observations := make([]strategy.Observation, 0, len(seen))
	for key, v := range seen {
		observations = append(observations, strategy.Observation{
			Key:    key,
			Freqs:  v.freqs,
			Visits: v.visits,
		})
	}

	book := strategy.Build(o.runID, observations, priors, strategy.BuildConfig{
		PriorOverrideVisits: int64(hands / 100),
	})
	o.log.Info().Int("infosets", len(book.Entries)).Str("path", path).Msg("strategy artifact written")
	return book.Save(path)
}
