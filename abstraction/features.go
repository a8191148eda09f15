package abstraction

import (
	"hash/fnv"
	"math"
	"math/rand"

	"holdemcfr/nolimitholdem"
)

// boardFeatures extracts a fixed-width texture vector from a board:
// suit pattern, pairing, connectivity and rank tier. All components
// are normalized to [0,1] so k-means distances are comparable.
func boardFeatures(board []nolimitholdem.Card) []float64 {
	var suitCnt [4]int
	var rankCnt [13]int
	var ranksMask uint16
	for _, c := range board {
		suitCnt[c.Suit()]++
		rankCnt[c.Rank()]++
		ranksMask |= 1 << uint(c.Rank())
	}

	maxSuit, distinctSuits := 0, 0
	for _, n := range suitCnt {
		if n > maxSuit {
			maxSuit = n
		}
		if n > 0 {
			distinctSuits++
		}
	}

	maxMult, distinctRanks := 0, 0
	topRank, lowRank, rankSum := 0, 12, 0
	for r := 0; r < 13; r++ {
		n := rankCnt[r]
		if n == 0 {
			continue
		}
		if n > maxMult {
			maxMult = n
		}
		distinctRanks++
		rankSum += r * n
		if r > topRank {
			topRank = r
		}
		if r < lowRank {
			lowRank = r
		}
	}

	// Longest run of consecutive ranks, ace counted high and low:
	// bit 0 is the ace-as-one slot, bit r+1 is rank r.
	longMask := uint32(ranksMask) << 1
	if ranksMask&(1<<12) != 0 {
		longMask |= 1
	}
	run, bestRun := 0, 0
	for bit := 0; bit < 14; bit++ {
		if longMask&(1<<uint(bit)) != 0 {
			run++
			if run > bestRun {
				bestRun = run
			}
		} else {
			run = 0
		}
	}

	n := float64(len(board))
	return []float64{
		float64(maxSuit) / n,
		float64(distinctSuits) / 4,
		float64(maxMult) / n,
		float64(distinctRanks) / n,
		float64(topRank) / 12,
		float64(topRank-lowRank) / 12,
		float64(bestRun) / n,
		float64(rankSum) / (n * 12),
	}
}

// Canonical169 maps a hole-card pair to its canonical preflop class:
// pairs and offsuit combos on or below the 13x13 diagonal, suited
// combos above it.
func Canonical169(a, b nolimitholdem.Card) int {
	hi, lo := a.Rank(), b.Rank()
	if lo > hi {
		hi, lo = lo, hi
	}
	if a.Suit() == b.Suit() {
		return int(lo)*13 + int(hi)
	}
	return int(hi)*13 + int(lo)
}

// cardsSeed derives a deterministic rng seed from a card set, so the
// Monte-Carlo equity of a given situation never depends on call order.
func cardsSeed(base int64, cards ...nolimitholdem.Card) int64 {
	h := fnv.New64a()
	for _, c := range cards {
		h.Write([]byte{byte(c), byte(int32(c) >> 8)})
	}
	return base ^ int64(h.Sum64())
}

// equityMoments estimates the equity-distribution moments of hole
// versus one random opponent: for each sampled runout the hand's
// showdown equity is averaged over sampled opponent holdings, and the
// mean and standard deviation across runouts are returned.
func equityMoments(rng *rand.Rand, hole, board []nolimitholdem.Card, runouts, opponents int) (mean, std float64) {
	used := make(map[nolimitholdem.Card]bool, len(hole)+len(board))
	for _, c := range hole {
		used[c] = true
	}
	for _, c := range board {
		used[c] = true
	}
	residual := make([]nolimitholdem.Card, 0, nolimitholdem.DECK_SIZE)
	for c := nolimitholdem.Card(0); c < nolimitholdem.DECK_SIZE; c++ {
		if !used[c] {
			residual = append(residual, c)
		}
	}

	need := 5 - len(board)
	equities := make([]float64, 0, runouts)
	deck := make([]nolimitholdem.Card, len(residual))
	for ro := 0; ro < runouts; ro++ {
		copy(deck, residual)
		rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

		full := append(append([]nolimitholdem.Card(nil), board...), deck[:need]...)
		heroRank := nolimitholdem.EvaluateHandRank(nolimitholdem.ConcatCards(hole, full))

		score := 0.0
		for opp := 0; opp < opponents; opp++ {
			o1 := deck[need+2*opp]
			o2 := deck[need+2*opp+1]
			oppRank := nolimitholdem.EvaluateHandRank(nolimitholdem.ConcatCards([]nolimitholdem.Card{o1, o2}, full))
			switch c := nolimitholdem.CompareHandRanks(heroRank, oppRank); {
			case c > 0:
				score += 1
			case c == 0:
				score += 0.5
			}
		}
		equities = append(equities, score/float64(opponents))
	}

	for _, e := range equities {
		mean += e
	}
	mean /= float64(len(equities))
	for _, e := range equities {
		std += (e - mean) * (e - mean)
	}
	std = math.Sqrt(std / float64(len(equities)))
	return mean, std
}
