package nolimitholdem

import "sort"

// HandRank is a comparable rank vector for lexicographic comparison.
// Format: [category, ...tiebreaker ranks in priority order]
type HandRank []int16

const (
	HAND_HIGHCARD      = int16(0)
	HAND_PAIR          = int16(1)
	HAND_TWO_PAIR      = int16(2)
	HAND_TRIPS         = int16(3)
	HAND_STRAIGHT      = int16(4)
	HAND_FLUSH         = int16(5)
	HAND_FULL_HOUSE    = int16(6)
	HAND_QUADS         = int16(7)
	HAND_STRAIGHTFLUSH = int16(8)
)

func CompareHandRanks(a, b HandRank) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	return len(a) - len(b)
}

func ConcatCards(holeCards, publicCards []Card) []Card {
	result := make([]Card, 0, len(holeCards)+len(publicCards))
	result = append(result, holeCards...)
	result = append(result, publicCards...)
	return result
}

// straightHigh returns the top rank of the best straight in the rank
// bitmask, or -1. The wheel (A-2-3-4-5) tops out at rank 3.
func straightHigh(mask uint16) int16 {
	for high := int16(12); high >= 4; high-- {
		run := uint16(0b11111) << uint(high-4)
		if mask&run == run {
			return high
		}
	}
	const wheel = uint16(1<<12 | 1<<3 | 1<<2 | 1<<1 | 1)
	if mask&wheel == wheel {
		return 3
	}
	return -1
}

// topRanks returns the count highest set ranks of mask, descending.
func topRanks(mask uint16, count int) []int16 {
	out := make([]int16, 0, count)
	for r := int16(12); r >= 0 && len(out) < count; r-- {
		if mask&(1<<uint(r)) != 0 {
			out = append(out, r)
		}
	}
	return out
}

// EvaluateHandRank ranks the best 5-card hand among the given cards
// (normally 7: two hole cards plus the board).
func EvaluateHandRank(cards []Card) HandRank {
	var rankCnt [13]int16
	var suitCnt [4]int16
	var suitMask [4]uint16
	var ranksMask uint16

	for _, c := range cards {
		r, s := c.Rank(), c.Suit()
		rankCnt[r]++
		suitCnt[s]++
		suitMask[s] |= 1 << uint(r)
		ranksMask |= 1 << uint(r)
	}

	flushSuit := int16(-1)
	for s := int16(0); s < 4; s++ {
		if suitCnt[s] >= 5 {
			flushSuit = s
		}
	}

	if flushSuit >= 0 {
		if high := straightHigh(suitMask[flushSuit]); high >= 0 {
			return HandRank{HAND_STRAIGHTFLUSH, high}
		}
	}

	// Group ranks by multiplicity, highest rank first within a group.
	var quads, trips, pairs []int16
	for r := int16(12); r >= 0; r-- {
		switch rankCnt[r] {
		case 4:
			quads = append(quads, r)
		case 3:
			trips = append(trips, r)
		case 2:
			pairs = append(pairs, r)
		}
	}

	if len(quads) > 0 {
		q := quads[0]
		kicker := topRanks(ranksMask&^(1<<uint(q)), 1)
		return append(HandRank{HAND_QUADS, q}, kicker...)
	}
	if len(trips) > 0 && (len(trips) > 1 || len(pairs) > 0) {
		t := trips[0]
		p := int16(-1)
		if len(trips) > 1 {
			p = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > p {
			p = pairs[0]
		}
		return HandRank{HAND_FULL_HOUSE, t, p}
	}
	if flushSuit >= 0 {
		return append(HandRank{HAND_FLUSH}, topRanks(suitMask[flushSuit], 5)...)
	}
	if high := straightHigh(ranksMask); high >= 0 {
		return HandRank{HAND_STRAIGHT, high}
	}
	if len(trips) > 0 {
		t := trips[0]
		kickers := topRanks(ranksMask&^(1<<uint(t)), 2)
		return append(HandRank{HAND_TRIPS, t}, kickers...)
	}
	if len(pairs) >= 2 {
		hi, lo := pairs[0], pairs[1]
		kicker := topRanks(ranksMask&^(1<<uint(hi))&^(1<<uint(lo)), 1)
		return append(HandRank{HAND_TWO_PAIR, hi, lo}, kicker...)
	}
	if len(pairs) == 1 {
		p := pairs[0]
		kickers := topRanks(ranksMask&^(1<<uint(p)), 3)
		return append(HandRank{HAND_PAIR, p}, kickers...)
	}
	return append(HandRank{HAND_HIGHCARD}, topRanks(ranksMask, 5)...)
}

// ComputeWinners returns a bitmask over seats: 1 = holds (a share of)
// the best hand. Seats with nil cards are treated as folded.
func ComputeWinners(playersCards [][]Card, publicCards []Card) []int {
	result := make([]int, len(playersCards))
	ranks := make([]HandRank, len(playersCards))
	for i, cards := range playersCards {
		if cards == nil {
			ranks[i] = HandRank{-1}
		} else {
			ranks[i] = EvaluateHandRank(ConcatCards(cards, publicCards))
		}
	}

	best := HandRank{-1}
	for _, rank := range ranks {
		if CompareHandRanks(rank, best) > 0 {
			best = rank
		}
	}
	for i, rank := range ranks {
		if CompareHandRanks(rank, best) == 0 {
			result[i] = 1
		}
	}
	return result
}

// SortCards orders cards descending by rank, suits breaking ties, for
// deterministic feature extraction.
func SortCards(cards []Card) []Card {
	out := append([]Card(nil), cards...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank() != out[j].Rank() {
			return out[i].Rank() > out[j].Rank()
		}
		return out[i].Suit() > out[j].Suit()
	})
	return out
}
