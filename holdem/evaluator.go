package holdem

import (
	"sort"

	"holdem-lite/card"
)

// Category names a hand ranking category, ordered high to low by bandOf.
const (
	CategoryRoyalFlush    = "Royal Flush"
	CategoryStraightFlush = "Straight Flush"
	CategoryFourOfAKind   = "Four of a Kind"
	CategoryFullHouse     = "Full House"
	CategoryFlush         = "Flush"
	CategoryStraight      = "Straight"
	CategoryThreeOfAKind  = "Three of a Kind"
	CategoryTwoPair       = "Two Pair"
	CategoryOnePair       = "One Pair"
	CategoryHighCard      = "High Card"
)

// bandWidth is the per-category score band. The largest within-band value
// (five ranks, each <=14, weighted by powers of 100) is about 1.41e9, well
// under this width, so no category's score can spill into its neighbor.
const bandWidth = int64(10_000_000_000)

var bandOf = map[string]int64{
	CategoryHighCard:      0,
	CategoryOnePair:       1,
	CategoryTwoPair:       2,
	CategoryThreeOfAKind:  3,
	CategoryStraight:      4,
	CategoryFlush:         5,
	CategoryFullHouse:     6,
	CategoryFourOfAKind:   7,
	CategoryStraightFlush: 8,
	CategoryRoyalFlush:    9,
}

// packRanks lexicographically encodes up to five ranks, most significant
// first, each weighted by a descending power of 100.
func packRanks(ranks []int) int64 {
	var score int64
	weight := int64(1)
	for i := len(ranks) - 1; i >= 0; i-- {
		score += int64(ranks[i]) * weight
		weight *= 100
	}
	return score
}

// EvalHand scores 2 hole cards plus 3-5 community cards. The score is
// totally ordered: a higher score always beats a lower one, across every
// category. Returns ErrMalformedHand if fewer than 5 distinct card
// positions are supplied.
func EvalHand(hole, community []card.Card) (score int64, category string, err error) {
	all := make([]card.Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)
	return EvalCards(all)
}

// EvalCards scores an arbitrary 5-to-7 card set (the showdown engine
// always calls it with 5-7 cards drawn from a player's hole cards plus the
// board).
func EvalCards(all []card.Card) (score int64, category string, err error) {
	distinct := map[card.Card]bool{}
	for _, c := range all {
		distinct[c] = true
	}
	if len(distinct) < 5 {
		return 0, "", ErrMalformedHand
	}

	bySuit := map[card.Suit][]int{}
	rankCount := map[int]int{}
	for c := range distinct {
		bySuit[c.Suit] = append(bySuit[c.Suit], c.Rank)
		rankCount[c.Rank]++
	}

	var flushSuit card.Suit
	hasFlush := false
	for s, ranks := range bySuit {
		if len(ranks) >= 5 {
			flushSuit = s
			hasFlush = true
			break
		}
	}

	distinctRanksDesc := make([]int, 0, len(rankCount))
	for r := range rankCount {
		distinctRanksDesc = append(distinctRanksDesc, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(distinctRanksDesc)))

	if hasFlush {
		flushRanks := append([]int(nil), bySuit[flushSuit]...)
		sort.Sort(sort.Reverse(sort.IntSlice(flushRanks)))
		if high, ok := bestStraight(flushRanks); ok {
			if high == 14 {
				return bandOf[CategoryRoyalFlush] * bandWidth, CategoryRoyalFlush, nil
			}
			return bandOf[CategoryStraightFlush]*bandWidth + packRanks([]int{high}), CategoryStraightFlush, nil
		}
	}

	type group struct {
		rank  int
		count int
	}
	groups := make([]group, 0, len(rankCount))
	for r, n := range rankCount {
		groups = append(groups, group{r, n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		quad := groups[0].rank
		kicker := highestExcluding(distinctRanksDesc, quad)
		return bandOf[CategoryFourOfAKind]*bandWidth + packRanks([]int{quad, kicker}), CategoryFourOfAKind, nil

	case groups[0].count == 3 && len(groups) > 1 && groups[1].count >= 2:
		triple, pair := groups[0].rank, groups[1].rank
		return bandOf[CategoryFullHouse]*bandWidth + packRanks([]int{triple, pair}), CategoryFullHouse, nil

	case hasFlush:
		flushRanks := append([]int(nil), bySuit[flushSuit]...)
		sort.Sort(sort.Reverse(sort.IntSlice(flushRanks)))
		top5 := flushRanks[:5]
		return bandOf[CategoryFlush]*bandWidth + packRanks(top5), CategoryFlush, nil

	default:
		if high, ok := bestStraight(distinctRanksDesc); ok {
			return bandOf[CategoryStraight]*bandWidth + packRanks([]int{high}), CategoryStraight, nil
		}

		switch {
		case groups[0].count == 3:
			trip := groups[0].rank
			kickers := topNExcluding(distinctRanksDesc, 2, trip)
			return bandOf[CategoryThreeOfAKind]*bandWidth + packRanks(append([]int{trip}, kickers...)), CategoryThreeOfAKind, nil

		case groups[0].count == 2 && len(groups) > 1 && groups[1].count == 2:
			hi, lo := groups[0].rank, groups[1].rank
			if lo > hi {
				hi, lo = lo, hi
			}
			kicker := highestExcluding(distinctRanksDesc, hi, lo)
			return bandOf[CategoryTwoPair]*bandWidth + packRanks([]int{hi, lo, kicker}), CategoryTwoPair, nil

		case groups[0].count == 2:
			pair := groups[0].rank
			kickers := topNExcluding(distinctRanksDesc, 3, pair)
			return bandOf[CategoryOnePair]*bandWidth + packRanks(append([]int{pair}, kickers...)), CategoryOnePair, nil

		default:
			top5 := distinctRanksDesc[:5]
			return bandOf[CategoryHighCard]*bandWidth + packRanks(top5), CategoryHighCard, nil
		}
	}
}

// bestStraight finds the highest straight within a descending, duplicate-
// free rank slice, including the wheel (A-2-3-4-5, which scores as
// high-card 5). It returns the straight's high card and whether one was
// found.
func bestStraight(ranksDesc []int) (int, bool) {
	present := map[int]bool{}
	for _, r := range ranksDesc {
		present[r] = true
	}
	for high := 14; high >= 6; high-- {
		allThere := true
		for k := 0; k < 5; k++ {
			if !present[high-k] {
				allThere = false
				break
			}
		}
		if allThere {
			return high, true
		}
	}
	// Wheel: A,2,3,4,5 with Ace counted as rank 1.
	if present[14] && present[2] && present[3] && present[4] && present[5] {
		return 5, true
	}
	return 0, false
}

func highestExcluding(ranksDesc []int, exclude ...int) int {
	ex := map[int]bool{}
	for _, e := range exclude {
		ex[e] = true
	}
	for _, r := range ranksDesc {
		if !ex[r] {
			return r
		}
	}
	return 0
}

func topNExcluding(ranksDesc []int, n int, exclude ...int) []int {
	ex := map[int]bool{}
	for _, e := range exclude {
		ex[e] = true
	}
	out := make([]int, 0, n)
	for _, r := range ranksDesc {
		if ex[r] {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	return out
}
