package holdem

import (
	"sort"

	"holdem-lite/card"
)

// ShowdownPlayerResult is one seat's outcome from a resolved hand.
type ShowdownPlayerResult struct {
	Seat     int
	UserID   string
	Category string
	Score    int64
	Amount   int64
}

// PotResult is one pot layer's award.
type PotResult struct {
	Amount   int64
	Winners  []int
	Category string
}

// SettleNoShowdown awards the full pot to the sole remaining player; no
// hands are evaluated. Category is the conventional "Opponents Folded"
// label rather than a hand-rank category.
func SettleNoShowdown(seats []*Player, totalPot int64, winnerSeat int) *HandResult {
	winner := seats[winnerSeat]
	winner.Stack += totalPot
	return &HandResult{
		Showdown: false,
		Winners: []ShowdownPlayerResult{{
			Seat:     winnerSeat,
			UserID:   winner.UserID,
			Category: "Opponents Folded",
			Amount:   totalPot,
		}},
		Pots: []PotResult{{Amount: totalPot, Winners: []int{winnerSeat}, Category: "Opponents Folded"}},
	}
}

// SettleShowdown evaluates every non-folded player's best hand once against
// community, then awards each pot layer (main pot plus any side pots) to
// the highest-scoring eligible player(s) for that layer. Ties split the
// pot evenly; an odd remainder is awarded one chip at a time to the tied
// winners in seat order clockwise from the dealer.
func SettleShowdown(seats []*Player, community []card.Card, pots []pot, dealerSeat int) *HandResult {
	type evaluated struct {
		score    int64
		category string
	}
	cache := make(map[int]evaluated, len(seats))
	for seat, p := range seats {
		if p == nil || p.Folded {
			continue
		}
		score, category, err := EvalHand(p.HoleCards, community)
		if err != nil {
			continue // malformed hands cannot occur once a hand reaches showdown
		}
		cache[seat] = evaluated{score, category}
	}

	byUser := map[int]*ShowdownPlayerResult{}
	var potResults []PotResult

	for _, pt := range pots {
		best := int64(-1)
		var winners []int
		for seat := range pt.Eligible {
			e, ok := cache[seat]
			if !ok {
				continue
			}
			switch {
			case e.score > best:
				best = e.score
				winners = []int{seat}
			case e.score == best:
				winners = append(winners, seat)
			}
		}
		if len(winners) == 0 {
			continue
		}
		ordered := clockwiseOrder(winners, dealerSeat+1, len(seats))

		share := pt.Amount / int64(len(ordered))
		remainder := pt.Amount % int64(len(ordered))

		potResults = append(potResults, PotResult{
			Amount:   pt.Amount,
			Winners:  append([]int(nil), ordered...),
			Category: cache[ordered[0]].category,
		})

		for i, seat := range ordered {
			amount := share
			if int64(i) < remainder {
				amount++
			}
			seats[seat].Stack += amount
			if r, ok := byUser[seat]; ok {
				r.Amount += amount
			} else {
				byUser[seat] = &ShowdownPlayerResult{
					Seat:     seat,
					UserID:   seats[seat].UserID,
					Category: cache[seat].category,
					Score:    cache[seat].score,
					Amount:   amount,
				}
			}
		}
	}

	result := &HandResult{Showdown: true, Pots: potResults}
	for _, r := range byUser {
		result.Winners = append(result.Winners, *r)
	}
	sort.Slice(result.Winners, func(i, j int) bool { return result.Winners[i].Seat < result.Winners[j].Seat })
	return result
}

// clockwiseOrder returns the members of seats ordered starting at "start"
// (wrapped into [0,n)) and proceeding clockwise.
func clockwiseOrder(seats []int, start, n int) []int {
	set := make(map[int]bool, len(seats))
	for _, s := range seats {
		set[s] = true
	}
	ordered := make([]int, 0, len(seats))
	for step := 0; step < n; step++ {
		seat := ((start+step)%n + n) % n
		if set[seat] {
			ordered = append(ordered, seat)
		}
	}
	return ordered
}
