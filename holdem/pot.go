package holdem

import "sort"

// pot is one layer of the hand's total chips: an amount and the set of
// seats still eligible to win it (folded players contribute but are not
// eligible).
type pot struct {
	Amount    int64
	Eligible  map[int]bool
}

// potManager partitions all-in contributions into side pots. It is
// recomputed from scratch at showdown time (or whenever the caller wants
// an up-to-date pot breakdown), from each player's total hand
// contribution and fold status — grounded on the classic side-pot
// "layering" algorithm: sort distinct contribution levels, and for each
// layer collect (level_i - level_i-1) * (players still contributing at or
// above level_i).
type potManager struct {
	pots []pot
}

func (pm *potManager) resetPots() {
	pm.pots = nil
}

func (pm *potManager) total() int64 {
	var sum int64
	for _, p := range pm.pots {
		sum += p.Amount
	}
	return sum
}

// calcPotsByContribution rebuilds the pot layers from each seat's total
// chips committed this hand (handContrib) and fold status. Players with
// zero contribution are ignored. Folded players still contribute to pot
// amounts but are never eligible to win.
func (pm *potManager) calcPotsByContribution(handContrib map[int]int64, folded map[int]bool) {
	pm.resetPots()

	type entry struct {
		seat  int
		total int64
	}
	var entries []entry
	for seat, amt := range handContrib {
		if amt > 0 {
			entries = append(entries, entry{seat, amt})
		}
	}
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].total < entries[j].total })

	var prevLevel int64
	for i, e := range entries {
		level := e.total
		if level == prevLevel {
			continue
		}
		layerAmount := (level - prevLevel) * int64(len(entries)-i)
		if layerAmount <= 0 {
			prevLevel = level
			continue
		}
		eligible := make(map[int]bool)
		for _, e2 := range entries[i:] {
			if !folded[e2.seat] {
				eligible[e2.seat] = true
			}
		}
		if len(eligible) > 0 {
			pm.pots = append(pm.pots, pot{Amount: layerAmount, Eligible: eligible})
		} else {
			// Every contributor at this layer folded; fold their excess
			// into the previous eligible layer rather than losing it.
			if len(pm.pots) > 0 {
				pm.pots[len(pm.pots)-1].Amount += layerAmount
			} else {
				pm.pots = append(pm.pots, pot{Amount: layerAmount, Eligible: map[int]bool{}})
			}
		}
		prevLevel = level
	}
}
