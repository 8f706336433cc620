package holdem

// Seats returns a defensive copy of the seat table, nil where empty. It
// exists for callers (internal/table) that need to read multiple seats'
// fields together without racing the engine's own lock discipline; each
// call takes and releases the lock once.
func (g *Game) Seats() []*Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Player, len(g.seats))
	for i, p := range g.seats {
		if p == nil {
			continue
		}
		cp := *p
		out[i] = &cp
	}
	return out
}

// DealerSeat returns the current dealer seat, or NoSeat before the first
// hand of the table's life.
func (g *Game) DealerSeat() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dealerSeat
}

// CurrentBet returns the bet level every live player must match to stay
// in the hand.
func (g *Game) CurrentBet() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentBet
}
