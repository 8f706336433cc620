package holdem

import "holdem-lite/card"

// PlayerSnapshot is one seat's redacted view, safe to serialize to a
// specific viewer.
type PlayerSnapshot struct {
	UserID     string
	Display    string
	Seat       int
	Stack      int64
	CurrentBet int64
	Folded     bool
	AllIn      bool
	SittingOut bool
	Connected  bool
	LastAction ActionType
	HoleCards  []card.Card // redacted to nil unless visible to the viewer
	// HoleCardCount is the number of cards actually dealt to this seat,
	// reported even when HoleCards is redacted so a viewer can tell a
	// live hidden hand (count > 0) apart from no cards dealt / folded.
	HoleCardCount int
}

// Snapshot is a full, possibly-redacted view of one table's state.
type Snapshot struct {
	DealerSeat   int
	CurrentToAct int
	Street       Street
	Community    []card.Card
	Pot          int64
	CurrentBet   int64
	Players      []PlayerSnapshot
}

// SnapshotFor returns a state view redacted for viewerUserID: a player's
// hole cards are visible only to that player themselves, or to everyone
// once the street reaches showdown provided that player did not fold. An
// empty viewerUserID redacts every hand (an unauthenticated/spectator
// view). SnapshotFor is pure: it never mutates Game state.
func (g *Game) SnapshotFor(viewerUserID string) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		DealerSeat:   g.dealerSeat,
		CurrentToAct: g.currentToAct,
		Street:       g.street,
		Community:    append([]card.Card(nil), g.community...),
		CurrentBet:   g.currentBet,
		Pot:          g.potMgr.total() + g.liveStreetPotLocked(),
	}

	for _, p := range g.seats {
		if p == nil {
			continue
		}
		ps := PlayerSnapshot{
			UserID:        p.UserID,
			Display:       p.Display,
			Seat:          p.Seat,
			Stack:         p.Stack,
			CurrentBet:    p.CurrentBet,
			Folded:        p.Folded,
			AllIn:         p.AllIn,
			SittingOut:    p.SittingOut,
			Connected:     p.Connected,
			LastAction:    p.LastAction,
			HoleCardCount: len(p.HoleCards),
		}
		visible := p.UserID == viewerUserID || (g.street == StreetShowdown && !p.Folded)
		if visible {
			ps.HoleCards = append([]card.Card(nil), p.HoleCards...)
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}

// liveStreetPotLocked sums every chip committed so far this hand, which
// potMgr's layered pots do not yet hold (potMgr is only recomputed at
// showdown time), so a mid-hand snapshot's pot total is accurate.
func (g *Game) liveStreetPotLocked() int64 {
	if g.potMgr.total() > 0 {
		return 0 // already authoritative post-showdown
	}
	var sum int64
	for _, amt := range g.handContrib {
		sum += amt
	}
	return sum
}
