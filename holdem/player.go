package holdem

import "holdem-lite/card"

// Player is one seated participant, owned exclusively by the Game for as
// long as they hold a seat. The engine never reads wallet state directly;
// Stack is the on-table chip count handed over at buy-in time.
type Player struct {
	UserID  string
	Display string
	Seat    int

	Stack int64

	HoleCards    []card.Card // 0 or 2, always dealt/cleared together
	CurrentBet   int64       // committed so far on the current street
	Folded       bool
	AllIn        bool
	SittingOut   bool
	Connected    bool
	LastAction   ActionType
}

func newPlayer(userID, display string, seat int, stack int64) *Player {
	return &Player{
		UserID:    userID,
		Display:   display,
		Seat:      seat,
		Stack:     stack,
		Connected: true,
	}
}

// eligibleToAct reports whether p can still voluntarily act this hand:
// seated, not folded, not all-in, not sitting out.
func (p *Player) eligibleToAct() bool {
	return p != nil && !p.Folded && !p.AllIn && !p.SittingOut
}

// resetForHand clears all per-hand flags before a new deal.
func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.Folded = false
	p.AllIn = false
	p.LastAction = ActionNone
}

// resetForStreet clears per-street betting state between streets.
func (p *Player) resetForStreet() {
	p.CurrentBet = 0
	p.LastAction = ActionNone
}

// place deducts min(amount, stack) from the player's stack, adds it to
// their current-street commitment, and marks all-in if the stack hits
// zero. It returns the amount actually committed.
func (p *Player) place(amount int64) int64 {
	if amount > p.Stack {
		amount = p.Stack
	}
	p.Stack -= amount
	p.CurrentBet += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
	return amount
}
