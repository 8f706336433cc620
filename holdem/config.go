package holdem

import (
	"fmt"

	"holdem-lite/card"
)

// Config parameterizes one table's hand engine. It is validated once at
// table creation and never mutated afterward; the betting numbers here are
// the table's blind/buy-in identity.
type Config struct {
	MaxSeats   int
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
	Seed       int64 // 0 means "seed from the current time"

	// DeckOverride, if it holds all 52 cards, replaces the shuffled deck
	// for every hand dealt by this Game - a determinism hook for tests.
	DeckOverride []card.Card
}

func (c Config) validate() error {
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("holdem: MaxSeats %d out of range [2,10]", c.MaxSeats)
	}
	if c.SmallBlind <= 0 || c.BigBlind <= 0 {
		return fmt.Errorf("holdem: blinds must be positive")
	}
	if c.BigBlind < c.SmallBlind {
		return fmt.Errorf("holdem: big blind must be >= small blind")
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("holdem: invalid buy-in bounds [%d,%d]", c.MinBuyIn, c.MaxBuyIn)
	}
	return nil
}
