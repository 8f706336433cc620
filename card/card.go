package card

import "fmt"

// Card is an immutable 52-card-universe value. Rank runs 2..14 with Ace
// high (14); Suit is one of Spade, Heart, Club, Diamond.
type Card struct {
	Rank int
	Suit Suit
}

// Invalid is the zero value; no real card has rank 0.
var Invalid = Card{}

// New builds a card, panicking on an out-of-range rank or unknown suit.
// Callers that parse untrusted input should use Parse instead.
func New(rank int, suit Suit) Card {
	if rank < 2 || rank > 14 {
		panic(fmt.Sprintf("card: invalid rank %d", rank))
	}
	if !suit.Valid() {
		panic(fmt.Sprintf("card: invalid suit %q", byte(suit)))
	}
	return Card{Rank: rank, Suit: suit}
}

// RankChar returns the wire rank character: "2".."9", "T", "J", "Q", "K", "A".
func (c Card) RankChar() string {
	switch c.Rank {
	case 10:
		return "T"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	case 14:
		return "A"
	default:
		return fmt.Sprintf("%d", c.Rank)
	}
}

func (c Card) String() string {
	if c == Invalid {
		return "??"
	}
	return c.RankChar() + string(rune(c.Suit))
}

var rankChars = map[byte]int{
	'2': 2, '3': 3, '4': 4, '5': 5, '6': 6, '7': 7, '8': 8, '9': 9,
	'T': 10, 'J': 11, 'Q': 12, 'K': 13, 'A': 14,
}

// Parse converts a two-character wire token such as "As" or "Td" into a Card.
func Parse(s string) (Card, error) {
	if len(s) != 2 {
		return Invalid, fmt.Errorf("card: malformed token %q", s)
	}
	rank, ok := rankChars[s[0]]
	if !ok {
		return Invalid, fmt.Errorf("card: unknown rank %q", s[0])
	}
	suit := Suit(s[1])
	if !suit.Valid() {
		return Invalid, fmt.Errorf("card: unknown suit %q", s[1])
	}
	return Card{Rank: rank, Suit: suit}, nil
}
