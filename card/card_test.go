package card

import (
	"math/rand"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"As", "Th", "2c", "Kd", "9s"}
	for _, tok := range cases {
		c, err := Parse(tok)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tok, err)
		}
		if got := c.RankChar() + string(rune(c.Suit)); got != tok {
			t.Errorf("round trip %q => %q", tok, got)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "A", "Ax", "1s", "AAs"} {
		if _, err := Parse(tok); err == nil {
			t.Errorf("Parse(%q): expected error", tok)
		}
	}
}

func TestDeckDealsFullUniqueUniverse(t *testing.T) {
	d := NewDeck()
	d.Shuffle(rand.New(rand.NewSource(1)))

	seen := make(map[Card]bool, 52)
	dealt := d.Deal(52)
	if len(dealt) != 52 {
		t.Fatalf("expected 52 cards, got %d", len(dealt))
	}
	for _, c := range dealt {
		if seen[c] {
			t.Fatalf("duplicate card dealt: %v", c)
		}
		seen[c] = true
	}
	if d.Remaining() != 0 {
		t.Fatalf("expected empty deck, remaining=%d", d.Remaining())
	}
}

func TestTwoFreshDecksBothCoverUniverse(t *testing.T) {
	for i := 0; i < 2; i++ {
		d := NewDeck()
		d.Shuffle(rand.New(rand.NewSource(int64(i))))
		seen := make(map[Card]bool, 52)
		for _, c := range d.Deal(52) {
			seen[c] = true
		}
		if len(seen) != 52 {
			t.Fatalf("deck %d: expected 52 distinct cards, got %d", i, len(seen))
		}
	}
}
