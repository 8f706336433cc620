package holdem

import (
	"testing"

	"holdem-lite/card"
)

func mustParse(t *testing.T, toks ...string) []card.Card {
	t.Helper()
	out := make([]card.Card, 0, len(toks))
	for _, tok := range toks {
		c, err := card.Parse(tok)
		if err != nil {
			t.Fatalf("card.Parse(%q): %v", tok, err)
		}
		out = append(out, c)
	}
	return out
}

func TestEvalHandRoyalFlush(t *testing.T) {
	hole := mustParse(t, "Ah", "Kh")
	community := mustParse(t, "Qh", "Jh", "Th", "2c", "3d")
	score, cat, err := EvalHand(hole, community)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat != CategoryRoyalFlush {
		t.Fatalf("category = %q, want %q", cat, CategoryRoyalFlush)
	}
	if score != bandOf[CategoryRoyalFlush]*bandWidth {
		t.Fatalf("royal flush score = %d, want exactly the band floor", score)
	}
}

func TestEvalHandStraightFlushBeatsQuads(t *testing.T) {
	sfHole := mustParse(t, "9h", "Kh")
	sfCommunity := mustParse(t, "Qh", "Jh", "Th", "2c", "3d")
	sfScore, sfCat, err := EvalHand(sfHole, sfCommunity)
	if err != nil {
		t.Fatalf("hand A: unexpected error: %v", err)
	}
	if sfCat != CategoryStraightFlush {
		t.Fatalf("hand A category = %q, want %q", sfCat, CategoryStraightFlush)
	}

	quadsHole := mustParse(t, "As", "Ad")
	quadsCommunity := mustParse(t, "Ac", "Ah", "Kd", "2c", "3d")
	quadsScore, quadsCat, err := EvalHand(quadsHole, quadsCommunity)
	if err != nil {
		t.Fatalf("hand B: unexpected error: %v", err)
	}
	if quadsCat != CategoryFourOfAKind {
		t.Fatalf("hand B category = %q, want %q", quadsCat, CategoryFourOfAKind)
	}

	if sfScore <= quadsScore {
		t.Fatalf("straight flush score %d should beat quads score %d", sfScore, quadsScore)
	}
}

func TestEvalHandWheelStraightIsFiveHigh(t *testing.T) {
	hole := mustParse(t, "Ac", "2d")
	community := mustParse(t, "3h", "4s", "5c", "Kh", "Qh")
	score, cat, err := EvalHand(hole, community)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat != CategoryStraight {
		t.Fatalf("category = %q, want %q", cat, CategoryStraight)
	}

	sixHighHole := mustParse(t, "6c", "2d")
	sixHighCommunity := mustParse(t, "3h", "4s", "5c", "Kh", "Qh")
	sixHighScore, _, err := EvalHand(sixHighHole, sixHighCommunity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score >= sixHighScore {
		t.Fatalf("wheel score %d should be less than 6-high straight score %d", score, sixHighScore)
	}
}

func TestEvalHandMalformedBelowFivePositions(t *testing.T) {
	hole := mustParse(t, "Ah", "Kh")
	community := mustParse(t, "Qh")
	if _, _, err := EvalHand(hole, community); err != ErrMalformedHand {
		t.Fatalf("err = %v, want ErrMalformedHand", err)
	}
}

func TestEvalHandCategoryOrdering(t *testing.T) {
	cases := []struct {
		name      string
		hole      []string
		community []string
		want      string
	}{
		{"full house", []string{"Ah", "Ad"}, []string{"Ac", "Kh", "Kd", "2c", "3d"}, CategoryFullHouse},
		{"flush", []string{"2h", "9h"}, []string{"Kh", "5h", "Jh", "2c", "3d"}, CategoryFlush},
		{"straight", []string{"9h", "Td"}, []string{"Jc", "Qh", "8d", "2c", "3d"}, CategoryStraight},
		{"trips", []string{"Ah", "Ad"}, []string{"Ac", "Kh", "Qd", "2c", "3d"}, CategoryThreeOfAKind},
		{"two pair", []string{"Ah", "Ad"}, []string{"Kc", "Kh", "Qd", "2c", "3d"}, CategoryTwoPair},
		{"one pair", []string{"Ah", "Ad"}, []string{"Kc", "Qh", "Jd", "2c", "3d"}, CategoryOnePair},
		{"high card", []string{"Ah", "Kd"}, []string{"9c", "7h", "2d", "3c", "4d"}, CategoryHighCard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, cat, err := EvalHand(mustParse(t, tc.hole...), mustParse(t, tc.community...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cat != tc.want {
				t.Fatalf("category = %q, want %q", cat, tc.want)
			}
		})
	}
}

func TestEvalHandBandsNeverOverlap(t *testing.T) {
	// A weak high card (9-high) must still score below the weakest pair.
	highCardScore, _, err := EvalHand(mustParse(t, "7h", "5d"), mustParse(t, "4c", "3h", "2d", "9s", "8c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pairScore, _, err := EvalHand(mustParse(t, "2h", "2d"), mustParse(t, "3c", "4h", "5d", "9s", "8c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if highCardScore >= pairScore {
		t.Fatalf("high card score %d should be < weakest pair score %d", highCardScore, pairScore)
	}
}
