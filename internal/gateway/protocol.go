package gateway

import (
	"holdem-lite/card"
	"holdem-lite/holdem"
	"holdem-lite/internal/table"
)

// inboundEnvelope is the generic shape every client frame is first
// decoded into before being routed by its action/type field to a handler.
// The handler is passed the undecoded frame so it can re-unmarshal it
// into its own typed request struct.
type inboundEnvelope struct {
	Action    string `json:"action"`
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
}

func (e inboundEnvelope) action() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Type
}

// outbound builds the common {type, message_id, ...} response shape; a
// handler embeds this and adds its own payload fields.
type outbound struct {
	Type      string `json:"type"`
	Success   *bool  `json:"success,omitempty"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

func successEnvelope(msgType, messageID string) outbound {
	ok := true
	return outbound{Type: msgType, Success: &ok, MessageID: messageID}
}

func errorEnvelope(messageID, errMsg string) outbound {
	ok := false
	return outbound{Type: "error", Success: &ok, Error: errMsg, MessageID: messageID}
}

type connectedPush struct {
	Type string `json:"type"`
}

// cardWire is the {rank, suit, value} card shape used on the wire.
// A hidden card is the zero value: rank/suit "?", value 0.
type cardWire struct {
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Value int    `json:"value"`
}

func wireCard(c card.Card) cardWire {
	if c == card.Invalid {
		return cardWire{Rank: "?", Suit: "?", Value: 0}
	}
	return cardWire{Rank: c.RankChar(), Suit: string(c.Suit), Value: c.Rank}
}

func wireCards(cards []card.Card) []cardWire {
	out := make([]cardWire, len(cards))
	for i, c := range cards {
		out[i] = wireCard(c)
	}
	return out
}

// handCardsWire builds a seat's wire card list: the real cards when
// visible, or hiddenCount redacted "?" placeholders when they are not -
// so a viewer can tell a live hidden hand apart from no cards dealt.
func handCardsWire(holeCards []card.Card, hiddenCount int) []cardWire {
	if len(holeCards) > 0 {
		return wireCards(holeCards)
	}
	out := make([]cardWire, hiddenCount)
	for i := range out {
		out[i] = wireCard(card.Invalid)
	}
	return out
}

// playerWire is one seat entry inside a table_update push.
type playerWire struct {
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	Chips         int64      `json:"chips"`
	Position      int        `json:"position"`
	IsSittingOut  bool       `json:"is_sitting_out"`
	CurrentBet    int64      `json:"current_bet"`
	Cards         []cardWire `json:"cards"`
	Folded        bool       `json:"folded"`
	AllIn         bool       `json:"all_in"`
	LastAction    string     `json:"last_action"`
}

// tableStateWire is the table_update push's table_state payload.
type tableStateWire struct {
	TableID         string       `json:"table_id"`
	Name            string       `json:"name"`
	SmallBlind      int64        `json:"small_blind"`
	BigBlind        int64        `json:"big_blind"`
	MinBuyIn        int64        `json:"min_buy_in"`
	MaxBuyIn        int64        `json:"max_buy_in"`
	MaxPlayers      int          `json:"max_players"`
	Players         []playerWire `json:"players"`
	DealerPosition  int          `json:"dealer_position"`
	CurrentPlayer   int          `json:"current_player"`
	Pot             int64        `json:"pot"`
	CommunityCards  []cardWire   `json:"community_cards"`
	GamePhase       string       `json:"game_phase"`
	CurrentBet      int64        `json:"current_bet"`
	Winners         []string     `json:"winners"`
}

type tableUpdatePush struct {
	Type       string         `json:"type"`
	TableState tableStateWire `json:"table_state"`
}

func buildTableState(tableID string, cfg table.Config, snap holdem.Snapshot) tableStateWire {
	players := make([]playerWire, len(snap.Players))
	for i, p := range snap.Players {
		players[i] = playerWire{
			UserID:       p.UserID,
			Username:     p.Display,
			Chips:        p.Stack,
			Position:     p.Seat,
			IsSittingOut: p.SittingOut,
			CurrentBet:   p.CurrentBet,
			Cards:        handCardsWire(p.HoleCards, p.HoleCardCount),
			Folded:       p.Folded,
			AllIn:        p.AllIn,
			LastAction:   p.LastAction.String(),
		}
	}
	return tableStateWire{
		TableID:        tableID,
		Name:           cfg.Name,
		SmallBlind:     cfg.SmallBlind,
		BigBlind:       cfg.BigBlind,
		MinBuyIn:       cfg.MinBuyIn,
		MaxBuyIn:       cfg.MaxBuyIn,
		MaxPlayers:     cfg.MaxSeats,
		Players:        players,
		DealerPosition: snap.DealerSeat,
		CurrentPlayer:  snap.CurrentToAct,
		Pot:            snap.Pot,
		CommunityCards: wireCards(snap.Community),
		GamePhase:      snap.Street.String(),
		CurrentBet:     snap.CurrentBet,
		Winners:        nil,
	}
}
