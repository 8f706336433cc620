package table

import (
	"context"
	"testing"
	"time"

	"holdem-lite/holdem"
	"holdem-lite/internal/history"
)

func testConfig() Config {
	return Config{
		Name:             "test-table",
		MaxSeats:         6,
		SmallBlind:       50,
		BigBlind:         100,
		MinBuyIn:         1000,
		MaxBuyIn:         10000,
		TurnTimerSeconds: 1,
	}
}

func newTestTable(t *testing.T, historySvc history.Service) *Table {
	t.Helper()
	tbl, err := New("t1", testConfig(), func(string) {}, historySvc, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(tbl.Close)
	return tbl
}

func seatThree(t *testing.T, tbl *Table) {
	t.Helper()
	for i, userID := range []string{"1", "2", "3"} {
		seat := i
		if _, err := tbl.AddPlayer(userID, "p"+userID, 2000, &seat); err != nil {
			t.Fatalf("AddPlayer %s: %v", userID, err)
		}
	}
}

func TestAddPlayerStartsHandAtTwoSeated(t *testing.T) {
	tbl := newTestTable(t, nil)
	zero, one := 0, 1
	if _, err := tbl.AddPlayer("1", "alice", 2000, &zero); err != nil {
		t.Fatalf("AddPlayer alice: %v", err)
	}
	if tbl.game.CurrentStreet() != holdem.StreetWaiting {
		t.Fatalf("expected table to stay in waiting with one seat")
	}
	if _, err := tbl.AddPlayer("2", "bob", 2000, &one); err != nil {
		t.Fatalf("AddPlayer bob: %v", err)
	}
	if tbl.game.CurrentStreet() == holdem.StreetWaiting {
		t.Fatalf("expected hand to start once two players are seated")
	}
}

func TestActRejectsOutOfTurn(t *testing.T) {
	tbl := newTestTable(t, nil)
	seatThree(t, tbl)

	toAct := tbl.game.CurrentToAct()
	wrong := ""
	for _, pl := range tbl.game.Seats() {
		if pl != nil && pl.Seat != toAct {
			wrong = pl.UserID
			break
		}
	}
	if wrong == "" {
		t.Fatalf("expected at least one seated player other than the one to act")
	}
	if err := tbl.Act(wrong, holdem.ActionCheck, 0); err == nil {
		t.Fatalf("expected out-of-turn action to fail")
	}
}

func TestForceTimeoutAdvancesAction(t *testing.T) {
	tbl := newTestTable(t, nil)
	seatThree(t, tbl)

	firstToAct := tbl.game.CurrentToAct()
	time.Sleep(2 * time.Second)
	if tbl.game.CurrentToAct() == firstToAct && tbl.game.CurrentStreet() != holdem.StreetShowdown {
		t.Fatalf("expected turn timer to force an action on seat %d within the timeout window", firstToAct)
	}
}

func TestRemovePlayerRefundsStack(t *testing.T) {
	tbl := newTestTable(t, nil)
	seatThree(t, tbl)

	refund, err := tbl.RemovePlayer("3")
	if err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if refund <= 0 {
		t.Fatalf("expected positive refund, got %d", refund)
	}
	if _, err := tbl.RemovePlayer("3"); err == nil {
		t.Fatalf("expected second RemovePlayer for same user to fail")
	}
}

func TestSetConnectedDoesNotAffectSeat(t *testing.T) {
	tbl := newTestTable(t, nil)
	seatThree(t, tbl)

	if err := tbl.SetConnected("1", false); err != nil {
		t.Fatalf("SetConnected: %v", err)
	}
	snap := tbl.SnapshotFor("1")
	found := false
	for _, seat := range snap.Players {
		if seat.UserID == "1" {
			found = true
			if seat.Connected {
				t.Fatalf("expected seat to reflect disconnected state")
			}
		}
	}
	if !found {
		t.Fatalf("expected seat 1 to remain occupied after SetConnected")
	}
}

type recordingHistory struct {
	calls []string
}

func (r *recordingHistory) Close() error { return nil }
func (r *recordingHistory) RecordHand(_ context.Context, tableID, handID string, _ time.Time, participants []history.ParticipantResult) error {
	r.calls = append(r.calls, handID)
	return nil
}
func (r *recordingHistory) ListRecent(context.Context, uint64, int) ([]history.HandRecord, error) {
	return nil, nil
}

func TestHandEndPersistsHistory(t *testing.T) {
	rec := &recordingHistory{}
	tbl := newTestTable(t, rec)
	seatThree(t, tbl)

	deadline := time.Now().Add(6 * time.Second)
	for time.Now().Before(deadline) && len(rec.calls) == 0 {
		time.Sleep(100 * time.Millisecond)
	}
	if len(rec.calls) == 0 {
		t.Fatalf("expected at least one recorded hand after forced timeouts drove the hand to completion")
	}
}
