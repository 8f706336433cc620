// Package table wraps holdem.Game in a per-table actor: a single
// goroutine that serializes every seat/action/timer event through one
// channel, so the engine's own internal lock is never the only thing
// standing between two concurrent callers. It also owns the turn timer,
// the post-showdown restart delay, and game_history persistence.
package table

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/decred/slog"

	"holdem-lite/holdem"
	"holdem-lite/internal/history"
)

// Config mirrors holdem.Config plus the table identity and timing knobs
// that live above the engine.
type Config struct {
	Name             string
	MaxSeats         int
	SmallBlind       int64
	BigBlind         int64
	MinBuyIn         int64
	MaxBuyIn         int64
	TurnTimerSeconds int // 0 means use DefaultTurnTimerSeconds
}

const (
	DefaultTurnTimerSeconds = 30
	handRestartDelay        = 8 * time.Second
	tickInterval            = 250 * time.Millisecond
)

var ErrTableClosed = errors.New("table: closed")

// BroadcastFunc is invoked once per state-changing event so the caller
// (the gateway/session layer, which owns live connections) can push a
// fresh per-viewer snapshot to every seated player. Table has no
// connection list of its own; it only signals that something changed.
type BroadcastFunc func(tableID string)

// HandEndInfo is passed to a HandEndHook after a hand settles.
type HandEndInfo struct {
	TableID string
	HandID  string
	Result  *holdem.HandResult
}

// HandEndHook observes completed hands, e.g. to update statistics.
type HandEndHook func(HandEndInfo)

type eventType int

const (
	evAddPlayer eventType = iota
	evRemovePlayer
	evAct
	evSitOut
	evSitIn
	evSetConnected
	evTick
	evClose
)

type event struct {
	kind      eventType
	userID    string
	display   string
	amount    int64
	seat      *int
	action    holdem.ActionType
	connected bool
	reply     chan eventResult
}

type eventResult struct {
	seat int
	err  error
}

// Table is a single poker table: its identity, its betting-engine
// instance, and the actor loop that drives timers and persistence around
// it. Exported methods submit an event to the actor and block for the
// reply, so two callers can never race each other's view of the table.
type Table struct {
	ID     string
	Config Config

	log     slog.Logger
	game    *holdem.Game
	history history.Service

	events chan event
	done   chan struct{}
	closeOnce sync.Once

	broadcast BroadcastFunc

	mu           sync.Mutex // guards hook slice only; actor owns everything else
	handEndHooks []HandEndHook

	// actor-owned state below, touched only from run()
	actionSeat     int
	actionDeadline time.Time
	nextHandAt     time.Time
	handNumber     int
	handID         string
	handStartStack map[int]int64
	lastActivity   time.Time
}

// New constructs a table and starts its actor goroutine.
func New(id string, cfg Config, broadcast BroadcastFunc, historySvc history.Service, log slog.Logger) (*Table, error) {
	if cfg.TurnTimerSeconds <= 0 {
		cfg.TurnTimerSeconds = DefaultTurnTimerSeconds
	}
	game, err := holdem.NewGame(holdem.Config{
		MaxSeats:   cfg.MaxSeats,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		MinBuyIn:   cfg.MinBuyIn,
		MaxBuyIn:   cfg.MaxBuyIn,
	})
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", id, err)
	}
	if historySvc == nil {
		historySvc = noopHistory{}
	}
	if log == nil {
		log = slog.Disabled
	}

	t := &Table{
		ID:         id,
		Config:     cfg,
		log:        log,
		game:       game,
		history:    historySvc,
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		broadcast:    broadcast,
		actionSeat:   holdem.NoSeat,
		lastActivity: time.Now(),
	}
	go t.run()
	log.Infof("table %s created (max=%d blinds=%d/%d)", id, cfg.MaxSeats, cfg.SmallBlind, cfg.BigBlind)
	return t, nil
}

func (t *Table) submit(e event) (int, error) {
	e.reply = make(chan eventResult, 1)
	select {
	case t.events <- e:
	case <-t.done:
		return 0, ErrTableClosed
	}
	select {
	case r := <-e.reply:
		return r.seat, r.err
	case <-t.done:
		return 0, ErrTableClosed
	}
}

// AddPlayer seats a new player (or reuses seat if non-nil) with the given
// buy-in, mirroring holdem.Game.AddPlayer.
func (t *Table) AddPlayer(userID, display string, buyIn int64, seat *int) (int, error) {
	return t.submit(event{kind: evAddPlayer, userID: userID, display: display, amount: buyIn, seat: seat})
}

// RemovePlayer stands userID up, returning their table stack as a refund
// the caller credits back to the wallet.
func (t *Table) RemovePlayer(userID string) (int64, error) {
	refund, err := t.submit(event{kind: evRemovePlayer, userID: userID})
	return int64(refund), err
}

// Act applies a player action.
func (t *Table) Act(userID string, action holdem.ActionType, amount int64) error {
	_, err := t.submit(event{kind: evAct, userID: userID, action: action, amount: amount})
	return err
}

func (t *Table) SitOut(userID string) error {
	_, err := t.submit(event{kind: evSitOut, userID: userID})
	return err
}

func (t *Table) SitIn(userID string) error {
	_, err := t.submit(event{kind: evSitIn, userID: userID})
	return err
}

// SetConnected is called by the session registry on connect/disconnect so
// snapshots reflect live connectivity without affecting seat occupancy.
func (t *Table) SetConnected(userID string, connected bool) error {
	_, err := t.submit(event{kind: evSetConnected, userID: userID, connected: connected})
	return err
}

// SnapshotFor is a pure read and bypasses the actor queue: holdem.Game's
// own lock already makes it safe to call from any goroutine.
func (t *Table) SnapshotFor(viewerUserID string) holdem.Snapshot {
	return t.game.SnapshotFor(viewerUserID)
}

func (t *Table) SeatedCount() int {
	return t.game.SeatedCount()
}

func (t *Table) AddHandEndHook(hook HandEndHook) {
	if hook == nil {
		return
	}
	t.mu.Lock()
	t.handEndHooks = append(t.handEndHooks, hook)
	t.mu.Unlock()
}

// Close stops the actor goroutine; further calls return ErrTableClosed.
func (t *Table) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}

// Stop is an alias for Close, matching the lobby's table-lifecycle naming.
func (t *Table) Stop() {
	t.Close()
}

// IsClosed reports whether Close/Stop has already run.
func (t *Table) IsClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// IsIdleFor reports whether the table has had no seated players and no
// state-changing event for at least d. The lobby uses this to reap
// abandoned tables.
func (t *Table) IsIdleFor(d time.Duration) bool {
	if t.game.SeatedCount() > 0 {
		return false
	}
	t.mu.Lock()
	last := t.lastActivity
	t.mu.Unlock()
	return time.Since(last) >= d
}

func (t *Table) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case e := <-t.events:
			seat, err := t.handle(e)
			e.reply <- eventResult{seat: seat, err: err}
		case <-ticker.C:
			t.handleTick()
		case <-t.done:
			return
		}
	}
}

func (t *Table) handle(e event) (int, error) {
	switch e.kind {
	case evAddPlayer:
		wasWaiting := t.game.CurrentStreet() == holdem.StreetWaiting
		seat, err := t.game.AddPlayer(e.userID, e.display, e.amount, e.seat)
		if err != nil {
			return 0, err
		}
		if wasWaiting && t.game.CurrentStreet() != holdem.StreetWaiting {
			t.beginHandBookkeeping()
		}
		t.afterStateChange()
		return seat, nil
	case evRemovePlayer:
		refund, err := t.game.RemovePlayer(e.userID)
		if err != nil {
			return 0, err
		}
		t.afterStateChange()
		return int(refund), nil
	case evAct:
		result, err := t.game.Act(e.userID, e.action, e.amount)
		if err != nil {
			return 0, err
		}
		t.onHandResult(result)
		t.afterStateChange()
		return 0, nil
	case evSitOut:
		if err := t.game.SitOut(e.userID); err != nil {
			return 0, err
		}
		t.afterStateChange()
		return 0, nil
	case evSitIn:
		if err := t.game.SitIn(e.userID); err != nil {
			return 0, err
		}
		t.afterStateChange()
		return 0, nil
	case evSetConnected:
		if err := t.game.SetConnected(e.userID, e.connected); err != nil {
			return 0, err
		}
		t.afterStateChange()
		return 0, nil
	default:
		return 0, fmt.Errorf("table: unknown event %d", e.kind)
	}
}

func (t *Table) handleTick() {
	now := time.Now()
	if t.actionSeat != holdem.NoSeat && !t.actionDeadline.IsZero() && !now.Before(t.actionDeadline) {
		seat := t.actionSeat
		result, err := t.game.ForceTimeout(seat)
		if err != nil {
			t.log.Warnf("table %s: force timeout seat %d: %v", t.ID, seat, err)
		} else {
			t.onHandResult(result)
			t.afterStateChange()
		}
	}
	if !t.nextHandAt.IsZero() && !now.Before(t.nextHandAt) {
		t.nextHandAt = time.Time{}
		if t.game.StartNextHand() {
			t.beginHandBookkeeping()
			t.afterStateChange()
		}
	}
}

// afterStateChange refreshes the action timer from the engine's current
// state and fires the broadcast hook. Cancellation-then-reset is race
// free because it only ever runs inside the single actor goroutine.
func (t *Table) afterStateChange() {
	seat := t.game.CurrentToAct()
	if seat != t.actionSeat {
		t.actionSeat = seat
		if seat == holdem.NoSeat {
			t.actionDeadline = time.Time{}
		} else {
			t.actionDeadline = time.Now().Add(time.Duration(t.Config.TurnTimerSeconds) * time.Second)
		}
	}
	t.mu.Lock()
	t.lastActivity = time.Now()
	t.mu.Unlock()
	if t.broadcast != nil {
		t.broadcast(t.ID)
	}
}

func (t *Table) beginHandBookkeeping() {
	t.handNumber++
	t.handID = fmt.Sprintf("%s-%d-%d", t.ID, time.Now().UnixNano(), t.handNumber)
	t.handStartStack = map[int]int64{}
	for _, p := range t.game.Seats() {
		if p != nil {
			t.handStartStack[p.Seat] = p.Stack
		}
	}
}

// onHandResult persists game_history rows, dispatches hooks, and
// schedules the next hand once a HandResult comes back from Act or
// ForceTimeout. A nil result means the hand is still live.
func (t *Table) onHandResult(result *holdem.HandResult) {
	if result == nil {
		return
	}
	handID := t.handID
	t.persistHandHistory(handID, result)
	t.dispatchHandEndHooks(handID, result)
	t.handID = ""
	if t.game.SeatedCount() >= 2 {
		t.nextHandAt = time.Now().Add(handRestartDelay)
	} else {
		t.nextHandAt = time.Time{}
	}
}

func (t *Table) persistHandHistory(handID string, result *holdem.HandResult) {
	if handID == "" || t.history == nil {
		return
	}
	categoryBySeat := make(map[int]string, len(result.Winners))
	for _, w := range result.Winners {
		categoryBySeat[w.Seat] = w.Category
	}

	participants := make([]history.ParticipantResult, 0, len(t.handStartStack))
	for _, p := range t.game.Seats() {
		if p == nil {
			continue
		}
		startStack, ok := t.handStartStack[p.Seat]
		if !ok {
			continue
		}
		uid, err := parseUserID(p.UserID)
		if err != nil {
			continue
		}
		participants = append(participants, history.ParticipantResult{
			UserID:   uid,
			NetChips: p.Stack - startStack,
			Category: categoryBySeat[p.Seat],
			Folded:   p.Folded,
		})
	}
	if len(participants) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := t.history.RecordHand(ctx, t.ID, handID, time.Now().UTC(), participants); err != nil {
		t.log.Warnf("table %s: record hand history failed: %v", t.ID, err)
	}
}

func (t *Table) dispatchHandEndHooks(handID string, result *holdem.HandResult) {
	t.mu.Lock()
	hooks := append([]HandEndHook(nil), t.handEndHooks...)
	t.mu.Unlock()
	if len(hooks) == 0 {
		return
	}
	info := HandEndInfo{TableID: t.ID, HandID: handID, Result: result}
	for _, hook := range hooks {
		func(h HandEndHook) {
			defer func() {
				if r := recover(); r != nil {
					t.log.Errorf("table %s: hand end hook panic: %v", t.ID, r)
				}
			}()
			h(info)
		}(hook)
	}
}

// parseUserID recovers the numeric account ID from a seat's UserID field.
// The gateway seats players using strconv.FormatUint(accountID, 10), so
// this only fails for malformed input it should never see.
func parseUserID(userID string) (uint64, error) {
	return strconv.ParseUint(userID, 10, 64)
}

type noopHistory struct{}

func (noopHistory) Close() error { return nil }
func (noopHistory) RecordHand(context.Context, string, string, time.Time, []history.ParticipantResult) error {
	return nil
}
func (noopHistory) ListRecent(context.Context, uint64, int) ([]history.HandRecord, error) {
	return nil, nil
}
