// Package lobby owns the set of live tables: a fixed roster of cash
// tables created at startup, plus player-created friend (private)
// games. It is the one place that sequences a wallet buy-in/cash-out
// against a table seat change, so the two never drift out of sync.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/crypto/bcrypt"

	"holdem-lite/internal/history"
	"holdem-lite/internal/table"
	"holdem-lite/internal/wallet"
)

const (
	defaultIdleTableTTL    = 10 * time.Minute
	defaultCleanupInterval = 30 * time.Second
	walletOpTimeout        = 3 * time.Second
)

var (
	ErrTableNotFound    = errors.New("lobby: table not found")
	ErrGameNotFound     = errors.New("lobby: friend game not found")
	ErrGameNameTaken    = errors.New("lobby: friend game name in use")
	ErrWrongPassword    = errors.New("lobby: wrong password")
	ErrNotCreator       = errors.New("lobby: only the creator may do that")
	ErrGameAlreadyEnded = errors.New("lobby: friend game already closed")
)

// GameStatus is the lifecycle state of a PrivateGame.
type GameStatus string

const (
	GameWaiting     GameStatus = "waiting"
	GameActive      GameStatus = "active"
	GameClosed      GameStatus = "closed"
	GameClosedAdmin GameStatus = "closed_admin"
)

// CashTableConfig describes one of the lobby's fixed cash tables.
type CashTableConfig struct {
	ID         string
	Name       string
	MaxSeats   int
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
}

// PrivateGame is a player-created friend game: created once by name, its
// backing Table lives only while Status is waiting or active.
type PrivateGame struct {
	Name         string
	CreatorID    uint64
	passwordHash []byte
	SmallBlind   int64
	BigBlind     int64
	MinBuyIn     int64
	MaxBuyIn     int64
	MaxSeats     int
	Status       GameStatus
	TableID      string
}

// Lobby tracks every live table (cash and friend) and sequences wallet
// operations around seat changes: the wallet debit/credit completes (or
// is compensated) before the table actor is driven, per the wallet-then-
// table lock ordering.
type Lobby struct {
	mu          sync.RWMutex
	tables      map[string]*table.Table
	friendGames map[string]*PrivateGame
	nextID      uint64

	wallet  wallet.Service
	history history.Service
	log     slog.Logger

	broadcast table.BroadcastFunc

	idleTableTTL    time.Duration
	cleanupInterval time.Duration
	done            chan struct{}
	stopOnce        sync.Once
}

// New creates a lobby and seeds it with the given fixed cash tables.
func New(walletSvc wallet.Service, historySvc history.Service, broadcast table.BroadcastFunc, log slog.Logger, cashTables []CashTableConfig) (*Lobby, error) {
	if log == nil {
		log = slog.Disabled
	}
	l := &Lobby{
		tables:          make(map[string]*table.Table),
		friendGames:     make(map[string]*PrivateGame),
		wallet:          walletSvc,
		history:         historySvc,
		log:             log,
		broadcast:       broadcast,
		idleTableTTL:    defaultIdleTableTTL,
		cleanupInterval: defaultCleanupInterval,
		done:            make(chan struct{}),
	}
	for _, cfg := range cashTables {
		tbl, err := table.New(cfg.ID, table.Config{
			Name:       cfg.Name,
			MaxSeats:   cfg.MaxSeats,
			SmallBlind: cfg.SmallBlind,
			BigBlind:   cfg.BigBlind,
			MinBuyIn:   cfg.MinBuyIn,
			MaxBuyIn:   cfg.MaxBuyIn,
		}, broadcast, historySvc, log)
		if err != nil {
			return nil, fmt.Errorf("lobby: seed cash table %s: %w", cfg.ID, err)
		}
		l.tables[cfg.ID] = tbl
	}
	go l.cleanupLoop()
	return l, nil
}

// CashTableSummary is the get_cash_tables wire payload shape.
type CashTableSummary struct {
	TableID    string
	Name       string
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
	MaxSeats   int
	Seated     int
}

// ListCashTables returns every fixed cash table's current occupancy.
func (l *Lobby) ListCashTables() []CashTableSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]CashTableSummary, 0, len(l.tables))
	for id, t := range l.tables {
		if _, isFriend := l.tableIsFriendLocked(id); isFriend {
			continue
		}
		out = append(out, CashTableSummary{
			TableID:    id,
			Name:       t.Config.Name,
			SmallBlind: t.Config.SmallBlind,
			BigBlind:   t.Config.BigBlind,
			MinBuyIn:   t.Config.MinBuyIn,
			MaxBuyIn:   t.Config.MaxBuyIn,
			MaxSeats:   t.Config.MaxSeats,
			Seated:     t.SeatedCount(),
		})
	}
	return out
}

func (l *Lobby) tableIsFriendLocked(tableID string) (*PrivateGame, bool) {
	for _, g := range l.friendGames {
		if g.TableID == tableID {
			return g, true
		}
	}
	return nil, false
}

// GetTable returns a table by ID, cash or friend.
func (l *Lobby) GetTable(tableID string) (*table.Table, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tables[tableID]
	return t, ok
}

// JoinCashTable debits the wallet for buyIn, then seats the player;
// a seat failure refunds the debit before returning the error, so the
// wallet and table never disagree about whether the buy-in happened.
func (l *Lobby) JoinCashTable(accountID uint64, userID, display string, tableID string, buyIn int64) (*table.Table, int, error) {
	l.mu.RLock()
	tbl, ok := l.tables[tableID]
	l.mu.RUnlock()
	if !ok {
		return nil, 0, ErrTableNotFound
	}
	return l.buyInAndSeat(accountID, userID, display, tbl, buyIn)
}

func (l *Lobby) buyInAndSeat(accountID uint64, userID, display string, tbl *table.Table, buyIn int64) (*table.Table, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), walletOpTimeout)
	defer cancel()

	if buyIn < tbl.Config.MinBuyIn || buyIn > tbl.Config.MaxBuyIn {
		return nil, 0, fmt.Errorf("lobby: buy-in %d outside [%d, %d]", buyIn, tbl.Config.MinBuyIn, tbl.Config.MaxBuyIn)
	}
	tx, err := l.wallet.BuyIn(ctx, accountID, buyIn, tbl.ID)
	if err != nil {
		return nil, 0, err
	}
	seat, err := tbl.AddPlayer(userID, display, buyIn, nil)
	if err != nil {
		if refundErr := l.wallet.RefundBuyIn(ctx, tx.ID); refundErr != nil {
			l.log.Errorf("lobby: refund buy-in %d after seat failure: %v", tx.ID, refundErr)
		}
		return nil, 0, err
	}
	return tbl, seat, nil
}

// LeaveTable stands the player up and credits their remaining stack back
// to the wallet.
func (l *Lobby) LeaveTable(accountID uint64, userID, tableID string) error {
	l.mu.RLock()
	tbl, ok := l.tables[tableID]
	l.mu.RUnlock()
	if !ok {
		return ErrTableNotFound
	}
	refund, err := tbl.RemovePlayer(userID)
	if err != nil {
		return err
	}
	if refund <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), walletOpTimeout)
	defer cancel()
	if _, err := l.wallet.CashOut(ctx, accountID, refund, tableID); err != nil {
		l.log.Errorf("lobby: cash out %d for account %d after leaving %s: %v", refund, accountID, tableID, err)
		return err
	}
	return nil
}

// CreateFriendGame registers a new private game under a unique name. The
// backing Table is created lazily on first join.
func (l *Lobby) CreateFriendGame(creatorID uint64, name, password string, smallBlind, bigBlind, minBuyIn, maxBuyIn int64, maxSeats int) (*PrivateGame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if g, exists := l.friendGames[name]; exists && g.Status != GameClosed && g.Status != GameClosedAdmin {
		return nil, ErrGameNameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("lobby: hash friend game password: %w", err)
	}
	l.nextID++
	g := &PrivateGame{
		Name:         name,
		CreatorID:    creatorID,
		passwordHash: hash,
		SmallBlind:   smallBlind,
		BigBlind:     bigBlind,
		MinBuyIn:     minBuyIn,
		MaxBuyIn:     maxBuyIn,
		MaxSeats:     maxSeats,
		Status:       GameWaiting,
		TableID:      fmt.Sprintf("friend_%d", l.nextID),
	}
	l.friendGames[name] = g
	return g, nil
}

// JoinFriendGame validates the password, lazily creates the backing
// Table on first join, then buys the player in exactly like a cash table.
func (l *Lobby) JoinFriendGame(accountID uint64, userID, display, name, password string, buyIn int64) (*table.Table, int, error) {
	l.mu.Lock()
	g, ok := l.friendGames[name]
	if !ok {
		l.mu.Unlock()
		return nil, 0, ErrGameNotFound
	}
	if g.Status == GameClosed || g.Status == GameClosedAdmin {
		l.mu.Unlock()
		return nil, 0, ErrGameAlreadyEnded
	}
	if bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)) != nil {
		l.mu.Unlock()
		return nil, 0, ErrWrongPassword
	}
	tbl, exists := l.tables[g.TableID]
	if !exists {
		var err error
		tbl, err = table.New(g.TableID, table.Config{
			Name:       g.Name,
			MaxSeats:   g.MaxSeats,
			SmallBlind: g.SmallBlind,
			BigBlind:   g.BigBlind,
			MinBuyIn:   g.MinBuyIn,
			MaxBuyIn:   g.MaxBuyIn,
		}, l.broadcast, l.history, l.log)
		if err != nil {
			l.mu.Unlock()
			return nil, 0, err
		}
		l.tables[g.TableID] = tbl
	}
	g.Status = GameActive
	l.mu.Unlock()

	return l.buyInAndSeat(accountID, userID, display, tbl, buyIn)
}

// GetFriendGames lists every friend game that has not been closed.
func (l *Lobby) GetFriendGames() []*PrivateGame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*PrivateGame, 0, len(l.friendGames))
	for _, g := range l.friendGames {
		if g.Status == GameClosed || g.Status == GameClosedAdmin {
			continue
		}
		out = append(out, g)
	}
	return out
}

// DeleteFriendGame closes a friend game; only its creator may do so.
func (l *Lobby) DeleteFriendGame(requesterID uint64, name string) error {
	l.mu.Lock()
	g, ok := l.friendGames[name]
	if !ok {
		l.mu.Unlock()
		return ErrGameNotFound
	}
	if g.CreatorID != requesterID {
		l.mu.Unlock()
		return ErrNotCreator
	}
	g.Status = GameClosed
	tbl, hasTable := l.tables[g.TableID]
	delete(l.tables, g.TableID)
	l.mu.Unlock()

	if hasTable {
		tbl.Stop()
	}
	return nil
}

// CloseFriendGameAdmin is the admin control plane's forced variant of
// DeleteFriendGame: no creator check, and the status records that an
// operator ended it rather than the creator.
func (l *Lobby) CloseFriendGameAdmin(name string) error {
	l.mu.Lock()
	g, ok := l.friendGames[name]
	if !ok {
		l.mu.Unlock()
		return ErrGameNotFound
	}
	g.Status = GameClosedAdmin
	tbl, hasTable := l.tables[g.TableID]
	delete(l.tables, g.TableID)
	l.mu.Unlock()

	if hasTable {
		tbl.Stop()
	}
	return nil
}

// ReactivateFriendGameAdmin reopens an admin-closed friend game under the
// same name, assigning it a fresh table ID so a stale reference to the
// old (stopped) Table can never be reused.
func (l *Lobby) ReactivateFriendGameAdmin(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.friendGames[name]
	if !ok {
		return ErrGameNotFound
	}
	if g.Status != GameClosedAdmin {
		return ErrGameAlreadyEnded
	}
	l.nextID++
	g.TableID = fmt.Sprintf("friend_%d", l.nextID)
	g.Status = GameWaiting
	return nil
}

func (l *Lobby) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.CleanupIdleTables()
		case <-l.done:
			return
		}
	}
}

// CleanupIdleTables reaps empty, idle friend-game tables. Fixed cash
// tables are never reaped even when empty.
func (l *Lobby) CleanupIdleTables() int {
	l.mu.Lock()
	var idle []*table.Table
	for name, g := range l.friendGames {
		if g.Status != GameActive {
			continue
		}
		tbl, ok := l.tables[g.TableID]
		if !ok {
			continue
		}
		if tbl.IsClosed() || tbl.IsIdleFor(l.idleTableTTL) {
			delete(l.tables, g.TableID)
			g.Status = GameClosed
			idle = append(idle, tbl)
			l.log.Infof("lobby: reaped idle friend game %q (table %s)", name, g.TableID)
		}
	}
	l.mu.Unlock()

	for _, tbl := range idle {
		tbl.Stop()
	}
	return len(idle)
}

// Stop shuts down lobby housekeeping and every table it owns.
func (l *Lobby) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		tables := make([]*table.Table, 0, len(l.tables))
		for _, t := range l.tables {
			tables = append(tables, t)
		}
		l.tables = make(map[string]*table.Table)
		l.mu.Unlock()
		for _, t := range tables {
			t.Stop()
		}
	})
}
