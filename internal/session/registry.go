// Package session tracks the live connection↔account binding and the
// disconnect/reconnect grace window described for the gateway's transport
// layer. It never touches a Table's internal lock directly; it only calls
// the small, already-synchronized Table methods (SitOut, SitIn,
// SetConnected) that exist for exactly this purpose.
package session

import (
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"holdem-lite/internal/table"
)

// ConnID identifies one live transport connection, assigned by the
// gateway when it accepts a socket.
type ConnID uint64

// DefaultGraceWindow is the minimum reconnection window: a dropped
// connection's seat is held at least this long before the registry stops
// tracking it for rebind purposes.
const DefaultGraceWindow = 5 * time.Minute

// Seat identifies where an account was seated at disconnect time.
type Seat struct {
	TableID string
	UserID  string // holdem.Game seat key, i.e. strconv.FormatUint(accountID, 10)
}

// TableLookup resolves a table ID to a live *table.Table. It is supplied
// by the lobby/table registry that owns table lifecycles.
type TableLookup func(tableID string) (*table.Table, bool)

// Registry is the session registry: bidirectional connection↔account
// maps plus a bounded grace window of recently disconnected seats.
type Registry struct {
	mu         sync.Mutex
	connToUser map[ConnID]uint64
	userToConn map[uint64]ConnID
	userSeat   map[uint64]Seat

	grace *expirable.LRU[uint64, Seat]

	lookup TableLookup
	log    slog.Logger
}

// New constructs a registry. graceWindow <= 0 uses DefaultGraceWindow.
func New(graceWindow time.Duration, lookup TableLookup, log slog.Logger) *Registry {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	if log == nil {
		log = slog.Disabled
	}
	r := &Registry{
		connToUser: make(map[ConnID]uint64),
		userToConn: make(map[uint64]ConnID),
		userSeat:   make(map[uint64]Seat),
		lookup:     lookup,
		log:        log,
	}
	r.grace = expirable.NewLRU[uint64, Seat](4096, nil, graceWindow)
	return r
}

// Bind registers conn as accountID's one live connection. If accountID
// already held a different live connection, its ConnID is returned so the
// gateway can force-close that older socket; an account may hold at most
// one live connection at a time.
func (r *Registry) Bind(conn ConnID, accountID uint64) (evicted ConnID, evictedOK bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.userToConn[accountID]; ok && prev != conn {
		delete(r.connToUser, prev)
		evicted, evictedOK = prev, true
	}
	r.connToUser[conn] = accountID
	r.userToConn[accountID] = conn
	return evicted, evictedOK
}

// SetSeat records that accountID now occupies seat, so a later Disconnect
// knows which table to flag sitting_out on.
func (r *Registry) SetSeat(accountID uint64, seat Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userSeat[accountID] = seat
}

// ClearSeat forgets accountID's seat, e.g. after a voluntary stand-up.
func (r *Registry) ClearSeat(accountID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.userSeat, accountID)
	r.grace.Remove(accountID)
}

// Disconnect unbinds conn. If the account it belonged to was seated, the
// seat is flagged sitting_out and marked disconnected rather than
// removed, and is remembered for the grace window given to New so a
// prompt reconnect can rebind it.
func (r *Registry) Disconnect(conn ConnID) {
	r.mu.Lock()
	accountID, ok := r.connToUser[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.connToUser, conn)
	if r.userToConn[accountID] == conn {
		delete(r.userToConn, accountID)
	}
	seat, seated := r.userSeat[accountID]
	r.mu.Unlock()

	if !seated {
		return
	}
	r.grace.Add(accountID, seat)

	tbl, ok := r.lookup(seat.TableID)
	if !ok {
		return
	}
	if err := tbl.SetConnected(seat.UserID, false); err != nil {
		r.log.Warnf("session: SetConnected(false) for %s at %s: %v", seat.UserID, seat.TableID, err)
	}
	if err := tbl.SitOut(seat.UserID); err != nil {
		r.log.Warnf("session: SitOut for %s at %s: %v", seat.UserID, seat.TableID, err)
	}
}

// Reconnect binds conn to accountID and, if a grace-window seat is on
// file, rebinds it: the table is told the seat is connected and sitting
// in again, and the seat is returned so the caller can push an
// immediate snapshot. ok is false if there was nothing to rebind.
func (r *Registry) Reconnect(conn ConnID, accountID uint64) (seat Seat, ok bool) {
	r.Bind(conn, accountID)

	seat, ok = r.grace.Get(accountID)
	if !ok {
		return Seat{}, false
	}
	r.grace.Remove(accountID)

	r.mu.Lock()
	r.userSeat[accountID] = seat
	r.mu.Unlock()

	tbl, found := r.lookup(seat.TableID)
	if !found {
		return seat, false
	}
	if err := tbl.SetConnected(seat.UserID, true); err != nil {
		r.log.Warnf("session: SetConnected(true) for %s at %s: %v", seat.UserID, seat.TableID, err)
		return seat, false
	}
	if err := tbl.SitIn(seat.UserID); err != nil {
		r.log.Warnf("session: SitIn for %s at %s: %v", seat.UserID, seat.TableID, err)
	}
	return seat, true
}

// AccountFor returns the account currently bound to conn, if any.
func (r *Registry) AccountFor(conn ConnID) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	accountID, ok := r.connToUser[conn]
	return accountID, ok
}

// ConnFor returns the live connection currently bound to accountID, if
// any - used to push unsolicited broadcasts to the right socket.
func (r *Registry) ConnFor(accountID uint64) (ConnID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.userToConn[accountID]
	return conn, ok
}
