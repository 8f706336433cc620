// Package gateway is the request router and broadcaster: it terminates
// client WebSocket connections, decodes framed JSON requests keyed by an
// `action`/`type` field, dispatches each to a handler, pushes unsolicited
// table_update frames to every connection seated at a table when that
// table's actor reports a state change, and pushes notification frames
// to every connection.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"holdem-lite/internal/auth"
	"holdem-lite/internal/lobby"
	"holdem-lite/internal/payment"
	"holdem-lite/internal/session"
	"holdem-lite/internal/wallet"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 256
)

// Connection is one live WebSocket client. AccountID is zero until the
// socket authenticates; TableID is non-empty while seated.
type Connection struct {
	ID      session.ConnID
	Conn    *websocket.Conn
	Send    chan []byte
	Gateway *Gateway

	mu        sync.Mutex
	AccountID uint64
	Username  string
	TableID   string
}

func (c *Connection) setIdentity(accountID uint64, username string) {
	c.mu.Lock()
	c.AccountID = accountID
	c.Username = username
	c.mu.Unlock()
}

func (c *Connection) setTable(tableID string) {
	c.mu.Lock()
	c.TableID = tableID
	c.mu.Unlock()
}

func (c *Connection) snapshot() (accountID uint64, username, tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.AccountID, c.Username, c.TableID
}

func (c *Connection) userIDStr() string {
	accountID, _, _ := c.snapshot()
	return fmt.Sprintf("%d", accountID)
}

func (c *Connection) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
		// Drop rather than block the caller (often the table actor's own
		// goroutine via the broadcast hook).
	}
}

// Gateway wires the request router to the services it dispatches into.
type Gateway struct {
	auth    auth.Service
	lobby   *lobby.Lobby
	wallet  wallet.Service
	payment payment.Provider
	sess    *session.Registry
	log     slog.Logger

	mu         sync.RWMutex
	connID     uint64
	conns      map[session.ConnID]*Connection
	tableConns map[string]map[session.ConnID]bool
}

// New constructs a Gateway. sess's TableLookup must resolve to the same
// lobby passed here (the caller wires session.New(..., lby.GetTable, ...)
// before constructing the Gateway).
func New(authSvc auth.Service, lby *lobby.Lobby, walletSvc wallet.Service, paymentProvider payment.Provider, sess *session.Registry, log slog.Logger) *Gateway {
	if log == nil {
		log = slog.Disabled
	}
	return &Gateway{
		auth:       authSvc,
		lobby:      lby,
		wallet:     walletSvc,
		payment:    paymentProvider,
		sess:       sess,
		log:        log,
		conns:      make(map[session.ConnID]*Connection),
		tableConns: make(map[string]map[session.ConnID]bool),
	}
}

// BroadcastTable is a table.BroadcastFunc: wire it into every table the
// lobby creates so a state change there pushes a fresh table_update to
// every connection currently seated at it.
func (g *Gateway) BroadcastTable(tableID string) {
	tbl, ok := g.lobby.GetTable(tableID)
	if !ok {
		return
	}
	g.mu.RLock()
	ids := make([]session.ConnID, 0, len(g.tableConns[tableID]))
	for id := range g.tableConns[tableID] {
		ids = append(ids, id)
	}
	g.mu.RUnlock()

	for _, id := range ids {
		g.mu.RLock()
		c := g.conns[id]
		g.mu.RUnlock()
		if c == nil {
			continue
		}
		snap := tbl.SnapshotFor(c.userIDStr())
		push := tableUpdatePush{Type: "table_update", TableState: buildTableState(tableID, tbl.Config, snap)}
		data, err := json.Marshal(push)
		if err != nil {
			g.log.Errorf("gateway: marshal table_update for %s: %v", tableID, err)
			continue
		}
		c.trySend(data)
	}
}

// notificationPush is the wire shape for an admin-issued system broadcast.
type notificationPush struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BroadcastNotification pushes a system notification to every connected
// client, authenticated or not. The admin control plane calls this.
func (g *Gateway) BroadcastNotification(message string) {
	push := notificationPush{Type: "notification", Message: message}
	data, err := json.Marshal(push)
	if err != nil {
		g.log.Errorf("gateway: marshal notification: %v", err)
		return
	}
	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.RUnlock()
	for _, c := range conns {
		c.trySend(data)
	}
}

func (g *Gateway) joinTableTracking(tableID string, connID session.ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.tableConns[tableID]
	if !ok {
		set = make(map[session.ConnID]bool)
		g.tableConns[tableID] = set
	}
	set[connID] = true
}

func (g *Gateway) leaveTableTracking(tableID string, connID session.ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.tableConns[tableID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(g.tableConns, tableID)
	}
}

// HandleWebSocket upgrades the HTTP request and starts the connection's
// read/write pumps.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warnf("gateway: upgrade: %v", err)
		return
	}

	connID := session.ConnID(atomic.AddUint64(&g.connID, 1))
	c := &Connection{
		ID:      connID,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		Gateway: g,
	}
	g.mu.Lock()
	g.conns[connID] = c
	g.mu.Unlock()

	g.log.Infof("gateway: connection %d accepted", connID)
	go c.writePump()
	go c.readPump()
}

func (c *Connection) readPump() {
	defer c.Gateway.removeConnection(c)

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Gateway.log.Warnf("gateway: read error on %d: %v", c.ID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handleMessage(message)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.Gateway.log.Errorf("gateway: handler panic on connection %d: %v", c.ID, r)
			c.sendError("", fmt.Sprintf("internal error: %v", r))
		}
	}()

	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendError("", "malformed message")
		return
	}

	action := env.action()
	handler, ok := actionHandlers[action]
	if !ok {
		c.sendError(env.MessageID, "Unknown action: "+action)
		return
	}
	handler(c, data, env.MessageID)
}

func (c *Connection) sendError(messageID, msg string) {
	data, _ := json.Marshal(errorEnvelope(messageID, msg))
	c.trySend(data)
}

func (c *Connection) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Gateway.log.Errorf("gateway: marshal response: %v", err)
		return
	}
	c.trySend(data)
}

func (g *Gateway) removeConnection(c *Connection) {
	accountID, _, tableID := c.snapshot()

	g.mu.Lock()
	delete(g.conns, c.ID)
	g.mu.Unlock()

	if tableID != "" {
		g.leaveTableTracking(tableID, c.ID)
	}
	if accountID != 0 {
		g.sess.Disconnect(c.ID)
	}
	close(c.Send)
	g.log.Infof("gateway: connection %d removed", c.ID)
}

// closeConnection force-closes an evicted connection's socket (e.g. a
// second successful login from the same account).
func (g *Gateway) closeConnection(connID session.ConnID) {
	g.mu.RLock()
	c := g.conns[connID]
	g.mu.RUnlock()
	if c == nil {
		return
	}
	c.Conn.Close()
}
