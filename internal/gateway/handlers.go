package gateway

import (
	"context"
	"encoding/json"

	"holdem-lite/holdem"
	"holdem-lite/internal/lobby"
	"holdem-lite/internal/payment"
	"holdem-lite/internal/session"
)

type handlerFunc func(c *Connection, raw []byte, messageID string)

// actionHandlers is the router's dispatch table, keyed by the request's
// action/type field. A map is the idiomatic Go equivalent of the
// redesign note's exhaustive enum match: one registration point per
// action, with handleMessage's lookup miss as the single "unknown
// action" case.
var actionHandlers = map[string]handlerFunc{
	"register": handleRegister,
	"login":    handleLogin,
	"ping":     handlePing,

	"get_wallet":      handleGetWallet,
	"wallet_deposit":  handleWalletDeposit,
	"capture_deposit": handleCaptureDeposit,
	"cancel_deposit":  handleCancelDeposit,
	"wallet_withdraw": handleWalletWithdraw,

	"get_cash_tables":    handleGetCashTables,
	"join_cash_table":    handleJoinCashTable,
	"leave_table":        handleLeaveTable,
	"create_friend_game": handleCreateFriendGame,
	"join_friend_game":   handleJoinFriendGame,
	"get_friend_games":   handleGetFriendGames,
	"delete_friend_game": handleDeleteFriendGame,

	"check":  actionHandler(holdem.ActionCheck),
	"call":   actionHandler(holdem.ActionCall),
	"raise":  actionHandler(holdem.ActionRaise),
	"fold":   actionHandler(holdem.ActionFold),
	"sitout": handleSitOut,
	"sitin":  handleSitIn,

	"get_table_state": handleGetTableState,
	"chat_message":    handleChatMessage,
}

func decode[T any](raw []byte) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

func requireAuth(c *Connection, messageID string) (uint64, bool) {
	accountID, _, _ := c.snapshot()
	if accountID == 0 {
		c.sendError(messageID, "not authenticated")
		return 0, false
	}
	return accountID, true
}

func requireTable(c *Connection, messageID string) (string, bool) {
	_, _, tableID := c.snapshot()
	if tableID == "" {
		c.sendError(messageID, "not in a table")
		return "", false
	}
	return tableID, true
}

// authenticateAndBind is the shared tail of register/login: it binds the
// connection to the account, evicting and closing any prior connection
// for the same account, rebinds a grace-window seat if one is on file,
// then sends {type:"connected"} followed by the login reply.
func authenticateAndBind(c *Connection, accountID uint64, username, sessionToken, messageID string) {
	if evicted, ok := c.Gateway.sess.Bind(c.ID, accountID); ok {
		c.Gateway.closeConnection(evicted)
	}
	c.setIdentity(accountID, username)

	if seat, ok := c.Gateway.sess.Reconnect(c.ID, accountID); ok {
		c.setTable(seat.TableID)
		c.Gateway.joinTableTracking(seat.TableID, c.ID)
	}

	c.sendJSON(connectedPush{Type: "connected"})

	type authReply struct {
		outbound
		UserID       uint64 `json:"user_id"`
		Username     string `json:"username"`
		SessionToken string `json:"session_token"`
	}
	reply := authReply{
		outbound:     successEnvelope("login", messageID),
		UserID:       accountID,
		Username:     username,
		SessionToken: sessionToken,
	}
	c.sendJSON(reply)
}

func handleRegister(c *Connection, raw []byte, messageID string) {
	type request struct {
		Email               string `json:"email"`
		Username            string `json:"username"`
		Password            string `json:"password"`
		SecurityQuestionIdx int    `json:"security_question_index"`
		SecurityAnswer      string `json:"security_answer"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	accountID, token, err := c.Gateway.auth.Register(req.Email, req.Username, req.Password, req.SecurityQuestionIdx, req.SecurityAnswer)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	authenticateAndBind(c, accountID, req.Username, token, messageID)
}

func handleLogin(c *Connection, raw []byte, messageID string) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	accountID, token, err := c.Gateway.auth.Login(req.Email, req.Password)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	_, username, _ := c.Gateway.auth.ResolveSession(token)
	authenticateAndBind(c, accountID, username, token, messageID)
}

func handlePing(c *Connection, raw []byte, messageID string) {
	c.sendJSON(successEnvelope("pong", messageID))
}

func handleGetWallet(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	balance, err := c.Gateway.wallet.Balance(context.Background(), accountID)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	type reply struct {
		outbound
		Balance int64 `json:"balance"`
	}
	c.sendJSON(reply{outbound: successEnvelope("wallet", messageID), Balance: balance})
}

func handleWalletDeposit(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	type request struct {
		Amount int64  `json:"amount"`
		Method string `json:"method"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	order, err := c.Gateway.payment.CreateOrder(req.Amount, "USD", "wallet deposit")
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	if _, err := c.Gateway.wallet.BeginDeposit(context.Background(), accountID, req.Amount, order.OrderID); err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	type reply struct {
		outbound
		OrderID     string `json:"order_id"`
		ApprovalURL string `json:"approval_url"`
	}
	c.sendJSON(reply{outbound: successEnvelope("wallet_deposit", messageID), OrderID: order.OrderID, ApprovalURL: order.ApprovalURL})
}

func handleCaptureDeposit(c *Connection, raw []byte, messageID string) {
	if _, ok := requireAuth(c, messageID); !ok {
		return
	}
	type request struct {
		OrderID string `json:"order_id"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	order, err := c.Gateway.payment.CaptureOrder(req.OrderID)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	if order.Status != payment.OrderCompleted {
		c.sendError(messageID, "deposit not completed by provider")
		return
	}
	tx, err := c.Gateway.wallet.CompleteDeposit(context.Background(), req.OrderID)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	type reply struct {
		outbound
		Balance int64 `json:"balance"`
	}
	balance, _ := c.Gateway.wallet.Balance(context.Background(), tx.AccountID)
	c.sendJSON(reply{outbound: successEnvelope("capture_deposit", messageID), Balance: balance})
}

func handleCancelDeposit(c *Connection, raw []byte, messageID string) {
	if _, ok := requireAuth(c, messageID); !ok {
		return
	}
	type request struct {
		OrderID string `json:"order_id"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	if _, err := c.Gateway.wallet.CancelDeposit(context.Background(), req.OrderID); err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.sendJSON(successEnvelope("cancel_deposit", messageID))
}

func handleWalletWithdraw(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	type request struct {
		Amount            int64  `json:"amount"`
		DestinationEmail  string `json:"destination_email"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	tx, err := c.Gateway.wallet.Withdraw(context.Background(), accountID, req.Amount, req.DestinationEmail)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	type reply struct {
		outbound
		TxID int64 `json:"tx_id"`
	}
	c.sendJSON(reply{outbound: successEnvelope("wallet_withdraw", messageID), TxID: tx.ID})
}

func handleGetCashTables(c *Connection, raw []byte, messageID string) {
	tables := c.Gateway.lobby.ListCashTables()
	type reply struct {
		outbound
		Tables []lobby.CashTableSummary `json:"tables"`
	}
	c.sendJSON(reply{outbound: successEnvelope("cash_tables", messageID), Tables: tables})
}

func handleJoinCashTable(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	type request struct {
		TableID string `json:"table_id"`
		BuyIn   int64  `json:"buy_in"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	_, username, _ := c.snapshot()
	userID := c.userIDStr()
	tbl, seat, err := c.Gateway.lobby.JoinCashTable(accountID, userID, username, req.TableID, req.BuyIn)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.setTable(tbl.ID)
	c.Gateway.joinTableTracking(tbl.ID, c.ID)
	c.Gateway.sess.SetSeat(accountID, session.Seat{TableID: tbl.ID, UserID: userID})

	type reply struct {
		outbound
		TableID string `json:"table_id"`
		Seat    int    `json:"seat"`
	}
	c.sendJSON(reply{outbound: successEnvelope("join_cash_table", messageID), TableID: tbl.ID, Seat: seat})
}

func handleLeaveTable(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	tableID, ok := requireTable(c, messageID)
	if !ok {
		return
	}
	userID := c.userIDStr()
	if err := c.Gateway.lobby.LeaveTable(accountID, userID, tableID); err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.Gateway.leaveTableTracking(tableID, c.ID)
	c.setTable("")
	c.Gateway.sess.ClearSeat(accountID)
	c.sendJSON(successEnvelope("leave_table", messageID))
}

func handleCreateFriendGame(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	type request struct {
		Name       string `json:"name"`
		Password   string `json:"password"`
		SmallBlind int64  `json:"small_blind"`
		BigBlind   int64  `json:"big_blind"`
		MinBuyIn   int64  `json:"min_buy_in"`
		MaxBuyIn   int64  `json:"max_buy_in"`
		MaxPlayers int    `json:"max_players"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	if _, err := c.Gateway.lobby.CreateFriendGame(accountID, req.Name, req.Password, req.SmallBlind, req.BigBlind, req.MinBuyIn, req.MaxBuyIn, req.MaxPlayers); err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.sendJSON(successEnvelope("create_friend_game", messageID))
}

func handleJoinFriendGame(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	type request struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		BuyIn    int64  `json:"buy_in"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	_, username, _ := c.snapshot()
	userID := c.userIDStr()
	tbl, seat, err := c.Gateway.lobby.JoinFriendGame(accountID, userID, username, req.Name, req.Password, req.BuyIn)
	if err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.setTable(tbl.ID)
	c.Gateway.joinTableTracking(tbl.ID, c.ID)
	c.Gateway.sess.SetSeat(accountID, session.Seat{TableID: tbl.ID, UserID: userID})

	type reply struct {
		outbound
		TableID string `json:"table_id"`
		Seat    int    `json:"seat"`
	}
	c.sendJSON(reply{outbound: successEnvelope("join_friend_game", messageID), TableID: tbl.ID, Seat: seat})
}

func handleGetFriendGames(c *Connection, raw []byte, messageID string) {
	games := c.Gateway.lobby.GetFriendGames()
	type gameWire struct {
		Name       string `json:"name"`
		SmallBlind int64  `json:"small_blind"`
		BigBlind   int64  `json:"big_blind"`
		MinBuyIn   int64  `json:"min_buy_in"`
		MaxBuyIn   int64  `json:"max_buy_in"`
		MaxPlayers int    `json:"max_players"`
		Status     string `json:"status"`
	}
	out := make([]gameWire, len(games))
	for i, g := range games {
		out[i] = gameWire{
			Name:       g.Name,
			SmallBlind: g.SmallBlind,
			BigBlind:   g.BigBlind,
			MinBuyIn:   g.MinBuyIn,
			MaxBuyIn:   g.MaxBuyIn,
			MaxPlayers: g.MaxSeats,
			Status:     string(g.Status),
		}
	}
	type reply struct {
		outbound
		Games []gameWire `json:"games"`
	}
	c.sendJSON(reply{outbound: successEnvelope("friend_games", messageID), Games: out})
}

func handleDeleteFriendGame(c *Connection, raw []byte, messageID string) {
	accountID, ok := requireAuth(c, messageID)
	if !ok {
		return
	}
	type request struct {
		TableID string `json:"table_id"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	if err := c.Gateway.lobby.DeleteFriendGame(accountID, req.TableID); err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.sendJSON(successEnvelope("delete_friend_game", messageID))
}

// actionHandler builds a handler for the fixed-action game moves
// (check/call/raise/fold), which share everything but the ActionType and
// an optional amount.
func actionHandler(action holdem.ActionType) handlerFunc {
	return func(c *Connection, raw []byte, messageID string) {
		if _, ok := requireAuth(c, messageID); !ok {
			return
		}
		tableID, ok := requireTable(c, messageID)
		if !ok {
			return
		}
		type request struct {
			Amount int64 `json:"amount"`
		}
		req, _ := decode[request](raw)

		tbl, found := c.Gateway.lobby.GetTable(tableID)
		if !found {
			c.sendError(messageID, "table not found")
			return
		}
		if err := tbl.Act(c.userIDStr(), action, req.Amount); err != nil {
			c.sendError(messageID, err.Error())
			return
		}
		c.sendJSON(successEnvelope(action.String(), messageID))
	}
}

func handleSitOut(c *Connection, raw []byte, messageID string) {
	if _, ok := requireAuth(c, messageID); !ok {
		return
	}
	tableID, ok := requireTable(c, messageID)
	if !ok {
		return
	}
	tbl, found := c.Gateway.lobby.GetTable(tableID)
	if !found {
		c.sendError(messageID, "table not found")
		return
	}
	if err := tbl.SitOut(c.userIDStr()); err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.sendJSON(successEnvelope("sitout", messageID))
}

func handleSitIn(c *Connection, raw []byte, messageID string) {
	if _, ok := requireAuth(c, messageID); !ok {
		return
	}
	tableID, ok := requireTable(c, messageID)
	if !ok {
		return
	}
	tbl, found := c.Gateway.lobby.GetTable(tableID)
	if !found {
		c.sendError(messageID, "table not found")
		return
	}
	if err := tbl.SitIn(c.userIDStr()); err != nil {
		c.sendError(messageID, err.Error())
		return
	}
	c.sendJSON(successEnvelope("sitin", messageID))
}

func handleGetTableState(c *Connection, raw []byte, messageID string) {
	tableID, ok := requireTable(c, messageID)
	if !ok {
		return
	}
	tbl, found := c.Gateway.lobby.GetTable(tableID)
	if !found {
		c.sendError(messageID, "table not found")
		return
	}
	snap := tbl.SnapshotFor(c.userIDStr())
	push := tableUpdatePush{Type: "table_update", TableState: buildTableState(tableID, tbl.Config, snap)}
	c.sendJSON(push)
}

func handleChatMessage(c *Connection, raw []byte, messageID string) {
	if _, ok := requireAuth(c, messageID); !ok {
		return
	}
	type request struct {
		TableID string `json:"table_id"`
		Message string `json:"message"`
	}
	req, err := decode[request](raw)
	if err != nil {
		c.sendError(messageID, "malformed message")
		return
	}
	_, username, _ := c.snapshot()
	type chatPush struct {
		Type     string `json:"type"`
		TableID  string `json:"table_id"`
		Username string `json:"username"`
		Message  string `json:"message"`
	}
	push := chatPush{Type: "chat_message", TableID: req.TableID, Username: username, Message: req.Message}
	data, err := json.Marshal(push)
	if err != nil {
		return
	}
	c.Gateway.mu.RLock()
	ids := make([]session.ConnID, 0, len(c.Gateway.tableConns[req.TableID]))
	for id := range c.Gateway.tableConns[req.TableID] {
		ids = append(ids, id)
	}
	c.Gateway.mu.RUnlock()
	for _, id := range ids {
		c.Gateway.mu.RLock()
		peer := c.Gateway.conns[id]
		c.Gateway.mu.RUnlock()
		if peer != nil {
			peer.trySend(data)
		}
	}
}
