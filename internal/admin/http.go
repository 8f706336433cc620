// Package admin is the control-plane HTTP surface: a small JSON API on
// its own port for operators to list/ban users, adjust balances,
// approve or reject withdrawals, broadcast a system notification,
// manage friend-game tables, and read/write mutable server config.
// Grounded on auth/http.go's handler shape (writeJSON/writeError,
// bearer-token auth, http.ServeMux route registration), generalized to
// the operations a rewrite's admin plane needs.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/dustin/go-humanize"

	"holdem-lite/internal/auth"
	"holdem-lite/internal/configstore"
	"holdem-lite/internal/lobby"
	"holdem-lite/internal/payment"
	"holdem-lite/internal/wallet"
)

const opTimeout = 5 * time.Second

// Notifier is the subset of the gateway's surface the admin plane needs
// to push a system-wide broadcast; kept narrow so this package does not
// have to depend on gateway's connection internals.
type Notifier interface {
	BroadcastNotification(message string)
}

// Handler wires the admin HTTP surface to the services it administers.
type Handler struct {
	auth    auth.Service
	wallet  wallet.Service
	lobby   *lobby.Lobby
	payment payment.Provider
	config  *configstore.Store
	notify  Notifier
	token   string
	log     slog.Logger
}

func NewHandler(authSvc auth.Service, walletSvc wallet.Service, lby *lobby.Lobby, paymentProvider payment.Provider, cfg *configstore.Store, notify Notifier, adminToken string, log slog.Logger) *Handler {
	if log == nil {
		log = slog.Disabled
	}
	return &Handler{
		auth:    authSvc,
		wallet:  walletSvc,
		lobby:   lby,
		payment: paymentProvider,
		config:  cfg,
		notify:  notify,
		token:   adminToken,
		log:     log,
	}
}

// RegisterRoutes mounts every admin route on mux. The caller serves mux
// on a separate listener/port from the player-facing gateway.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/users", h.requireToken(h.handleListUsers))
	mux.HandleFunc("/admin/users/balance", h.requireToken(h.handleAdjustBalance))
	mux.HandleFunc("/admin/users/suspend", h.requireToken(h.handleSetSuspended))
	mux.HandleFunc("/admin/withdrawals", h.requireToken(h.handleListWithdrawals))
	mux.HandleFunc("/admin/withdrawals/approve", h.requireToken(h.handleApproveWithdrawal))
	mux.HandleFunc("/admin/withdrawals/reject", h.requireToken(h.handleRejectWithdrawal))
	mux.HandleFunc("/admin/notify", h.requireToken(h.handleNotify))
	mux.HandleFunc("/admin/tables/close", h.requireToken(h.handleCloseTable))
	mux.HandleFunc("/admin/tables/reactivate", h.requireToken(h.handleReactivateTable))
	mux.HandleFunc("/admin/config", h.requireToken(h.handleConfig))
}

func (h *Handler) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplied := bearerToken(r.Header.Get("Authorization"))
		if h.token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(h.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next(w, r)
	}
}

func bearerToken(raw string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(raw, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, prefix))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	accounts, err := h.auth.ListAccounts(500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list users failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": accounts})
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		AccountID uint64 `json:"account_id"`
		Delta     int64  `json:"delta"`
		Reason    string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	tx, err := h.wallet.AdminAdjust(ctx, req.AccountID, req.Delta, req.Reason)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Infof("admin: adjusted account %d by %s cents (%q)", req.AccountID, humanize.Comma(req.Delta), req.Reason)
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleSetSuspended(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		AccountID uint64 `json:"account_id"`
		Suspended bool   `json:"suspended"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.auth.SetSuspended(req.AccountID, req.Suspended); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": req.AccountID, "suspended": req.Suspended})
}

func (h *Handler) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	txs, err := h.wallet.ListPendingWithdrawals(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list withdrawals failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": txs})
}

// handleApproveWithdrawal approves the ledger entry, then sends the
// payout through the payment provider; a provider failure leaves the
// withdrawal approved in the ledger but logs the mismatch for manual
// reconciliation rather than silently reverting a completed approval.
func (h *Handler) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		TxID        int64  `json:"tx_id"`
		Destination string `json:"destination"`
		Currency    string `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	tx, err := h.wallet.ApproveWithdrawal(ctx, req.TxID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	payout, err := h.payment.SendPayout(req.Destination, tx.Amount, currency)
	if err != nil {
		h.log.Errorf("admin: payout failed for approved withdrawal %d: %v", req.TxID, err)
	} else {
		h.log.Infof("admin: paid out %s %s for withdrawal %d (batch %s)", humanize.Comma(tx.Amount), currency, req.TxID, payout.BatchID)
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		TxID int64 `json:"tx_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	tx, err := h.wallet.RejectWithdrawal(ctx, req.TxID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.notify != nil {
		h.notify.BroadcastNotification(req.Message)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCloseTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.lobby.CloseFriendGameAdmin(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReactivateTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.lobby.ReactivateFriendGameAdmin(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.config.Get())
	case http.MethodPost:
		var req struct {
			MaintenanceMode  *bool `json:"maintenance_mode"`
			TurnTimerSeconds *int  `json:"turn_timer_seconds"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.MaintenanceMode != nil {
			if _, err := h.config.SetMaintenanceMode(*req.MaintenanceMode); err != nil {
				writeError(w, http.StatusInternalServerError, "update config failed")
				return
			}
		}
		if req.TurnTimerSeconds != nil {
			if _, err := h.config.SetTurnTimerSeconds(*req.TurnTimerSeconds); err != nil {
				writeError(w, http.StatusInternalServerError, "update config failed")
				return
			}
		}
		writeJSON(w, http.StatusOK, h.config.Get())
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
