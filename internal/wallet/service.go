// Package wallet is the chip ledger: every account's balance plus an
// append-only transaction log recording how it got there. It is
// structured exactly like internal/history - a Service interface with a
// SQLite and a Postgres backend chosen by the same AUTH_MODE-style env
// var - but the operations and the transaction states are the wallet's
// own (deposit/withdraw/buy-in/cash-out/admin-adjust) rather than hand
// results.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"holdem-lite/internal/auth"
)

// TxType enumerates the ledger entry kinds.
type TxType string

const (
	TxDeposit     TxType = "deposit"
	TxWithdraw    TxType = "withdraw"
	TxBuyIn       TxType = "buy_in"
	TxCashOut     TxType = "cash_out"
	TxAdminAdjust TxType = "admin_adjust"
)

// TxStatus enumerates the lifecycle a ledger entry moves through.
type TxStatus string

const (
	StatusPending         TxStatus = "pending"
	StatusPendingApproval TxStatus = "pending_approval"
	StatusCompleted       TxStatus = "completed"
	StatusRejected        TxStatus = "rejected"
	StatusCancelled       TxStatus = "cancelled"
)

var (
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")
	ErrInvalidAmount       = errors.New("wallet: amount must be positive")
	ErrTxNotFound          = errors.New("wallet: transaction not found")
	ErrTxNotPending        = errors.New("wallet: transaction is not pending")
	ErrInvalidDestination  = errors.New("wallet: invalid withdrawal destination")
)

const minWithdrawAmount = 100 // smallest unit the payment provider accepts

// Transaction is one row of the append-only ledger.
type Transaction struct {
	ID          int64
	AccountID   uint64
	Type        TxType
	Status      TxStatus
	Amount      int64 // always positive; sign is implied by Type
	ExternalRef string
	TableID     string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Service is the wallet ledger's persistence and business logic contract.
// Every method is atomic with respect to the affected account's row and
// its transaction log.
type Service interface {
	Close() error

	Balance(ctx context.Context, accountID uint64) (int64, error)

	// BeginDeposit records a pending deposit tied to an external
	// reference (e.g. a payment-provider order ID) without touching
	// balance yet.
	BeginDeposit(ctx context.Context, accountID uint64, amount int64, externalRef string) (Transaction, error)
	// CompleteDeposit moves a pending deposit to completed and credits
	// balance; it is idempotent per externalRef.
	CompleteDeposit(ctx context.Context, externalRef string) (Transaction, error)
	// CancelDeposit cancels a still-pending deposit.
	CancelDeposit(ctx context.Context, externalRef string) (Transaction, error)

	// Withdraw deducts balance immediately and records pending_approval.
	Withdraw(ctx context.Context, accountID uint64, amount int64, destination string) (Transaction, error)
	// ApproveWithdrawal marks a pending_approval withdrawal completed.
	ApproveWithdrawal(ctx context.Context, txID int64) (Transaction, error)
	// RejectWithdrawal credits balance back and marks rejected.
	RejectWithdrawal(ctx context.Context, txID int64) (Transaction, error)

	// BuyIn atomically debits balance for a table buy-in.
	BuyIn(ctx context.Context, accountID uint64, amount int64, tableID string) (Transaction, error)
	// RefundBuyIn reverses a BuyIn whose seat could not actually be
	// taken (post-debit seat failure); it must never fail for a valid
	// prior BuyIn transaction ID.
	RefundBuyIn(ctx context.Context, txID int64) error
	// CashOut credits balance when a player leaves a table.
	CashOut(ctx context.Context, accountID uint64, amount int64, tableID string) (Transaction, error)

	// AdminAdjust applies an arbitrary signed delta, recorded for audit.
	AdminAdjust(ctx context.Context, accountID uint64, delta int64, reason string) (Transaction, error)

	ListPendingWithdrawals(ctx context.Context) ([]Transaction, error)
	ListTransactions(ctx context.Context, accountID uint64, limit int) ([]Transaction, error)
}

const defaultListLimit = 50

// NewServiceFromEnv mirrors internal/auth and internal/history: WALLET_MODE
// (or, absent that, the shared AUTH_MODE this process started with) selects
// postgres vs sqlite. It switches on auth's mode constants rather than its
// own string literals so the two env vars can never silently drift apart.
func NewServiceFromEnv(authMode string) (Service, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("WALLET_MODE")))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(authMode))
	}
	switch mode {
	case auth.AuthModeDB, "postgres", "postgresql":
		return NewPostgresServiceFromEnv()
	case "", auth.AuthModeLocal, "sqlite":
		return NewSQLiteServiceFromEnv()
	case auth.AuthModeMemory, "mem":
		return NewSQLiteServiceFromEnv()
	default:
		return nil, fmt.Errorf("wallet: unknown WALLET_MODE %q", mode)
	}
}

