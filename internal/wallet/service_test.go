package wallet

import (
	"context"
	"testing"
)

func newTestService(t *testing.T) *SQLiteService {
	t.Helper()
	svc, err := NewSQLiteService(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestDepositCreditsBalanceOnlyAfterCompletion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tx, err := svc.BeginDeposit(ctx, 1, 500, "order-1")
	if err != nil {
		t.Fatalf("BeginDeposit: %v", err)
	}
	if tx.Status != StatusPending {
		t.Fatalf("expected pending status, got %v", tx.Status)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 0 {
		t.Fatalf("expected balance untouched before completion, got %d", balance)
	}

	completed, err := svc.CompleteDeposit(ctx, "order-1")
	if err != nil {
		t.Fatalf("CompleteDeposit: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %v", completed.Status)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 500 {
		t.Fatalf("expected balance 500 after completion, got %d", balance)
	}

	// Idempotent: completing again must not double-credit.
	if _, err := svc.CompleteDeposit(ctx, "order-1"); err != nil {
		t.Fatalf("second CompleteDeposit: %v", err)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 500 {
		t.Fatalf("expected balance to stay 500 after duplicate completion, got %d", balance)
	}
}

func TestCancelDepositLeavesBalanceUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.BeginDeposit(ctx, 1, 500, "order-2"); err != nil {
		t.Fatalf("BeginDeposit: %v", err)
	}
	cancelled, err := svc.CancelDeposit(ctx, "order-2")
	if err != nil {
		t.Fatalf("CancelDeposit: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled status, got %v", cancelled.Status)
	}
	if _, err := svc.CompleteDeposit(ctx, "order-2"); err != ErrTxNotPending {
		t.Fatalf("expected ErrTxNotPending completing a cancelled deposit, got %v", err)
	}
}

func TestWithdrawDebitsImmediatelyAndApprovalFinalizes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.BeginDeposit(ctx, 1, 1000, "seed-1"); err != nil {
		t.Fatalf("BeginDeposit: %v", err)
	}
	if _, err := svc.CompleteDeposit(ctx, "seed-1"); err != nil {
		t.Fatalf("CompleteDeposit: %v", err)
	}

	tx, err := svc.Withdraw(ctx, 1, 300, "user@example.com")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 700 {
		t.Fatalf("expected balance debited immediately to 700, got %d", balance)
	}

	approved, err := svc.ApproveWithdrawal(ctx, tx.ID)
	if err != nil {
		t.Fatalf("ApproveWithdrawal: %v", err)
	}
	if approved.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %v", approved.Status)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 700 {
		t.Fatalf("expected balance unchanged by approval, got %d", balance)
	}
}

func TestRejectedWithdrawalRefundsBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.BeginDeposit(ctx, 1, 1000, "seed-2"); err != nil {
		t.Fatalf("BeginDeposit: %v", err)
	}
	if _, err := svc.CompleteDeposit(ctx, "seed-2"); err != nil {
		t.Fatalf("CompleteDeposit: %v", err)
	}

	tx, err := svc.Withdraw(ctx, 1, 300, "user@example.com")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if _, err := svc.RejectWithdrawal(ctx, tx.ID); err != nil {
		t.Fatalf("RejectWithdrawal: %v", err)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 1000 {
		t.Fatalf("expected balance refunded to 1000, got %d", balance)
	}
}

func TestWithdrawRejectsInsufficientBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Withdraw(ctx, 1, 1000, "user@example.com"); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestBuyInDebitsAndRefundRestoresBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.BeginDeposit(ctx, 1, 1000, "seed-3"); err != nil {
		t.Fatalf("BeginDeposit: %v", err)
	}
	if _, err := svc.CompleteDeposit(ctx, "seed-3"); err != nil {
		t.Fatalf("CompleteDeposit: %v", err)
	}

	tx, err := svc.BuyIn(ctx, 1, 400, "table-1")
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 600 {
		t.Fatalf("expected balance 600 after buy-in, got %d", balance)
	}

	if err := svc.RefundBuyIn(ctx, tx.ID); err != nil {
		t.Fatalf("RefundBuyIn: %v", err)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 1000 {
		t.Fatalf("expected balance restored to 1000 after refund, got %d", balance)
	}
}

func TestCashOutCreditsBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CashOut(ctx, 1, 250, "table-1"); err != nil {
		t.Fatalf("CashOut: %v", err)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 250 {
		t.Fatalf("expected balance 250 after cash-out, got %d", balance)
	}
}

func TestAdminAdjustAppliesSignedDelta(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AdminAdjust(ctx, 1, 1000, "promo credit"); err != nil {
		t.Fatalf("AdminAdjust credit: %v", err)
	}
	if _, err := svc.AdminAdjust(ctx, 1, -400, "correction"); err != nil {
		t.Fatalf("AdminAdjust debit: %v", err)
	}
	if balance, _ := svc.Balance(ctx, 1); balance != 600 {
		t.Fatalf("expected balance 600 after signed adjustments, got %d", balance)
	}
	if _, err := svc.AdminAdjust(ctx, 1, -1000, "overdraw"); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance for overdrawing adjustment, got %v", err)
	}
}

func TestListPendingWithdrawalsReturnsOnlyPendingApproval(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.BeginDeposit(ctx, 1, 1000, "seed-4"); err != nil {
		t.Fatalf("BeginDeposit: %v", err)
	}
	if _, err := svc.CompleteDeposit(ctx, "seed-4"); err != nil {
		t.Fatalf("CompleteDeposit: %v", err)
	}
	tx1, err := svc.Withdraw(ctx, 1, 200, "a@example.com")
	if err != nil {
		t.Fatalf("Withdraw 1: %v", err)
	}
	if _, err := svc.Withdraw(ctx, 1, 200, "b@example.com"); err != nil {
		t.Fatalf("Withdraw 2: %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, tx1.ID); err != nil {
		t.Fatalf("ApproveWithdrawal: %v", err)
	}

	pending, err := svc.ListPendingWithdrawals(ctx)
	if err != nil {
		t.Fatalf("ListPendingWithdrawals: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected exactly 1 pending withdrawal, got %d", len(pending))
	}
}
