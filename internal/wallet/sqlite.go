package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "holdem_wallet.db"

type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	dbPath, err := walletLocalDatabasePathFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSQLiteService(dbPath)
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteWalletSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) Balance(ctx context.Context, accountID uint64) (int64, error) {
	balance, _, err := s.ensureAccount(ctx, s.db, accountID)
	return balance, err
}

// ensureAccount creates the account row on first use (every new account
// starts at a zero balance) and returns its current balance.
func (s *SQLiteService) ensureAccount(ctx context.Context, q querier, accountID uint64) (balance int64, totalDeposited int64, err error) {
	_, err = q.ExecContext(ctx, `INSERT OR IGNORE INTO wallet_accounts (account_id, balance, total_deposited) VALUES (?, 0, 0)`, accountID)
	if err != nil {
		return 0, 0, err
	}
	row := q.QueryRowContext(ctx, `SELECT balance, total_deposited FROM wallet_accounts WHERE account_id = ?`, accountID)
	if err := row.Scan(&balance, &totalDeposited); err != nil {
		return 0, 0, err
	}
	return balance, totalDeposited, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteService) BeginDeposit(ctx context.Context, accountID uint64, amount int64, externalRef string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	if _, _, err := s.ensureAccount(ctx, tx, accountID); err != nil {
		return Transaction{}, err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
INSERT INTO wallet_transactions (account_id, type, status, amount, external_ref, table_id, created_at_ms)
VALUES (?, ?, ?, ?, ?, '', ?)
`, accountID, TxDeposit, StatusPending, amount, externalRef, now.UnixMilli())
	if err != nil {
		return Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID: id, AccountID: accountID, Type: TxDeposit, Status: StatusPending,
		Amount: amount, ExternalRef: externalRef, CreatedAt: now,
	}, nil
}

func (s *SQLiteService) CompleteDeposit(ctx context.Context, externalRef string) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	t, err := s.findByRefLocked(ctx, tx, externalRef, TxDeposit)
	if err != nil {
		return Transaction{}, err
	}
	if t.Status == StatusCompleted {
		return t, tx.Commit()
	}
	if t.Status != StatusPending {
		return Transaction{}, ErrTxNotPending
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance + ?, total_deposited = total_deposited + ? WHERE account_id = ?`, t.Amount, t.Amount, t.AccountID); err != nil {
		return Transaction{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_transactions SET status = ?, completed_at_ms = ? WHERE id = ?`, StatusCompleted, now.UnixMilli(), t.ID); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	t.Status = StatusCompleted
	t.CompletedAt = now
	return t, nil
}

func (s *SQLiteService) CancelDeposit(ctx context.Context, externalRef string) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	t, err := s.findByRefLocked(ctx, tx, externalRef, TxDeposit)
	if err != nil {
		return Transaction{}, err
	}
	if t.Status != StatusPending {
		return Transaction{}, ErrTxNotPending
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_transactions SET status = ? WHERE id = ?`, StatusCancelled, t.ID); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	t.Status = StatusCancelled
	return t, nil
}

func (s *SQLiteService) findByRefLocked(ctx context.Context, q querier, externalRef string, want TxType) (Transaction, error) {
	row := q.QueryRowContext(ctx, `
SELECT id, account_id, type, status, amount, external_ref, table_id, created_at_ms, completed_at_ms
FROM wallet_transactions WHERE external_ref = ? AND type = ?
`, externalRef, want)
	return scanTransaction(row)
}

func (s *SQLiteService) Withdraw(ctx context.Context, accountID uint64, amount int64, destination string) (Transaction, error) {
	if amount < minWithdrawAmount {
		return Transaction{}, ErrInvalidAmount
	}
	if strings.TrimSpace(destination) == "" {
		return Transaction{}, ErrInvalidDestination
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	balance, _, err := s.ensureAccount(ctx, tx, accountID)
	if err != nil {
		return Transaction{}, err
	}
	if balance < amount {
		return Transaction{}, ErrInsufficientBalance
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance - ? WHERE account_id = ?`, amount, accountID); err != nil {
		return Transaction{}, err
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO wallet_transactions (account_id, type, status, amount, external_ref, table_id, created_at_ms)
VALUES (?, ?, ?, ?, ?, '', ?)
`, accountID, TxWithdraw, StatusPendingApproval, amount, destination, now.UnixMilli())
	if err != nil {
		return Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID: id, AccountID: accountID, Type: TxWithdraw, Status: StatusPendingApproval,
		Amount: amount, ExternalRef: destination, CreatedAt: now,
	}, nil
}

func (s *SQLiteService) ApproveWithdrawal(ctx context.Context, txID int64) (Transaction, error) {
	return s.resolveWithdrawal(ctx, txID, true)
}

func (s *SQLiteService) RejectWithdrawal(ctx context.Context, txID int64) (Transaction, error) {
	return s.resolveWithdrawal(ctx, txID, false)
}

func (s *SQLiteService) resolveWithdrawal(ctx context.Context, txID int64, approve bool) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	t, err := s.findByIDLocked(ctx, tx, txID)
	if err != nil {
		return Transaction{}, err
	}
	if t.Type != TxWithdraw || t.Status != StatusPendingApproval {
		return Transaction{}, ErrTxNotPending
	}

	now := time.Now().UTC()
	newStatus := StatusRejected
	if approve {
		newStatus = StatusCompleted
	} else {
		if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance + ? WHERE account_id = ?`, t.Amount, t.AccountID); err != nil {
			return Transaction{}, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_transactions SET status = ?, completed_at_ms = ? WHERE id = ?`, newStatus, now.UnixMilli(), t.ID); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	t.Status = newStatus
	t.CompletedAt = now
	return t, nil
}

func (s *SQLiteService) findByIDLocked(ctx context.Context, q querier, txID int64) (Transaction, error) {
	row := q.QueryRowContext(ctx, `
SELECT id, account_id, type, status, amount, external_ref, table_id, created_at_ms, completed_at_ms
FROM wallet_transactions WHERE id = ?
`, txID)
	return scanTransaction(row)
}

func (s *SQLiteService) BuyIn(ctx context.Context, accountID uint64, amount int64, tableID string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	balance, _, err := s.ensureAccount(ctx, tx, accountID)
	if err != nil {
		return Transaction{}, err
	}
	if balance < amount {
		return Transaction{}, ErrInsufficientBalance
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance - ? WHERE account_id = ?`, amount, accountID); err != nil {
		return Transaction{}, err
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO wallet_transactions (account_id, type, status, amount, external_ref, table_id, created_at_ms, completed_at_ms)
VALUES (?, ?, ?, ?, '', ?, ?, ?)
`, accountID, TxBuyIn, StatusCompleted, amount, tableID, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID: id, AccountID: accountID, Type: TxBuyIn, Status: StatusCompleted,
		Amount: amount, TableID: tableID, CreatedAt: now, CompletedAt: now,
	}, nil
}

// RefundBuyIn reverses a completed BuyIn whose seat could not actually be
// taken.
func (s *SQLiteService) RefundBuyIn(ctx context.Context, txID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := s.findByIDLocked(ctx, tx, txID)
	if err != nil {
		return err
	}
	if t.Type != TxBuyIn || t.Status != StatusCompleted {
		return ErrTxNotPending
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance + ? WHERE account_id = ?`, t.Amount, t.AccountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_transactions SET status = ? WHERE id = ?`, StatusCancelled, t.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteService) CashOut(ctx context.Context, accountID uint64, amount int64, tableID string) (Transaction, error) {
	if amount < 0 {
		return Transaction{}, ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	if _, _, err := s.ensureAccount(ctx, tx, accountID); err != nil {
		return Transaction{}, err
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance + ? WHERE account_id = ?`, amount, accountID); err != nil {
		return Transaction{}, err
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO wallet_transactions (account_id, type, status, amount, external_ref, table_id, created_at_ms, completed_at_ms)
VALUES (?, ?, ?, ?, '', ?, ?, ?)
`, accountID, TxCashOut, StatusCompleted, amount, tableID, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID: id, AccountID: accountID, Type: TxCashOut, Status: StatusCompleted,
		Amount: amount, TableID: tableID, CreatedAt: now, CompletedAt: now,
	}, nil
}

// AdminAdjust applies delta (which may be negative) directly to balance.
// Unlike every other operation, Amount on the resulting Transaction
// carries delta's sign since admin_adjust has no implied direction.
func (s *SQLiteService) AdminAdjust(ctx context.Context, accountID uint64, delta int64, reason string) (Transaction, error) {
	if delta == 0 {
		return Transaction{}, ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	balance, _, err := s.ensureAccount(ctx, tx, accountID)
	if err != nil {
		return Transaction{}, err
	}
	if balance+delta < 0 {
		return Transaction{}, ErrInsufficientBalance
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance + ? WHERE account_id = ?`, delta, accountID); err != nil {
		return Transaction{}, err
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO wallet_transactions (account_id, type, status, amount, external_ref, table_id, created_at_ms, completed_at_ms)
VALUES (?, ?, ?, ?, ?, '', ?, ?)
`, accountID, TxAdminAdjust, StatusCompleted, delta, reason, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID: id, AccountID: accountID, Type: TxAdminAdjust, Status: StatusCompleted,
		Amount: delta, ExternalRef: reason, CreatedAt: now, CompletedAt: now,
	}, nil
}

func (s *SQLiteService) ListPendingWithdrawals(ctx context.Context) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, account_id, type, status, amount, external_ref, table_id, created_at_ms, completed_at_ms
FROM wallet_transactions WHERE type = ? AND status = ? ORDER BY created_at_ms ASC
`, TxWithdraw, StatusPendingApproval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *SQLiteService) ListTransactions(ctx context.Context, accountID uint64, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, account_id, type, status, amount, external_ref, table_id, created_at_ms, completed_at_ms
FROM wallet_transactions WHERE account_id = ? ORDER BY created_at_ms DESC LIMIT ?
`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTransaction and scanTransactions read the SQLite schema's ms-since-
// epoch integer timestamp columns; PostgresService has its own variant
// scanning native TIMESTAMP columns into time.Time (see postgres.go).
func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var createdAtMs int64
	var completedAtMs sql.NullInt64
	if err := row.Scan(&t.ID, &t.AccountID, &t.Type, &t.Status, &t.Amount, &t.ExternalRef, &t.TableID, &createdAtMs, &completedAtMs); err != nil {
		if err == sql.ErrNoRows {
			return Transaction{}, ErrTxNotFound
		}
		return Transaction{}, err
	}
	t.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	if completedAtMs.Valid {
		t.CompletedAt = time.UnixMilli(completedAtMs.Int64).UTC()
	}
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	items := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func ensureSQLiteWalletSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS wallet_accounts (
    account_id INTEGER PRIMARY KEY,
    balance INTEGER NOT NULL DEFAULT 0,
    total_deposited INTEGER NOT NULL DEFAULT 0
)`,
		`
CREATE TABLE IF NOT EXISTS wallet_transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL,
    type TEXT NOT NULL,
    status TEXT NOT NULL,
    amount INTEGER NOT NULL,
    external_ref TEXT NOT NULL DEFAULT '',
    table_id TEXT NOT NULL DEFAULT '',
    created_at_ms INTEGER NOT NULL,
    completed_at_ms INTEGER,
    FOREIGN KEY (account_id) REFERENCES wallet_accounts(account_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_tx_account ON wallet_transactions(account_id, created_at_ms DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_tx_ref ON wallet_transactions(external_ref, type)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func walletLocalDatabasePathFromEnv() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("WALLET_LOCAL_DATABASE_PATH")),
		strings.TrimSpace(os.Getenv("LOCAL_DATABASE_PATH")),
	}
	for _, candidate := range candidates {
		if candidate != "" {
			return filepath.Clean(candidate), nil
		}
	}
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "HoldemLite", defaultLocalDBName), nil
}
