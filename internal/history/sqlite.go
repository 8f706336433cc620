package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "holdem_history.db"

type SQLiteService struct {
	db          *sql.DB
	recentLimit int
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	dbPath, err := historyLocalDatabasePathFromEnv()
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
	if err := ensureSQLiteHistorySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{db: db, recentLimit: envIntOrDefault("GAME_HISTORY_RECENT_LIMIT", defaultRecentLimit)}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) RecordHand(ctx context.Context, tableID, handID string, playedAt time.Time, participants []ParticipantResult) error {
	if strings.TrimSpace(handID) == "" || len(participants) == 0 {
		return nil
	}
	if playedAt.IsZero() {
		playedAt = time.Now().UTC()
	}
	playedAtMs := playedAt.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range participants {
		if p.UserID == 0 {
			continue
		}
		detail, err := json.Marshal(map[string]any{"folded": p.Folded})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO game_history (
    hand_id, table_id, user_id, played_at_ms, net_chips, category, detail_json
)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, handID, tableID, p.UserID, playedAtMs, p.NetChips, p.Category, string(detail)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteService) ListRecent(ctx context.Context, userID uint64, limit int) ([]HandRecord, error) {
	if userID == 0 {
		return []HandRecord{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT hand_id, table_id, played_at_ms, net_chips, category
FROM game_history
WHERE user_id = ?
ORDER BY played_at_ms DESC, hand_id DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HandRecord, 0, limit)
	for rows.Next() {
		var item HandRecord
		var playedAtMs int64
		if err := rows.Scan(&item.HandID, &item.TableID, &playedAtMs, &item.NetChips, &item.Category); err != nil {
			return nil, err
		}
		item.PlayedAt = time.UnixMilli(playedAtMs).UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

func ensureSQLiteHistorySchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS game_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    hand_id TEXT NOT NULL,
    table_id TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    played_at_ms INTEGER NOT NULL,
    net_chips INTEGER NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    detail_json TEXT,
    UNIQUE(hand_id, user_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_game_history_user ON game_history(user_id, played_at_ms DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func historyLocalDatabasePathFromEnv() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("HISTORY_LOCAL_DATABASE_PATH")),
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
