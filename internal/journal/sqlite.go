package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ TradeRecorder = (*SQLiteJournal)(nil)
var _ ChatRecorder = (*SQLiteJournal)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id       TEXT PRIMARY KEY,
	at_ms    INTEGER NOT NULL,
	legajo   TEXT NOT NULL,
	symbol   TEXT NOT NULL,
	side     TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price    REAL NOT NULL,
	balance  REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_at ON trades(at_ms);
CREATE TABLE IF NOT EXISTS chat (
	id     TEXT PRIMARY KEY,
	at_ms  INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	role   TEXT NOT NULL,
	text   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_symbol ON chat(symbol, at_ms);
`

// SQLiteJournal stores trades and chat messages in a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath, creating the
// parent directory and tables as needed.
func Open(dbPath string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer; the TUI records from background commands.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal tables: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

// RecordTrade inserts a trade.
func (j *SQLiteJournal) RecordTrade(ctx context.Context, r TradeRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trades (id, at_ms, legajo, symbol, side, quantity, price, balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.At.UnixMilli(), r.Legajo, r.Symbol, r.Side, r.Quantity, r.Price, r.Balance)
	if err != nil {
		return fmt.Errorf("recording trade %s: %w", r.ID, err)
	}
	return nil
}

// Trades returns trades at or after since, oldest first. A zero since
// returns everything.
func (j *SQLiteJournal) Trades(ctx context.Context, since time.Time) ([]TradeRecord, error) {
	var sinceMs int64
	if !since.IsZero() {
		sinceMs = since.UnixMilli()
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at_ms, legajo, symbol, side, quantity, price, balance
		 FROM trades WHERE at_ms >= ? ORDER BY at_ms, id`, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			r    TradeRecord
			atMs int64
		)
		if err := rows.Scan(&r.ID, &atMs, &r.Legajo, &r.Symbol, &r.Side, &r.Quantity, &r.Price, &r.Balance); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		r.At = time.UnixMilli(atMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

// RecordChat inserts a chat message.
func (j *SQLiteJournal) RecordChat(ctx context.Context, r ChatRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat (id, at_ms, symbol, role, text) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.At.UnixMilli(), r.Symbol, r.Role, r.Text)
	if err != nil {
		return fmt.Errorf("recording chat %s: %w", r.ID, err)
	}
	return nil
}

// Chats returns the chat messages for symbol, oldest first. An empty
// symbol returns all of them.
func (j *SQLiteJournal) Chats(ctx context.Context, symbol string) ([]ChatRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at_ms, symbol, role, text FROM chat
		 WHERE ? = '' OR symbol = ? ORDER BY at_ms, rowid`, symbol, symbol)
	if err != nil {
		return nil, fmt.Errorf("listing chat: %w", err)
	}
	defer rows.Close()

	var out []ChatRecord
	for rows.Next() {
		var (
			r    ChatRecord
			atMs int64
		)
		if err := rows.Scan(&r.ID, &atMs, &r.Symbol, &r.Role, &r.Text); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		r.At = time.UnixMilli(atMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
