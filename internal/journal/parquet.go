package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// TradeRow is the Parquet schema for exported trades.
type TradeRow struct {
	ID        string  `parquet:"id"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Legajo    string  `parquet:"legajo"`
	Symbol    string  `parquet:"symbol"`
	Side      string  `parquet:"side"`
	Quantity  int64   `parquet:"quantity"`
	Price     float64 `parquet:"price"`
	Balance   float64 `parquet:"balance"`
}

// ChatRow is the Parquet schema for exported chat messages.
type ChatRow struct {
	ID        string `parquet:"id"`
	Timestamp int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Symbol    string `parquet:"symbol"`
	Role      string `parquet:"role"`
	Text      string `parquet:"text"`
}

// Export holds the paths written by ExportParquet.
type Export struct {
	TradesPath string
	ChatPath   string
	Trades     int
	Chats      int
}

// ExportParquet writes every trade and chat message to
//
//	<dir>/trades.parquet
//	<dir>/chat.parquet
//
// replacing existing files.
func (j *SQLiteJournal) ExportParquet(ctx context.Context, dir string) (*Export, error) {
	trades, err := j.Trades(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	chats, err := j.Chats(ctx, "")
	if err != nil {
		return nil, err
	}

	tradeRows := make([]TradeRow, len(trades))
	for i, t := range trades {
		tradeRows[i] = TradeRow{
			ID:        t.ID,
			Timestamp: t.At.UnixMilli(),
			Legajo:    t.Legajo,
			Symbol:    t.Symbol,
			Side:      t.Side,
			Quantity:  int64(t.Quantity),
			Price:     t.Price,
			Balance:   t.Balance,
		}
	}
	chatRows := make([]ChatRow, len(chats))
	for i, c := range chats {
		chatRows[i] = ChatRow{
			ID:        c.ID,
			Timestamp: c.At.UnixMilli(),
			Symbol:    c.Symbol,
			Role:      c.Role,
			Text:      c.Text,
		}
	}

	exp := &Export{
		TradesPath: filepath.Join(dir, "trades.parquet"),
		ChatPath:   filepath.Join(dir, "chat.parquet"),
		Trades:     len(tradeRows),
		Chats:      len(chatRows),
	}
	if err := writeParquetFile(exp.TradesPath, tradeRows); err != nil {
		return nil, fmt.Errorf("writing %s: %w", exp.TradesPath, err)
	}
	if err := writeParquetFile(exp.ChatPath, chatRows); err != nil {
		return nil, fmt.Errorf("writing %s: %w", exp.ChatPath, err)
	}
	return exp, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}
