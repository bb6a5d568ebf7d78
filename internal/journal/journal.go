// Package journal keeps an optional local record of the trades executed
// from this client and of the asset chat exchanges. The record is
// write-only from the client's point of view: nothing is reloaded into the
// UI, but it can be listed and exported to Parquet by bursa-cli.
package journal

import (
	"context"
	"time"
)

// TradeRecord is one trade accepted by the backend.
type TradeRecord struct {
	ID       string
	At       time.Time
	Legajo   string
	Symbol   string
	Side     string
	Quantity int
	Price    float64 // quote shown when the order was sent; 0 when unknown
	Balance  float64 // balance reported by the backend after the trade
}

// ChatRecord is one resolved chat message.
type ChatRecord struct {
	ID     string
	At     time.Time
	Symbol string
	Role   string
	Text   string
}

// TradeRecorder persists executed trades.
type TradeRecorder interface {
	// RecordTrade appends one trade. Records with an existing ID are ignored.
	RecordTrade(ctx context.Context, r TradeRecord) error
}

// ChatRecorder persists chat messages.
type ChatRecorder interface {
	// RecordChat appends one chat message. Records with an existing ID are
	// ignored.
	RecordChat(ctx context.Context, r ChatRecord) error
}
