package core

import (
	"time"

	"github.com/layer-3/walletauth/internal/stellar"
)

// HistorySource says where a history entry came from.
type HistorySource string

const (
	HistorySourceRecorded HistorySource = "recorded"
	HistorySourceLedger   HistorySource = "ledger"
)

// HistoryEntry is the display shape shared by recorded transfers and ledger operations.
type HistoryEntry struct {
	ID              string        `json:"id"`
	Source          HistorySource `json:"source"`
	Type            string        `json:"type"`
	Status          string        `json:"status"`
	Asset           stellar.Asset `json:"asset"`
	Amount          string        `json:"amount"`
	From            string        `json:"from,omitempty"`
	To              string        `json:"to,omitempty"`
	TransactionHash string        `json:"transactionHash"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// History is one page of merged account history, newest first.
type History struct {
	Entries    []HistoryEntry `json:"entries"`
	NextCursor string         `json:"nextCursor,omitempty"`
}
