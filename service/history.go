package service

import (
	"context"
	"slices"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/stellar"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// GetHistory merges one page of ledger operations with every transfer
// recorded for the session account, newest first. Nothing is deduplicated:
// a recorded transfer and the ledger payment behind it both appear.
func (s *WalletService) GetHistory(ctx context.Context, session *core.Session, limit int, cursor string) (*core.History, error) {
	limit = clampHistoryLimit(limit)

	ops, err := s.ledger.AccountOperations(ctx, session.Network, session.Address, limit, cursor)
	if err != nil {
		return nil, err
	}

	transfers, err := s.transfers.ListTransfers(ctx, session.Address)
	if err != nil {
		return nil, err
	}

	history := &core.History{Entries: make([]core.HistoryEntry, 0, len(ops)+len(transfers))}
	for i := range ops {
		if entry, ok := ledgerEntry(&ops[i]); ok {
			history.Entries = append(history.Entries, entry)
		}
	}
	for i := range transfers {
		history.Entries = append(history.Entries, recordedEntry(&transfers[i]))
	}

	slices.SortStableFunc(history.Entries, func(a, b core.HistoryEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if len(ops) > 0 {
		history.NextCursor = ops[len(ops)-1].PagingToken
	}
	return history, nil
}

func clampHistoryLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultHistoryLimit
	case limit < 1:
		return 1
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

func ledgerEntry(op *core.LedgerOperation) (core.HistoryEntry, bool) {
	if !op.IsPayment() && op.Type != core.OperationCreateAccount {
		return core.HistoryEntry{}, false
	}

	status := "failed"
	if op.Successful {
		status = string(core.TransferStatusConfirmed)
	}

	amount := op.Amount
	if parsed, err := stellar.ParseAmount(op.Amount); err == nil {
		amount = parsed.String()
	}

	return core.HistoryEntry{
		ID:              op.ID,
		Source:          core.HistorySourceLedger,
		Type:            op.Type,
		Status:          status,
		Asset:           op.Asset,
		Amount:          amount,
		From:            op.From,
		To:              op.To,
		TransactionHash: op.TransactionHash,
		CreatedAt:       op.CreatedAt,
	}, true
}

func recordedEntry(t *core.Transfer) core.HistoryEntry {
	entry := core.HistoryEntry{
		ID:              t.ID,
		Source:          core.HistorySourceRecorded,
		Type:            t.Direction.String(),
		Status:          string(t.Status),
		Asset:           t.Asset,
		Amount:          t.Amount,
		TransactionHash: t.TransactionHash,
		CreatedAt:       t.CreatedAt,
	}
	if t.Direction == core.DirectionOutgoing {
		entry.From = t.Address
	} else {
		entry.To = t.Address
	}
	return entry
}
