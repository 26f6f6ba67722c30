package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/metrics"
	"github.com/layer-3/walletauth/internal/stellar"
)

const transactionHashLen = 64

// RecordTransfer records a transfer claimed by the session owner once the
// ledger confirms it. A repeated claim for the same transaction and direction
// returns the first record without asking the ledger again.
func (s *WalletService) RecordTransfer(ctx context.Context, session *core.Session, req core.TransferRequest) (*core.Transfer, error) {
	transfer, result, err := s.recordTransfer(ctx, session, req)
	metrics.TransfersReconciled.WithLabelValues(req.Direction.String(), result).Inc()
	if err != nil {
		s.log.Info(ctx, "transfer rejected",
			"address", session.Address,
			"direction", req.Direction.String(),
			"transaction", req.TransactionHash,
			"error", err,
		)
		return nil, err
	}
	return transfer, nil
}

func (s *WalletService) recordTransfer(ctx context.Context, session *core.Session, req core.TransferRequest) (*core.Transfer, string, error) {
	if !req.Direction.Valid() {
		return nil, "invalid", fmt.Errorf("%w: unknown direction", core.ErrInvalidFormat)
	}

	asset, err := stellar.NormalizeAsset(req.AssetCode, req.Issuer)
	if err != nil {
		return nil, "invalid", err
	}

	amount, err := stellar.ParseAmount(req.Amount)
	if err != nil {
		return nil, "invalid", err
	}
	if amount.Sign() <= 0 {
		return nil, "invalid", fmt.Errorf("%w: amount must be positive", core.ErrInvalidFormat)
	}

	hash, err := normalizeTransactionHash(req.TransactionHash)
	if err != nil {
		return nil, "invalid", err
	}

	key := core.TransferKey{Address: session.Address, TransactionHash: hash, Direction: req.Direction}
	unlock, err := s.locker.Lock(ctx, key.String())
	if err != nil {
		return nil, "error", fmt.Errorf("failed to lock transfer: %w", err)
	}
	defer unlock()

	existing, err := s.transfers.FindTransfer(ctx, key)
	if err != nil {
		return nil, "error", fmt.Errorf("failed to look up transfer: %w", err)
	}
	if existing != nil {
		return existing, "duplicate", nil
	}

	tx, err := s.ledger.Transaction(ctx, session.Network, hash)
	if err != nil {
		return nil, ledgerResult(err), err
	}
	if !tx.Successful {
		return nil, "unsuccessful", core.ErrTransactionUnsuccessful
	}

	ops, err := s.ledger.TransactionOperations(ctx, session.Network, hash)
	if err != nil {
		return nil, ledgerResult(err), err
	}
	if !corroborates(ops, session.Address, req.Direction, asset, amount) {
		return nil, "mismatch", core.ErrTransactionMismatch
	}

	transfer := &core.Transfer{
		ID:              uuid.NewString(),
		Address:         session.Address,
		Network:         session.Network,
		Direction:       req.Direction,
		Status:          core.TransferStatusConfirmed,
		Asset:           asset,
		Amount:          amount.String(),
		TransactionHash: hash,
		CreatedAt:       s.now().UTC(),
	}

	stored, created, err := s.transfers.InsertTransfer(ctx, transfer)
	if err != nil {
		return nil, "error", fmt.Errorf("failed to store transfer: %w", err)
	}
	if !created {
		return stored, "duplicate", nil
	}

	s.log.Info(ctx, "transfer recorded",
		"address", stored.Address,
		"direction", stored.Direction.String(),
		"asset", stored.Asset.Key(),
		"amount", stored.Amount,
		"transaction", stored.TransactionHash,
	)
	if err := s.eventPub.PublishTransferRecorded(ctx, stored); err != nil {
		s.log.Warn(ctx, "failed to publish transfer event", "error", err)
	}

	return stored, "recorded", nil
}

// corroborates reports whether any payment in ops moved exactly amount of
// asset to (incoming) or from (outgoing) address.
func corroborates(ops []core.LedgerOperation, address string, direction core.Direction, asset stellar.Asset, amount stellar.Amount) bool {
	for i := range ops {
		op := &ops[i]
		if !op.IsPayment() {
			continue
		}
		if direction.Counterparty(op) != address || !op.Asset.Equal(asset) {
			continue
		}
		paid, err := stellar.ParseAmount(op.Amount)
		if err != nil {
			continue
		}
		if paid.Equal(amount) {
			return true
		}
	}
	return false
}

func normalizeTransactionHash(hash string) (string, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) != transactionHashLen {
		return "", core.ErrInvalidTransactionHash
	}
	for _, r := range hash {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", core.ErrInvalidTransactionHash
		}
	}
	return hash, nil
}

func ledgerResult(err error) string {
	switch {
	case errors.Is(err, core.ErrTransactionNotFound):
		return "not_found"
	case errors.Is(err, core.ErrLedgerUnavailable):
		return "ledger_unavailable"
	default:
		return "error"
	}
}
