package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// Ledger is the read-only view of the ledger indexer, per network.
// Implementations return core.ErrTransactionNotFound for an unknown hash and
// wrap every other failure in core.ErrLedgerUnavailable.
type Ledger interface {
	Transaction(ctx context.Context, network, hash string) (*core.LedgerTransaction, error)
	TransactionOperations(ctx context.Context, network, hash string) ([]core.LedgerOperation, error)
	// AccountOperations returns operations newest first; an unfunded account has none.
	AccountOperations(ctx context.Context, network, address string, limit int, cursor string) ([]core.LedgerOperation, error)
	// AccountBalances returns nil, nil for an unfunded account.
	AccountBalances(ctx context.Context, network, address string) ([]core.LedgerBalance, error)
}
