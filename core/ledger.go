package core

import (
	"strings"
	"time"

	"github.com/layer-3/walletauth/internal/stellar"
)

// Operation types the service understands. Everything else is carried through untouched.
const (
	OperationPayment               = "payment"
	OperationPathPaymentStrictSend = "path_payment_strict_send"
	OperationPathPaymentStrictRecv = "path_payment_strict_receive"
	OperationCreateAccount         = "create_account"
	pathPaymentPrefix              = "path_payment"
)

// LedgerOperation is an operation record as reported by the ledger.
// For create_account, From is the funder, To the new account and Amount the starting balance.
type LedgerOperation struct {
	ID              string
	PagingToken     string
	Type            string
	From            string
	To              string
	Asset           stellar.Asset
	Amount          string
	TransactionHash string
	Successful      bool
	CreatedAt       time.Time
}

// IsPayment reports whether the operation moves an asset between two accounts.
func (op *LedgerOperation) IsPayment() bool {
	return op.Type == OperationPayment || strings.HasPrefix(op.Type, pathPaymentPrefix)
}

// LedgerTransaction is the subset of a ledger transaction the reconciler checks.
type LedgerTransaction struct {
	Hash       string
	Successful bool
	CreatedAt  time.Time
}

// LedgerBalance is one raw balance line of a ledger account.
type LedgerBalance struct {
	Asset   stellar.Asset
	Balance string
}

// TokenMetadata describes how an asset is displayed.
type TokenMetadata struct {
	Asset    stellar.Asset
	Symbol   string
	Name     string
	Decimals int
}

// Balance is an account balance enriched with token metadata.
type Balance struct {
	Asset    stellar.Asset `json:"asset"`
	Balance  string        `json:"balance"`
	Decimals int           `json:"decimals"`
	Symbol   string        `json:"symbol"`
	Name     string        `json:"name"`
}
