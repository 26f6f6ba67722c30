package horizon

import (
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/stellar"
)

type transactionRecord struct {
	Hash       string    `json:"hash"`
	Successful bool      `json:"successful"`
	CreatedAt  time.Time `json:"created_at"`
}

type operationsPage struct {
	Embedded struct {
		Records []operationRecord `json:"records"`
	} `json:"_embedded"`
}

type operationRecord struct {
	ID                    string    `json:"id"`
	PagingToken           string    `json:"paging_token"`
	Type                  string    `json:"type"`
	SourceAccount         string    `json:"source_account"`
	From                  string    `json:"from"`
	To                    string    `json:"to"`
	AssetType             string    `json:"asset_type"`
	AssetCode             string    `json:"asset_code"`
	AssetIssuer           string    `json:"asset_issuer"`
	Amount                string    `json:"amount"`
	Funder                string    `json:"funder"`
	Account               string    `json:"account"`
	StartingBalance       string    `json:"starting_balance"`
	TransactionHash       string    `json:"transaction_hash"`
	TransactionSuccessful bool      `json:"transaction_successful"`
	CreatedAt             time.Time `json:"created_at"`
}

type accountRecord struct {
	Balances []balanceRecord `json:"balances"`
}

type balanceRecord struct {
	Balance     string `json:"balance"`
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`
}

func recordAsset(assetType, code, issuer string) stellar.Asset {
	if assetType == string(stellar.AssetTypeNative) {
		return stellar.NativeAsset()
	}
	return stellar.Asset{Type: stellar.AssetType(assetType), Code: code, Issuer: issuer}
}

func (r *operationRecord) toOperation() core.LedgerOperation {
	op := core.LedgerOperation{
		ID:              r.ID,
		PagingToken:     r.PagingToken,
		Type:            r.Type,
		From:            r.From,
		To:              r.To,
		Asset:           recordAsset(r.AssetType, r.AssetCode, r.AssetIssuer),
		Amount:          r.Amount,
		TransactionHash: r.TransactionHash,
		Successful:      r.TransactionSuccessful,
		CreatedAt:       r.CreatedAt,
	}

	if op.From == "" {
		op.From = r.SourceAccount
	}

	if r.Type == core.OperationCreateAccount {
		op.From = r.Funder
		op.To = r.Account
		op.Asset = stellar.NativeAsset()
		op.Amount = r.StartingBalance
	}

	return op
}

func (r *balanceRecord) toBalance() (core.LedgerBalance, bool) {
	switch stellar.AssetType(r.AssetType) {
	case stellar.AssetTypeNative, stellar.AssetTypeAlphanum4, stellar.AssetTypeAlphanum12:
	default:
		// liquidity pool shares have no code/issuer
		return core.LedgerBalance{}, false
	}

	return core.LedgerBalance{
		Asset:   recordAsset(r.AssetType, r.AssetCode, r.AssetIssuer),
		Balance: r.Balance,
	}, true
}
