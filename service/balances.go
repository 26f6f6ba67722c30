package service

import (
	"context"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/caching"
	"github.com/layer-3/walletauth/internal/stellar"
)

const (
	nativeName     = "Stellar Lumens"
	nativeDecimals = 7
)

// GetBalances returns the balances of the session account enriched with
// token metadata. The native balance is always present, "0" for an unfunded account.
func (s *WalletService) GetBalances(ctx context.Context, session *core.Session) ([]core.Balance, error) {
	fetch := func() ([]core.Balance, error) {
		return s.fetchBalances(ctx, session.Network, session.Address)
	}
	if s.cache == nil {
		return fetch()
	}
	return caching.UseCache(ctx, s.cache, balancesCacheKey(session.Network, session.Address), s.balanceTTL, fetch)
}

func (s *WalletService) fetchBalances(ctx context.Context, network, address string) ([]core.Balance, error) {
	lines, err := s.ledger.AccountBalances(ctx, network, address)
	if err != nil {
		return nil, err
	}

	balances := make([]core.Balance, 0, len(lines)+1)
	hasNative := false
	for _, line := range lines {
		if line.Asset.IsNative() {
			hasNative = true
		}
		balances = append(balances, s.balance(line.Asset, line.Balance))
	}
	if !hasNative {
		balances = append([]core.Balance{s.balance(stellar.NativeAsset(), "0")}, balances...)
	}
	return balances, nil
}

func (s *WalletService) balance(asset stellar.Asset, amount string) core.Balance {
	meta := s.metadata(asset)
	return core.Balance{
		Asset:    asset,
		Balance:  amount,
		Decimals: meta.Decimals,
		Symbol:   meta.Symbol,
		Name:     meta.Name,
	}
}

func (s *WalletService) metadata(asset stellar.Asset) core.TokenMetadata {
	if meta, ok := s.tokens[asset.Key()]; ok {
		if meta.Symbol == "" {
			meta.Symbol = asset.Code
		}
		if meta.Name == "" {
			meta.Name = asset.Code
		}
		return meta
	}
	if asset.IsNative() {
		return core.TokenMetadata{Asset: asset, Symbol: stellar.NativeCode, Name: nativeName, Decimals: nativeDecimals}
	}
	return core.TokenMetadata{Asset: asset, Symbol: asset.Code, Name: asset.Code, Decimals: nativeDecimals}
}

func balancesCacheKey(network, address string) string {
	return "balances:" + network + ":" + address
}

// RefreshBalances drops the cached balances of the session account and reads them again.
func (s *WalletService) RefreshBalances(ctx context.Context, session *core.Session) ([]core.Balance, error) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, balancesCacheKey(session.Network, session.Address)); err != nil {
			s.log.Warn(ctx, "failed to drop cached balances", "error", err)
		}
	}
	return s.GetBalances(ctx, session)
}
