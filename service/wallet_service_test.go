package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/adapters/locker"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/caching"
	"github.com/layer-3/walletauth/internal/stellar"
)

const (
	testHash      = "3389e9f0f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889"
	otherHash     = "b9d0b2292c4e09e8eb22d036171491e87b8d2086bf8b265874c8d182cb9c9020"
	issuerAddress = "GAAACAQDAQCQMBYIBEFAWDANBYHRAEISCMKBKFQXDAMRUGY4DUPB7JZX"
)

type walletFixture struct {
	svc       *WalletService
	store     *store.MemoryStore
	ledger    *fakeLedger
	publisher *fakePublisher
	clock     *fakeClock
	session   *core.Session
	peer      string
}

func newWalletFixture(t *testing.T, opts ...WalletOption) *walletFixture {
	t.Helper()
	f := &walletFixture{
		store:     store.NewMemoryStore(0),
		ledger:    newFakeLedger(),
		publisher: &fakePublisher{},
		clock:     newFakeClock(),
		peer:      newWallet(t, 2).address,
	}
	f.session = &core.Session{Token: "token", Address: newWallet(t, 1).address, Network: "testnet"}
	opts = append([]WalletOption{WithWalletClock(f.clock.Now)}, opts...)
	f.svc = NewWalletService(f.store, f.ledger, locker.NewMemoryLocker(), f.publisher, opts...)
	return f
}

func (f *walletFixture) payment(from, to string, asset stellar.Asset, amount string) core.LedgerOperation {
	return core.LedgerOperation{Type: core.OperationPayment, From: from, To: to, Asset: asset, Amount: amount, Successful: true}
}

func purchase(amount, hash string) core.TransferRequest {
	return core.TransferRequest{Direction: core.DirectionIncoming, AssetCode: "XLM", Amount: amount, TransactionHash: hash}
}

func TestRecordTransfer_Incoming(t *testing.T) {
	f := newWalletFixture(t)
	f.ledger.addTransaction(testHash, true, f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "10.0000000"))

	transfer, err := f.svc.RecordTransfer(context.Background(), f.session, purchase("10", testHash))
	require.NoError(t, err)

	assert.NotEmpty(t, transfer.ID)
	assert.Equal(t, f.session.Address, transfer.Address)
	assert.Equal(t, "testnet", transfer.Network)
	assert.Equal(t, core.DirectionIncoming, transfer.Direction)
	assert.Equal(t, core.TransferStatusConfirmed, transfer.Status)
	assert.True(t, transfer.Asset.IsNative())
	assert.Equal(t, "10", transfer.Amount)
	assert.Equal(t, testHash, transfer.TransactionHash)
	assert.Equal(t, f.clock.Now(), transfer.CreatedAt)

	require.Len(t, f.publisher.transfers, 1)
	assert.Equal(t, transfer.ID, f.publisher.transfers[0].ID)
}

func TestRecordTransfer_Outgoing(t *testing.T) {
	f := newWalletFixture(t)
	usdc := stellar.Asset{Type: stellar.AssetTypeAlphanum4, Code: "USDC", Issuer: issuerAddress}
	f.ledger.addTransaction(testHash, true,
		f.payment(f.peer, f.session.Address, usdc, "1.0000000"),
		core.LedgerOperation{Type: core.OperationPathPaymentStrictSend, From: f.session.Address, To: f.peer, Asset: usdc, Amount: "2.5000000"},
	)

	transfer, err := f.svc.RecordTransfer(context.Background(), f.session, core.TransferRequest{
		Direction:       core.DirectionOutgoing,
		AssetCode:       "USDC",
		Issuer:          issuerAddress,
		Amount:          "2.50",
		TransactionHash: strings.ToUpper(testHash),
	})
	require.NoError(t, err)
	assert.Equal(t, "2.5", transfer.Amount)
	assert.Equal(t, testHash, transfer.TransactionHash)
	assert.Equal(t, "USDC", transfer.Asset.Code)
}

func TestRecordTransfer_IsIdempotent(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()
	f.ledger.addTransaction(testHash, true, f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "10"))

	first, err := f.svc.RecordTransfer(ctx, f.session, purchase("10", testHash))
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.svc.RecordTransfer(ctx, f.session, purchase("10.0", strings.ToUpper(testHash)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.ledger.calls())
	assert.Len(t, f.publisher.transfers, 1)

	transfers, err := f.store.ListTransfers(ctx, f.session.Address)
	require.NoError(t, err)
	assert.Len(t, transfers, 1)
}

func TestRecordTransfer_DirectionsAreSeparateKeys(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()
	f.ledger.addTransaction(testHash, true,
		f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "5"),
		f.payment(f.session.Address, f.peer, stellar.NativeAsset(), "3"),
	)

	in, err := f.svc.RecordTransfer(ctx, f.session, purchase("5", testHash))
	require.NoError(t, err)
	out, err := f.svc.RecordTransfer(ctx, f.session, core.TransferRequest{
		Direction: core.DirectionOutgoing, AssetCode: "native", Amount: "3", TransactionHash: testHash,
	})
	require.NoError(t, err)

	assert.NotEqual(t, in.ID, out.ID)
	assert.Equal(t, 2, f.ledger.calls())
}

func TestRecordTransfer_ConcurrentClaimsRecordOnce(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()
	f.ledger.addTransaction(testHash, true, f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "10"))

	const workers = 12
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			transfer, err := f.svc.RecordTransfer(ctx, f.session, purchase("10", testHash))
			if assert.NoError(t, err) {
				ids[i] = transfer.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, f.ledger.calls())
}

func TestRecordTransfer_Mismatch(t *testing.T) {
	usdc := stellar.Asset{Type: stellar.AssetTypeAlphanum4, Code: "USDC", Issuer: issuerAddress}

	tests := []struct {
		name string
		op   func(f *walletFixture) core.LedgerOperation
	}{
		{"amount one stroop higher", func(f *walletFixture) core.LedgerOperation {
			return f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "10.0000001")
		}},
		{"amount lower", func(f *walletFixture) core.LedgerOperation {
			return f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "9.9999999")
		}},
		{"wrong direction", func(f *walletFixture) core.LedgerOperation {
			return f.payment(f.session.Address, f.peer, stellar.NativeAsset(), "10")
		}},
		{"wrong asset", func(f *walletFixture) core.LedgerOperation {
			return f.payment(f.peer, f.session.Address, usdc, "10")
		}},
		{"someone else received", func(f *walletFixture) core.LedgerOperation {
			return f.payment(f.peer, issuerAddress, stellar.NativeAsset(), "10")
		}},
		{"not a payment", func(f *walletFixture) core.LedgerOperation {
			return core.LedgerOperation{Type: core.OperationCreateAccount, From: f.peer, To: f.session.Address, Asset: stellar.NativeAsset(), Amount: "10"}
		}},
		{"unparseable ledger amount", func(f *walletFixture) core.LedgerOperation {
			return f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "ten")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWalletFixture(t)
			f.ledger.addTransaction(testHash, true, tt.op(f))

			_, err := f.svc.RecordTransfer(context.Background(), f.session, purchase("10", testHash))
			assert.ErrorIs(t, err, core.ErrTransactionMismatch)
			assert.Empty(t, f.publisher.transfers)
		})
	}
}

func TestRecordTransfer_LedgerOutcomes(t *testing.T) {
	t.Run("unsuccessful transaction", func(t *testing.T) {
		f := newWalletFixture(t)
		f.ledger.addTransaction(testHash, false, f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "10"))

		_, err := f.svc.RecordTransfer(context.Background(), f.session, purchase("10", testHash))
		assert.ErrorIs(t, err, core.ErrTransactionUnsuccessful)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newWalletFixture(t)

		_, err := f.svc.RecordTransfer(context.Background(), f.session, purchase("10", otherHash))
		assert.ErrorIs(t, err, core.ErrTransactionNotFound)
	})

	t.Run("ledger unavailable is not cached", func(t *testing.T) {
		f := newWalletFixture(t)
		ctx := context.Background()
		f.ledger.addTransaction(testHash, true, f.payment(f.peer, f.session.Address, stellar.NativeAsset(), "10"))
		f.ledger.setErr(fmt.Errorf("%w: timeout", core.ErrLedgerUnavailable))

		_, err := f.svc.RecordTransfer(ctx, f.session, purchase("10", testHash))
		assert.ErrorIs(t, err, core.ErrLedgerUnavailable)

		f.ledger.setErr(nil)
		_, err = f.svc.RecordTransfer(ctx, f.session, purchase("10", testHash))
		assert.NoError(t, err)
	})
}

func TestRecordTransfer_ValidatesBeforeLedger(t *testing.T) {
	tests := []struct {
		name    string
		req     core.TransferRequest
		wantErr error
	}{
		{"zero amount", purchase("0", testHash), core.ErrInvalidFormat},
		{"negative amount", purchase("-1", testHash), core.ErrInvalidFormat},
		{"too precise", purchase("1.00000001", testHash), core.ErrExceedsPrecision},
		{"exponent", purchase("1e3", testHash), core.ErrInvalidFormat},
		{"short hash", purchase("1", testHash[:63]), core.ErrInvalidTransactionHash},
		{"non hex hash", purchase("1", strings.Repeat("z", 64)), core.ErrInvalidTransactionHash},
		{"issued asset without issuer", core.TransferRequest{
			Direction: core.DirectionIncoming, AssetCode: "USDC", Amount: "1", TransactionHash: testHash,
		}, core.ErrInvalidAsset},
		{"unknown direction", core.TransferRequest{AssetCode: "XLM", Amount: "1", TransactionHash: testHash}, core.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWalletFixture(t)

			_, err := f.svc.RecordTransfer(context.Background(), f.session, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.ledger.calls())
		})
	}
}

func TestNormalizeTransactionHash(t *testing.T) {
	got, err := normalizeTransactionHash("  " + strings.ToUpper(testHash) + "\n")
	require.NoError(t, err)
	assert.Equal(t, testHash, got)
}

func TestGetHistory_MergesNewestFirst(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()
	base := f.clock.Now()

	f.ledger.accountOps = []core.LedgerOperation{
		{ID: "op-3", PagingToken: "pt-3", Type: core.OperationPayment, From: f.peer, To: f.session.Address,
			Asset: stellar.NativeAsset(), Amount: "1.5000000", TransactionHash: otherHash, Successful: true, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "op-2", PagingToken: "pt-2", Type: "manage_sell_offer", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "op-1", PagingToken: "pt-1", Type: core.OperationCreateAccount, From: f.peer, To: f.session.Address,
			Asset: stellar.NativeAsset(), Amount: "100.0000000", TransactionHash: testHash, Successful: false, CreatedAt: base},
	}

	_, _, err := f.store.InsertTransfer(ctx, &core.Transfer{
		ID: "rec-1", Address: f.session.Address, Network: "testnet", Direction: core.DirectionOutgoing,
		Status: core.TransferStatusConfirmed, Asset: stellar.NativeAsset(), Amount: "2",
		TransactionHash: otherHash, CreatedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	history, err := f.svc.GetHistory(ctx, f.session, 0, "pt-9")
	require.NoError(t, err)

	assert.Equal(t, DefaultHistoryLimit, f.ledger.lastLimit)
	assert.Equal(t, "pt-9", f.ledger.lastCursor)
	assert.Equal(t, "pt-1", history.NextCursor)

	require.Len(t, history.Entries, 3)
	ids := []string{history.Entries[0].ID, history.Entries[1].ID, history.Entries[2].ID}
	assert.Equal(t, []string{"op-3", "rec-1", "op-1"}, ids)

	ledgerPayment := history.Entries[0]
	assert.Equal(t, core.HistorySourceLedger, ledgerPayment.Source)
	assert.Equal(t, "confirmed", ledgerPayment.Status)
	assert.Equal(t, "1.5", ledgerPayment.Amount)

	recorded := history.Entries[1]
	assert.Equal(t, core.HistorySourceRecorded, recorded.Source)
	assert.Equal(t, "outgoing", recorded.Type)
	assert.Equal(t, f.session.Address, recorded.From)
	assert.Empty(t, recorded.To)

	created := history.Entries[2]
	assert.Equal(t, core.OperationCreateAccount, created.Type)
	assert.Equal(t, "failed", created.Status)
	assert.Equal(t, "100", created.Amount)
}

func TestGetHistory_EqualTimestampsKeepLedgerFirst(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()
	at := f.clock.Now()

	f.ledger.accountOps = []core.LedgerOperation{
		{ID: "op", Type: core.OperationPayment, To: f.session.Address, Asset: stellar.NativeAsset(), Amount: "1", Successful: true, CreatedAt: at},
	}
	_, _, err := f.store.InsertTransfer(ctx, &core.Transfer{
		ID: "rec", Address: f.session.Address, Direction: core.DirectionIncoming, Status: core.TransferStatusConfirmed,
		Asset: stellar.NativeAsset(), Amount: "1", TransactionHash: testHash, CreatedAt: at,
	})
	require.NoError(t, err)

	history, err := f.svc.GetHistory(ctx, f.session, 5, "")
	require.NoError(t, err)
	require.Len(t, history.Entries, 2)
	assert.Equal(t, "op", history.Entries[0].ID)
	assert.Equal(t, "rec", history.Entries[1].ID)
	assert.Equal(t, f.session.Address, history.Entries[1].To)
	assert.Empty(t, history.NextCursor)
}

func TestGetHistory_LedgerError(t *testing.T) {
	f := newWalletFixture(t)
	f.ledger.setErr(core.ErrLedgerUnavailable)

	_, err := f.svc.GetHistory(context.Background(), f.session, 10, "")
	assert.ErrorIs(t, err, core.ErrLedgerUnavailable)
}

func TestClampHistoryLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultHistoryLimit},
		{-5, 1},
		{1, 1},
		{50, 50},
		{100, 100},
		{101, MaxHistoryLimit},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, clampHistoryLimit(tt.in), "limit %d", tt.in)
	}
}

func TestGetBalances(t *testing.T) {
	usdc := stellar.Asset{Type: stellar.AssetTypeAlphanum4, Code: "USDC", Issuer: issuerAddress}
	euro := stellar.Asset{Type: stellar.AssetTypeAlphanum4, Code: "EURT", Issuer: issuerAddress}

	t.Run("unfunded account", func(t *testing.T) {
		f := newWalletFixture(t)

		balances, err := f.svc.GetBalances(context.Background(), f.session)
		require.NoError(t, err)
		assert.Equal(t, []core.Balance{
			{Asset: stellar.NativeAsset(), Balance: "0", Decimals: 7, Symbol: "XLM", Name: "Stellar Lumens"},
		}, balances)
	})

	t.Run("metadata from token list and defaults", func(t *testing.T) {
		f := newWalletFixture(t, WithTokens([]core.TokenMetadata{
			{Asset: usdc, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		}))
		f.ledger.balances = []core.LedgerBalance{
			{Asset: usdc, Balance: "12.3400000"},
			{Asset: euro, Balance: "1.0000000"},
			{Asset: stellar.NativeAsset(), Balance: "99.5000000"},
		}

		balances, err := f.svc.GetBalances(context.Background(), f.session)
		require.NoError(t, err)
		assert.Equal(t, []core.Balance{
			{Asset: usdc, Balance: "12.3400000", Decimals: 6, Symbol: "USDC", Name: "USD Coin"},
			{Asset: euro, Balance: "1.0000000", Decimals: 7, Symbol: "EURT", Name: "EURT"},
			{Asset: stellar.NativeAsset(), Balance: "99.5000000", Decimals: 7, Symbol: "XLM", Name: "Stellar Lumens"},
		}, balances)
	})

	t.Run("token entry without symbol or name", func(t *testing.T) {
		f := newWalletFixture(t, WithTokens([]core.TokenMetadata{
			{Asset: usdc, Decimals: 6},
		}))
		f.ledger.balances = []core.LedgerBalance{
			{Asset: stellar.NativeAsset(), Balance: "1.0000000"},
			{Asset: usdc, Balance: "3.0000000"},
		}

		balances, err := f.svc.GetBalances(context.Background(), f.session)
		require.NoError(t, err)
		require.Len(t, balances, 2)
		assert.Equal(t, core.Balance{Asset: usdc, Balance: "3.0000000", Decimals: 6, Symbol: "USDC", Name: "USDC"}, balances[1])
	})

	t.Run("native prepended when missing", func(t *testing.T) {
		f := newWalletFixture(t)
		f.ledger.balances = []core.LedgerBalance{{Asset: usdc, Balance: "5.0000000"}}

		balances, err := f.svc.GetBalances(context.Background(), f.session)
		require.NoError(t, err)
		require.Len(t, balances, 2)
		assert.True(t, balances[0].Asset.IsNative())
		assert.Equal(t, "0", balances[0].Balance)
		assert.Equal(t, "USDC", balances[1].Asset.Code)
	})

	t.Run("ledger error", func(t *testing.T) {
		f := newWalletFixture(t)
		f.ledger.setErr(errors.Join(core.ErrLedgerUnavailable, errors.New("boom")))

		_, err := f.svc.GetBalances(context.Background(), f.session)
		assert.ErrorIs(t, err, core.ErrLedgerUnavailable)
	})
}

func TestGetBalances_Cached(t *testing.T) {
	f := newWalletFixture(t, WithBalanceCache(caching.NewCacheLocal(100, time.Minute), time.Minute))
	f.ledger.balances = []core.LedgerBalance{{Asset: stellar.NativeAsset(), Balance: "1.0000000"}}
	ctx := context.Background()

	first, err := f.svc.GetBalances(ctx, f.session)
	require.NoError(t, err)
	second, err := f.svc.GetBalances(ctx, f.session)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.ledger.balanceCalls)
}

func TestRefreshBalances_BypassesCache(t *testing.T) {
	f := newWalletFixture(t, WithBalanceCache(caching.NewCacheLocal(100, time.Minute), time.Minute))
	f.ledger.balances = []core.LedgerBalance{{Asset: stellar.NativeAsset(), Balance: "1.0000000"}}
	ctx := context.Background()

	_, err := f.svc.GetBalances(ctx, f.session)
	require.NoError(t, err)

	f.ledger.mu.Lock()
	f.ledger.balances = []core.LedgerBalance{{Asset: stellar.NativeAsset(), Balance: "2.0000000"}}
	f.ledger.mu.Unlock()

	balances, err := f.svc.RefreshBalances(ctx, f.session)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "2.0000000", balances[0].Balance)
	assert.Equal(t, 2, f.ledger.balanceCalls)
}
