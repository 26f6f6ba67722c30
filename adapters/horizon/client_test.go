package horizon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/stellar"
	"github.com/layer-3/walletauth/ports"
)

var _ ports.Ledger = (*Gateway)(nil)

const (
	sender   = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"
	receiver = "GAAACAQDAQCQMBYIBEFAWDANBYHRAEISCMKBKFQXDAMRUGY4DUPB7JZX"
	txHash   = "3389e9f0f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889"
)

const operationsBody = `{
  "_embedded": {
    "records": [
      {
        "id": "1", "paging_token": "pt-1", "type": "payment",
        "source_account": "` + sender + `", "from": "` + sender + `", "to": "` + receiver + `",
        "asset_type": "native", "amount": "10.0000000",
        "transaction_hash": "` + txHash + `", "transaction_successful": true,
        "created_at": "2024-05-01T12:00:00Z"
      },
      {
        "id": "2", "paging_token": "pt-2", "type": "path_payment_strict_receive",
        "source_account": "` + sender + `", "from": "` + sender + `", "to": "` + receiver + `",
        "asset_type": "credit_alphanum4", "asset_code": "USDC", "asset_issuer": "` + sender + `",
        "amount": "2.5000000",
        "transaction_hash": "` + txHash + `", "transaction_successful": true,
        "created_at": "2024-05-01T12:00:00Z"
      },
      {
        "id": "3", "paging_token": "pt-3", "type": "create_account",
        "source_account": "` + sender + `", "funder": "` + sender + `", "account": "` + receiver + `",
        "starting_balance": "100.0000000",
        "transaction_hash": "` + txHash + `", "transaction_successful": true,
        "created_at": "2024-04-30T12:00:00Z"
      }
    ]
  }
}`

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGateway(map[string]string{"testnet": srv.URL + "/"}, Options{Timeout: time.Second})
}

func TestTransaction(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/"+txHash, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"hash":"` + txHash + `","successful":true,"created_at":"2024-05-01T12:00:00Z"}`))
	})

	tx, err := g.Transaction(context.Background(), "testnet", txHash)
	require.NoError(t, err)
	assert.True(t, tx.Successful)
	assert.Equal(t, txHash, tx.Hash)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), tx.CreatedAt)
}

func TestTransaction_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"status":404}`, wantErr: core.ErrTransactionNotFound},
		{name: "server error", status: http.StatusServiceUnavailable, body: `{}`, wantErr: core.ErrLedgerUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantErr: core.ErrLedgerUnavailable},
		{name: "bad json", status: http.StatusOK, body: `{"hash":`, wantErr: core.ErrLedgerUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.Transaction(context.Background(), "testnet", txHash)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTransaction_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(map[string]string{"testnet": srv.URL}, Options{Timeout: 50 * time.Millisecond})

	_, err := g.Transaction(context.Background(), "testnet", txHash)
	assert.ErrorIs(t, err, core.ErrLedgerUnavailable)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"hash":"` + txHash + `","successful":false}`))
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(map[string]string{"testnet": srv.URL}, Options{Timeout: time.Second, RetryCount: 1})

	tx, err := g.Transaction(context.Background(), "testnet", txHash)
	require.NoError(t, err)
	assert.False(t, tx.Successful)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCancelledRequestSkipsRetryBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(map[string]string{"testnet": srv.URL}, Options{Timeout: time.Second, RetryCount: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := g.Transaction(ctx, "testnet", txHash)
	assert.ErrorIs(t, err, core.ErrLedgerUnavailable)
	assert.Less(t, time.Since(start), retryBackoff, "no backoff after cancellation")
	assert.Zero(t, calls.Load())
}

func TestTransactionOperations(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/"+txHash+"/operations", r.URL.Path)
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(operationsBody))
	})

	ops, err := g.TransactionOperations(context.Background(), "testnet", txHash)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, core.LedgerOperation{
		ID:              "1",
		PagingToken:     "pt-1",
		Type:            "payment",
		From:            sender,
		To:              receiver,
		Asset:           stellar.NativeAsset(),
		Amount:          "10.0000000",
		TransactionHash: txHash,
		Successful:      true,
		CreatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}, ops[0])
	assert.True(t, ops[0].IsPayment())

	assert.True(t, ops[1].IsPayment())
	assert.Equal(t, stellar.Asset{Type: stellar.AssetTypeAlphanum4, Code: "USDC", Issuer: sender}, ops[1].Asset)

	assert.False(t, ops[2].IsPayment())
	assert.Equal(t, sender, ops[2].From)
	assert.Equal(t, receiver, ops[2].To)
	assert.Equal(t, "100.0000000", ops[2].Amount)
	assert.True(t, ops[2].Asset.IsNative())
}

func TestAccountOperations(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/"+receiver+"/operations", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "15", q.Get("limit"))
		assert.Equal(t, "desc", q.Get("order"))
		assert.Equal(t, "pt-9", q.Get("cursor"))
		_, _ = w.Write([]byte(operationsBody))
	})

	ops, err := g.AccountOperations(context.Background(), "TESTNET", receiver, 15, "pt-9")
	require.NoError(t, err)
	assert.Len(t, ops, 3)
}

func TestAccountOperations_UnfundedAccount(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("cursor"))
		w.WriteHeader(http.StatusNotFound)
	})

	ops, err := g.AccountOperations(context.Background(), "testnet", receiver, 20, "")
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestAccountBalances(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/"+receiver, r.URL.Path)
		_, _ = w.Write([]byte(`{"balances":[
			{"balance":"5.0000000","asset_type":"credit_alphanum12","asset_code":"LONGCODE","asset_issuer":"` + sender + `"},
			{"balance":"1.0000000","asset_type":"liquidity_pool_shares","liquidity_pool_id":"abcd"},
			{"balance":"99.5000000","asset_type":"native"}
		]}`))
	})

	balances, err := g.AccountBalances(context.Background(), "testnet", receiver)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "LONGCODE", balances[0].Asset.Code)
	assert.Equal(t, stellar.AssetTypeAlphanum12, balances[0].Asset.Type)
	assert.True(t, balances[1].Asset.IsNative())
	assert.Equal(t, "99.5000000", balances[1].Balance)
}

func TestAccountBalances_Unfunded(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	balances, err := g.AccountBalances(context.Background(), "testnet", receiver)
	require.NoError(t, err)
	assert.Nil(t, balances)
}

func TestUnknownNetwork(t *testing.T) {
	g := NewGateway(map[string]string{"testnet": "http://127.0.0.1:1"}, Options{})

	_, err := g.Transaction(context.Background(), "public", txHash)
	assert.ErrorIs(t, err, core.ErrUnsupportedNetwork)
}
