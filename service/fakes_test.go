package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/stellar"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type wallet struct {
	address string
	key     ed25519.PrivateKey
}

func newWallet(t *testing.T, seed byte) wallet {
	t.Helper()
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	address, err := stellar.EncodeAccountID(key.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	return wallet{address: address, key: key}
}

func (w wallet) sign(message string) string {
	return hex.EncodeToString(ed25519.Sign(w.key, []byte(message)))
}

type fakePublisher struct {
	mu           sync.Mutex
	err          error
	connected    []core.Session
	disconnected []core.Session
	transfers    []core.Transfer
}

func (p *fakePublisher) PublishConnected(_ context.Context, session *core.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = append(p.connected, *session)
	return p.err
}

func (p *fakePublisher) PublishDisconnected(_ context.Context, session *core.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, *session)
	return p.err
}

func (p *fakePublisher) PublishTransferRecorded(_ context.Context, transfer *core.Transfer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transfers = append(p.transfers, *transfer)
	return p.err
}

type fakeLedger struct {
	mu sync.Mutex

	transactions map[string]*core.LedgerTransaction
	operations   map[string][]core.LedgerOperation
	accountOps   []core.LedgerOperation
	balances     []core.LedgerBalance
	err          error

	transactionCalls int
	balanceCalls     int
	lastLimit        int
	lastCursor       string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		transactions: make(map[string]*core.LedgerTransaction),
		operations:   make(map[string][]core.LedgerOperation),
	}
}

func (l *fakeLedger) addTransaction(hash string, successful bool, ops ...core.LedgerOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactions[hash] = &core.LedgerTransaction{Hash: hash, Successful: successful}
	l.operations[hash] = ops
}

func (l *fakeLedger) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *fakeLedger) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transactionCalls
}

func (l *fakeLedger) Transaction(_ context.Context, _ string, hash string) (*core.LedgerTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactionCalls++
	if l.err != nil {
		return nil, l.err
	}
	tx, ok := l.transactions[hash]
	if !ok {
		return nil, core.ErrTransactionNotFound
	}
	return tx, nil
}

func (l *fakeLedger) TransactionOperations(_ context.Context, _ string, hash string) ([]core.LedgerOperation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.operations[hash], nil
}

func (l *fakeLedger) AccountOperations(_ context.Context, _ string, _ string, limit int, cursor string) ([]core.LedgerOperation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastLimit = limit
	l.lastCursor = cursor
	if l.err != nil {
		return nil, l.err
	}
	return l.accountOps, nil
}

func (l *fakeLedger) AccountBalances(context.Context, string, string) ([]core.LedgerBalance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceCalls++
	if l.err != nil {
		return nil, l.err
	}
	return l.balances, nil
}
