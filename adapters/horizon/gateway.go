package horizon

import (
	"context"
	"fmt"
	"strings"

	"github.com/layer-3/walletauth/core"
)

// Gateway routes ledger reads to the Horizon server of each network.
type Gateway struct {
	clients map[string]*Client
}

// NewGateway builds one client per network. urls maps network name to base URL.
func NewGateway(urls map[string]string, opts Options) *Gateway {
	clients := make(map[string]*Client, len(urls))
	for network, baseURL := range urls {
		clients[strings.ToLower(network)] = NewClient(strings.TrimRight(baseURL, "/"), opts)
	}
	return &Gateway{clients: clients}
}

func (g *Gateway) client(network string) (*Client, error) {
	c, ok := g.clients[strings.ToLower(network)]
	if !ok {
		return nil, fmt.Errorf("%w: no horizon server for %q", core.ErrUnsupportedNetwork, network)
	}
	return c, nil
}

func (g *Gateway) Transaction(ctx context.Context, network, hash string) (*core.LedgerTransaction, error) {
	c, err := g.client(network)
	if err != nil {
		return nil, err
	}
	return c.Transaction(ctx, hash)
}

func (g *Gateway) TransactionOperations(ctx context.Context, network, hash string) ([]core.LedgerOperation, error) {
	c, err := g.client(network)
	if err != nil {
		return nil, err
	}
	return c.TransactionOperations(ctx, hash)
}

func (g *Gateway) AccountOperations(ctx context.Context, network, address string, limit int, cursor string) ([]core.LedgerOperation, error) {
	c, err := g.client(network)
	if err != nil {
		return nil, err
	}
	return c.AccountOperations(ctx, address, limit, cursor)
}

func (g *Gateway) AccountBalances(ctx context.Context, network, address string) ([]core.LedgerBalance, error) {
	c, err := g.client(network)
	if err != nil {
		return nil, err
	}
	return c.AccountBalances(ctx, address)
}
