// Package horizon reads transactions, operations and balances from a
// Stellar Horizon server.
package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/metrics"
)

const (
	// DefaultTimeout bounds every Horizon request.
	DefaultTimeout = 30 * time.Second

	retryBackoff = 100 * time.Millisecond
	retryJitter  = 50 * time.Millisecond

	transactionOperationsLimit = 200
	maxResponseBytes           = 8 << 20
)

// Options configures the underlying HTTP client.
type Options struct {
	Timeout    time.Duration
	RetryCount int
}

// newDoer builds the client for one request. Retry backoff is skipped once
// ctx is done, so a cancelled request returns without waiting out the retries.
func newDoer(ctx context.Context, opts Options) heimdall.Doer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	backoff := heimdall.NewConstantBackoff(retryBackoff, retryJitter)
	retrier := heimdall.NewRetrierFunc(func(retry int) time.Duration {
		if ctx.Err() != nil {
			return 0
		}
		return backoff.Next(retry)
	})

	return httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(opts.RetryCount),
		httpclient.WithRetrier(retrier),
	)
}

// Client talks to one Horizon server.
type Client struct {
	baseURL string
	opts    Options
}

func NewClient(baseURL string, opts Options) *Client {
	return &Client{baseURL: baseURL, opts: opts}
}

// Transaction fetches a transaction by hash.
func (c *Client) Transaction(ctx context.Context, hash string) (*core.LedgerTransaction, error) {
	var record transactionRecord
	found, err := c.get(ctx, "transaction", "/transactions/"+url.PathEscape(hash), nil, &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.ErrTransactionNotFound
	}

	return &core.LedgerTransaction{Hash: record.Hash, Successful: record.Successful, CreatedAt: record.CreatedAt}, nil
}

// TransactionOperations fetches the operations of a transaction.
func (c *Client) TransactionOperations(ctx context.Context, hash string) ([]core.LedgerOperation, error) {
	query := url.Values{"limit": {strconv.Itoa(transactionOperationsLimit)}}

	var page operationsPage
	found, err := c.get(ctx, "transaction_operations", "/transactions/"+url.PathEscape(hash)+"/operations", query, &page)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.ErrTransactionNotFound
	}

	return page.operations(), nil
}

// AccountOperations fetches the newest operations of an account, starting after cursor.
func (c *Client) AccountOperations(ctx context.Context, address string, limit int, cursor string) ([]core.LedgerOperation, error) {
	query := url.Values{
		"limit": {strconv.Itoa(limit)},
		"order": {"desc"},
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page operationsPage
	found, err := c.get(ctx, "account_operations", "/accounts/"+url.PathEscape(address)+"/operations", query, &page)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return page.operations(), nil
}

// AccountBalances fetches the balances of an account. An unfunded account has none.
func (c *Client) AccountBalances(ctx context.Context, address string) ([]core.LedgerBalance, error) {
	var account accountRecord
	found, err := c.get(ctx, "account", "/accounts/"+url.PathEscape(address), nil, &account)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	balances := make([]core.LedgerBalance, 0, len(account.Balances))
	for i := range account.Balances {
		if balance, ok := account.Balances[i].toBalance(); ok {
			balances = append(balances, balance)
		}
	}
	return balances, nil
}

func (p *operationsPage) operations() []core.LedgerOperation {
	ops := make([]core.LedgerOperation, 0, len(p.Embedded.Records))
	for i := range p.Embedded.Records {
		ops = append(ops, p.Embedded.Records[i].toOperation())
	}
	return ops
}

// get decodes a 2xx JSON body into out. found is false on 404; any other
// failure is wrapped in core.ErrLedgerUnavailable.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) (found bool, err error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", core.ErrLedgerUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := newDoer(ctx, c.opts).Do(req)
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
		defer resp.Body.Close()
	}
	metrics.LedgerRequestDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", core.ErrLedgerUnavailable, endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("%w: %s: unexpected status %d", core.ErrLedgerUnavailable, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return false, fmt.Errorf("%w: %s: decode response: %v", core.ErrLedgerUnavailable, endpoint, err)
	}

	return true, nil
}
