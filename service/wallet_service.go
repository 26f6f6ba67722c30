package service

import (
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/caching"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/ports"
)

// WalletService answers account questions for an authenticated session:
// balances, history and corroborated transfers.
type WalletService struct {
	transfers ports.TransferStore
	ledger    ports.Ledger
	locker    ports.Locker
	eventPub  ports.EventPublisher
	log       logging.Logger

	cache      caching.Cache
	balanceTTL time.Duration
	tokens     map[string]core.TokenMetadata
	now        func() time.Time
}

// WalletOption configures a WalletService
type WalletOption func(*WalletService)

// WithBalanceCache caches balances per network and address for ttl.
func WithBalanceCache(cache caching.Cache, ttl time.Duration) WalletOption {
	return func(s *WalletService) {
		s.cache = cache
		s.balanceTTL = ttl
	}
}

// WithTokens sets the display metadata of known assets.
func WithTokens(tokens []core.TokenMetadata) WalletOption {
	return func(s *WalletService) {
		for _, t := range tokens {
			s.tokens[t.Asset.Key()] = t
		}
	}
}

func WithWalletClock(now func() time.Time) WalletOption {
	return func(s *WalletService) { s.now = now }
}

func WithWalletLogger(log logging.Logger) WalletOption {
	return func(s *WalletService) { s.log = log }
}

func NewWalletService(
	transfers ports.TransferStore,
	ledger ports.Ledger,
	locker ports.Locker,
	eventPub ports.EventPublisher,
	opts ...WalletOption,
) *WalletService {
	s := &WalletService{
		transfers: transfers,
		ledger:    ledger,
		locker:    locker,
		eventPub:  eventPub,
		log:       logging.NewNop(),
		tokens:    make(map[string]core.TokenMetadata),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "wallet")
	return s
}
