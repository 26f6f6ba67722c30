package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/stellar"
)

const defaultTokenDecimals = stellar.AmountDecimals

// Validate checks the configuration once all layers are applied.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.Auth.ChallengeTTL <= 0 {
		errs = append(errs, errors.New("challenge TTL must be positive"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("session TTL must be positive"))
	}
	switch c.Auth.TokenFormat {
	case TokenOpaque:
	case TokenJWT:
		if c.Auth.JWTKeyFile != "" {
			if _, err := os.Stat(c.Auth.JWTKeyFile); err != nil {
				errs = append(errs, fmt.Errorf("jwt key file: %w", err))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown token format %q", c.Auth.TokenFormat))
	}

	if len(c.Stellar.AllowedNetworks) == 0 {
		errs = append(errs, errors.New("at least one allowed network is required"))
	}
	for _, network := range c.Stellar.AllowedNetworks {
		if _, ok := c.HorizonURL(network); !ok {
			errs = append(errs, fmt.Errorf("no horizon url configured for network %q", network))
		}
	}
	if c.Stellar.RequestTimeout <= 0 {
		errs = append(errs, errors.New("horizon request timeout must be positive"))
	}
	if c.Stellar.RetryCount < 0 {
		errs = append(errs, errors.New("horizon retry count must not be negative"))
	}
	if c.Stellar.BalanceCacheTTL < 0 {
		errs = append(errs, errors.New("balance cache TTL must not be negative"))
	}
	if _, err := c.TokenMetadata(); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Backend {
	case StoreMemory:
		if c.Store.SweepSchedule != "" {
			if _, err := cron.ParseStandard(c.Store.SweepSchedule); err != nil {
				errs = append(errs, fmt.Errorf("sweep schedule: %w", err))
			}
		}
	case StoreRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("redis url is required for the redis store"))
		}
		// Challenges, sessions and the transfer lock are shared through Redis,
		// so recorded transfers must be shared as well.
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("database dsn is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.MaxTransfersPerAddress <= 0 {
		errs = append(errs, errors.New("max transfers per address must be positive"))
	}
	if c.RateLimit.ConnectPerMinute < 0 {
		errs = append(errs, errors.New("connect rate limit must not be negative"))
	}

	return errors.Join(errs...)
}

// TokenMetadata normalizes the configured token list.
func (c *Config) TokenMetadata() ([]core.TokenMetadata, error) {
	out := make([]core.TokenMetadata, 0, len(c.Stellar.Tokens))
	for i, token := range c.Stellar.Tokens {
		asset, err := stellar.NormalizeAsset(token.Code, token.Issuer)
		if err != nil {
			return nil, fmt.Errorf("token list entry %d: %w", i, err)
		}

		decimals := defaultTokenDecimals
		if token.Decimals != nil {
			decimals = *token.Decimals
		}
		if decimals < 0 {
			return nil, fmt.Errorf("token list entry %d: negative decimals", i)
		}

		symbol, name := strings.TrimSpace(token.Symbol), strings.TrimSpace(token.Name)
		if symbol == "" {
			symbol = asset.Code
		}
		if name == "" {
			name = asset.Code
		}

		out = append(out, core.TokenMetadata{
			Asset:    asset,
			Symbol:   symbol,
			Name:     name,
			Decimals: decimals,
		})
	}
	return out, nil
}
