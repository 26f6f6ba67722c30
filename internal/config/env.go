package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const horizonURLPrefix = "STELLAR_HORIZON_URL_"

// ApplyEnv overlays environment variables given as KEY=VALUE pairs, e.g. os.Environ().
// Empty values are ignored. Durations suffixed _MS are integer milliseconds.
func (c *Config) ApplyEnv(environ []string) error {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		env[key] = strings.TrimSpace(value)
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := env[key]; ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := env[key]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	millis := func(key string, dst *time.Duration) {
		var n int
		integer(key, &n)
		if _, ok := env[key]; ok && n != 0 {
			*dst = time.Duration(n) * time.Millisecond
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := env[key]; ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("WALLET_HTTP_ADDR", &c.HTTPAddr)
	str("LOG_LEVEL", &c.LogLevel)
	boolean("LOG_JSON", &c.LogJSON)

	millis("WALLET_CHALLENGE_TTL_MS", &c.Auth.ChallengeTTL)
	millis("WALLET_SESSION_TTL_MS", &c.Auth.SessionTTL)
	str("WALLET_CHALLENGE_LABEL", &c.Auth.ChallengeLabel)
	str("WALLET_TOKEN_FORMAT", &c.Auth.TokenFormat)
	str("WALLET_JWT_KEY_FILE", &c.Auth.JWTKeyFile)

	if v, ok := env["STELLAR_ALLOWED_NETWORKS"]; ok {
		c.Stellar.AllowedNetworks = splitNetworks(v)
	}
	str("STELLAR_HORIZON_URL", &c.Stellar.HorizonURL)
	for key, value := range env {
		network, ok := strings.CutPrefix(key, horizonURLPrefix)
		if !ok || network == "" {
			continue
		}
		if c.Stellar.HorizonURLs == nil {
			c.Stellar.HorizonURLs = make(map[string]string)
		}
		c.Stellar.HorizonURLs[NormalizeNetwork(network)] = value
	}
	millis("HORIZON_REQUEST_TIMEOUT", &c.Stellar.RequestTimeout)
	integer("HORIZON_RETRY_COUNT", &c.Stellar.RetryCount)
	millis("STELLAR_BALANCE_CACHE_TTL_MS", &c.Stellar.BalanceCacheTTL)
	if v, ok := env["STELLAR_TOKEN_LIST"]; ok {
		var tokens []TokenConfig
		if err := json.Unmarshal([]byte(v), &tokens); err != nil {
			errs = append(errs, fmt.Errorf("STELLAR_TOKEN_LIST: %w", err))
		} else {
			c.Stellar.Tokens = tokens
		}
	}

	str("WALLET_STORE_BACKEND", &c.Store.Backend)
	str("REDIS_URL", &c.Store.RedisURL)
	str("DATABASE_DSN", &c.Store.PostgresDSN)
	integer("WALLET_MAX_RECORDED_TRANSACTIONS", &c.Store.MaxTransfersPerAddress)
	str("WALLET_SWEEP_SCHEDULE", &c.Store.SweepSchedule)

	integer("WALLET_CONNECT_RATE_PER_MINUTE", &c.RateLimit.ConnectPerMinute)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

func splitNetworks(raw string) []string {
	var networks []string
	for _, entry := range strings.Split(raw, ",") {
		if n := NormalizeNetwork(entry); n != "" {
			networks = append(networks, n)
		}
	}
	return networks
}
