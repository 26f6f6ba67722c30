// Package config holds runtime settings of the wallet service. Values are
// layered: defaults, then an optional YAML file, then environment variables,
// then command-line flags applied by the caller, and finally Validate.
package config

import (
	"strings"
	"time"
)

const (
	NetworkPublic  = "public"
	NetworkTestnet = "testnet"

	StoreMemory = "memory"
	StoreRedis  = "redis"

	TokenOpaque = "opaque"
	TokenJWT    = "jwt"
)

// Config holds runtime settings for the wallet service.
type Config struct {
	HTTPAddr string `yaml:"httpAddr"`
	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`

	Auth      AuthConfig      `yaml:"auth"`
	Stellar   StellarConfig   `yaml:"stellar"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// AuthConfig controls challenges and sessions.
type AuthConfig struct {
	ChallengeTTL   time.Duration `yaml:"challengeTTL"`
	SessionTTL     time.Duration `yaml:"sessionTTL"`
	ChallengeLabel string        `yaml:"challengeLabel"`
	// TokenFormat is TokenOpaque or TokenJWT.
	TokenFormat string `yaml:"tokenFormat"`
	// JWTKeyFile is a PEM encoded P-256 key. Empty means an ephemeral key per process.
	JWTKeyFile string `yaml:"jwtKeyFile"`
}

// StellarConfig controls networks and the Horizon client.
type StellarConfig struct {
	AllowedNetworks []string `yaml:"allowedNetworks"`
	// HorizonURL, when set, is used for every network.
	HorizonURL      string            `yaml:"horizonURL"`
	HorizonURLs     map[string]string `yaml:"horizonURLs"`
	RequestTimeout  time.Duration     `yaml:"requestTimeout"`
	RetryCount      int               `yaml:"retryCount"`
	Tokens          []TokenConfig     `yaml:"tokens"`
	BalanceCacheTTL time.Duration     `yaml:"balanceCacheTTL"`
}

// TokenConfig is one entry of the static token metadata list.
type TokenConfig struct {
	Code     string `yaml:"code" json:"code"`
	Issuer   string `yaml:"issuer" json:"issuer"`
	Name     string `yaml:"name" json:"name"`
	Symbol   string `yaml:"symbol" json:"symbol"`
	Decimals *int   `yaml:"decimals" json:"decimals"`
}

// StoreConfig selects storage backends.
type StoreConfig struct {
	// Backend holds challenges and sessions: StoreMemory or StoreRedis.
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redisURL"`
	// PostgresDSN, when set, moves recorded transfers to Postgres.
	PostgresDSN            string `yaml:"postgresDSN"`
	MaxTransfersPerAddress int    `yaml:"maxTransfersPerAddress"`
	// SweepSchedule is a cron spec for purging expired entries of the memory backend.
	SweepSchedule string `yaml:"sweepSchedule"`
}

// RateLimitConfig limits the connect endpoint per client IP. Zero disables it.
type RateLimitConfig struct {
	ConnectPerMinute int `yaml:"connectPerMinute"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":9000"
	c.LogLevel = "info"
	c.LogJSON = false

	c.Auth = AuthConfig{
		ChallengeTTL:   5 * time.Minute,
		SessionTTL:     24 * time.Hour,
		ChallengeLabel: "Wallet Authentication",
		TokenFormat:    TokenOpaque,
	}

	c.Stellar = StellarConfig{
		AllowedNetworks: []string{NetworkTestnet},
		HorizonURLs: map[string]string{
			NetworkPublic:  "https://horizon.stellar.org",
			NetworkTestnet: "https://horizon-testnet.stellar.org",
		},
		RequestTimeout:  30 * time.Second,
		RetryCount:      0,
		BalanceCacheTTL: 15 * time.Second,
	}

	c.Store = StoreConfig{
		Backend:                StoreMemory,
		RedisURL:               "redis://localhost:6379/0",
		MaxTransfersPerAddress: 1000,
		SweepSchedule:          "@every 1m",
	}

	c.RateLimit = RateLimitConfig{ConnectPerMinute: 30}
}

// Load applies defaults, the YAML file at path (if any) and environ.
func Load(path string, environ []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(environ); err != nil {
		return nil, err
	}

	return cfg, nil
}

// HorizonURL resolves the Horizon base URL of a network.
func (c *Config) HorizonURL(network string) (string, bool) {
	if c.Stellar.HorizonURL != "" {
		return strings.TrimRight(c.Stellar.HorizonURL, "/"), true
	}
	url, ok := c.Stellar.HorizonURLs[NormalizeNetwork(network)]
	if !ok || url == "" {
		return "", false
	}
	return strings.TrimRight(url, "/"), true
}

// NormalizeNetwork trims and lower-cases a network name.
func NormalizeNetwork(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}
