package core

import "time"

// Challenge represents a single-use wallet authentication challenge
type Challenge struct {
	Nonce     string    `json:"nonce" msgpack:"nonce"`         // Random nonce, also the store key
	Address   string    `json:"address" msgpack:"address"`     // Stellar account the challenge was issued to
	Network   string    `json:"network" msgpack:"network"`     // Normalized network name
	Message   string    `json:"message" msgpack:"message"`     // Exact text the wallet must sign
	IssuedAt  time.Time `json:"issuedAt" msgpack:"issued_at"`  // When the challenge was created
	ExpiresAt time.Time `json:"expiresAt" msgpack:"expires_at"` // When the challenge expires
}

// Expired reports whether the challenge is past its deadline at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session represents an authenticated wallet session
type Session struct {
	Token      string    `json:"token" msgpack:"token"`             // Bearer token, also the store key
	Address    string    `json:"address" msgpack:"address"`         // Stellar account bound to the session
	Network    string    `json:"network" msgpack:"network"`         // Network the challenge was signed for
	CreatedAt  time.Time `json:"createdAt" msgpack:"created_at"`    // When the session was created
	ExpiresAt  time.Time `json:"expiresAt" msgpack:"expires_at"`    // Absolute expiry, never extended
	LastUsedAt time.Time `json:"lastUsedAt" msgpack:"last_used_at"` // Refreshed on every successful lookup
}

// Expired reports whether the session is past its deadline at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
