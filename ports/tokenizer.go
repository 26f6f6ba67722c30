package ports

import "github.com/layer-3/walletauth/core"

// Tokenizer mints and pre-validates session bearer tokens
type Tokenizer interface {
	// SessionToToken mints a fresh token for a session that is about to be stored.
	SessionToToken(session *core.Session) (string, error)
	// CheckToken rejects malformed or forged tokens before any store lookup.
	CheckToken(token string) error
}
