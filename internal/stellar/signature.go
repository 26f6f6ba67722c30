package stellar

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
)

var hexSignaturePattern = regexp.MustCompile(`^[0-9a-fA-F]{128}$`)

// Verify checks an Ed25519 signature over message by the account behind address.
// The signature is hex when it is exactly 128 hex characters and base64 otherwise.
// Only an undecodable address produces an error; a malformed signature is
// simply not valid.
func Verify(address string, message []byte, signature string) (bool, error) {
	key, err := DecodeAccountID(address)
	if err != nil {
		return false, err
	}

	sig, ok := decodeSignature(signature)
	if !ok || len(sig) != ed25519.SignatureSize {
		return false, nil
	}

	return ed25519.Verify(key, message, sig), nil
}

func decodeSignature(signature string) ([]byte, bool) {
	trimmed := strings.TrimSpace(signature)
	if trimmed == "" {
		return nil, false
	}

	if hexSignaturePattern.MatchString(trimmed) {
		sig, err := hex.DecodeString(trimmed)
		return sig, err == nil
	}

	if sig, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return sig, true
	}
	if sig, err := base64.RawStdEncoding.DecodeString(trimmed); err == nil {
		return sig, true
	}
	return nil, false
}
