package tokenizer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
)

// OpaqueTokenizer issues random UUID session tokens
type OpaqueTokenizer struct{}

func NewOpaqueTokenizer() *OpaqueTokenizer {
	return &OpaqueTokenizer{}
}

func (OpaqueTokenizer) SessionToToken(*core.Session) (string, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return token.String(), nil
}

func (OpaqueTokenizer) CheckToken(token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return fmt.Errorf("malformed token: %w", core.ErrSessionNotFound)
	}
	return nil
}
