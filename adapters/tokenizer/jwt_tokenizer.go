package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"os"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
)

const AudienceSession = "wallet:session"

// JWTTokenizer mints ES256 signed session tokens. Expiry is enforced by the
// session store, so claims validation is skipped when checking a token.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	parser  *jwt.Parser
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) *JWTTokenizer {
	return &JWTTokenizer{
		signKey: signKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// LoadSigningKey reads a PEM encoded EC private key, or generates an
// ephemeral P-256 key when path is empty.
func LoadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	return key, nil
}

// SessionToToken converts a Session to a signed JWT
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		Network: session.Network,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// CheckToken verifies the token signature and audience
func (j *JWTTokenizer) CheckToken(tokenStr string) error {
	token, err := j.parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return &j.signKey.PublicKey, nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", core.ErrSessionNotFound)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return core.ErrSessionNotFound
	}

	if !slices.Contains(claims.Audience, AudienceSession) {
		return fmt.Errorf("unexpected audience: %w", core.ErrSessionNotFound)
	}

	return nil
}
