package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/internal/metrics"
	"github.com/layer-3/walletauth/internal/stellar"
	"github.com/layer-3/walletauth/ports"
)

const (
	DefaultChallengeTTL   = 5 * time.Minute
	DefaultSessionTTL     = 24 * time.Hour
	DefaultChallengeLabel = "Wallet Authentication"

	nonceSize = 16
)

// AuthService handles wallet challenges and the sessions they unlock
type AuthService struct {
	challenges ports.ChallengeStore
	sessions   ports.SessionStore
	tokenizer  ports.Tokenizer
	eventPub   ports.EventPublisher
	log        logging.Logger

	challengeTTL time.Duration
	sessionTTL   time.Duration
	networks     map[string]struct{}
	label        string
	now          func() time.Time
	random       io.Reader
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

func WithChallengeTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.challengeTTL = ttl }
}

func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.sessionTTL = ttl }
}

// WithNetworks replaces the allow-list of networks challenges may be issued for.
func WithNetworks(networks ...string) AuthOption {
	return func(s *AuthService) {
		s.networks = make(map[string]struct{}, len(networks))
		for _, n := range networks {
			s.networks[normalizeNetwork(n)] = struct{}{}
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithLabel sets the first line of every challenge message.
func WithLabel(label string) AuthOption {
	return func(s *AuthService) { s.label = label }
}

func WithLogger(log logging.Logger) AuthOption {
	return func(s *AuthService) { s.log = log }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	challenges ports.ChallengeStore,
	sessions ports.SessionStore,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		challenges:   challenges,
		sessions:     sessions,
		tokenizer:    tokenizer,
		eventPub:     eventPub,
		log:          logging.NewNop(),
		challengeTTL: DefaultChallengeTTL,
		sessionTTL:   DefaultSessionTTL,
		networks:     map[string]struct{}{"testnet": {}},
		label:        DefaultChallengeLabel,
		now:          time.Now,
		random:       rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "auth")
	return s
}

// CreateChallenge issues a single-use challenge the wallet has to sign
func (s *AuthService) CreateChallenge(ctx context.Context, address, network string) (*core.Challenge, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	network = normalizeNetwork(network)
	if _, ok := s.networks[network]; !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedNetwork, network)
	}

	nonceBytes := make([]byte, nonceSize)
	if _, err := io.ReadFull(s.random, nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	now := s.now().UTC()
	challenge := &core.Challenge{
		Nonce:     nonce,
		Address:   address,
		Network:   network,
		Message:   challengeMessage(s.label, address, nonce, network, now),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	if err := s.challenges.SaveChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	metrics.ChallengesIssued.WithLabelValues(network).Inc()
	s.log.Debug(ctx, "challenge issued", "address", address, "network", network)

	return challenge, nil
}

// VerifyChallenge consumes the challenge and, if the signature over its
// message is valid, starts a session for the address.
func (s *AuthService) VerifyChallenge(ctx context.Context, address, network, nonce, signature string) (*core.Session, error) {
	session, err := s.verifyChallenge(ctx, address, network, nonce, signature)
	metrics.ChallengeVerifications.WithLabelValues(verificationResult(err)).Inc()
	if err != nil {
		s.log.Info(ctx, "challenge rejected", "address", address, "error", err)
		return nil, err
	}

	s.log.Info(ctx, "wallet connected", "address", session.Address, "network", session.Network)
	if err := s.eventPub.PublishConnected(ctx, session); err != nil {
		s.log.Warn(ctx, "failed to publish connected event", "error", err)
	}

	return session, nil
}

func (s *AuthService) verifyChallenge(ctx context.Context, address, network, nonce, signature string) (*core.Session, error) {
	nonce = strings.TrimSpace(nonce)
	challenge, err := s.challenges.GetChallenge(ctx, nonce)
	if err != nil {
		return nil, err
	}

	if challenge.Address != strings.ToUpper(strings.TrimSpace(address)) || challenge.Network != normalizeNetwork(network) {
		return nil, core.ErrChallengeMismatch
	}

	if challenge.Expired(s.now()) {
		if _, err := s.challenges.DeleteChallenge(ctx, nonce); err != nil {
			s.log.Warn(ctx, "failed to delete expired challenge", "error", err)
		}
		return nil, core.ErrChallengeExpired
	}

	removed, err := s.challenges.DeleteChallenge(ctx, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !removed {
		return nil, core.ErrChallengeNotFound
	}

	ok, err := stellar.Verify(challenge.Address, []byte(challenge.Message), signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrInvalidSignature
	}

	return s.CreateSession(ctx, challenge.Address, challenge.Network)
}

// challengeMessage builds the text the wallet signs. The nonce and the issue
// time make every message unique.
func challengeMessage(label, address, nonce, network string, issuedAt time.Time) string {
	var b strings.Builder
	b.WriteString(label)
	b.WriteString("\nAddress: ")
	b.WriteString(address)
	b.WriteString("\nNonce: ")
	b.WriteString(nonce)
	b.WriteString("\nNetwork: ")
	b.WriteString(network)
	b.WriteString("\nIssued At: ")
	b.WriteString(issuedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	return b.String()
}

func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if _, err := stellar.DecodeAccountID(address); err != nil {
		return "", err
	}
	return strings.ToUpper(address), nil
}

func normalizeNetwork(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrChallengeNotFound):
		return "not_found"
	case errors.Is(err, core.ErrChallengeMismatch):
		return "mismatch"
	case errors.Is(err, core.ErrChallengeExpired):
		return "expired"
	case errors.Is(err, core.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "error"
	}
}
