package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/metrics"
)

// CreateSession mints a token for the address and stores the session.
// It is reached through VerifyChallenge; callers outside the package should not need it.
func (s *AuthService) CreateSession(ctx context.Context, address, network string) (*core.Session, error) {
	now := s.now().UTC()
	session := &core.Session{
		Address:    address,
		Network:    network,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}
	session.Token = token

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	return session, nil
}

// GetSession resolves a bearer token and refreshes its last use.
// The expiry is absolute and never extended.
func (s *AuthService) GetSession(ctx context.Context, token string) (*core.Session, error) {
	token = strings.TrimSpace(token)
	if err := s.tokenizer.CheckToken(token); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if session.Expired(now) {
		if removed, err := s.sessions.DeleteSession(ctx, token); err != nil {
			s.log.Warn(ctx, "failed to delete expired session", "error", err)
		} else if removed {
			metrics.SessionsEnded.WithLabelValues("expired").Inc()
		}
		return nil, core.ErrSessionExpired
	}

	session.LastUsedAt = now
	if err := s.sessions.TouchSession(ctx, session); err != nil {
		// The session may have been removed between the read and the write.
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	return session, nil
}

// Disconnect ends the session behind token
func (s *AuthService) Disconnect(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if err := s.tokenizer.CheckToken(token); err != nil {
		return err
	}

	// Read first so the event can carry the address.
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return err
	}

	removed, err := s.sessions.DeleteSession(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !removed {
		return core.ErrSessionNotFound
	}

	metrics.SessionsEnded.WithLabelValues("disconnect").Inc()
	s.log.Info(ctx, "wallet disconnected", "address", session.Address, "network", session.Network)

	if err := s.eventPub.PublishDisconnected(ctx, session); err != nil {
		s.log.Warn(ctx, "failed to publish disconnected event", "error", err)
	}
	return nil
}
