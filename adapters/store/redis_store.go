package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/layer-3/walletauth/core"
)

// expiryGrace keeps entries in Redis past their logical expiry so lookups
// can still tell an expired entry from an unknown one.
const expiryGrace = time.Minute

// RedisStore is a Redis implementation of the challenge and session stores
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "walletauth:",
		now:    time.Now,
	}
}

func (s *RedisStore) challengeKey(nonce string) string {
	return s.prefix + "challenge:" + nonce
}

func (s *RedisStore) sessionKey(token string) string {
	return s.prefix + "session:" + token
}

func (s *RedisStore) ttl(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(s.now()) + expiryGrace
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// SaveChallenge stores a challenge under its nonce
func (s *RedisStore) SaveChallenge(ctx context.Context, challenge *core.Challenge) error {
	payload, err := msgpack.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.challengeKey(challenge.Nonce), payload, s.ttl(challenge.ExpiresAt)).Err(); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}

	return nil
}

// GetChallenge loads a challenge by nonce
func (s *RedisStore) GetChallenge(ctx context.Context, nonce string) (*core.Challenge, error) {
	payload, err := s.client.Get(ctx, s.challengeKey(nonce)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge core.Challenge
	if err := msgpack.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}

	return &challenge, nil
}

// DeleteChallenge removes a challenge; DEL reports whether this call removed it
func (s *RedisStore) DeleteChallenge(ctx context.Context, nonce string) (bool, error) {
	n, err := s.client.Del(ctx, s.challengeKey(nonce)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete challenge: %w", err)
	}

	return n > 0, nil
}

// SaveSession stores a session under its token
func (s *RedisStore) SaveSession(ctx context.Context, session *core.Session) error {
	payload, err := msgpack.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.sessionKey(session.Token), payload, s.ttl(session.ExpiresAt)).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession loads a session by token
func (s *RedisStore) GetSession(ctx context.Context, token string) (*core.Session, error) {
	payload, err := s.client.Get(ctx, s.sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session core.Session
	if err := msgpack.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &session, nil
}

// TouchSession rewrites the session keeping its TTL. A session deleted in
// the meantime is not recreated.
func (s *RedisStore) TouchSession(ctx context.Context, session *core.Session) error {
	payload, err := msgpack.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = s.client.SetArgs(ctx, s.sessionKey(session.Token), payload, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return core.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

// DeleteSession removes a session; DEL reports whether this call removed it
func (s *RedisStore) DeleteSession(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Del(ctx, s.sessionKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}

	return n > 0, nil
}
