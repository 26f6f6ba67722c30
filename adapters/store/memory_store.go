package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletauth/core"
)

// MemoryStore is an in-memory implementation of the challenge, session and transfer stores
type MemoryStore struct {
	mu sync.Mutex

	challenges map[string]core.Challenge
	sessions   map[string]core.Session

	transfers       map[core.TransferKey]core.Transfer
	transfersByAddr map[string][]core.TransferKey // insertion order, oldest first
	maxTransfers    int
}

// NewMemoryStore creates a new in-memory store keeping at most maxTransfers
// transfers per address. Zero or less means unbounded.
func NewMemoryStore(maxTransfers int) *MemoryStore {
	return &MemoryStore{
		challenges:      make(map[string]core.Challenge),
		sessions:        make(map[string]core.Session),
		transfers:       make(map[core.TransferKey]core.Transfer),
		transfersByAddr: make(map[string][]core.TransferKey),
		maxTransfers:    maxTransfers,
	}
}

func (s *MemoryStore) SaveChallenge(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.Nonce] = *challenge
	return nil
}

func (s *MemoryStore) GetChallenge(ctx context.Context, nonce string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[nonce]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	return &challenge, nil
}

func (s *MemoryStore) DeleteChallenge(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[nonce]; !ok {
		return false, nil
	}
	delete(s.challenges, nonce)
	return true, nil
}

func (s *MemoryStore) SaveSession(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Token] = *session
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, token string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStore) TouchSession(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.Token]
	if !ok {
		return core.ErrSessionNotFound
	}
	stored.LastUsedAt = session.LastUsedAt
	s.sessions[session.Token] = stored
	return nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return false, nil
	}
	delete(s.sessions, token)
	return true, nil
}

func (s *MemoryStore) FindTransfer(ctx context.Context, key core.TransferKey) (*core.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transfer, ok := s.transfers[key]
	if !ok {
		return nil, nil
	}
	return &transfer, nil
}

func (s *MemoryStore) InsertTransfer(ctx context.Context, transfer *core.Transfer) (*core.Transfer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := transfer.Key()
	if existing, ok := s.transfers[key]; ok {
		return &existing, false, nil
	}

	s.transfers[key] = *transfer
	keys := append(s.transfersByAddr[transfer.Address], key)
	if s.maxTransfers > 0 && len(keys) > s.maxTransfers {
		drop := len(keys) - s.maxTransfers
		for _, old := range keys[:drop] {
			delete(s.transfers, old)
		}
		keys = append([]core.TransferKey(nil), keys[drop:]...)
	}
	s.transfersByAddr[transfer.Address] = keys

	stored := *transfer
	return &stored, true, nil
}

func (s *MemoryStore) ListTransfers(ctx context.Context, address string) ([]core.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.transfersByAddr[address]
	out := make([]core.Transfer, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, s.transfers[keys[i]])
	}
	return out, nil
}

// Sweep removes challenges and sessions that expired before now.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (challenges, sessions int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for nonce, challenge := range s.challenges {
		if challenge.Expired(now) {
			delete(s.challenges, nonce)
			challenges++
		}
	}
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			sessions++
		}
	}
	return challenges, sessions, nil
}
