package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// ChallengeStore keeps pending challenges keyed by nonce
type ChallengeStore interface {
	SaveChallenge(ctx context.Context, challenge *core.Challenge) error
	// GetChallenge returns core.ErrChallengeNotFound when the nonce is unknown.
	GetChallenge(ctx context.Context, nonce string) (*core.Challenge, error)
	// DeleteChallenge reports whether this call removed the challenge.
	// At most one concurrent caller observes true for the same nonce.
	DeleteChallenge(ctx context.Context, nonce string) (bool, error)
}

// SessionStore keeps sessions keyed by token
type SessionStore interface {
	SaveSession(ctx context.Context, session *core.Session) error
	// GetSession returns core.ErrSessionNotFound when the token is unknown.
	GetSession(ctx context.Context, token string) (*core.Session, error)
	// TouchSession overwrites LastUsedAt without extending the expiry.
	TouchSession(ctx context.Context, session *core.Session) error
	// DeleteSession reports whether this call removed the session.
	DeleteSession(ctx context.Context, token string) (bool, error)
}

// TransferStore keeps recorded transfers, at most one per core.TransferKey
type TransferStore interface {
	// FindTransfer returns nil, nil when no transfer exists for the key.
	FindTransfer(ctx context.Context, key core.TransferKey) (*core.Transfer, error)
	// InsertTransfer stores transfer unless one already exists for its key,
	// in which case the existing transfer is returned and created is false.
	InsertTransfer(ctx context.Context, transfer *core.Transfer) (stored *core.Transfer, created bool, err error)
	// ListTransfers returns every transfer of the address, newest first.
	ListTransfers(ctx context.Context, address string) ([]core.Transfer, error)
}
