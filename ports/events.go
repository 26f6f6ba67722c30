package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// EventPublisher notifies other instances and consumers about wallet activity
type EventPublisher interface {
	PublishConnected(ctx context.Context, session *core.Session) error
	PublishDisconnected(ctx context.Context, session *core.Session) error
	PublishTransferRecorded(ctx context.Context, transfer *core.Transfer) error
}
