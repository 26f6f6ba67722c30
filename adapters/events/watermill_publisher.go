package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/stellar"
)

const (
	TopicConnected        = "wallet.connected"
	TopicDisconnected     = "wallet.disconnected"
	TopicTransferRecorded = "wallet.transfer.recorded"
)

// SessionEvent is published when a wallet connects or disconnects
type SessionEvent struct {
	Address   string    `json:"address"`
	Network   string    `json:"network"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TransferEvent is published when a transfer is recorded
type TransferEvent struct {
	ID              string        `json:"id"`
	Address         string        `json:"address"`
	Network         string        `json:"network"`
	Direction       string        `json:"direction"`
	Asset           stellar.Asset `json:"asset"`
	Amount          string        `json:"amount"`
	TransactionHash string        `json:"transactionHash"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishConnected publishes a connect event. Session tokens never leave the service.
func (p *WatermillPublisher) PublishConnected(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicConnected, SessionEvent{
		Address:   session.Address,
		Network:   session.Network,
		ExpiresAt: session.ExpiresAt,
	})
}

// PublishDisconnected publishes a disconnect event
func (p *WatermillPublisher) PublishDisconnected(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicDisconnected, SessionEvent{
		Address:   session.Address,
		Network:   session.Network,
		ExpiresAt: session.ExpiresAt,
	})
}

// PublishTransferRecorded publishes a recorded transfer
func (p *WatermillPublisher) PublishTransferRecorded(ctx context.Context, transfer *core.Transfer) error {
	return p.publish(ctx, TopicTransferRecorded, TransferEvent{
		ID:              transfer.ID,
		Address:         transfer.Address,
		Network:         transfer.Network,
		Direction:       transfer.Direction.String(),
		Asset:           transfer.Asset,
		Amount:          transfer.Amount,
		TransactionHash: transfer.TransactionHash,
		CreatedAt:       transfer.CreatedAt,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
