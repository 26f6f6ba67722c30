package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/walletauth/internal/stellar"
)

// Direction says which side of a payment the session account is on.
type Direction uint8

const (
	// DirectionIncoming means the session account received the payment (a purchase).
	DirectionIncoming Direction = iota + 1
	// DirectionOutgoing means the session account sent the payment (a spend).
	DirectionOutgoing
)

// ParseDirection accepts "incoming"/"outgoing" and their "purchase"/"spend" aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "incoming", "purchase":
		return DirectionIncoming, nil
	case "outgoing", "spend":
		return DirectionOutgoing, nil
	}
	return 0, fmt.Errorf("unknown transfer direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "incoming"
	case DirectionOutgoing:
		return "outgoing"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// Counterparty returns the operation field that must equal the session
// address for the operation to count in this direction.
func (d Direction) Counterparty(op *LedgerOperation) string {
	if d == DirectionOutgoing {
		return op.From
	}
	return op.To
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", d)
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TransferStatus is the lifecycle state of a recorded transfer.
type TransferStatus string

const TransferStatusConfirmed TransferStatus = "confirmed"

// Transfer is a ledger payment that was corroborated and recorded for an account.
type Transfer struct {
	ID              string         `json:"id"`
	Address         string         `json:"address"`
	Network         string         `json:"network"`
	Direction       Direction      `json:"direction"`
	Status          TransferStatus `json:"status"`
	Asset           stellar.Asset  `json:"asset"`
	Amount          string         `json:"amount"`
	TransactionHash string         `json:"transactionHash"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Key returns the idempotency key of the transfer.
func (t *Transfer) Key() TransferKey {
	return TransferKey{Address: t.Address, TransactionHash: t.TransactionHash, Direction: t.Direction}
}

// TransferKey identifies at most one recorded transfer.
type TransferKey struct {
	Address         string
	TransactionHash string
	Direction       Direction
}

func (k TransferKey) String() string {
	return k.Address + ":" + k.TransactionHash + ":" + k.Direction.String()
}

// TransferRequest is a client claim that a payment happened on the ledger.
type TransferRequest struct {
	Direction       Direction
	AssetCode       string
	Issuer          string
	Amount          string
	TransactionHash string
}
