package core

import (
	"errors"

	"github.com/layer-3/walletauth/internal/stellar"
)

var (
	ErrInvalidAddress   = stellar.ErrInvalidAddress
	ErrInvalidAsset     = stellar.ErrInvalidAsset
	ErrInvalidFormat    = stellar.ErrInvalidFormat
	ErrExceedsPrecision = stellar.ErrExceedsPrecision

	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeMismatch  = errors.New("challenge does not match address or network")
	ErrChallengeExpired   = errors.New("challenge has expired")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session has expired")

	ErrInvalidTransactionHash  = errors.New("invalid transaction hash")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTransactionUnsuccessful = errors.New("transaction was not successful")
	ErrTransactionMismatch     = errors.New("transaction does not match the claimed transfer")
	ErrLedgerUnavailable       = errors.New("ledger unavailable")
)
