package stellar

import "errors"

var (
	// ErrInvalidAddress is returned when a StrKey fails alphabet, length, checksum or version checks
	ErrInvalidAddress = errors.New("invalid stellar address")

	// ErrInvalidFormat is returned when an amount string does not match the decimal grammar
	ErrInvalidFormat = errors.New("invalid amount format")

	// ErrExceedsPrecision is returned when an amount has more fractional digits than allowed
	ErrExceedsPrecision = errors.New("amount exceeds allowed decimals")

	// ErrInvalidAsset is returned when an asset code/issuer pair cannot be normalized
	ErrInvalidAsset = errors.New("invalid asset")
)
