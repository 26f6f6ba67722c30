// Package stellar implements the Stellar primitives the wallet service relies on:
// StrKey account identifiers, Ed25519 signature checks, fixed-point amounts and
// asset identifiers.
package stellar

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base32"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/snksoft/crc"
)

// VersionByteAccountID is the StrKey version byte of an Ed25519 public key ("G...").
const VersionByteAccountID byte = 6 << 3

const (
	payloadLen  = 1 + ed25519.PublicKeySize
	checksumLen = 2
	decodedLen  = payloadLen + checksumLen
)

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

func isAlphabetByte(b byte) bool {
	return ('A' <= b && b <= 'Z') || ('a' <= b && b <= 'z') || ('2' <= b && b <= '7')
}

var strkeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Encode renders version || key || crc16 as unpadded base32.
func Encode(version byte, key []byte) (string, error) {
	if len(key) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidAddress, ed25519.PublicKeySize, len(key))
	}

	raw := make([]byte, 0, decodedLen)
	raw = append(raw, version)
	raw = append(raw, key...)
	raw = append(raw, checksum(raw)...)

	return strkeyEncoding.EncodeToString(raw), nil
}

// EncodeAccountID encodes an Ed25519 public key as a "G..." address.
func EncodeAccountID(key ed25519.PublicKey) (string, error) {
	return Encode(VersionByteAccountID, key)
}

// Decode parses a StrKey string and returns the 32-byte key it carries.
// Input is case-insensitive. Surrounding whitespace is rejected.
func Decode(version byte, address string) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	// The alphabet is checked byte by byte on the raw input: base32 decoding
	// skips CR/LF, and Unicode upper-casing maps runes such as 'ſ' to 'S'.
	for i := 0; i < len(address); i++ {
		if !isAlphabetByte(address[i]) {
			r, _ := utf8.DecodeRuneInString(address[i:])
			return nil, fmt.Errorf("%w: invalid character %q", ErrInvalidAddress, r)
		}
	}
	normalized := strings.ToUpper(address)

	raw, err := strkeyEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != decodedLen {
		return nil, fmt.Errorf("%w: decoded length %d, want %d", ErrInvalidAddress, len(raw), decodedLen)
	}

	payload, sum := raw[:payloadLen], raw[payloadLen:]
	if !bytes.Equal(sum, checksum(payload)) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	if payload[0] != version {
		return nil, fmt.Errorf("%w: unexpected version byte %d", ErrInvalidAddress, payload[0])
	}

	key := make([]byte, ed25519.PublicKeySize)
	copy(key, payload[1:])
	return key, nil
}

// DecodeAccountID decodes a "G..." address into an Ed25519 public key.
func DecodeAccountID(address string) (ed25519.PublicKey, error) {
	key, err := Decode(VersionByteAccountID, address)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(key), nil
}

// IsValidAccountID reports whether address decodes as an account ID.
func IsValidAccountID(address string) bool {
	_, err := DecodeAccountID(address)
	return err == nil
}

// checksum is CRC-16/XMODEM over payload, little-endian.
func checksum(payload []byte) []byte {
	sum := uint16(crc.CalculateCRC(crc.XMODEM, payload))
	return []byte{byte(sum), byte(sum >> 8)}
}
