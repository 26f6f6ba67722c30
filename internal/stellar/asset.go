package stellar

import (
	"fmt"
	"strings"
)

// AssetType mirrors Horizon's asset_type field.
type AssetType string

const (
	AssetTypeNative     AssetType = "native"
	AssetTypeAlphanum4  AssetType = "credit_alphanum4"
	AssetTypeAlphanum12 AssetType = "credit_alphanum12"
)

// NativeCode is the code of the native asset.
const NativeCode = "XLM"

const maxAssetCodeLen = 12

// Asset is either the native asset or an issued asset identified by code and issuer.
type Asset struct {
	Type   AssetType `json:"type" msgpack:"type"`
	Code   string    `json:"code" msgpack:"code"`
	Issuer string    `json:"issuer,omitempty" msgpack:"issuer,omitempty"`
}

// NativeAsset returns the native asset.
func NativeAsset() Asset {
	return Asset{Type: AssetTypeNative, Code: NativeCode}
}

// NormalizeAsset builds an Asset from user input. "XLM" (any case) and
// "native" mean the native asset; anything else needs a valid issuer.
func NormalizeAsset(code, issuer string) (Asset, error) {
	code = strings.TrimSpace(code)
	issuer = strings.TrimSpace(issuer)

	if code == "" {
		return Asset{}, fmt.Errorf("%w: asset code is required", ErrInvalidAsset)
	}
	if strings.EqualFold(code, NativeCode) || code == "native" {
		return NativeAsset(), nil
	}
	if issuer == "" {
		return Asset{}, fmt.Errorf("%w: issuer is required for %q", ErrInvalidAsset, code)
	}
	if len(code) > maxAssetCodeLen {
		return Asset{}, fmt.Errorf("%w: code %q longer than %d characters", ErrInvalidAsset, code, maxAssetCodeLen)
	}
	for _, r := range code {
		if r <= ' ' || r > '~' {
			return Asset{}, fmt.Errorf("%w: code %q contains non-printable character", ErrInvalidAsset, code)
		}
	}
	if !IsValidAccountID(issuer) {
		return Asset{}, fmt.Errorf("%w: issuer %q is not a valid account", ErrInvalidAsset, issuer)
	}

	assetType := AssetTypeAlphanum12
	if len(code) <= 4 {
		assetType = AssetTypeAlphanum4
	}

	return Asset{Type: assetType, Code: code, Issuer: issuer}, nil
}

// IsNative reports whether a is the native asset.
func (a Asset) IsNative() bool {
	return a.Type == AssetTypeNative
}

// Key is the canonical identity: "XLM" or "CODE:ISSUER".
func (a Asset) Key() string {
	if a.IsNative() {
		return NativeCode
	}
	return a.Code + ":" + a.Issuer
}

// Equal compares assets by Key.
func (a Asset) Equal(b Asset) bool {
	return a.Key() == b.Key()
}

func (a Asset) String() string {
	return a.Key()
}
