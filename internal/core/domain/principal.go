package domain

import (
	"errors"
	"strings"

	"github.com/stellar/go/strkey"
)

var (
	ErrInvalidPrincipal = errors.New("invalid principal address")
	ErrInvalidToken     = errors.New("invalid token identifier")
)

// Principal is an authenticated account address (ed25519 public key strkey, G...).
// It is only ever compared for equality.
type Principal string

func (p Principal) String() string {
	return string(p)
}

// Validate checks that p is a well-formed account address.
func (p Principal) Validate() error {
	if !strkey.IsValidEd25519PublicKey(string(p)) {
		return ErrInvalidPrincipal
	}
	return nil
}

// ParsePrincipal trims and validates an address.
func ParsePrincipal(s string) (Principal, error) {
	p := Principal(strings.TrimSpace(s))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Token identifies a fungible asset: "native" or "CODE:ISSUER".
type Token string

const NativeToken Token = "native"

const maxAssetCodeLen = 12

func (t Token) String() string {
	return string(t)
}

// IsNative reports whether t is the network's native asset.
func (t Token) IsNative() bool {
	return t == NativeToken
}

// Code returns the asset code, empty for the native asset.
func (t Token) Code() string {
	code, _, _ := strings.Cut(string(t), ":")
	if t.IsNative() {
		return ""
	}
	return code
}

// Issuer returns the issuing account, empty for the native asset.
func (t Token) Issuer() string {
	_, issuer, _ := strings.Cut(string(t), ":")
	return issuer
}

// Validate checks the token identifier format.
func (t Token) Validate() error {
	if t.IsNative() {
		return nil
	}
	code, issuer, ok := strings.Cut(string(t), ":")
	if !ok || code == "" || len(code) > maxAssetCodeLen {
		return ErrInvalidToken
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ErrInvalidToken
		}
	}
	if !strkey.IsValidEd25519PublicKey(issuer) {
		return ErrInvalidToken
	}
	return nil
}
