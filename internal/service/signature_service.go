package service

import (
	"encoding/base64"
	"fmt"

	"merchant-ledger/internal/core/domain"

	"github.com/stellar/go/keypair"
)

// Ed25519SignatureService implements ports.SignatureService with account keypairs.
// Signatures are standard base64 of the raw ed25519 signature.
type Ed25519SignatureService struct{}

// NewEd25519SignatureService creates a new signature service.
func NewEd25519SignatureService() *Ed25519SignatureService {
	return &Ed25519SignatureService{}
}

// Sign signs payload with the secret seed (S...).
func (s *Ed25519SignatureService) Sign(seed string, payload string) (string, error) {
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return "", fmt.Errorf("parsing seed: %w", err)
	}
	sig, err := kp.Sign([]byte(payload))
	if err != nil {
		return "", fmt.Errorf("signing payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks that signature over payload was produced by principal's key.
func (s *Ed25519SignatureService) Verify(principal domain.Principal, payload string, signature string) bool {
	kp, err := keypair.ParseAddress(principal.String())
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return kp.Verify([]byte(payload), sig) == nil
}

// BuildCanonicalString constructs the canonical payload for signing.
// Format: METHOD|PATH|TIMESTAMP|NONCE|BODY
func (s *Ed25519SignatureService) BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", method, path, timestamp, nonce, body)
}
