package service

import (
	"testing"

	"merchant-ledger/internal/core/domain"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519SignatureService_SignAndVerify(t *testing.T) {
	svc := NewEd25519SignatureService()
	kp := keypair.MustRandom()
	payload := svc.BuildCanonicalString("POST", "/api/v1/invoices", 1700000000, "nonce-1", `{"amount":"10"}`)

	sig, err := svc.Sign(kp.Seed(), payload)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	assert.True(t, svc.Verify(domain.Principal(kp.Address()), payload, sig))
}

func TestEd25519SignatureService_VerifyRejects(t *testing.T) {
	svc := NewEd25519SignatureService()
	kp := keypair.MustRandom()
	other := keypair.MustRandom()
	payload := "POST|/x|1|n|"

	sig, err := svc.Sign(kp.Seed(), payload)
	require.NoError(t, err)

	tests := []struct {
		name      string
		principal domain.Principal
		payload   string
		signature string
	}{
		{"other key", domain.Principal(other.Address()), payload, sig},
		{"tampered payload", domain.Principal(kp.Address()), payload + "x", sig},
		{"not base64", domain.Principal(kp.Address()), payload, "%%%"},
		{"bad address", domain.Principal("GBAD"), payload, sig},
		{"empty signature", domain.Principal(kp.Address()), payload, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, svc.Verify(tt.principal, tt.payload, tt.signature))
		})
	}
}

func TestEd25519SignatureService_SignInvalidSeed(t *testing.T) {
	svc := NewEd25519SignatureService()
	_, err := svc.Sign("not-a-seed", "payload")
	assert.Error(t, err)
}

func TestBuildCanonicalString(t *testing.T) {
	svc := NewEd25519SignatureService()
	assert.Equal(t, "GET|/api/v1/invoices|42|abc|", svc.BuildCanonicalString("GET", "/api/v1/invoices", 42, "abc", ""))
}
