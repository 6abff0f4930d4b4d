package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

var ErrNoSigner = errors.New("stellar: no signer for source address")

// StellarTransferer submits token movements as Stellar payments. Amounts are
// in the network's base unit (10^-7) and must fit in an int64.
type StellarTransferer struct {
	client     horizonclient.ClientInterface
	passphrase string
	signers    map[domain.Principal]*keypair.Full
	log        zerolog.Logger
}

// NewStellarTransferer parses the signer seeds; each seed can move funds
// out of its own address.
func NewStellarTransferer(client horizonclient.ClientInterface, passphrase string, seeds []string, log zerolog.Logger) (*StellarTransferer, error) {
	signers := make(map[domain.Principal]*keypair.Full, len(seeds))
	for i, seed := range seeds {
		kp, err := keypair.ParseFull(seed)
		if err != nil {
			return nil, fmt.Errorf("stellar signer %d: %w", i, err)
		}
		signers[domain.Principal(kp.Address())] = kp
	}
	return &StellarTransferer{
		client:     client,
		passphrase: passphrase,
		signers:    signers,
		log:        log,
	}, nil
}

func (s *StellarTransferer) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferReceipt, error) {
	signer, ok := s.signers[req.From]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNoSigner, req.From)
	}
	units, err := baseUnits(req.Amount.BigInt(), req.Amount.IsInteger())
	if err != nil {
		return nil, err
	}

	source, err := s.client.AccountDetail(horizonclient.AccountRequest{AccountID: signer.Address()})
	if err != nil {
		return nil, fmt.Errorf("failed to load source account: %w", err)
	}

	tx, err := txnbuild.NewTransaction(
		txnbuild.TransactionParams{
			SourceAccount:        &source,
			IncrementSequenceNum: true,
			BaseFee:              txnbuild.MinBaseFee,
			Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewInfiniteTimeout()},
			Operations: []txnbuild.Operation{
				&txnbuild.Payment{
					Destination: req.To.String(),
					Amount:      amount.StringFromInt64(units),
					Asset:       assetFor(req.Token),
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	tx, err = tx.Sign(s.passphrase, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.client.SubmitTransaction(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	s.log.Info().
		Str("hash", resp.Hash).
		Str("token", req.Token.String()).
		Str("from", req.From.String()).
		Str("to", req.To.String()).
		Int64("amount", units).
		Msg("stellar payment submitted")

	return &ports.TransferReceipt{
		Reference: resp.Hash,
		Token:     req.Token,
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
	}, nil
}

func baseUnits(v *big.Int, integer bool) (int64, error) {
	if !integer || v.Sign() <= 0 || !v.IsInt64() {
		return 0, fmt.Errorf("stellar: amount %s out of range", v)
	}
	return v.Int64(), nil
}

func assetFor(token domain.Token) txnbuild.Asset {
	if token.IsNative() || token == "XLM" {
		return txnbuild.NativeAsset{}
	}
	return txnbuild.CreditAsset{Code: token.Code(), Issuer: token.Issuer()}
}
