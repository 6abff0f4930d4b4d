package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("custody: insufficient funds")
	ErrInvalidTransfer   = errors.New("custody: invalid transfer")
)

type holding struct {
	token   domain.Token
	address domain.Principal
}

// CustodyBank is an in-process token book keyed by (token, address).
// It implements ports.TokenTransferer for local runs and tests.
type CustodyBank struct {
	mu       sync.Mutex
	holdings map[holding]decimal.Decimal
	log      zerolog.Logger
}

func NewCustodyBank(log zerolog.Logger) *CustodyBank {
	return &CustodyBank{
		holdings: make(map[holding]decimal.Decimal),
		log:      log,
	}
}

// Mint credits amount of token to address.
func (b *CustodyBank) Mint(token domain.Token, address domain.Principal, amount decimal.Decimal) error {
	if !amount.IsInteger() || amount.IsNegative() {
		return fmt.Errorf("%w: mint amount %s", ErrInvalidTransfer, amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := holding{token, address}
	b.holdings[k] = b.balanceLocked(k).Add(amount)
	return nil
}

// Balance returns what address holds of token.
func (b *CustodyBank) Balance(token domain.Token, address domain.Principal) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balanceLocked(holding{token, address})
}

func (b *CustodyBank) balanceLocked(k holding) decimal.Decimal {
	if v, ok := b.holdings[k]; ok {
		return v
	}
	return decimal.Zero
}

// Transfer moves req.Amount from req.From to req.To. Both sides change or neither does.
func (b *CustodyBank) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Amount.IsInteger() || !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %s", ErrInvalidTransfer, req.Amount)
	}

	b.mu.Lock()
	from := holding{req.Token, req.From}
	to := holding{req.Token, req.To}
	available := b.balanceLocked(from)
	if available.LessThan(req.Amount) {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientFunds, req.From, available, req.Token, req.Amount)
	}
	b.holdings[from] = available.Sub(req.Amount)
	b.holdings[to] = b.balanceLocked(to).Add(req.Amount)
	b.mu.Unlock()

	receipt := &ports.TransferReceipt{
		Reference: uuid.New().String(),
		Token:     req.Token,
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
	}

	b.log.Debug().
		Str("reference", receipt.Reference).
		Str("token", req.Token.String()).
		Str("from", req.From.String()).
		Str("to", req.To.String()).
		Str("amount", req.Amount.String()).
		Msg("custody transfer")

	return receipt, nil
}
