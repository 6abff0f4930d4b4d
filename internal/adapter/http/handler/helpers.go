package handler

import (
	"strconv"
	"strings"
	"time"

	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/adapter/http/middleware"
	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// caller returns the authenticated principal placed by the auth middleware.
func caller(c *gin.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return "", apperror.ErrMissingCredentials()
	}
	return p, nil
}

func uintParam(c *gin.Context, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, apperror.Validation(name + " must be a positive integer")
	}
	return v, nil
}

func principalParam(c *gin.Context, name string) (domain.Principal, error) {
	p, err := domain.ParsePrincipal(c.Param(name))
	if err != nil {
		return "", apperror.Validation(name + " must be an account address")
	}
	return p, nil
}

func tokenParam(c *gin.Context, name string) (domain.Token, error) {
	return parseToken(c.Param(name))
}

func parseToken(s string) (domain.Token, error) {
	t := domain.Token(strings.TrimSpace(s))
	if err := t.Validate(); err != nil {
		return "", apperror.Validation("token must be \"native\" or CODE:ISSUER")
	}
	return t, nil
}

func parsePrincipal(s string) domain.Principal {
	return domain.Principal(strings.TrimSpace(s))
}

// parseAmount decodes an integer amount; out-of-range values are InvalidAmount.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := domain.ParseAmount(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, apperror.ErrInvalidAmount()
	}
	return d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toMerchantResponse(m *domain.Merchant) dto.MerchantResponse {
	return dto.MerchantResponse{
		ID:        m.ID,
		Address:   m.Address.String(),
		Manager:   m.Manager.String(),
		CreatedAt: formatTime(m.CreatedAt),
		UpdatedAt: formatTime(m.UpdatedAt),
	}
}

func toInvoiceResponse(inv *domain.Invoice) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:          inv.ID,
		MerchantID:  inv.MerchantID,
		Description: inv.Description,
		Amount:      inv.Amount.String(),
		Token:       inv.Token.String(),
		Status:      string(inv.Status),
		DateCreated: formatTime(inv.DateCreated),
	}
	if inv.Payer != nil {
		s := inv.Payer.String()
		resp.Payer = &s
	}
	if inv.DatePaid != nil {
		s := formatTime(*inv.DatePaid)
		resp.DatePaid = &s
	}
	return resp
}

func toInvoiceResponses(invoices []domain.Invoice) []dto.InvoiceResponse {
	out := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toInvoiceResponse(&invoices[i]))
	}
	return out
}

func toBalanceResponses(balances []domain.Balance) []dto.BalanceResponse {
	out := make([]dto.BalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, dto.BalanceResponse{MerchantID: b.MerchantID, Token: b.Token.String(), Amount: b.Amount.String()})
	}
	return out
}

func toAccountResponse(v *ports.AccountView) dto.AccountResponse {
	resp := dto.AccountResponse{
		MerchantID: v.Merchant.ID,
		Owner:      v.Merchant.Address.String(),
		Manager:    v.Merchant.Manager.String(),
		Restricted: v.Account.Restricted,
		Balances:   toBalanceResponses(v.Balances),
	}
	if v.Account.WithdrawalAddress != nil {
		s := v.Account.WithdrawalAddress.String()
		resp.WithdrawalAddress = &s
	}
	return resp
}

func toFeeResponse(entry domain.FeeEntry) dto.FeeResponse {
	by := entry.UpdatedBy.String()
	at := formatTime(entry.UpdatedAt)
	return dto.FeeResponse{
		Token:      entry.Token.String(),
		Fee:        entry.Fee.String(),
		Configured: true,
		UpdatedBy:  &by,
		UpdatedAt:  &at,
	}
}
