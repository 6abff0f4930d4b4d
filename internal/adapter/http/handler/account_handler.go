package handler

import (
	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles merchant accounts, balances and withdrawals.
type AccountHandler struct {
	accounts ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Get handles GET /api/v1/accounts/:merchant_id.
func (h *AccountHandler) Get(c *gin.Context) {
	id, err := uintParam(c, "merchant_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(view))
}

// Balances handles GET /api/v1/accounts/:merchant_id/balances.
func (h *AccountHandler) Balances(c *gin.Context) {
	id, err := uintParam(c, "merchant_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	balances, err := h.accounts.GetBalances(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, toBalanceResponses(balances), len(balances))
}

// Balance handles GET /api/v1/accounts/:merchant_id/balances/:token.
func (h *AccountHandler) Balance(c *gin.Context) {
	id, err := uintParam(c, "merchant_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	token, err := tokenParam(c, "token")
	if err != nil {
		response.Error(c, err)
		return
	}

	amount, err := h.accounts.GetBalance(c.Request.Context(), id, token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{MerchantID: id, Token: token.String(), Amount: amount.String()})
}

// AddToken handles POST /api/v1/accounts/:merchant_id/tokens.
func (h *AccountHandler) AddToken(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := uintParam(c, "merchant_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.AddTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	token, err := parseToken(req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.accounts.AddToken(c.Request.Context(), p, id, token); err != nil {
		response.Error(c, err)
		return
	}

	amount, err := h.accounts.GetBalance(c.Request.Context(), id, token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.BalanceResponse{MerchantID: id, Token: token.String(), Amount: amount.String()})
}

// Withdraw handles POST /api/v1/accounts/:merchant_id/withdrawals.
func (h *AccountHandler) Withdraw(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := uintParam(c, "merchant_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	token, err := parseToken(req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	w, err := h.accounts.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		Caller:     p,
		MerchantID: id,
		Token:      token,
		Amount:     amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WithdrawalResponse{
		MerchantID: w.MerchantID,
		Token:      w.Token.String(),
		Amount:     w.Amount.String(),
		Remaining:  w.Remaining.String(),
		From:       w.From.String(),
		To:         w.To.String(),
		Reference:  w.Reference,
		CreatedAt:  formatTime(w.CreatedAt),
	})
}

// SetWithdrawalAddress handles PUT /api/v1/accounts/:merchant_id/withdrawal-address.
func (h *AccountHandler) SetWithdrawalAddress(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := uintParam(c, "merchant_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.WithdrawalAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if _, err := h.accounts.SetWithdrawalAddress(c.Request.Context(), p, id, parsePrincipal(req.Address)); err != nil {
		response.Error(c, err)
		return
	}
	h.respondAccount(c, id)
}

// SetRestriction handles PUT /api/v1/accounts/:merchant_id/restriction.
func (h *AccountHandler) SetRestriction(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := uintParam(c, "merchant_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RestrictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if _, err := h.accounts.SetRestricted(c.Request.Context(), p, id, *req.Restricted); err != nil {
		response.Error(c, err)
		return
	}
	h.respondAccount(c, id)
}

func (h *AccountHandler) respondAccount(c *gin.Context, id uint64) {
	view, err := h.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toAccountResponse(view))
}
