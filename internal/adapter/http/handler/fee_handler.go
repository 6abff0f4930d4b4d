package handler

import (
	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// FeeHandler handles the per-token fee schedule.
type FeeHandler struct {
	fees ports.FeeService
}

// NewFeeHandler creates a new FeeHandler.
func NewFeeHandler(fees ports.FeeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// Set handles PUT /api/v1/fees/:token.
func (h *FeeHandler) Set(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	token, err := tokenParam(c, "token")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.SetFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	fee, err := parseAmount(req.Fee)
	if err != nil {
		response.Error(c, err)
		return
	}

	entry, err := h.fees.SetFee(c.Request.Context(), p, token, fee)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toFeeResponse(*entry))
}

// Get handles GET /api/v1/fees/:token. An unset fee reads as zero.
func (h *FeeHandler) Get(c *gin.Context) {
	token, err := tokenParam(c, "token")
	if err != nil {
		response.Error(c, err)
		return
	}

	fee, configured, err := h.fees.GetFee(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FeeResponse{Token: token.String(), Fee: fee.String(), Configured: configured})
}

// List handles GET /api/v1/fees.
func (h *FeeHandler) List(c *gin.Context) {
	entries, err := h.fees.ListFees(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.FeeResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toFeeResponse(e))
	}
	response.List(c, out, len(out))
}
