package handler

import (
	"context"

	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles the invoice lifecycle.
type InvoiceHandler struct {
	invoices ports.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoices ports.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create handles POST /api/v1/invoices. The caller must be the merchant address.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	token, err := parseToken(req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	inv, err := h.invoices.CreateInvoice(c.Request.Context(), ports.CreateInvoiceRequest{
		MerchantAddress: parsePrincipal(req.MerchantAddress),
		Description:     req.Description,
		Amount:          amount,
		Token:           token,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toInvoiceResponse(inv))
}

// Get handles GET /api/v1/invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	inv, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toInvoiceResponse(inv))
}

// List handles GET /api/v1/invoices?status=&merchant=&min_amount=&max_amount=.
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.InvoiceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	var query ports.InvoiceQuery
	if q.Status != "" {
		st, err := domain.ParseInvoiceStatus(q.Status)
		if err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
		query.Status = &st
	}
	if q.Merchant != "" {
		m := parsePrincipal(q.Merchant)
		query.Merchant = &m
	}
	if q.MinAmount != "" {
		lo, err := parseAmount(q.MinAmount)
		if err != nil {
			response.Error(c, err)
			return
		}
		query.MinAmount = &lo
	}
	if q.MaxAmount != "" {
		hi, err := parseAmount(q.MaxAmount)
		if err != nil {
			response.Error(c, err)
			return
		}
		query.MaxAmount = &hi
	}

	invoices, err := h.invoices.GetInvoices(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, toInvoiceResponses(invoices), len(invoices))
}

// Pay handles POST /api/v1/invoices/:id/pay. The caller is the payer.
func (h *InvoiceHandler) Pay(c *gin.Context) {
	h.transition(c, h.invoices.PayInvoiceAdmin)
}

// Cancel handles POST /api/v1/invoices/:id/cancel.
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	h.transition(c, h.invoices.CancelInvoice)
}

func (h *InvoiceHandler) transition(c *gin.Context, apply func(ctx context.Context, caller domain.Principal, id uint64) (*domain.Invoice, error)) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := uintParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	inv, err := apply(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toInvoiceResponse(inv))
}
