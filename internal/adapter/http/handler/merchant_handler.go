package handler

import (
	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles merchant registration and lookup.
type MerchantHandler struct {
	registry ports.MerchantRegistryService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(registry ports.MerchantRegistryService) *MerchantHandler {
	return &MerchantHandler{registry: registry}
}

// Register handles POST /api/v1/merchants.
func (h *MerchantHandler) Register(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RegisterMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	m, err := h.registry.Register(c.Request.Context(), p,
		parsePrincipal(req.MerchantAddress), parsePrincipal(req.ManagerAddress))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toMerchantResponse(m))
}

// Get handles GET /api/v1/merchants/:id.
func (h *MerchantHandler) Get(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	m, err := h.registry.GetMerchant(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toMerchantResponse(m))
}

// GetByAddress handles GET /api/v1/merchants/by-address/:address.
// An unregistered address is a successful lookup with is_merchant=false.
func (h *MerchantHandler) GetByAddress(c *gin.Context) {
	addr, err := principalParam(c, "address")
	if err != nil {
		response.Error(c, err)
		return
	}

	m, err := h.registry.GetMerchantByAddress(c.Request.Context(), addr)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			response.OK(c, dto.MerchantLookupResponse{IsMerchant: false})
			return
		}
		response.Error(c, err)
		return
	}

	resp := toMerchantResponse(m)
	response.OK(c, dto.MerchantLookupResponse{IsMerchant: true, Merchant: &resp})
}

// Update handles PUT /api/v1/merchants/:id.
func (h *MerchantHandler) Update(c *gin.Context) {
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

	var req dto.UpdateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if req.Address == nil && req.Manager == nil {
		response.Error(c, apperror.Validation("address or manager is required"))
		return
	}

	var update ports.UpdateMerchantRequest
	if req.Address != nil {
		a := parsePrincipal(*req.Address)
		update.Address = &a
	}
	if req.Manager != nil {
		mgr := parsePrincipal(*req.Manager)
		update.Manager = &mgr
	}

	m, err := h.registry.UpdateMerchant(c.Request.Context(), p, id, update)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toMerchantResponse(m))
}
