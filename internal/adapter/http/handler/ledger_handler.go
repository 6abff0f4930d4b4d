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

// LedgerHandler handles initialization and role administration.
type LedgerHandler struct {
	acl ports.AccessControlService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(acl ports.AccessControlService) *LedgerHandler {
	return &LedgerHandler{acl: acl}
}

// Initialize handles POST /api/v1/ledger/initialize.
func (h *LedgerHandler) Initialize(c *gin.Context) {
	var req dto.InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	admin := parsePrincipal(req.Admin)
	if err := h.acl.Initialize(c.Request.Context(), admin); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RolesResponse{Principal: admin.String(), Roles: []string{string(domain.RoleAdmin)}})
}

// GrantRole handles POST /api/v1/roles/grant.
func (h *LedgerHandler) GrantRole(c *gin.Context) {
	h.changeRole(c, h.acl.GrantRole)
}

// RevokeRole handles POST /api/v1/roles/revoke.
func (h *LedgerHandler) RevokeRole(c *gin.Context) {
	h.changeRole(c, h.acl.RevokeRole)
}

func (h *LedgerHandler) changeRole(c *gin.Context, apply func(ctx context.Context, caller, principal domain.Principal, role domain.Role) error) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	target := parsePrincipal(req.Principal)
	if err := apply(c.Request.Context(), p, target, role); err != nil {
		response.Error(c, err)
		return
	}

	h.respondRoles(c, target)
}

// GetRoles handles GET /api/v1/roles/:principal. With ?role= it answers a
// single membership query.
func (h *LedgerHandler) GetRoles(c *gin.Context) {
	principal, err := principalParam(c, "principal")
	if err != nil {
		response.Error(c, err)
		return
	}

	if q := c.Query("role"); q != "" {
		role, err := domain.ParseRole(q)
		if err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
		has, err := h.acl.HasRole(c.Request.Context(), principal, role)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, dto.HasRoleResponse{Principal: principal.String(), Role: string(role), HasRole: has})
		return
	}

	h.respondRoles(c, principal)
}

func (h *LedgerHandler) respondRoles(c *gin.Context, principal domain.Principal) {
	roles, err := h.acl.Roles(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	response.OK(c, dto.RolesResponse{Principal: principal.String(), Roles: names})
}
