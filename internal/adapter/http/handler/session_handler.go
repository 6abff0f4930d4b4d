package handler

import (
	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionHandler exchanges a signed request for a session token.
type SessionHandler struct {
	tokenSvc ports.TokenService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(tokenSvc ports.TokenService) *SessionHandler {
	return &SessionHandler{tokenSvc: tokenSvc}
}

// Create handles POST /api/v1/auth/session.
func (h *SessionHandler) Create(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, expiry, err := h.tokenSvc.Generate(p)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.SessionResponse{
		Principal: p.String(),
		Token:     token,
		ExpiresAt: expiry.Unix(),
	})
}
