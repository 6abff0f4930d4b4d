package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"merchant-ledger/internal/auth"
	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for signed requests
	HeaderPrincipal = "X-Principal"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxPrincipal = "principal"

	defaultClockDrift = 60 * time.Second
	defaultNonceTTL   = 120 * time.Second
)

// SignatureOptions tunes signed-request verification. Zero values use the defaults.
type SignatureOptions struct {
	MaxClockDrift time.Duration
	NonceTTL      time.Duration
}

func (o SignatureOptions) withDefaults() SignatureOptions {
	if o.MaxClockDrift <= 0 {
		o.MaxClockDrift = defaultClockDrift
	}
	if o.NonceTTL <= 0 {
		o.NonceTTL = defaultNonceTTL
	}
	return o
}

// SignatureAuth verifies ed25519 request signatures.
// Pipeline: Check timestamp -> Verify signature -> Check nonce.
func SignatureAuth(sigSvc ports.SignatureService, nonceStore ports.NonceStore, opts SignatureOptions, log zerolog.Logger) gin.HandlerFunc {
	opts = opts.withDefaults()
	return func(c *gin.Context) {
		principal, err := verifySignedRequest(c, sigSvc, nonceStore, opts, log)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

// JWTAuth validates session tokens issued by the session endpoint.
func JWTAuth(tokenSvc ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := verifyBearer(c, tokenSvc)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

// Authenticate accepts either a bearer session token or a signed request.
func Authenticate(tokenSvc ports.TokenService, sigSvc ports.SignatureService, nonceStore ports.NonceStore, opts SignatureOptions, log zerolog.Logger) gin.HandlerFunc {
	opts = opts.withDefaults()
	return func(c *gin.Context) {
		var (
			principal domain.Principal
			err       error
		)
		if c.GetHeader("Authorization") != "" {
			principal, err = verifyBearer(c, tokenSvc)
		} else {
			principal, err = verifySignedRequest(c, sigSvc, nonceStore, opts, log)
		}
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

func verifyBearer(c *gin.Context, tokenSvc ports.TokenService) (domain.Principal, error) {
	tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || tokenStr == "" {
		return "", apperror.ErrInvalidToken()
	}
	claims, err := tokenSvc.Validate(tokenStr)
	if err != nil {
		return "", apperror.ErrInvalidToken()
	}
	return claims.Principal, nil
}

func verifySignedRequest(c *gin.Context, sigSvc ports.SignatureService, nonceStore ports.NonceStore, opts SignatureOptions, log zerolog.Logger) (domain.Principal, error) {
	principalStr := c.GetHeader(HeaderPrincipal)
	signature := c.GetHeader(HeaderSignature)
	timestampStr := c.GetHeader(HeaderTimestamp)
	nonce := c.GetHeader(HeaderNonce)

	if principalStr == "" || signature == "" || timestampStr == "" || nonce == "" {
		return "", apperror.ErrMissingCredentials()
	}
	principal, err := domain.ParsePrincipal(principalStr)
	if err != nil {
		return "", apperror.ErrMissingCredentials()
	}

	// Step 1: Timestamp check
	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return "", apperror.ErrTimestampExpired()
	}
	if math.Abs(float64(time.Now().Unix()-timestamp)) > opts.MaxClockDrift.Seconds() {
		return "", apperror.ErrTimestampExpired()
	}

	// Step 2: Signature over the canonical request
	body, err := readBody(c)
	if err != nil {
		return "", err
	}

	canonical := sigSvc.BuildCanonicalString(c.Request.Method, c.Request.URL.Path, timestamp, nonce, string(body))
	if !sigSvc.Verify(principal, canonical, signature) {
		return "", apperror.ErrInvalidSignature()
	}

	// Step 3: Nonce is burned only for authentic requests
	isNew, err := nonceStore.CheckAndSet(c.Request.Context(), principal.String(), nonce, opts.NonceTTL)
	if err != nil {
		log.Error().Err(err).Str("principal", principal.String()).Msg("nonce store unavailable")
		return "", apperror.InternalError(err)
	}
	if !isNew {
		return "", apperror.ErrNonceUsed()
	}
	return principal, nil
}

// setPrincipal exposes the caller to handlers and to the ledger core.
func setPrincipal(c *gin.Context, p domain.Principal) {
	c.Set(CtxPrincipal, p)
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
}

// PrincipalFrom returns the authenticated caller of the request.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return "", false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// RequestID propagates or assigns an X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if p, ok := PrincipalFrom(c); ok {
			event = event.Str("principal", p.String())
		}
		event.
			Str("request_id", c.GetString(response.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.New("SYS_001", apperror.KindInternal, "Internal server error", http.StatusInternalServerError))
				c.Abort()
			}
		}()
		c.Next()
	}
}
