package handler

import (
	"merchant-ledger/internal/adapter/http/middleware"
	"merchant-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AccessControl ports.AccessControlService
	Merchants     ports.MerchantRegistryService
	Invoices      ports.InvoiceService
	Fees          ports.FeeService
	Accounts      ports.AccountService
	Events        ports.EventService

	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	OpenAPISpec    []byte

	MaxBodyBytes int64
	Signature    middleware.SignatureOptions
	Logger       zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	docs := NewDocsHandler(deps.OpenAPISpec)
	swagger := r.Group("/swagger")
	{
		swagger.GET("", docs.UI)
		swagger.GET("/spec", docs.Spec)
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if a store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	signed := middleware.SignatureAuth(deps.SigSvc, deps.NonceStore, deps.Signature, deps.Logger)
	authed := middleware.Authenticate(deps.TokenSvc, deps.SigSvc, deps.NonceStore, deps.Signature, deps.Logger)

	v1 := r.Group("/api/v1")

	// --- Sessions (signed request only) ---
	sessions := NewSessionHandler(deps.TokenSvc)
	v1.POST("/auth/session", rl("session"), signed, sessions.Create)

	// --- Ledger administration ---
	ledger := NewLedgerHandler(deps.AccessControl)
	v1.POST("/ledger/initialize", authed, rl("admin"), ledger.Initialize)
	roles := v1.Group("/roles")
	{
		roles.POST("/grant", authed, rl("admin"), ledger.GrantRole)
		roles.POST("/revoke", authed, rl("admin"), ledger.RevokeRole)
		roles.GET("/:principal", rl("reads"), ledger.GetRoles)
	}

	// --- Merchant registry ---
	merchantHandler := NewMerchantHandler(deps.Merchants)
	merchants := v1.Group("/merchants")
	{
		merchants.POST("", authed, rl("admin"), merchantHandler.Register)
		merchants.GET("/by-address/:address", rl("reads"), merchantHandler.GetByAddress)
		merchants.GET("/:id", rl("reads"), merchantHandler.Get)
		merchants.PUT("/:id", authed, rl("writes"), merchantHandler.Update)
	}

	// --- Invoices ---
	invoiceHandler := NewInvoiceHandler(deps.Invoices)
	invoices := v1.Group("/invoices")
	{
		invoices.POST("", authed, rl("writes"), invoiceHandler.Create)
		invoices.GET("", rl("reads"), invoiceHandler.List)
		invoices.GET("/:id", rl("reads"), invoiceHandler.Get)
		invoices.POST("/:id/pay", authed, rl("writes"), invoiceHandler.Pay)
		invoices.POST("/:id/cancel", authed, rl("writes"), invoiceHandler.Cancel)
	}

	// --- Fee schedule ---
	feeHandler := NewFeeHandler(deps.Fees)
	fees := v1.Group("/fees")
	{
		fees.GET("", rl("reads"), feeHandler.List)
		fees.GET("/:token", rl("reads"), feeHandler.Get)
		fees.PUT("/:token", authed, rl("admin"), feeHandler.Set)
	}

	// --- Accounts ---
	accountHandler := NewAccountHandler(deps.Accounts)
	accounts := v1.Group("/accounts/:merchant_id")
	{
		accounts.GET("", rl("reads"), accountHandler.Get)
		accounts.GET("/balances", rl("reads"), accountHandler.Balances)
		accounts.GET("/balances/:token", rl("reads"), accountHandler.Balance)
		accounts.POST("/tokens", authed, rl("writes"), accountHandler.AddToken)
		accounts.POST("/withdrawals", authed, rl("withdrawals"), accountHandler.Withdraw)
		accounts.PUT("/withdrawal-address", authed, rl("writes"), accountHandler.SetWithdrawalAddress)
		accounts.PUT("/restriction", authed, rl("admin"), accountHandler.SetRestriction)
	}

	// --- Event log ---
	eventHandler := NewEventHandler(deps.Events)
	v1.GET("/events", rl("reads"), eventHandler.List)

	return r
}
