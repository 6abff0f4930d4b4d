package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"merchant-ledger/config"
	httpHandler "merchant-ledger/internal/adapter/http/handler"
	"merchant-ledger/internal/adapter/http/middleware"
	"merchant-ledger/internal/adapter/storage/memory"
	pgStorage "merchant-ledger/internal/adapter/storage/postgres"
	redisStorage "merchant-ledger/internal/adapter/storage/redis"
	"merchant-ledger/internal/adapter/transfer"
	"merchant-ledger/internal/auth"
	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/internal/service"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
)

// storage is the repository set behind the ledger services.
type storage struct {
	deps    service.Deps
	events  ports.EventRepository
	health  ports.HealthChecker
	closeFn func()
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("MLG_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("transfer", cfg.Transfer.Driver).
		Msg("Starting Merchant Ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.closeFn()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis backs replay protection, rate limiting and the event stream.
	var (
		nonceStore  ports.NonceStore = memory.NewNonceStore()
		rateLimiter ports.RateLimiter
		eventStream ports.EventStream
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		nonceStore = redisStorage.NewNonceStore(rdb)
		rateLimiter = redisStorage.NewRateLimitStore(rdb)
		eventStream = redisStorage.NewEventStream(rdb, cfg.Redis.EventsKey, cfg.Redis.EventsMax)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: nonces kept in process, rate limiting off, no event stream")
	}

	transferer, err := newTransferer(cfg, logger.Component(log, "transfer"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token transfer")
	}

	clock := service.SystemClock{}
	eventSvc := service.NewEventService(store.events, eventStream, clock, logger.Component(log, "events"))

	deps := store.deps
	deps.Authn = auth.NewContextAuthenticator()
	deps.Transferer = transferer
	deps.Events = eventSvc
	deps.Clock = clock

	// Initialize ledger services
	custody := domain.Principal(cfg.Ledger.CustodyAddress)
	aclSvc := service.NewAccessControlService(deps, logger.Component(log, "access_control"))
	merchantSvc := service.NewMerchantRegistryService(deps, aclSvc, logger.Component(log, "merchants"))
	invoiceSvc := service.NewInvoiceService(deps, aclSvc, custody, logger.Component(log, "invoices"))
	feeSvc := service.NewFeeService(deps, aclSvc, logger.Component(log, "fees"))
	accountSvc := service.NewAccountService(deps, aclSvc, logger.Component(log, "accounts"))

	sigSvc := service.NewEd25519SignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	if cfg.Ledger.Admin != "" {
		if err := bootstrapAdmin(ctx, aclSvc, cfg.Ledger.Admin); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ledger")
		}
	}

	// Load OpenAPI spec for Swagger UI
	specBytes, err := os.ReadFile("docs/api/openapi.yaml")
	if err == nil {
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	gin.SetMode(cfg.Server.Mode)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccessControl:  aclSvc,
		Merchants:      merchantSvc,
		Invoices:       invoiceSvc,
		Fees:           feeSvc,
		Accounts:       accountSvc,
		Events:         eventSvc,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		TokenSvc:       tokenSvc,
		RateLimiter:    rateLimiter,
		HealthCheckers: healthCheckers,
		OpenAPISpec:    specBytes,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Signature: middleware.SignatureOptions{
			MaxClockDrift: cfg.Auth.MaxClockDrift,
			NonceTTL:      cfg.Auth.NonceTTL,
		},
		Logger: log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		store := memory.NewStore()
		log.Warn().Msg("Using in-process storage, state is lost on exit")
		return &storage{
			deps: service.Deps{
				Roles:      memory.NewRoleRepo(store),
				Counters:   memory.NewCounterRepo(store),
				Merchants:  memory.NewMerchantRepo(store),
				Invoices:   memory.NewInvoiceRepo(store),
				Balances:   memory.NewBalanceRepo(store),
				Accounts:   memory.NewAccountRepo(store),
				Fees:       memory.NewFeeRepo(store),
				Transactor: store,
			},
			events:  memory.NewEventRepo(store),
			health:  store,
			closeFn: func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("PostgreSQL connected")

	if cfg.Storage.Migrate {
		if err := pgStorage.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}

	return &storage{
		deps: service.Deps{
			Roles:      pgStorage.NewRoleRepo(pool),
			Counters:   pgStorage.NewCounterRepo(pool),
			Merchants:  pgStorage.NewMerchantRepo(pool),
			Invoices:   pgStorage.NewInvoiceRepo(pool),
			Balances:   pgStorage.NewBalanceRepo(pool),
			Accounts:   pgStorage.NewAccountRepo(pool),
			Fees:       pgStorage.NewFeeRepo(pool),
			Transactor: pgStorage.NewTransactor(pool),
		},
		events:  pgStorage.NewEventRepo(pool),
		health:  pgStorage.NewHealthCheck(pool),
		closeFn: pool.Close,
	}, nil
}

func newTransferer(cfg *config.Config, log zerolog.Logger) (ports.TokenTransferer, error) {
	if cfg.Transfer.Driver == config.TransferDriverStellar {
		client := &horizonclient.Client{
			HorizonURL: cfg.Stellar.HorizonURL,
			HTTP:       &http.Client{Timeout: 30 * time.Second},
		}
		return transfer.NewStellarTransferer(client, cfg.Stellar.NetworkPassphrase, cfg.Stellar.SignerSeeds, log)
	}

	bank := transfer.NewCustodyBank(log)
	for _, ob := range cfg.Transfer.OpeningBalances {
		token := domain.Token(ob.Token)
		if err := token.Validate(); err != nil {
			return nil, fmt.Errorf("opening balance token %q: %w", ob.Token, err)
		}
		addr, err := domain.ParsePrincipal(ob.Address)
		if err != nil {
			return nil, fmt.Errorf("opening balance address %q: %w", ob.Address, err)
		}
		amount, err := decimal.NewFromString(ob.Amount)
		if err != nil {
			return nil, fmt.Errorf("opening balance amount %q: %w", ob.Amount, err)
		}
		if err := bank.Mint(token, addr, amount); err != nil {
			return nil, err
		}
	}
	return bank, nil
}

// bootstrapAdmin initializes the ledger on behalf of the configured admin.
// A ledger that is already initialized is left as is.
func bootstrapAdmin(ctx context.Context, acl ports.AccessControlService, admin string) error {
	p, err := domain.ParsePrincipal(admin)
	if err != nil {
		return fmt.Errorf("ledger.admin: %w", err)
	}
	err = acl.Initialize(auth.WithPrincipal(ctx, p), p)
	if err != nil && !apperror.IsKind(err, apperror.KindAlreadyInitialized) {
		return err
	}
	return nil
}
