package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nexusplay/nexusplay/internal/affiliate"
	"github.com/nexusplay/nexusplay/internal/auth"
	"github.com/nexusplay/nexusplay/internal/commission"
	"github.com/nexusplay/nexusplay/internal/config"
	"github.com/nexusplay/nexusplay/internal/identity"
	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/middleware"
	"github.com/nexusplay/nexusplay/internal/money"
	"github.com/nexusplay/nexusplay/internal/notification"
	"github.com/nexusplay/nexusplay/internal/payout"
	"github.com/nexusplay/nexusplay/internal/reporting"
	"github.com/nexusplay/nexusplay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. A nil DB or Cache
// falls back to in-memory backends, which is only acceptable in development.
func Setup(app *fiber.App, d Deps) error {
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	cpaAmount, err := money.FromString(d.Cfg.CPAAmount)
	if err != nil {
		return fmt.Errorf("invalid CPA_AMOUNT: %w", err)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Storage backends
	var ledgerBackend ledger.Ledger
	var identityRepo identity.Repository
	var affiliateRepo affiliate.Repository
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgres(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		affiliateRepo = affiliate.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
		affiliateRepo = affiliate.NewMemoryRepository()
	}

	// Services
	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(identityRepo, ledgerBackend)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	walletSvc := wallet.NewService(ledgerBackend)
	payoutSvc := payout.NewService(ledgerBackend, notifier)
	engine := commission.NewEngine(ledgerBackend, notifier)
	affiliateSvc := affiliate.NewService(affiliateRepo, engine, cpaAmount)
	reportingSvc := reporting.NewService(ledgerBackend, identityRepo, affiliateSvc)

	// A referred player's deposit triggers the CPA conversion; the ledger's
	// dedup key keeps it at-most-once per player.
	walletSvc.OnDeposit(func(ctx context.Context, partyID string) {
		user, err := identityRepo.FindByID(ctx, partyID)
		if err != nil || user.AffiliateLinkID == "" {
			return
		}
		if _, err := affiliateSvc.Convert(ctx, user.AffiliateLinkID, partyID); err != nil {
			d.Logger.Warn("referral conversion failed", "party_id", partyID, "error", err)
		}
	})

	// Handlers
	authHandler := auth.NewHandler(identitySvc, authSvc)
	identityHandler := identity.NewHandler(identitySvc)
	walletHandler := wallet.NewHandler(walletSvc)
	payoutHandler := payout.NewHandler(payoutSvc)
	commissionHandler := commission.NewHandler(engine)
	affiliateHandler := affiliate.NewHandler(affiliateSvc)
	reportingHandler := reporting.NewHandler(reportingSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5))
	RegisterReferralRedirect(app, affiliateHandler)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Get("/me", identityHandler.Me)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterPayoutRoutes(protected, payoutHandler)
	RegisterAgentRoutes(protected, identityHandler, reportingHandler, commissionHandler)
	RegisterAffiliateRoutes(protected, affiliateHandler, reportingHandler)
	RegisterAdminRoutes(protected, walletHandler, payoutHandler, commissionHandler, identityHandler, reportingHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
