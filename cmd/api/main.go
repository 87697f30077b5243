package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/config"
	"github.com/banca-gt/banking-api/internal/handler"
	"github.com/banca-gt/banking-api/internal/ledger"
	"github.com/banca-gt/banking-api/internal/logging"
	"github.com/banca-gt/banking-api/internal/middleware"
	"github.com/banca-gt/banking-api/internal/repository"
	"github.com/banca-gt/banking-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("banca-api", cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	limits, err := parseLimits(cfg)
	if err != nil {
		slog.Error("invalid monetary policy", "error", err)
		os.Exit(1)
	}

	accountRepo := repository.NewAccountRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	limitRepo := repository.NewDailyLimitRepository(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	engine := ledger.NewEngine(accountRepo, movementRepo, limitRepo, db, limits)
	accountSvc := service.NewAccountService(accountRepo, userRepo)
	purchaseSvc := service.NewPurchaseService(productRepo, purchaseRepo, accountRepo, engine, cfg.HouseAccountNumber)

	if err := service.Bootstrap(ctx, cfg, userRepo, accountRepo, productRepo); err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	mux := newRouter(cfg, db, engine, accountSvc, purchaseSvc, routerRepos{
		users:       userRepo,
		movements:   movementRepo,
		products:    productRepo,
		idempotency: idempotencyRepo,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func parseLimits(cfg *config.Config) (ledger.Limits, error) {
	perTransfer, err := decimal.NewFromString(cfg.TransferLimit)
	if err != nil {
		return ledger.Limits{}, fmt.Errorf("parseLimits: TRANSFER_LIMIT: %w", err)
	}
	perDay, err := decimal.NewFromString(cfg.DailyTransferLimit)
	if err != nil {
		return ledger.Limits{}, fmt.Errorf("parseLimits: DAILY_TRANSFER_LIMIT: %w", err)
	}
	return ledger.Limits{
		PerTransfer:    perTransfer,
		PerDay:         perDay,
		ReversalWindow: time.Duration(cfg.ReversalWindowS) * time.Second,
	}, nil
}

type routerRepos struct {
	users       *repository.UserRepository
	movements   *repository.MovementRepository
	products    *repository.ProductRepository
	idempotency *repository.IdempotencyRepository
}

func newRouter(
	cfg *config.Config,
	db *sql.DB,
	engine *ledger.Engine,
	accountSvc *service.AccountService,
	purchaseSvc *service.PurchaseService,
	repos routerRepos,
) *http.ServeMux {
	healthHandler := handler.NewHealthHandler(db)
	authHandler := handler.NewAuthHandler(repos.users, accountSvc, cfg.JWTSecret, time.Duration(cfg.JWTExpiryH)*time.Hour)
	accountHandler := handler.NewAccountHandler(accountSvc, engine)
	movementHandler := handler.NewMovementHandler(engine, repos.movements, accountSvc)
	depositHandler := handler.NewDepositHandler(engine)
	productHandler := handler.NewProductHandler(repos.products, purchaseSvc)

	authn := middleware.Auth(cfg.JWTSecret)
	idem := middleware.Idempotency(repos.idempotency)

	// Logging runs after Auth so request logs carry the user id.
	outer := func(h http.Handler) http.Handler {
		return middleware.Recovery(middleware.RequestID(h))
	}
	public := func(h http.HandlerFunc) http.Handler {
		return outer(middleware.Logging(h))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return outer(authn(middleware.Logging(h)))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return outer(authn(middleware.Logging(middleware.RequireAdmin(h))))
	}
	money := func(h http.HandlerFunc) http.Handler {
		return outer(authn(middleware.Logging(idem(h))))
	}
	adminMoney := func(h http.HandlerFunc) http.Handler {
		return outer(authn(middleware.Logging(middleware.RequireAdmin(idem(h)))))
	}

	mux := http.NewServeMux()

	mux.Handle("GET /health", public(healthHandler.Liveness))
	mux.Handle("GET /health/ready", public(healthHandler.Readiness))

	mux.Handle("POST /api/v1/auth/register", public(authHandler.Register))
	mux.Handle("POST /api/v1/auth/login", public(authHandler.Login))

	mux.Handle("GET /api/v1/accounts/me", protected(accountHandler.GetOwn))
	mux.Handle("GET /api/v1/accounts", admin(accountHandler.List))
	mux.Handle("GET /api/v1/accounts/{id}", protected(accountHandler.GetByID))
	mux.Handle("DELETE /api/v1/accounts/{id}", admin(accountHandler.Deactivate))
	mux.Handle("GET /api/v1/accounts/{id}/daily-total", protected(accountHandler.GetDailyTotal))
	mux.Handle("GET /api/v1/accounts/{id}/movements", protected(movementHandler.ListByAccount))

	mux.Handle("POST /api/v1/transfers", money(movementHandler.CreateTransfer))
	mux.Handle("GET /api/v1/movements/{id}", protected(movementHandler.GetByID))
	mux.Handle("DELETE /api/v1/movements/{id}", admin(movementHandler.SoftDelete))

	mux.Handle("POST /api/v1/deposits", adminMoney(depositHandler.Create))
	mux.Handle("POST /api/v1/deposits/{id}/reverse", adminMoney(depositHandler.Reverse))

	mux.Handle("GET /api/v1/products", protected(productHandler.List))
	mux.Handle("GET /api/v1/products/{id}", protected(productHandler.GetByID))
	mux.Handle("POST /api/v1/products", admin(productHandler.Create))
	mux.Handle("PUT /api/v1/products/{id}", admin(productHandler.Update))
	mux.Handle("DELETE /api/v1/products/{id}", admin(productHandler.Deactivate))
	mux.Handle("POST /api/v1/products/{id}/reactivate", admin(productHandler.Reactivate))
	mux.Handle("POST /api/v1/products/{id}/buy", money(productHandler.Buy))
	mux.Handle("GET /api/v1/purchases", protected(productHandler.ListOwnPurchases))

	return mux
}
