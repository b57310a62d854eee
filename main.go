package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/stockfolio/backend/src/config"
	"github.com/username/stockfolio/backend/src/database"
	"github.com/username/stockfolio/backend/src/handlers"
	"github.com/username/stockfolio/backend/src/logger"
	"github.com/username/stockfolio/backend/src/model"
	"github.com/username/stockfolio/backend/src/scheduler"
	"github.com/username/stockfolio/backend/src/security"
	"github.com/username/stockfolio/backend/src/services"
	"golang.org/x/time/rate"
)

func identityMiddleware(cfg *config.AppConfig) func(http.Handler) http.Handler {
	if cfg.AuthMode == config.AuthModeJWT {
		return handlers.AuthMiddleware(security.NewAuthService(cfg.JWTSecret))
	}
	return handlers.HeaderIdentityMiddleware(cfg.DefaultUserID)
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	cfg := config.Cfg

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	logger.L.Info("Stockfolio backend server starting...")

	logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		logger.L.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	lotRepo := model.NewLotRepository(db)
	priceRepo := model.NewPriceRepository(db)

	quoteCfg := services.DefaultQuoteConfig()
	quoteCfg.BaseURL = cfg.QuoteBaseURL
	quoteCfg.Timeout = cfg.QuoteTimeout
	quoteCfg.CacheTTL = cfg.QuoteCacheTTL
	quoteCfg.MaxConcurrency = cfg.QuoteMaxConcurrency
	quoteCfg.RatePerSecond = cfg.QuoteRatePerSecond
	quoteService := services.NewQuoteService(quoteCfg, priceRepo)
	exchangeService := services.NewExchangeService(cfg.ECBBaseURL, cfg.ECBTimeout)
	portfolioService := services.NewPortfolioService(lotRepo, quoteService, exchangeService)

	if cfg.AuthMode == config.AuthModeHeader {
		logger.L.Warn("Header identity mode enabled; requests are trusted to carry their own user id", "defaultUserID", cfg.DefaultUserID)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Portfolio:      portfolioService,
		Quotes:         quoteService,
		DB:             db,
		Identity:       identityMiddleware(cfg),
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
	})

	sched := scheduler.New(logger.L)
	if cfg.PriceRefreshSchedule != "" {
		job := scheduler.NewPriceRefreshJob(portfolioService, 2*time.Minute, logger.L)
		if err := sched.AddJob(cfg.PriceRefreshSchedule, job); err != nil {
			logger.L.Error("Invalid price refresh schedule", "schedule", cfg.PriceRefreshSchedule, "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
		go sched.RunNow(job)
	}

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.L.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
	}
	logger.L.Info("Server stopped")
}
