package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/username/stockfolio/backend/src/services"
	"github.com/username/stockfolio/backend/src/utils"
	"golang.org/x/time/rate"
)

// RouterDeps are the collaborators of the HTTP surface. Limiter may be nil to disable rate limiting.
type RouterDeps struct {
	Portfolio      services.Portfolio
	Quotes         services.QuoteProvider
	DB             Pinger
	Identity       func(http.Handler) http.Handler
	AllowedOrigins []string
	Limiter        *rate.Limiter
}

func NewRouter(d RouterDeps) http.Handler {
	stockHandler := NewStockHandler(d.Portfolio)
	priceHandler := NewPriceHandler(d.Quotes)
	portfolioHandler := NewPortfolioHandler(d.Portfolio)
	txHandler := NewTransactionHandler(d.Portfolio)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	r.Use(RequestLoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserIDHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if d.Limiter != nil {
		r.Use(RateLimitMiddleware(d.Limiter))
	}

	r.Get("/health", HealthHandler(d.DB))

	r.Route("/api", func(r chi.Router) {
		r.Get("/prices", priceHandler.HandleGetPrices)

		r.Group(func(r chi.Router) {
			r.Use(d.Identity)

			r.Route("/stocks", stockHandler.Routes)
			r.Get("/portfolio/summary", portfolioHandler.HandleGetSummary)
			r.Get("/portfolio/breakdown", portfolioHandler.HandleGetBreakdown)
			r.Get("/transactions", txHandler.HandleGetTransactions)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSONError(w, "not found", http.StatusNotFound)
	})
	return r
}
