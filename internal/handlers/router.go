package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/middleware"
	"github.com/applejunice/Applehome/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Auth           *AuthHandler
	Accounts       *AccountHandler
	Transfers      *TransferHandler
	Ledger         *LedgerHandler
	Gate           *middleware.Gate
	RateLimiter    *middleware.RateLimiter
	Health         Pinger
	AllowedOrigins []string
	Logger         *zap.Logger
}

var endpoints = map[string]string{
	"POST /api/register":       "register an account",
	"POST /api/login":          "log in (holders and admin)",
	"GET /api/me":              "current user (login required)",
	"POST /api/transfer":       "transfer funds (login required)",
	"GET /api/my/balance":      "own balance (login required)",
	"GET /api/my/transactions": "own transactions (login required)",
	"GET /api/users/balances":  "all balances (admin only)",
	"GET /api/transactions":    "all transactions (admin only)",
	"PUT /api/admin/balance":   "override a balance (admin only)",
	"GET /health":              "health check",
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		services.SendErrorResponse(w, "not found", http.StatusNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		services.SendErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed, nil)
	})

	r.Get("/", index)
	r.Get("/health", health(cfg.Health))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Gate.Authenticate)

			r.Get("/me", cfg.Auth.Me)

			r.Group(func(r chi.Router) {
				r.Use(cfg.Gate.RequireHolder)
				r.Post("/transfer", cfg.Transfers.Transfer)
				r.Get("/my/balance", cfg.Accounts.MyBalance)
				r.Get("/my/transactions", cfg.Ledger.MyTransactions)
			})

			r.Group(func(r chi.Router) {
				r.Use(cfg.Gate.RequireAdmin)
				r.Get("/users/balances", cfg.Accounts.ListBalances)
				r.Get("/transactions", cfg.Ledger.AllTransactions)
				r.Put("/admin/balance", cfg.Accounts.AdjustBalance)
			})
		})
	})

	return r
}

func index(w http.ResponseWriter, r *http.Request) {
	services.SendJSON(w, http.StatusOK, map[string]any{
		"service":   "Account Ledger API",
		"version":   "1.0.0",
		"endpoints": endpoints,
	})
}

func health(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		services.SendJSON(w, code, map[string]string{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
