package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/caiwu/internal/auth"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/http/budget"
	"github.com/MrJamesThe3rd/caiwu/internal/http/catalog"
	"github.com/MrJamesThe3rd/caiwu/internal/http/household"
	"github.com/MrJamesThe3rd/caiwu/internal/http/loan"
	"github.com/MrJamesThe3rd/caiwu/internal/http/notification"
	"github.com/MrJamesThe3rd/caiwu/internal/http/payment"
)

type Handlers struct {
	Payment      *payment.Handler
	Catalog      *catalog.Handler
	Loan         *loan.Handler
	Budget       *budget.Handler
	Household    *household.Handler
	Notification *notification.Handler
}

type Options struct {
	AllowedOrigins []string
	// UploadsDir is served read-only under UploadsURL.
	UploadsDir string
	UploadsURL string
	// Verifier guards /api; nil leaves it open.
	Verifier *auth.Verifier
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		api.OK(w, map[string]string{"status": "ok"})
	})

	if opts.UploadsDir != "" {
		prefix := strings.TrimRight(opts.UploadsURL, "/")
		router.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.UploadsDir))))
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(opts.Verifier.Middleware)

		r.Route("/payment", h.Payment.Routes)
		r.Route("/projects", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Catalog.ProjectRoutes(r)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Catalog.CategoryRoutes(r)
		})
		r.Route("/loans", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Loan.Routes(r)
		})
		r.Route("/budgets", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Budget.Routes(r)
		})
		r.Route("/household", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Household.Routes(r)
		})
		r.Route("/notifications", h.Notification.Routes)
	})

	return router
}
