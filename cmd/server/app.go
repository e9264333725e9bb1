package main

import (
	"net/http"

	"github.com/diewo77/facturation/httpx"
	"github.com/diewo77/facturation/i18n"
	"github.com/diewo77/facturation/internal/db"
	"github.com/diewo77/facturation/internal/handlers"
	"github.com/diewo77/facturation/internal/logger"
	"github.com/diewo77/facturation/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	log     *zap.Logger
	handler http.Handler
}

// NewApp wires the stores, the handlers and the middleware around db.
func NewApp(conn *gorm.DB, log *zap.Logger) *App {
	totals := services.NewTotals(conn, log)
	clients := handlers.NewClientHandler(services.NewClientService(conn, log))
	invoices := handlers.NewInvoiceHandler(services.NewInvoiceService(conn, totals, log))
	health := handlers.NewHealthHandler(func() error { return db.Ping(conn) }, totals)

	mux := http.NewServeMux()
	registerRoutes(mux, clients, invoices, health)

	return &App{
		log:     log,
		handler: withRecover(log, logger.Middleware(log)(withPreferences(mux))),
	}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func registerRoutes(mux *http.ServeMux, ch *handlers.ClientHandler, ih *handlers.InvoiceHandler, hh *handlers.HealthHandler) {
	// Clients
	mux.HandleFunc("GET /clients", ch.List)
	mux.HandleFunc("POST /clients", ch.Create)
	mux.HandleFunc("GET /clients/{id}", ch.Get)
	mux.HandleFunc("PUT /clients/{id}", ch.Update)
	mux.HandleFunc("DELETE /clients/{id}", ch.Delete)
	mux.HandleFunc("GET /clients/{id}/invoices", ih.ListByClient)

	// Invoices
	mux.HandleFunc("GET /invoices", ih.List)
	mux.HandleFunc("POST /invoices", ih.Create)
	mux.HandleFunc("GET /invoices/{id}", ih.Get)
	mux.HandleFunc("PUT /invoices/{id}", ih.Update)
	mux.HandleFunc("DELETE /invoices/{id}", ih.Delete)

	// Paths called by the existing browser client
	mux.HandleFunc("GET /{$}", ih.List)
	mux.HandleFunc("POST /add", ih.Create)
	mux.HandleFunc("PUT /update/{id}", ih.Update)
	mux.HandleFunc("DELETE /delete/{id}", ih.Delete)
	mux.HandleFunc("POST /clients/add", ch.Create)
	mux.HandleFunc("PUT /clients/update/{id}", ch.Update)
	mux.HandleFunc("DELETE /clients/delete/{id}", ch.Delete)
	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, "API")
	})

	// Health
	mux.HandleFunc("GET /health", hh.Live)
	mux.HandleFunc("GET /healthz", hh.Ready)
	mux.HandleFunc("GET /healthz/consistency", hh.Consistency)
}

// withPreferences picks the response language from ?lang=, the lang cookie
// or Accept-Language, in that order.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = i18n.DetectLanguage(c.Value)
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			lang = i18n.DetectLanguage(q)
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

// withRecover turns a panic into a 500 JSON error.
func withRecover(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", w.Header().Get(logger.RequestIDHeader)))
				lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "internal_error"), nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
