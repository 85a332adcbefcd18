// Package api assembles the HTTP surface: the Connect message service, the
// bill status endpoint, health and metrics.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/padmaraj-kv/powersplit-sub000/internal/auth"
	"github.com/padmaraj-kv/powersplit-sub000/internal/middleware"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// BillLoader loads a persisted bill with its participants.
type BillLoader interface {
	GetBill(ctx context.Context, id string) (*models.Bill, error)
}

// Config holds what the router mounts.
type Config struct {
	// RPCPath and RPCHandler come from service.NewMessageServiceHandler.
	RPCPath    string
	RPCHandler http.Handler

	Bills BillLoader

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// Tokens protects /api. Without tokens /api is only mounted when
	// PublicBillStatus is set.
	Tokens           *auth.TokenManager
	PublicBillStatus bool

	AllowedOrigins []string
}

type API struct {
	router  *mux.Router
	bills   BillLoader
	origins []string
}

func New(cfg Config) *API {
	a := &API{
		router:  mux.NewRouter(),
		bills:   cfg.Bills,
		origins: cfg.AllowedOrigins,
	}
	if len(a.origins) == 0 {
		a.origins = []string{"*"}
	}
	a.setupRoutes(cfg)
	return a
}

func (a *API) setupRoutes(cfg Config) {
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	if cfg.Gatherer != nil {
		a.router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	if cfg.RPCHandler != nil {
		a.router.PathPrefix(cfg.RPCPath).Handler(cfg.RPCHandler)
	}

	if cfg.Tokens == nil && !cfg.PublicBillStatus {
		slog.Warn("Bill status API disabled: no gateway secret and PUBLIC_BILL_STATUS not set")
		return
	}
	protected := a.router.PathPrefix("/api").Subrouter()
	if cfg.Tokens != nil {
		protected.Use(mux.MiddlewareFunc(middleware.RequireBearer(cfg.Tokens)))
	}
	protected.HandleFunc("/bills/{bill_id}", a.handleBillStatus).Methods("GET")
}

// Handler returns the router wrapped with CORS and request logging.
func (a *API) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: a.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		// Credentials stay off while the wildcard origin is allowed.
		AllowCredentials: false,
	})
	return middleware.RequestLogger(c.Handler(a.router))
}
