package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/padmaraj-kv/powersplit-sub000/internal/ai"
	"github.com/padmaraj-kv/powersplit-sub000/internal/api"
	"github.com/padmaraj-kv/powersplit-sub000/internal/auth"
	"github.com/padmaraj-kv/powersplit-sub000/internal/config"
	"github.com/padmaraj-kv/powersplit-sub000/internal/contacts"
	"github.com/padmaraj-kv/powersplit-sub000/internal/conversation"
	"github.com/padmaraj-kv/powersplit-sub000/internal/metrics"
	"github.com/padmaraj-kv/powersplit-sub000/internal/middleware"
	"github.com/padmaraj-kv/powersplit-sub000/internal/notify"
	"github.com/padmaraj-kv/powersplit-sub000/internal/payment"
	"github.com/padmaraj-kv/powersplit-sub000/internal/service"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage/sqlite"
	"github.com/padmaraj-kv/powersplit-sub000/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var aiService conversation.AIService
	if cfg.OpenAIKey != "" {
		aiService = ai.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, slog.Default())
		slog.Info("AI backend configured", "backend", "openai", "model", cfg.OpenAIModel)
	} else {
		aiService = ai.NewHeuristic()
		slog.Warn("OPENAI_API_KEY not set, using heuristic extraction; voice and image bills are unsupported")
	}

	var links payment.LinkGenerator
	if cfg.PayeeVPA != "" {
		links = payment.UPILinkGenerator{VPA: cfg.PayeeVPA, Name: cfg.PayeeName}
	}

	sender := notify.NewLogSender()
	payments := payment.NewConfirmationService(store, sender,
		payment.WithLookback(cfg.ConfirmationLookback),
		payment.WithMetrics(m),
	)

	handlers := conversation.NewHandlers(conversation.Deps{
		AI:       aiService,
		Contacts: contacts.NewManager(store),
		Payments: payments,
		Requests: payment.NewDistributor(store, sender, links, m),
		Bills:    store,
	})
	machine := conversation.NewStateMachine(handlers,
		conversation.WithMaxRetries(cfg.MaxRetries),
		conversation.WithMetrics(m),
	)
	messages := service.NewMessageService(store, machine, payments,
		service.WithSessionTimeout(cfg.SessionTimeout),
	)

	// Auth runs first so the logging interceptor sees the gateway.
	var interceptors []connect.Interceptor
	var tokens *auth.TokenManager
	if cfg.GatewayJWTSecret != "" {
		tokens = auth.NewTokenManager(cfg.GatewayJWTSecret, 24*time.Hour)
		interceptors = append(interceptors, middleware.RequireAuth(tokens))
	} else {
		slog.Warn("GATEWAY_JWT_SECRET not set, API is unauthenticated")
	}
	interceptors = append(interceptors, middleware.LoggingInterceptor())

	rpcPath, rpcHandler := service.NewMessageServiceHandler(messages, connect.WithInterceptors(interceptors...))
	router := api.New(api.Config{
		RPCPath:          rpcPath,
		RPCHandler:       rpcHandler,
		Bills:            store,
		Gatherer:         reg,
		Tokens:           tokens,
		PublicBillStatus: cfg.PublicBillStatus,
		AllowedOrigins:   cfg.AllowedOrigins,
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(router.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Connect server starting", "address", cfg.Addr, "rpc_path", rpcPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
