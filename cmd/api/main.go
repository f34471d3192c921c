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

	"github.com/joho/godotenv"

	"github.com/personal-finance-assistant/backend/internal/config"
	"github.com/personal-finance-assistant/backend/internal/handler"
	"github.com/personal-finance-assistant/backend/internal/logger"
	"github.com/personal-finance-assistant/backend/internal/service/agent"
	"github.com/personal-finance-assistant/backend/internal/service/tools"
	"github.com/personal-finance-assistant/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel)
	if envErr != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	ledgerStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer ledgerStore.Close()

	if cfg.Database.AutoMigrate {
		if err := ledgerStore.Migrate(ctx); err != nil {
			log.Error("failed to migrate ledger schema", "error", err)
			os.Exit(1)
		}
	}

	executor := tools.NewExecutor(ledgerStore, log)

	// 未配置模型时仍然启动，/api/finance 返回 503
	var agentSvc *agent.Agent
	if cfg.AI.Enabled() {
		agentSvc, err = newAgent(ctx, cfg, executor, log)
		if err != nil {
			log.Warn("failed to initialize assistant, continuing without it", "provider", cfg.AI.Provider, "error", err)
			agentSvc = nil
		} else {
			log.Info("assistant initialized", "provider", cfg.AI.Provider, "reply_mode", cfg.Agent.ReplyMode)
		}
	} else {
		log.Warn("LLM credentials not configured, skipping assistant initialization", "provider", cfg.AI.Provider)
	}

	router := handler.NewRouter(agentSvc, cfg.Server.AllowedOrigins, log)

	startServer(ctx, cfg.Server, router, log)
}

func newAgent(ctx context.Context, cfg *config.Config, executor *tools.Executor, log *slog.Logger) (*agent.Agent, error) {
	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}

	return agent.New(chatModel, executor, agent.Options{
		ReplyMode: agent.ReplyMode(cfg.Agent.ReplyMode),
		MaxRounds: cfg.Agent.MaxRounds,
		Logger:    log,
	})
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *slog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("finance assistant listening", "addr", addr, "environment", serverCfg.Environment)
	if err := runServer(ctx, srv); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
