package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intake-chatbot/internal/config"
	"intake-chatbot/internal/console"
	"intake-chatbot/internal/core"
	"intake-chatbot/internal/db"
	httpserver "intake-chatbot/internal/http"
	"intake-chatbot/internal/kb"
	"intake-chatbot/internal/llm"
	"intake-chatbot/internal/logging"
	"intake-chatbot/internal/metrics"
	"intake-chatbot/internal/prescription"
)

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	knowledge, err := loadKnowledge(cfg.KnowledgeBase.Path)
	if err != nil {
		return err
	}
	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	timeout, _ := cfg.LLMTimeout()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	docs, err := prescription.NewPDFGenerator(cfg.Prescription.OutputDir, logger)
	if err != nil {
		return err
	}
	logger.Info("prescriptions directory", zap.String("dir", docs.Dir()))

	opts := []core.Option{core.WithLogger(logger), core.WithMetrics(m)}
	if cfg.Database.URL != "" {
		dbConn, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			// The session works without the audit log.
			logger.Warn("case audit log disabled", zap.Error(err))
		} else {
			defer dbConn.Close()
			repo := db.NewRepository(dbConn, db.NewNotifier(dbConn, cfg.Database.NotifyChannel))
			opts = append(opts, core.WithRecorder(repo))
		}
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           httpserver.NewServer(knowledge, reg, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("ops server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	c := console.New(cmd.InOrStdin(), cmd.OutOrStdout())
	escalator := core.NewEscalator(client, timeout, logger, m)
	agent := core.NewAgent(knowledge, escalator, c, docs, opts...)
	console.Run(ctx, agent, c, logger)
	return nil
}

func loadKnowledge(path string) (*kb.KnowledgeBase, error) {
	if path == "" {
		return kb.Default()
	}
	return kb.Load(path)
}

func newLLMClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	var next llm.Client
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		next = llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	case config.ProviderGemini:
		g, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		next = g
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.LLM.Provider)
	}

	bc := llm.DefaultBreakerConfig(cfg.LLM.Provider)
	if cfg.LLM.Breaker.FailureThreshold > 0 {
		bc.FailureThreshold = cfg.LLM.Breaker.FailureThreshold
	}
	if d, _ := cfg.BreakerOpenTimeout(); d > 0 {
		bc.Timeout = d
	}
	return llm.NewBreaker(next, bc, logger), nil
}

func openDatabase(ctx context.Context, url string) (*sql.DB, error) {
	dbConn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return dbConn, nil
}
