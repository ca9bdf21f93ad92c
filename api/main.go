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

	"github.com/DeafMist/credibility-engine/backend/internal/backend"
	"github.com/DeafMist/credibility-engine/backend/internal/config"
	"github.com/DeafMist/credibility-engine/backend/internal/elasticsearch"
	"github.com/DeafMist/credibility-engine/backend/internal/history"
	"github.com/DeafMist/credibility-engine/backend/internal/logger"
	"github.com/DeafMist/credibility-engine/backend/internal/tier"
	"github.com/DeafMist/credibility-engine/backend/internal/translate"
	"github.com/DeafMist/credibility-engine/backend/internal/verification"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	client, err := backend.New(backend.Config{
		BaseURL:        cfg.BackendURL,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
		HealthTimeout:  cfg.HealthTimeout,
		IngestTimeout:  cfg.IngestTimeout,
	}, nil, log)
	if err != nil {
		log.Error("init backend client", slog.Any("err", err))
		os.Exit(1)
	}

	policy, err := tier.LoadPolicy(cfg.TierPolicyFile)
	if err != nil {
		log.Error("load tier policy", slog.Any("err", err))
		os.Exit(1)
	}

	opts := verification.Options{
		Timeout:         cfg.AnalyzeTimeout,
		DefaultLanguage: cfg.DefaultLanguage,
		Policy:          &policy,
		Logger:          log,
	}

	if cfg.GeminiAPIKey != "" {
		gen, err := translate.NewGenAI(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error("init translator", slog.Any("err", err))
			os.Exit(1)
		}
		opts.Translator = translate.NewExternal(gen, cfg.DefaultLanguage, log)
		log.Info("translation enabled", slog.String("model", cfg.GeminiModel))
	}

	var arch archive
	if cfg.ArchiveEnabled {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		if err := esClient.EnsureIndex(ctx); err != nil {
			log.Error("ensure archive index", slog.Any("err", err))
			os.Exit(1)
		}
		opts.Archiver = esClient
		arch = esClient
	}

	session := verification.NewSession(client, history.NewStore(cfg.HistoryOrder), opts)
	srv := newServer(log, cfg, session, client, arch)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// analysis may take the full backend timeout
		WriteTimeout: cfg.AnalyzeTimeout + 15*time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("backend", cfg.BackendURL),
			slog.Bool("archive", cfg.ArchiveEnabled),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
