package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"geminigate/internal/api"
	"geminigate/internal/config"
	"geminigate/internal/logging"
	"geminigate/internal/metrics"
	"geminigate/internal/service/ai"
	"geminigate/internal/upload"

	"github.com/gin-gonic/gin"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("GEMINIGATE_CONFIG"))
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	basic := cfg.BasicConfig

	logger := logging.New(basic.LogFormat, basic.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	generator, err := ai.NewService(ctx, cfg, m.ObserveUpstream)
	if err != nil {
		logger.Error("init generation client", "error", err)
		os.Exit(1)
	}

	uploader, err := upload.NewUploader(basic.UploadDir, config.MaxUploadBytes, logger)
	if err != nil {
		logger.Error("init upload dir", "error", err)
		os.Exit(1)
	}
	sweeper := upload.NewSweeper(uploader.Dir(), time.Duration(basic.ScratchTTLMinutes)*time.Minute, logger)
	sweeper.Start(ctx, time.Duration(basic.SweepIntervalMinutes)*time.Minute)

	handlers := api.NewHandler(generator, uploader, logger)
	router := api.NewRouter(handlers, logger, m, basic.MetricsEnabled)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	uploadsAbs, _ := filepath.Abs(uploader.Dir())
	logger.Info("server starting",
		"addr", srv.Addr,
		"uploads", uploadsAbs,
		"model", generator.Model(),
		"text_provider", basic.TextProvider,
		"metrics", basic.MetricsEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
