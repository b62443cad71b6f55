package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/malaria-api/internal/config"
	"github.com/Brownie44l1/malaria-api/internal/inference"
	"github.com/Brownie44l1/malaria-api/internal/logger"
	"github.com/Brownie44l1/malaria-api/internal/model"
	"github.com/Brownie44l1/malaria-api/internal/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	log.Info("Loading model", zap.String("path", cfg.Model.Path))
	session, err := model.NewSession(model.SessionOptions{
		ModelPath:    cfg.Model.Path,
		MetadataPath: cfg.Model.MetadataPath,
		LibraryPath:  cfg.Model.LibraryPath,
	})
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer session.Close()

	log.Info("Loaded model", zap.Int64s("input_shape", session.InputShape()))

	classifier, err := inference.NewClassifier(session)
	if err != nil {
		return fmt.Errorf("failed to configure preprocessing: %w", err)
	}
	log.Info("Preprocessing configured",
		zap.String("mode", string(classifier.Strategy().Mode())),
		zap.Int64s("tensor_shape", classifier.Strategy().Shape()),
	)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router.Setup(classifier, cfg.Server.MaxUploadBytes, log),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
