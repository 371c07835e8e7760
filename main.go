package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/krau/bloodgroup/config"
	"github.com/krau/bloodgroup/logger"
	"github.com/krau/bloodgroup/onnx"
	"github.com/krau/bloodgroup/server"
	"github.com/krau/bloodgroup/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.C()
	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()
	log.Info("Starting bloodgroup")

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	// A missing model or runtime is not fatal: the server reports it per request.
	var model service.Model
	libPath := onnx.LibPath(cfg.Libonnx)
	if err := onnx.Init(libPath); err != nil {
		log.Error("Failed to initialize ONNX Runtime", zap.String("lib", libPath), zap.Error(err))
	} else {
		log.Info("Using ONNX Runtime library", zap.String("path", libPath))
		defer func() {
			if err := onnx.Destroy(); err != nil {
				log.Warn("Failed to destroy ONNX Runtime environment", zap.Error(err))
			}
		}()
		opener := onnx.Opener(onnx.Options{Workers: cfg.Workers, IntraOpThreads: cfg.IntraOpThreads})
		if m, err := service.LoadModel(log, cfg.ModelPath, opener); err == nil {
			model = m
			if c, ok := m.(interface{ Close() }); ok {
				defer c.Close()
			}
		}
	}
	if model == nil {
		log.Warn("Serving without a model; predictions will fail")
	}

	gin.SetMode(cfg.Mode)
	srv := server.New(server.Options{
		Model:             model,
		Logger:            log,
		Token:             cfg.Token,
		UploadDir:         cfg.UploadDir,
		MaxUploadSize:     cfg.MaxUploadSize,
		AllowedExtensions: cfg.AllowedExtensions,
	})

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on", zap.String("address", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	return nil
}
