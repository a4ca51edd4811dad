package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/adapters/gemini"
	"github.com/voxlate/voxlate/adapters/history"
	"github.com/voxlate/voxlate/internal/api"
	"github.com/voxlate/voxlate/internal/config"
	"github.com/voxlate/voxlate/internal/gateway"
	"github.com/voxlate/voxlate/internal/live"
	"github.com/voxlate/voxlate/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters
	dialer, err := gemini.NewLiveDialer(cfg.APIKey, logger)
	if err != nil {
		logger.Fatal("Failed to create live dialer", zap.Error(err))
	}
	textAdapter, err := gemini.NewTextService(context.Background(), cfg.APIKey, logger)
	if err != nil {
		logger.Fatal("Failed to create text service", zap.Error(err))
	}
	store, err := history.NewStore(history.Options{Dir: cfg.DataDir}, logger)
	if err != nil {
		logger.Fatal("Failed to open history store", zap.Error(err))
	}
	defer store.Close()

	// Initialize usecase services
	conversations := usecase.NewConversationService(dialer, store, clock.New(), logger)
	texts := usecase.NewTextService(textAdapter, textAdapter, conversations, logger)

	if err := conversations.Restore(context.Background()); err != nil {
		logger.Warn("Starting with empty history", zap.Error(err))
	}

	// Live session defaults; the browser picks the voice per session.
	model := gemini.LiveModel
	if cfg.Model != "" {
		model = cfg.Model
	}
	template := live.Config{
		Model:             model,
		SystemInstruction: gemini.SystemInstruction,
	}

	gw := gateway.NewGateway(conversations, texts, template, clock.New(), logger)

	// Initialize API routes
	api.InitRoutes(e, gw, conversations, texts, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port), zap.String("model", model))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	conversations.StopLive(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
