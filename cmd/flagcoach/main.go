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
	"github.com/omarshaarawi/flagcoach/internal/api/rest"
	"github.com/omarshaarawi/flagcoach/internal/bot"
	"github.com/omarshaarawi/flagcoach/internal/config"
	"github.com/omarshaarawi/flagcoach/internal/models"
	"github.com/omarshaarawi/flagcoach/internal/repository/file"
	"github.com/omarshaarawi/flagcoach/internal/repository/memory"
	"github.com/omarshaarawi/flagcoach/internal/rotation"
	"github.com/omarshaarawi/flagcoach/internal/scheduler"
	"github.com/omarshaarawi/flagcoach/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Error running application", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Error("Error loading .env file", "error", err)
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}

	engine, err := rotation.New(models.Settings{
		TeamSize:          cfg.Rotation.TeamSize,
		RepeatWindow:      cfg.Rotation.RepeatWindow,
		BlockFamilyRepeat: cfg.Rotation.BlockFamilyRepeat,
	}, rotation.WithRand(rotation.NewRand(cfg.Rotation.Seed)))
	if err != nil {
		return err
	}

	cache := memory.NewRepository()
	store := file.NewRepository(cfg.Storage.Path)
	rotationService := service.NewRotationService(engine, cache, store)
	if err := rotationService.Restore(); err != nil {
		return err
	}
	slog.Info("Rotation ready", "state_path", store.Path(), "team_size", engine.Settings().TeamSize)

	telegramBot, err := bot.NewTelegramBot(cfg.TelegramBot.Token, cfg.TelegramBot.ChatID, rotationService)
	if err != nil {
		return err
	}

	sched, err := scheduler.NewScheduler(cfg.Schedule, rotationService, telegramBot.SendMessage)
	if err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}
	defer func() {
		err := sched.Stop()
		if err != nil {
			slog.Error("Error stopping scheduler", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           rest.NewRouter(rest.NewHandler(rotationService)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Error starting HTTP server", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := telegramBot.Start(ctx); err != nil {
			slog.Error("Error running telegram bot", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down HTTP server", "error", err)
	}

	return nil
}
