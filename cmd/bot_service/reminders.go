package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/quiz"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/repository/postgres"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/config"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/database"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/logger"
)

// printReminders runs one reminder sweep and writes the result. Nothing is sent.
func printReminders(ctx context.Context, cfg *config.Config, out io.Writer) error {
	appLogger := logger.New(cfg.LogLevel)

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN, serviceName)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer dbPool.Close()

	repo := postgres.NewPgLearningRepository(dbPool, appLogger)
	pending, err := repo.ListPendingScheduledQuizzes(ctx)
	if err != nil {
		return err
	}

	reminders := quiz.ComputeReminders(time.Now(), pending)
	appLogger.Info("Computed quiz reminders", "pending", len(pending), "reminders", len(reminders))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reminders)
}
