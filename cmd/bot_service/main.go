package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/app"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/delivery"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/ingress"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/llm"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/memory"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/provider"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/repository/postgres"
	httptransport "github.com/ChirchirMeshack/SomaBot/internal/bot_service/transport/http"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/cache"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/config"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/database"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/logger"
	"github.com/ChirchirMeshack/SomaBot/internal/platform/messagebroker"
)

const (
	serviceName     = "bot_service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "SomaBot WhatsApp learning assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(remindersCmd())

	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "service", serviceName, "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the outbound dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(serviceName)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Bot service starting...", "port", cfg.ServerPort, "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN, serviceName)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL")

	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisCache.Close()
	appLogger.Info("Connected to Redis")

	var publisher delivery.EventPublisher
	if cfg.NATSUrl != "" {
		natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Warn("NATS unavailable; status events disabled", "error", err)
		} else {
			defer natsClient.Close()
			publisher = natsClient
		}
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	sender := provider.NewFromConfig(provider.TwilioConfig{
		AccountSID:        cfg.TwilioAccountSID,
		AuthToken:         cfg.TwilioAuthToken,
		FromNumber:        cfg.TwilioWhatsAppNumber,
		APIBase:           cfg.TwilioAPIBase,
		StatusCallbackURL: cfg.TwilioStatusCallbackURL,
	}, httpClient, appLogger)
	appLogger.Info("Outbound provider selected", "provider", sender.GetName())

	statuses := delivery.NewStatusStore(publisher, appLogger)
	dispatcher := delivery.NewDispatcher(delivery.DispatcherConfig{
		Interval:      cfg.DeliveryInterval,
		QueueCapacity: cfg.DeliveryQueueCapacity,
		MaxAttempts:   cfg.DeliveryMaxAttempts,
		RetryBackoff:  cfg.DeliveryRetryBackoff,
	}, sender, statuses, appLogger)

	assistant := llm.NewOpenAIAssistant(llm.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		MaxTokens:  cfg.OpenAIMaxTokens,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}, appLogger)

	repo := postgres.NewPgLearningRepository(dbPool, appLogger)
	sessions := memory.NewSessionStore(redisCache, cfg.SessionTTL, appLogger)
	router := app.NewMessageRouter(app.RouterDeps{
		Repo:          repo,
		Conversations: memory.NewContextStore(redisCache, appLogger),
		Quizzes:       sessions,
		Assistant:     assistant,
		Replier:       dispatcher,
		Locks:         memory.NewKeyedMutex(),
	}, appLogger)

	validate := validator.New()
	verifier := ingress.NewSignatureVerifier(cfg.TwilioAuthToken, cfg.SignatureBypassEnabled(), appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	httptransport.NewWebhookHandler(verifier, router, statuses, cfg.PublicBaseURL, appLogger, validate).RegisterRoutes(r)
	httptransport.NewQuizHandler(repo, appLogger).RegisterRoutes(r)
	httptransport.NewSessionHandler(sessions, appLogger, validate).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(groupCtx)
	})
	g.Go(func() error {
		appLogger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if dead := dispatcher.DeadLetters(); len(dead) > 0 {
		appLogger.Warn("Undelivered messages at shutdown", "dead_letters", len(dead), "queued", dispatcher.Pending())
	}
	appLogger.Info("Bot service shutdown complete.")
	return nil
}

func remindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "Print the quiz reminders that are currently due as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(serviceName)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return printReminders(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}
