// Package videobot собирает приложение: хранилище, миграции, Redis,
// сервисы, Telegram-бота и служебный HTTP-сервер.
package videobot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magelan09/shopee-video-bot/internal/bot"
	"github.com/magelan09/shopee-video-bot/internal/cache"
	"github.com/magelan09/shopee-video-bot/internal/config"
	"github.com/magelan09/shopee-video-bot/internal/http/handlers/health"
	"github.com/magelan09/shopee-video-bot/internal/migrations"
	"github.com/magelan09/shopee-video-bot/internal/rabbitmq"
	"github.com/magelan09/shopee-video-bot/internal/services/entitlement"
	"github.com/magelan09/shopee-video-bot/internal/services/fetcher"
	"github.com/magelan09/shopee-video-bot/internal/services/payment"
	"github.com/magelan09/shopee-video-bot/internal/storage/repository"
)

type App struct {
	bot       *bot.Bot
	opsServer *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	publisher *rabbitmq.Publisher
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	if err = db.CheckDatabaseReady(); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var publisher *rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		publisher, err = rabbitmq.NewPublisher(conn)
		if err != nil {
			return nil, err
		}
	}

	entitlements := entitlement.New(db, logger, cfg.DailyLimit)
	payments := payment.New(logger)

	videoFetcher, err := fetcher.New(cfg.Extractor, cfg.OutputDir, logger)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	logger.Info("authorized on telegram", slog.String("username", api.Self.UserName))

	var events bot.EventPublisher
	if publisher != nil {
		events = publisher
	}
	tgBot := bot.New(api, logger, entitlements, payments, videoFetcher, cacheRedis,
		events, cfg.DailyLimit, cfg.PollTimeout, cfg.SupportURL)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)
	router.Get("/health", health.New(logger, db).ServeHTTP)
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.AddressOps,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutOps,
		WriteTimeout: cfg.TimeoutOps,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		bot:       tgBot,
		opsServer: srv,
		logger:    logger,
		db:        db,
		publisher: publisher,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("ops HTTP server starting on", slog.String("address", a.opsServer.Addr))
		err := a.opsServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		errCh <- a.bot.Run(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		err := a.opsServer.Shutdown(timeoutCtx)
		if a.publisher != nil {
			a.publisher.Close()
		}
		a.db.DB.Close()
		return err
	}
}
