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

	"rentride/internal/app/commands"
	bookingapp "rentride/internal/app/handlers/booking"
	"rentride/internal/app/middleware"
	"rentride/internal/app/policies"
	"rentride/internal/app/session"
	"rentride/internal/domain/pricing"
	"rentride/internal/infra/broker/kafka"
	"rentride/internal/infra/config"
	mongostore "rentride/internal/infra/db/mongo"
	"rentride/internal/infra/gateway/rest"
	ginserver "rentride/internal/infra/http/gin"
	"rentride/internal/infra/obs"
	"rentride/internal/infra/schedule"
	"rentride/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if app.events != nil {
		go func() {
			if err := app.events.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	var scheduler *schedule.Scheduler
	if cfg.ResyncSchedule != "" {
		scheduler, err = schedule.NewScheduler(cfg.ResyncSchedule, app.sessions, cfg.ResyncTimeout, logger)
		if err != nil {
			logger.Error("resync scheduler setup failed", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "mode", cfg.Mode())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	sessions *session.Manager
	events   *kafka.Events
	mongo    *mongostore.Client
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{health: obs.HealthHandlers{Checks: map[string]obs.ReadyCheck{}}}

	var (
		idStore middleware.IdempotencyStore = memory.NewIdempotencyStore()
		inbox   kafka.Inbox                 = memory.NewInbox(10000)
	)
	if cfg.MongoEnabled() {
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		app.mongo = client
		app.health.Checks["mongo"] = client.Ping

		mongoIdem := mongostore.NewIdempotencyStore(client.DB)
		mongoInbox := mongostore.NewInboxStore(client.DB, cfg.KafkaGroupID, cfg.IdempotencyTTL)
		for _, ensure := range []func(context.Context) error{mongoIdem.EnsureIndexes, mongoInbox.EnsureIndexes} {
			if err := ensure(ctx); err != nil {
				logger.Warn("mongo index setup failed", "error", err)
			}
		}
		idStore, inbox = mongoIdem, mongoInbox
	}

	var (
		gateway policies.BookingGateway
		channel policies.EventChannel
	)
	switch cfg.Mode() {
	case config.ModeRemote:
		gateway = rest.NewClient(cfg.GatewayBaseURL, cfg.GatewayToken, cfg.GatewayTimeout, logger)
		if !cfg.KafkaEnabled() {
			logger.Warn("no KAFKA_BROKERS configured, views refresh only on resync")
			channel = memory.NewEventBus()
			break
		}
		events, err := kafka.NewEvents(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopicPrefix, inbox, logger)
		if err != nil {
			return nil, err
		}
		app.events = events
		channel = events
	default:
		bus := memory.NewEventBus()
		fixtures, err := loadFixtures(cfg.FixturesPath, logger)
		if err != nil {
			logger.Warn("booking fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
		gateway = memory.NewBookingGateway(bus, fixtures...)
		channel = bus
	}

	sessions, err := session.NewManager(session.Options{
		Gateway:       gateway,
		Channel:       channel,
		Logger:        logger,
		ResyncTimeout: cfg.ResyncTimeout,
	})
	if err != nil {
		return nil, err
	}
	app.sessions = sessions

	commandBus := commands.NewInMemoryBus()
	bookingapp.Register(commandBus, bookingapp.Deps{
		Sessions:  sessions,
		Gateway:   gateway,
		Pricing:   pricing.Engine{Policy: cfg.RentalLengthPolicy},
		Currency:  cfg.Currency,
		Exponent:  cfg.CurrencyExponent,
		ReturnURL: cfg.PaymentReturnURL,
	})
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(),
		middleware.Idempotency(idStore, nil, cfg.IdempotencyTTL),
	)

	app.handlers = ginserver.Handlers{
		Sessions: ginserver.SessionHandler{Sessions: sessions, Logger: logger},
		Bookings: ginserver.BookingHandler{Commands: commandBusWithMiddleware, Logger: logger},
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	if a.sessions != nil {
		a.sessions.CloseAll()
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			logger.Warn("kafka consumer close failed", "error", err)
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Close(ctx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
