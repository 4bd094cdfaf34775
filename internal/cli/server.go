package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/config"
	"quiz-battle-service/internal/infra/memory"
	"quiz-battle-service/internal/infra/postgres"
	"quiz-battle-service/internal/infra/rabbitmq"
	infraredis "quiz-battle-service/internal/infra/redis"
	transport "quiz-battle-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	issuer, err := newIssuer(cfg)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader app.QuestionLoader = memory.NewStaticQuestionLoader(memory.SampleQuestionPools())
	if pool != nil {
		loader = postgres.NewQuestionLoader(pool)
	}

	questionTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	var bank app.QuestionSupplier
	if redisClient != nil {
		bank = infraredis.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		bank = memory.NewQuestionBank(loader, questionTTL)
	}
	supplier := app.NewFallbackSupplier(bank, cfg.Match.SupplierAttempts, logger)

	var rooms app.RoomStore
	if redisClient != nil {
		rooms = infraredis.NewRoomStore(redisClient, config.Duration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		logger.Warn("redis not configured, rooms are kept in process memory")
		rooms = memory.NewRoomStore()
	}

	var (
		results app.ResultStore = memory.NewResultStore()
		stats   app.StatsStore  = memory.NewStatsStore()
	)
	if pool != nil {
		results = postgres.NewResultStore(pool)
		stats = postgres.NewStatsStore(pool)
	}

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithCountdown(config.Duration(cfg.Match.Countdown, app.DefaultCountdown)),
		app.WithQuestionTimeLimit(config.Duration(cfg.Match.QuestionTimeLimit, 0)),
		app.WithMaxQuestionCount(cfg.Match.MaxQuestionCount),
	}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			// Results are still stored; only the announcement is lost.
			logger.Warn("rabbitmq unavailable, match results will not be published", "error", err)
		} else {
			defer publisher.Close()
			opts = append(opts, app.WithPublisher(publisher))
		}
	}

	service := app.NewMatchService(rooms, results, stats, supplier, opts...)
	defer service.Close()

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, issuer, logger, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:      config.Duration(cfg.Server.WriteTimeout, 0),
	}

	go func() {
		logger.Info("starting battle service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
