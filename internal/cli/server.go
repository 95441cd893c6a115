package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trivia-bot/internal/app"
	"trivia-bot/internal/config"
	"trivia-bot/internal/infra/memory"
	"trivia-bot/internal/infra/opentdb"
	"trivia-bot/internal/infra/postgres"
	redisinfra "trivia-bot/internal/infra/redis"
	"trivia-bot/internal/telemetry"
	"trivia-bot/internal/transport/discord"
	transport "trivia-bot/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia bot and its HTTP endpoints",
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
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
		telemetry.MonitorRedis(redisClient, logger)
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
	}

	provider, err := buildProvider(cfg, pool, redisClient)
	if err != nil {
		return err
	}

	roundTimeout := config.Duration(cfg.Trivia.Timeout, app.DefaultRoundTimeout)
	var store app.SessionStore = memory.NewSessionStore()
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, roundTimeout)
	}

	metrics := telemetry.NewMetrics()
	scores := app.NewScoreBoard()
	manager := app.NewManager(app.ManagerConfig{
		Store:   store,
		Scores:  scores,
		Timeout: roundTimeout,
		Logger:  logger,
		Metrics: metrics,
	})
	service := app.NewTriviaService(provider, manager, scores, logger, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", transport.NewWSHandler(service, logger).ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	var bot *discord.Bot
	if cfg.Discord.Token != "" {
		bot, err = discord.NewBot(cfg.Discord.Token, discord.NewHandler(service, cfg.Discord.Prefix, logger), logger)
		if err != nil {
			return err
		}
		if err := bot.Open(); err != nil {
			return err
		}
	} else {
		logger.Warn("discord: token not configured, running WebSocket only")
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("http: listening", "port", finalPort, "provider", cfg.Trivia.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Expire live rounds first so the bot can still edit their messages.
		err := manager.Shutdown(shutdownCtx)
		if bot != nil {
			err = errors.Join(err, bot.Close())
		}
		return errors.Join(err, server.Shutdown(shutdownCtx))
	})
	return eg.Wait()
}

// buildProvider selects the question source and wraps it in a pool when
// pool_size is set.
func buildProvider(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (app.QuestionProvider, error) {
	var loader memory.BatchLoader
	switch cfg.Trivia.Provider {
	case "opentdb":
		loader = opentdb.NewClient(cfg.Trivia.OpenTDBURL, config.Duration(cfg.Trivia.ClientTimeout, 10*time.Second))
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("trivia provider postgres requires postgres.url")
		}
		loader = postgres.NewQuestionBank(pool)
	case "static":
		loader = memory.NewStaticQuestionBank(memory.SampleQuestions())
	default:
		return nil, fmt.Errorf("unknown trivia provider %q", cfg.Trivia.Provider)
	}

	if cfg.Trivia.PoolSize <= 0 {
		provider, ok := loader.(app.QuestionProvider)
		if !ok {
			return nil, fmt.Errorf("trivia provider %q cannot serve single questions", cfg.Trivia.Provider)
		}
		return provider, nil
	}

	poolTTL := config.Duration(cfg.Trivia.PoolTTL, 30*time.Minute)
	if redisClient != nil {
		return redisinfra.NewQuestionPool(redisClient, loader, cfg.Trivia.PoolSize, poolTTL), nil
	}
	return memory.NewQuestionPool(loader, cfg.Trivia.PoolSize, poolTTL), nil
}
