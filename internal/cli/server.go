package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"quiz-ledger-service/internal/app"
	"quiz-ledger-service/internal/config"
	"quiz-ledger-service/internal/domain"
	"quiz-ledger-service/internal/infra/memory"
	"quiz-ledger-service/internal/infra/postgres"
	redisinfra "quiz-ledger-service/internal/infra/redis"
	transport "quiz-ledger-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the ledger HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()
			return runServer(cmd.Context(), cfg, *port, log)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, portFlag string, log *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if cfg.MigrateOnStart() {
		if err := runMigrations(ctx, cfg, log); err != nil {
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

	repos, closeRepos, err := openRepositories(ctx, cfg, loc, log)
	if err != nil {
		return err
	}
	defer closeRepos()

	opts := []app.Option{
		app.WithLocation(loc),
		app.WithLogger(log),
		app.WithLeaderboardWindow(config.TTLDuration(cfg.Ledger.LeaderboardWindow, domain.LeaderboardWindow)),
		app.WithFeedSize(cfg.Ledger.FeedSize),
	}
	leaderboardTTL := config.TTLDuration(cfg.Ledger.LeaderboardTTL, 30*time.Second)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		opts = append(opts,
			app.WithLeaderboardCache(redisinfra.NewLeaderboardCache(client, config.TTLDuration(cfg.Redis.TTL, leaderboardTTL))),
			app.WithLocker(redisinfra.NewLocker(client, config.TTLDuration(cfg.Redis.LockTTL, 5*time.Second))),
		)
		log.Info("using redis for leaderboard cache and user locks", zap.String("addr", cfg.Redis.Addr))
	} else {
		opts = append(opts,
			app.WithLeaderboardCache(memory.NewLeaderboardCache(leaderboardTTL)),
			app.WithLocker(memory.NewLocker()),
		)
	}
	ledger := app.NewLedger(repos, opts...)

	bounties := cfg.Ledger.Bounties
	if len(bounties) == 0 {
		bounties = defaultBounties()
	}
	if err := ledger.SeedBounties(ctx, bounties); err != nil {
		return err
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(ledger, transport.RouterOptions{
			AllowedOrigins:     cfg.Server.AllowedOrigins,
			RateLimitPerMinute: cfg.Ledger.RateLimitPerMinute,
			Logger:             log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting ledger service", zap.String("port", finalPort), zap.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openRepositories picks Postgres when configured and falls back to the in-process store.
func openRepositories(ctx context.Context, cfg config.Config, loc *time.Location, log *zap.Logger) (app.Repositories, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Warn("postgres not configured, ledger state is kept in memory")
		store := memory.NewStore()
		return repositoriesOf(store), func() {}, nil
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return app.Repositories{}, nil, err
	}
	db := postgres.OpenDB(cfg.Postgres.URL)
	store := postgres.NewStore(db, pool, loc)
	return repositoriesOf(store), func() {
		pool.Close()
		_ = db.Close()
	}, nil
}

type ledgerStore interface {
	app.AccountRepository
	app.TransactionRepository
	app.ActivityRepository
	app.QuizSessionRepository
	app.DuelRepository
	app.BountyRepository
	app.BetRepository
}

func repositoriesOf(s ledgerStore) app.Repositories {
	return app.Repositories{
		Accounts:     s,
		Transactions: s,
		Activity:     s,
		Sessions:     s,
		Duels:        s,
		Bounties:     s,
		Bets:         s,
	}
}

// defaultBounties seeds a small objective set when the config carries none.
func defaultBounties() []domain.Bounty {
	return []domain.Bounty{
		{
			ID:          "daily-three-quizzes",
			Title:       "Hat trick",
			Description: "Finish 3 quizzes today",
			Type:        domain.BountyDaily,
			Metric:      domain.MetricQuizzesCompleted,
			Requirement: 3,
			CoinReward:  15,
			XPReward:    50,
		},
		{
			ID:          "daily-fifty-questions",
			Title:       "Question marathon",
			Description: "Answer 50 questions",
			Type:        domain.BountyDaily,
			Metric:      domain.MetricQuestionsAnswered,
			Requirement: 50,
			CoinReward:  20,
			XPReward:    80,
		},
		{
			ID:          "weekly-hundred-correct",
			Title:       "Sharpshooter",
			Description: "Get 100 answers right",
			Type:        domain.BountyWeekly,
			Metric:      domain.MetricCorrectAnswers,
			Requirement: 100,
			CoinReward:  50,
			XPReward:    200,
		},
		{
			ID:          "weekly-duel-champion",
			Title:       "Duel champion",
			Description: "Win 5 duels",
			Type:        domain.BountyWeekly,
			Metric:      domain.MetricDuelsWon,
			Requirement: 5,
			CoinReward:  40,
			XPReward:    150,
		},
	}
}
