package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geolearn-service/internal/app"
	"geolearn-service/internal/config"
	"geolearn-service/internal/domain"
	"geolearn-service/internal/infra/memory"
	pgloader "geolearn-service/internal/infra/postgres"
	infraredis "geolearn-service/internal/infra/redis"
	"geolearn-service/internal/progress"
	transport "geolearn-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the geometry tutor server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(env string) *zap.Logger {
	if env == "development" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Env)
	defer logger.Sync()

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
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = infraredis.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var store progress.Store
	if redisClient != nil {
		docStore := infraredis.NewDocStore(redisClient)
		docStore.IndexField(progress.CollectionLeaderboard, "bestScore")
		store = docStore
	} else {
		store = memory.NewDocStore()
	}

	progressStore := progress.NewProgressStore(store, logger)
	ranker := progress.NewLeaderboardRanker(store, logger)
	flow := app.NewQuizFlow(memory.NewAttemptStore(), banks, progressStore, ranker, logger)

	wsHandler := transport.NewWSHandler(flow, logger)
	apiHandler := transport.NewAPIHandler(progressStore, ranker, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting geolearn service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
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

// sampleBanks provides a minimal question bank; swap the loader for the
// Postgres-backed one in production.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"geometry-basics": {
			ID: "geometry-basics",
			Questions: []domain.Question{
				{
					Prompt:        "What is the volume of a cube with side length 2?",
					Options:       []string{"6", "8", "12"},
					CorrectAnswer: "8",
					Shape: domain.ShapeSpec{
						Type:       domain.KindCube,
						Dimensions: map[string]float64{"width": 2},
						Color:      "orange",
					},
					Explanation: "Volume of a cube is a^3, so 2^3 = 8.",
				},
				{
					Prompt:        "What is the surface area of a sphere with diameter 4?",
					Options:       []string{"25.13", "50.27", "100.53"},
					CorrectAnswer: "50.27",
					Shape: domain.ShapeSpec{
						Type:       domain.KindSphere,
						Dimensions: map[string]float64{"width": 4},
						Color:      "blue",
					},
					Explanation: "Surface area is 4*pi*r^2 with r = 2, about 50.27.",
				},
				{
					Prompt:        "What is the volume of a cylinder with diameter 2 and height 5?",
					Options:       []string{"15.71", "31.42", "62.83"},
					CorrectAnswer: "15.71",
					Shape: domain.ShapeSpec{
						Type:       domain.KindCylinder,
						Dimensions: map[string]float64{"width": 2, "height": 5},
						Color:      "green",
					},
					Explanation: "Volume is pi*r^2*h with r = 1, about 15.71.",
				},
				{
					Prompt:        "What is the surface area of a cone with diameter 6 and height 4?",
					Options:       []string{"37.70", "75.40", "113.10"},
					CorrectAnswer: "75.40",
					Shape: domain.ShapeSpec{
						Type:       domain.KindCone,
						Dimensions: map[string]float64{"width": 6, "height": 4},
						Color:      "red",
					},
					Explanation: "Slant is sqrt(3^2+4^2) = 5, so pi*r*(r+s) is about 75.40.",
				},
				{
					Prompt:        "What is the surface area of a cube with side length 3?",
					Options:       []string{"27", "36", "54"},
					CorrectAnswer: "54",
					Shape: domain.ShapeSpec{
						Type:       domain.KindCube,
						Dimensions: map[string]float64{"width": 3},
						Color:      "orange",
					},
					Explanation: "Surface area is 6*a^2, so 6*9 = 54.",
				},
			},
		},
	}
}
