package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/soniclens/taste-profile-service/internal/cache"
	"github.com/soniclens/taste-profile-service/internal/cluster"
	"github.com/soniclens/taste-profile-service/internal/config"
	"github.com/soniclens/taste-profile-service/internal/feature"
	"github.com/soniclens/taste-profile-service/internal/handler"
	"github.com/soniclens/taste-profile-service/internal/insights"
	"github.com/soniclens/taste-profile-service/internal/recommend"
	"github.com/soniclens/taste-profile-service/internal/repository"
	"github.com/soniclens/taste-profile-service/internal/router"
	"github.com/soniclens/taste-profile-service/internal/service"
	"github.com/soniclens/taste-profile-service/seeds"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse database config")
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("database not ready")
	}
	logger.Info().Msg("connected to PostgreSQL")

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := migrate(ctx, pool, "migrations/create_tables.down.sql"); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate down")
		}
		logger.Info().Msg("migrations dropped")
		return
	}

	if err := migrate(ctx, pool, "migrations/create_tables.up.sql"); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate up")
	}

	// ------------ Setup Seed Data ---------------
	if err := checkSeed(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to check seed")
	}

	// ------------ Redis ---------------
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var profileStore cache.Store
	redisStore := cache.NewRedisStore(redisClient, cfg.ProfileTTL)
	if err := redisStore.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory profile store")
		profileStore = cache.NewMemoryStore()
	} else {
		logger.Info().Msg("connected to Redis")
		profileStore = redisStore
	}

	// ------------ Pipeline ---------------
	repo := repository.NewRepository(pool)

	genres, err := repo.GetKnownGenres(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load genre vocabulary")
	}
	vocab := feature.NewVocabulary(genres)
	logger.Info().Int("genres", vocab.Size()).Msg("genre vocabulary built")

	aggregator := feature.NewAggregator(cfg.RecentWindow, vocab)
	extractor := feature.NewExtractor(vocab, cfg.EraStartYear, cfg.EraBucketSize, time.Now().Year())
	engine := recommend.NewEngine(recommend.Weights{
		Similarity: cfg.SimilarityWeight,
		Popularity: cfg.PopularityWeight,
		Diversity:  cfg.DiversityWeight,
	}, extractor)
	analyzer := insights.NewAnalyzer(cfg.EvolutionThreshold)
	models := cluster.NewStore()
	profileCache := cache.NewProfileCache(profileStore, cfg.ProfileTTL, logger)

	svc := service.NewService(repo, repo, profileCache, aggregator, engine, analyzer, models,
		service.Options{
			ClusterK:         cfg.ClusterK,
			MaxFitIterations: cfg.MaxFitIterations,
		}, logger)

	if err := svc.LoadModel(ctx); err != nil {
		logger.Warn().Err(err).Msg("no persisted cluster model loaded")
	}

	// ---------------- Server --------------------
	h := handler.NewHandler(svc)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router.Setup(h, logger),
	}

	logger.Info().Str("addr", cfg.Addr()).Msg("server running")
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logger.Info().Int("attempt", i+1).Msg("waiting for database")
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrate(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

func checkSeed(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("check users count: %w", err)
	}
	if count > 0 {
		logger.Info().Int("users", count).Msg("database already seeded, skipping")
		return nil
	}
	return seeds.Setup(ctx, pool)
}
