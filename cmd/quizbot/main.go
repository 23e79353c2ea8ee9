package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mansionnet/quizbot/internal/answer"
	"github.com/mansionnet/quizbot/internal/commands"
	"github.com/mansionnet/quizbot/internal/database"
	"github.com/mansionnet/quizbot/internal/domain"
	"github.com/mansionnet/quizbot/internal/game"
	"github.com/mansionnet/quizbot/internal/httpserver"
	"github.com/mansionnet/quizbot/internal/irc"
	"github.com/mansionnet/quizbot/internal/mistral"
	"github.com/mansionnet/quizbot/internal/platform/config"
	"github.com/mansionnet/quizbot/internal/platform/logging"
	"github.com/mansionnet/quizbot/internal/platform/version"
	"github.com/mansionnet/quizbot/internal/question"
	"github.com/mansionnet/quizbot/internal/redis"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *database.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to ping Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	build := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "version", build.Version, "commit", build.Commit, "http_port", cfg.HTTPPort)

	db := setupDB(cfg)
	defer db.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	playerRepo := database.NewPlayerRepo(db)
	historyRepo := database.NewHistoryRepo(db)
	recent := redis.NewRecentQuestions(redisClient, cfg.HistoryRetention)
	history := redis.NewCachedHistory(historyRepo, recent)
	questionCache := redis.NewQuestionCache(redisClient)

	scoringCfg, err := cfg.ScoringConfig()
	if err != nil {
		slog.Error("Invalid scoring configuration", "error", err)
		os.Exit(1)
	}
	weights, err := cfg.ParsedCategoryWeights()
	if err != nil {
		slog.Error("Invalid category weights", "error", err)
		os.Exit(1)
	}

	source := mistral.NewClient(cfg.MistralAPIKey, cfg.MistralModel)
	budget := question.NewRateBudget(cfg.RateRefillPerSecond, cfg.RateBucketCapacity, cfg.RateWaitMax)
	picker := question.NewPicker(weights, time.Now().UnixNano())
	pipeline := question.NewPipeline(source, questionCache, history, budget, picker, clock, question.Config{
		Attempts:         cfg.GenerationAttempts,
		Backoff:          cfg.GenerationBackoff,
		HistoryRetention: cfg.HistoryRetention,
	}, time.Now().UnixNano())

	ircCfg := irc.DefaultClientConfig()
	ircCfg.Server = cfg.IRCServer
	ircCfg.Port = cfg.IRCPort
	ircCfg.Nick = cfg.IRCNick
	ircCfg.Channels = cfg.IRCChannels

	gameCfg := game.DefaultConfig()
	gameCfg.QuestionTimeout = cfg.QuestionTimeout
	gameCfg.QuestionDelay = cfg.QuestionDelay
	gameCfg.MinAnswerGuard = cfg.MinAnswerGuard
	gameCfg.QuestionsPerGame = cfg.QuestionsPerGame
	gameCfg.Scoring = scoringCfg
	gameCfg.ResetStreaksOnTimeout = cfg.ResetStreaksOnTimeout

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The router needs the IRC client to talk back, and the client needs the
	// router to dispatch events. Bind the handler through a late-set pointer.
	var router *commands.Router
	client := irc.NewClient(ircCfg, func(ev domain.ChatEvent) {
		router.Handle(rootCtx, ev)
	})

	registry := game.NewRegistry(game.Deps{
		Judge:    answer.NewJudge(answer.DefaultConfig()),
		Provider: pipeline,
		Players:  playerRepo,
		History:  history,
		Announce: client,
		Clock:    clock,
		Config:   gameCfg,
	})
	router = commands.NewRouter(registry, playerRepo, client, cfg.IRCAdmins)

	srv := httpserver.NewServer(cfg.HTTPPort, playerRepo)
	srv.AddHealthCheck("postgres", db.Pool)
	srv.AddHealthCheck("redis", redisClient)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		if err := client.Run(rootCtx); err != nil && rootCtx.Err() == nil {
			slog.Error("IRC client error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutdown signal received, cleaning up...")

	registry.StopAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
