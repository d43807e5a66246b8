package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/krshsl/praxis/coach/analysis"
	"github.com/krshsl/praxis/coach/repository"
	"github.com/krshsl/praxis/coach/services"
	"github.com/krshsl/praxis/coach/speech"
	"github.com/krshsl/praxis/coach/telemetry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	config := services.LoadConfig()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()})))

	if err := config.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config *services.Config) error {
	store, closeStore, err := openStore(config.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	if config.Database.Seed {
		if err := services.NewDatabaseSeeder(store).SeedDatabase(ctx); err != nil {
			slog.Error("Failed to seed database", "error", err)
		}
	}

	var metrics *telemetry.Manager
	if config.Metrics.Enabled {
		metrics = telemetry.NewManager(telemetry.WithRuntimeMetrics(true))
	}

	// Without a generator every analyzer falls back deterministically.
	var generator analysis.Generator
	gemini, err := services.NewGeminiService(ctx, config.AI.GeminiAPIKey, config.AI.GeminiModel)
	if err != nil {
		slog.Warn("Gemini service unavailable, analysis will use fallbacks", "error", err)
	} else {
		generator = gemini
		slog.Info("Gemini service initialized", "model", config.AI.GeminiModel)
	}

	common := []analysis.Option{
		analysis.WithTimeout(config.AI.CallTimeout),
		analysis.WithRecorder(metrics),
	}
	questions := analysis.NewQuestionAnalyzer(generator,
		append(common, analysis.WithTemperature(config.AI.QuestionTemperature))...)
	conversation := analysis.NewConversationAnalyzer(generator,
		append(common, analysis.WithTemperature(config.AI.ConversationTemperature))...)
	roles := analysis.NewRoleSummarizer(generator, common...)
	candidates := analysis.NewCandidateSummarizer(generator, common...)

	reportOpts := services.ReportOptions{
		EnrichmentTimeout: config.Enrichment.Timeout,
		MaxQuestions:      config.Analysis.MaxQuestions,
	}
	if config.Enrichment.URL != "" {
		reportOpts.Enrichment = services.NewEmotionClient(config.Enrichment.URL, config.Enrichment.APIKey, config.Enrichment.Timeout)
		slog.Info("Enrichment service configured", "url", config.Enrichment.URL)
	}

	aggregator := speech.NewAggregator(speech.NewFillerMatcher(speech.DefaultFillerWords, config.Analysis.MatchFillerPhrases))
	sessions := services.NewSessionService(store, aggregator, config.Session.StartPolicy, metrics)
	reports := services.NewReportService(store, questions, conversation, reportOpts, metrics)
	interviews := services.NewInterviewService(store, roles, candidates, sessions, reports)
	auth := services.NewAuthService(store, config.JWT.Secret)

	sweeper := services.NewSessionSweeper(store, config.Session.IdleTimeout, config.Session.SweepInterval, metrics)
	go sweeper.Run(ctx)

	server := services.NewServer(config, services.Dependencies{
		Store:      store,
		Metrics:    metrics,
		Auth:       auth,
		Sessions:   sessions,
		Reports:    reports,
		Interviews: interviews,
	})
	return server.Start(ctx)
}

// openStore connects the configured document store and runs migrations.
func openStore(config services.DatabaseConfig) (repository.Store, func(), error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case services.DriverPostgres:
		dialector = postgres.Open(config.URL)
	case services.DriverSQLite:
		dsn := config.URL
		if dsn == "" {
			dsn = "coach.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		slog.Warn("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(gormLogLevel(config.LogLevel)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}

	repo := repository.NewGORMRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Connected to database", "driver", config.Driver)
	return repo, func() { sqlDB.Close() }, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
