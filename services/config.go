package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session start policies.
const (
	StartPolicyReject = "reject"
	StartPolicyReuse  = "reuse"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// MaxAnalyzedQuestions caps the per-question fan-out.
const MaxAnalyzedQuestions = 5

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	AI         AIConfig
	Enrichment EnrichmentConfig
	Session    SessionConfig
	Analysis   AnalysisConfig
	JWT        JWTConfig
	WebSocket  WebSocketConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

type DatabaseConfig struct {
	Driver       string
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey            string
	GeminiModel             string
	CallTimeout             time.Duration
	QuestionTemperature     float64
	ConversationTemperature float64
}

type EnrichmentConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type SessionConfig struct {
	StartPolicy   string
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type AnalysisConfig struct {
	MaxQuestions       int
	MatchFillerPhrases bool
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

var envBindings = map[string]string{
	"server.port":                      "SERVER_PORT",
	"server.log_level":                 "LOG_LEVEL",
	"database.driver":                  "DATABASE_DRIVER",
	"database.url":                     "DATABASE_URL",
	"database.seed":                    "DATABASE_SEED",
	"database.log_level":               "DATABASE_LOG_LEVEL",
	"database.max_idle_conns":          "DATABASE_MAX_IDLE_CONNS",
	"database.max_open_conns":          "DATABASE_MAX_OPEN_CONNS",
	"gemini.api_key":                   "GEMINI_API_KEY",
	"gemini.model":                     "GEMINI_MODEL",
	"ai.call_timeout":                  "AI_CALL_TIMEOUT",
	"ai.question_temperature":          "AI_QUESTION_TEMPERATURE",
	"ai.conversation_temperature":      "AI_CONVERSATION_TEMPERATURE",
	"enrichment.url":                   "ENRICHMENT_URL",
	"enrichment.api_key":               "ENRICHMENT_API_KEY",
	"enrichment.timeout":               "ENRICHMENT_TIMEOUT",
	"session.start_policy":             "SESSION_START_POLICY",
	"session.idle_timeout":             "SESSION_IDLE_TIMEOUT",
	"session.sweep_interval":           "SESSION_SWEEP_INTERVAL",
	"analysis.max_questions":           "ANALYSIS_MAX_QUESTIONS",
	"analysis.match_filler_phrases":    "ANALYSIS_MATCH_FILLER_PHRASES",
	"jwt.secret":                       "JWT_SECRET",
	"websocket.allowed_origins":        "WEBSOCKET_ALLOWED_ORIGINS",
	"metrics.enabled":                  "METRICS_ENABLED",
	"metrics.path":                     "METRICS_PATH",
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.seed", "true")
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("database.max_idle_conns", "10")
	v.SetDefault("database.max_open_conns", "100")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.call_timeout", "30s")
	v.SetDefault("ai.question_temperature", "0.4")
	v.SetDefault("ai.conversation_temperature", "0.3")
	v.SetDefault("enrichment.url", "")
	v.SetDefault("enrichment.api_key", "")
	v.SetDefault("enrichment.timeout", "20s")
	v.SetDefault("session.start_policy", StartPolicyReject)
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("session.sweep_interval", "1m")
	v.SetDefault("analysis.max_questions", MaxAnalyzedQuestions)
	v.SetDefault("analysis.match_filler_phrases", "true")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("websocket.allowed_origins", "")
	v.SetDefault("metrics.enabled", "true")
	v.SetDefault("metrics.path", "/metrics")

	// Map environment variables to config keys
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "env", env, "error", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	driver := strings.ToLower(v.GetString("database.driver"))
	if driver == "" {
		driver = DriverMemory
		if v.GetString("database.url") != "" {
			driver = DriverPostgres
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:     v.GetString("server.port"),
			LogLevel: v.GetString("server.log_level"),
		},
		Database: DatabaseConfig{
			Driver:       driver,
			URL:          v.GetString("database.url"),
			Seed:         v.GetBool("database.seed"),
			LogLevel:     v.GetString("database.log_level"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey:            v.GetString("gemini.api_key"),
			GeminiModel:             v.GetString("gemini.model"),
			CallTimeout:             v.GetDuration("ai.call_timeout"),
			QuestionTemperature:     v.GetFloat64("ai.question_temperature"),
			ConversationTemperature: v.GetFloat64("ai.conversation_temperature"),
		},
		Enrichment: EnrichmentConfig{
			URL:     v.GetString("enrichment.url"),
			APIKey:  v.GetString("enrichment.api_key"),
			Timeout: v.GetDuration("enrichment.timeout"),
		},
		Session: SessionConfig{
			StartPolicy:   strings.ToLower(v.GetString("session.start_policy")),
			IdleTimeout:   v.GetDuration("session.idle_timeout"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Analysis: AnalysisConfig{
			MaxQuestions:       min(v.GetInt("analysis.max_questions"), MaxAnalyzedQuestions),
			MatchFillerPhrases: v.GetBool("analysis.match_filler_phrases"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: v.GetString("websocket.allowed_origins"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver))
	}
	switch c.Session.StartPolicy {
	case StartPolicyReject, StartPolicyReuse:
	default:
		errs = append(errs, fmt.Errorf("SESSION_START_POLICY must be %q or %q, got %q", StartPolicyReject, StartPolicyReuse, c.Session.StartPolicy))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Analysis.MaxQuestions < 1 {
		errs = append(errs, errors.New("ANALYSIS_MAX_QUESTIONS must be at least 1"))
	}
	for name, t := range map[string]float64{
		"AI_QUESTION_TEMPERATURE":     c.AI.QuestionTemperature,
		"AI_CONVERSATION_TEMPERATURE": c.AI.ConversationTemperature,
	} {
		if t < 0 || t > 2 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 2], got %v", name, t))
		}
	}
	for name, d := range map[string]time.Duration{
		"AI_CALL_TIMEOUT":        c.AI.CallTimeout,
		"ENRICHMENT_TIMEOUT":     c.Enrichment.Timeout,
		"SESSION_IDLE_TIMEOUT":   c.Session.IdleTimeout,
		"SESSION_SWEEP_INTERVAL": c.Session.SweepInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("METRICS_PATH must start with '/', got %q", c.Metrics.Path))
	}
	return errors.Join(errs...)
}

// LogLevel parses LOG_LEVEL, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Server.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
