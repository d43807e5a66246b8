package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: "8080", LogLevel: "info"},
		Database:   DatabaseConfig{Driver: DriverMemory},
		AI:         AIConfig{CallTimeout: 30 * time.Second, QuestionTemperature: 0.4, ConversationTemperature: 0.3},
		Enrichment: EnrichmentConfig{Timeout: 20 * time.Second},
		Session:    SessionConfig{StartPolicy: StartPolicyReject, IdleTimeout: 30 * time.Minute, SweepInterval: time.Minute},
		Analysis:   AnalysisConfig{MaxQuestions: MaxAnalyzedQuestions, MatchFillerPhrases: true},
		JWT:        JWTConfig{Secret: testSecret},
		Metrics:    MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, wantErr: "DATABASE_URL"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mongo" }, wantErr: "DATABASE_DRIVER"},
		{name: "unknown start policy", mutate: func(c *Config) { c.Session.StartPolicy = "replace" }, wantErr: "SESSION_START_POLICY"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: "JWT_SECRET"},
		{name: "no questions", mutate: func(c *Config) { c.Analysis.MaxQuestions = 0 }, wantErr: "ANALYSIS_MAX_QUESTIONS"},
		{name: "temperature out of range", mutate: func(c *Config) { c.AI.QuestionTemperature = 2.5 }, wantErr: "AI_QUESTION_TEMPERATURE"},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.CallTimeout = 0 }, wantErr: "AI_CALL_TIMEOUT"},
		{name: "relative metrics path", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: "METRICS_PATH"},
		{name: "metrics path ignored when disabled", mutate: func(c *Config) { c.Metrics = MetricsConfig{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateReportsEverything(t *testing.T) {
	c := validConfig()
	c.JWT.Secret = ""
	c.Session.StartPolicy = ""

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SESSION_START_POLICY")
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "postgres://localhost/coach")
	t.Setenv("SESSION_START_POLICY", "REUSE")
	t.Setenv("ANALYSIS_MAX_QUESTIONS", "9")
	t.Setenv("AI_CALL_TIMEOUT", "5s")
	t.Setenv("ANALYSIS_MATCH_FILLER_PHRASES", "false")

	c := LoadConfig()
	assert.Equal(t, "from-env", c.JWT.Secret)
	assert.Equal(t, DriverPostgres, c.Database.Driver)
	assert.Equal(t, StartPolicyReuse, c.Session.StartPolicy)
	assert.Equal(t, MaxAnalyzedQuestions, c.Analysis.MaxQuestions)
	assert.Equal(t, 5*time.Second, c.AI.CallTimeout)
	assert.False(t, c.Analysis.MatchFillerPhrases)
	assert.Equal(t, 20*time.Second, c.Enrichment.Timeout)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.NoError(t, c.Validate())
}

func TestLoadConfigDefaultsToMemoryStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "")

	c := LoadConfig()
	assert.Equal(t, DriverMemory, c.Database.Driver)
	assert.Equal(t, StartPolicyReject, c.Session.StartPolicy)
	assert.True(t, c.Analysis.MatchFillerPhrases)
}

func TestConfigLogLevel(t *testing.T) {
	c := validConfig()
	c.Server.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, c.LogLevel())
	c.Server.LogLevel = "loud"
	assert.Equal(t, slog.LevelInfo, c.LogLevel())
}
