package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Placeholder credentials shipped in sample env files count as unset.
var placeholders = map[string]bool{
	"dummy-openai-key":                  true,
	"https://dummy-project.supabase.co": true,
}

type Config struct {
	Environment string
	Port        string

	DatabaseURL string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	DefaultClinicID  string
	ChatHistoryLimit int
	AllowedOrigins   []string

	LogLevel  string
	LogFormat string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("DEFAULT_CLINIC_ID", "hachi-dental-onojo")
	v.SetDefault("CHAT_HISTORY_LIMIT", 10)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	return v
}

// Load reads the API configuration from the environment. Missing backing
// services are not an error: the caller falls back to fixture adapters.
func Load() (*Config, error) {
	v := newViper()

	cfg := &Config{
		Environment:        v.GetString("APP_ENV"),
		Port:               v.GetString("PORT"),
		DatabaseURL:        setting(v, "DB_CONNECTION_STRING"),
		RedisAddress:       setting(v, "REDIS_ADDRESS"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		OpenAIAPIKey:       setting(v, "OPENAI_API_KEY"),
		OpenAIModel:        v.GetString("OPENAI_MODEL"),
		OpenAIBaseURL:      v.GetString("OPENAI_BASE_URL"),
		GoogleClientID:     setting(v, "GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		DefaultClinicID:    v.GetString("DEFAULT_CLINIC_ID"),
		ChatHistoryLimit:   v.GetInt("CHAT_HISTORY_LIMIT"),
		AllowedOrigins:     splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "PORT must not be empty")
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, "SESSION_TTL must be a positive duration")
	}
	if c.ChatHistoryLimit <= 0 {
		errs = append(errs, "CHAT_HISTORY_LIMIT must be positive")
	}
	if c.GoogleClientID != "" && (c.GoogleClientSecret == "" || c.GoogleRedirectURL == "") {
		errs = append(errs, "GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required with GOOGLE_CLIENT_ID")
	}
	if c.Environment == "production" && c.DatabaseURL == "" {
		errs = append(errs, "DB_CONNECTION_STRING is required in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) UseFixtureData() bool       { return c.DatabaseURL == "" }
func (c *Config) UseCannedCompletions() bool { return c.OpenAIAPIKey == "" }
func (c *Config) UseMemorySessions() bool    { return c.RedisAddress == "" }
func (c *Config) UseFixtureIdentity() bool   { return c.GoogleClientID == "" }

func setting(v *viper.Viper, key string) string {
	s := strings.TrimSpace(v.GetString(key))
	if placeholders[s] {
		return ""
	}
	return s
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
