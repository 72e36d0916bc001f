package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server struct {
		Port           int
		AllowedOrigins []string
	}
	Database struct {
		Driver       string // sqlite or postgres
		DSN          string
		MaxOpenConns int
	}
	Auth struct {
		JWTSecret  string
		TokenTTL   time.Duration
		BcryptCost int
		Admin      struct {
			Username string
			Email    string
			Password string
		}
	}
	Storage struct {
		Driver         string // local or s3
		LocalDir       string
		PublicBaseURL  string
		Bucket         string
		Region         string
		Endpoint       string
		MaxUploadBytes int64
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Jobs struct {
		MatchStatusSpec  string
		MatchDuration    time.Duration
		EventPruningSpec string
		EventRetention   time.Duration
		Timezone         string // location kickoff times are written in
	}
	Monitoring struct {
		SampleInterval time.Duration
		CPUAlertPct    float64
	}
	Log struct {
		Level  string
		Pretty bool
	}
}

// Load reads configuration from a .env file, SCORE_* environment variables
// and an optional config.yaml in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:score.db?_pragma=foreign_keys(1)")
	v.SetDefault("database.maxopenconns", 10)
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", time.Hour)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("auth.admin.username", "")
	v.SetDefault("auth.admin.email", "")
	v.SetDefault("auth.admin.password", "")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.localdir", "uploads")
	v.SetDefault("storage.publicbaseurl", "/uploads")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.maxuploadbytes", 5<<20)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "score.events")
	v.SetDefault("jobs.matchstatusspec", "@every 1m")
	v.SetDefault("jobs.matchduration", 2*time.Hour)
	v.SetDefault("jobs.eventpruningspec", "@daily")
	v.SetDefault("jobs.eventretention", 30*24*time.Hour)
	v.SetDefault("jobs.timezone", "UTC")
	v.SetDefault("monitoring.sampleinterval", 15*time.Second)
	v.SetDefault("monitoring.cpualertpct", 90.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// Comma separated env values arrive as a single element.
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtsecret is required (set SCORE_AUTH_JWTSECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.tokenttl must be positive, got %s", c.Auth.TokenTTL)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Jobs.Timezone); err != nil {
		return fmt.Errorf("invalid jobs.timezone: %w", err)
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required when storage.driver is s3")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	return nil
}

// String renders the configuration for startup logs with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf("port=%d db=%s storage=%s kafka=%v token_ttl=%s jwt_secret=%s",
		c.Server.Port, c.Database.Driver, c.Storage.Driver, c.Kafka.Brokers, c.Auth.TokenTTL, mask(c.Auth.JWTSecret))
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
