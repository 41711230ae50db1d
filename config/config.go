package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"okrproject/progress"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	Storage        string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	Port           string
	LogMode        string
	RequestTimeout time.Duration
	Thresholds     progress.Thresholds
	Weights        progress.WeightConfig
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("storage", StorageMongo)
	v.SetDefault("mongo_database", "okr_project")
	v.SetDefault("port", "8081")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("behind_threshold", progress.DefaultThresholds.Behind)
	v.SetDefault("at_risk_threshold", progress.DefaultThresholds.AtRisk)
	v.SetDefault("default_kr_weight", progress.DefaultWeightConfig.DefaultWeight)

	cfg := &Config{
		Storage:        v.GetString("storage"),
		MongoURI:       v.GetString("mongo_uri"),
		MongoDatabase:  v.GetString("mongo_database"),
		JWTSecret:      v.GetString("jwt_secret"),
		Port:           v.GetString("port"),
		LogMode:        v.GetString("log_mode"),
		RequestTimeout: v.GetDuration("request_timeout"),
		Thresholds: progress.Thresholds{
			Behind: v.GetFloat64("behind_threshold"),
			AtRisk: v.GetFloat64("at_risk_threshold"),
		},
		Weights: progress.WeightConfig{DefaultWeight: v.GetFloat64("default_kr_weight")},
	}

	if cfg.MongoURI == "" {
		username := v.GetString("mongo_username")
		password := v.GetString("mongo_password")
		cluster := v.GetString("mongo_cluster")
		appName := v.GetString("mongo_app_name")
		if username != "" && password != "" && cluster != "" && appName != "" {
			cfg.MongoURI = fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority&appName=%s",
				username, password, cluster, appName)
		}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return cfg, nil
}

// Validate checks what the HTTP server needs before it starts.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI or MONGO_USERNAME/MONGO_PASSWORD/MONGO_CLUSTER/MONGO_APP_NAME required"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE %q", c.Storage))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET required"))
	}
	if c.Thresholds.Behind < 0 || c.Thresholds.AtRisk < c.Thresholds.Behind {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 <= behind (%.1f) <= at risk (%.1f)",
			c.Thresholds.Behind, c.Thresholds.AtRisk))
	}
	if c.Weights.DefaultWeight < 0 || c.Weights.DefaultWeight > 100 {
		errs = append(errs, fmt.Errorf("DEFAULT_KR_WEIGHT %.1f out of range", c.Weights.DefaultWeight))
	}
	return errors.Join(errs...)
}
