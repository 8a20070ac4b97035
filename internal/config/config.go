package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int

	MaxPlayers          int
	DefaultRoundSeconds int
	MinRoundSeconds     int
	MaxRoundSeconds     int

	AdminUsername      string
	AdminPassword      string
	AdminSecret        string
	AdminTokenTTLHours int
	SessionTTLHours    int

	BroadcastDriver string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	PusherAppID     string
	PusherKey       string
	PusherSecret    string
	PusherCluster   string

	PublicURL              string
	IdleGameHours          int
	ArchivedRetentionHours int
	SweepSchedule          string
	CORSOrigins            []string
}

const (
	DriverLocal  = "local"
	DriverRedis  = "redis"
	DriverPusher = "pusher"
)

func Default() Config {
	return Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		MaxPlayers:               8,
		DefaultRoundSeconds:      60,
		MinRoundSeconds:          15,
		MaxRoundSeconds:          600,
		AdminUsername:            "admin",
		AdminTokenTTLHours:       168,
		SessionTTLHours:          24,
		BroadcastDriver:          DriverLocal,
		RedisAddr:                "localhost:6379",
		PublicURL:                "http://localhost:8080",
		IdleGameHours:            24,
		ArchivedRetentionHours:   48,
		SweepSchedule:            "@hourly",
	}
}

func Load() Config {
	cfg := Default()
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	positiveInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	positiveInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	positiveInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	positiveInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)

	positiveInt("MAX_PLAYERS", &cfg.MaxPlayers)
	positiveInt("DEFAULT_ROUND_SECONDS", &cfg.DefaultRoundSeconds)
	positiveInt("MIN_ROUND_SECONDS", &cfg.MinRoundSeconds)
	positiveInt("MAX_ROUND_SECONDS", &cfg.MaxRoundSeconds)

	stringVar("ADMIN_USERNAME", &cfg.AdminUsername)
	stringVar("ADMIN_PASSWORD", &cfg.AdminPassword)
	stringVar("ADMIN_SECRET", &cfg.AdminSecret)
	positiveInt("ADMIN_TOKEN_TTL_HOURS", &cfg.AdminTokenTTLHours)
	positiveInt("SESSION_TTL_HOURS", &cfg.SessionTTLHours)

	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("BROADCAST_DRIVER"))); raw != "" {
		cfg.BroadcastDriver = raw
	}
	stringVar("REDIS_ADDR", &cfg.RedisAddr)
	stringVar("REDIS_PASSWORD", &cfg.RedisPassword)
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	stringVar("PUSHER_APP_ID", &cfg.PusherAppID)
	stringVar("PUSHER_KEY", &cfg.PusherKey)
	stringVar("PUSHER_SECRET", &cfg.PusherSecret)
	stringVar("PUSHER_CLUSTER", &cfg.PusherCluster)

	if raw := os.Getenv("PUBLIC_URL"); raw != "" {
		cfg.PublicURL = strings.TrimRight(raw, "/")
	}
	positiveInt("IDLE_GAME_HOURS", &cfg.IdleGameHours)
	positiveInt("ARCHIVED_RETENTION_HOURS", &cfg.ArchivedRetentionHours)
	stringVar("SWEEP_SCHEDULE", &cfg.SweepSchedule)
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	return cfg
}

func (c Config) AdminTokenTTL() time.Duration {
	return time.Duration(c.AdminTokenTTLHours) * time.Hour
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) IdleGameAfter() time.Duration {
	return time.Duration(c.IdleGameHours) * time.Hour
}

func (c Config) ArchivedRetention() time.Duration {
	return time.Duration(c.ArchivedRetentionHours) * time.Hour
}

func positiveInt(key string, dest *int) {
	if raw := os.Getenv(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			*dest = value
		}
	}
}

func stringVar(key string, dest *string) {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		*dest = raw
	}
}
