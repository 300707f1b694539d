package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Economy     EconomyConfig
	Challenges  ChallengesConfig
	Wheel       WheelConfig
	Gifts       GiftsConfig
	Leaderboard LeaderboardConfig
	Reconcile   ReconcileConfig
	Statements  StatementsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EconomyConfig tunes the level curve and snapshot caching.
type EconomyConfig struct {
	BaseJump         int
	DifficultyPct    float64
	MaxLevel         int
	SnapshotCacheTTL time.Duration
}

// ChallengesConfig supplies tier default points for challenge awards.
type ChallengesConfig struct {
	TierBronzePoints int
	TierSilverPoints int
	TierGoldPoints   int
}

// WheelConfig gates the prize wheel endpoints.
type WheelConfig struct {
	Enabled bool
}

// GiftsConfig gates gift opening endpoints.
type GiftsConfig struct {
	Enabled bool
}

// LeaderboardConfig governs the Redis lifetime-points leaderboard.
type LeaderboardConfig struct {
	Enabled bool
	Size    int
}

// ReconcileConfig controls the periodic recompute sweep.
type ReconcileConfig struct {
	Enabled   bool
	Interval  time.Duration
	Lookback  time.Duration
	BatchSize int
}

// StatementsConfig gates ledger statement exports.
type StatementsConfig struct {
	Enabled bool
	MaxRows int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Economy = EconomyConfig{
		BaseJump:         v.GetInt("ECONOMY_BASE_JUMP"),
		DifficultyPct:    v.GetFloat64("ECONOMY_DIFFICULTY_PCT"),
		MaxLevel:         v.GetInt("ECONOMY_MAX_LEVEL"),
		SnapshotCacheTTL: parseDuration(v.GetString("ECONOMY_SNAPSHOT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Challenges = ChallengesConfig{
		TierBronzePoints: v.GetInt("CHALLENGE_TIER_BRONZE_POINTS"),
		TierSilverPoints: v.GetInt("CHALLENGE_TIER_SILVER_POINTS"),
		TierGoldPoints:   v.GetInt("CHALLENGE_TIER_GOLD_POINTS"),
	}

	cfg.Wheel = WheelConfig{Enabled: v.GetBool("ENABLE_PRIZE_WHEEL")}
	cfg.Gifts = GiftsConfig{Enabled: v.GetBool("ENABLE_GIFTS")}

	cfg.Leaderboard = LeaderboardConfig{
		Enabled: v.GetBool("ENABLE_LEADERBOARD"),
		Size:    v.GetInt("LEADERBOARD_SIZE"),
	}

	cfg.Reconcile = ReconcileConfig{
		Enabled:   v.GetBool("ENABLE_RECONCILE_SWEEP"),
		Interval:  parseDuration(v.GetString("RECONCILE_INTERVAL"), time.Hour),
		Lookback:  parseDuration(v.GetString("RECONCILE_LOOKBACK"), 2*time.Hour),
		BatchSize: v.GetInt("RECONCILE_BATCH_SIZE"),
	}

	cfg.Statements = StatementsConfig{
		Enabled: v.GetBool("ENABLE_STATEMENTS"),
		MaxRows: v.GetInt("STATEMENTS_MAX_ROWS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "club_points")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "points-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ECONOMY_BASE_JUMP", 50)
	v.SetDefault("ECONOMY_DIFFICULTY_PCT", 8)
	v.SetDefault("ECONOMY_MAX_LEVEL", 99)
	v.SetDefault("ECONOMY_SNAPSHOT_CACHE_TTL", "5m")

	v.SetDefault("CHALLENGE_TIER_BRONZE_POINTS", 10)
	v.SetDefault("CHALLENGE_TIER_SILVER_POINTS", 25)
	v.SetDefault("CHALLENGE_TIER_GOLD_POINTS", 50)

	v.SetDefault("ENABLE_PRIZE_WHEEL", true)
	v.SetDefault("ENABLE_GIFTS", true)

	v.SetDefault("ENABLE_LEADERBOARD", false)
	v.SetDefault("LEADERBOARD_SIZE", 100)

	v.SetDefault("ENABLE_RECONCILE_SWEEP", false)
	v.SetDefault("RECONCILE_INTERVAL", "1h")
	v.SetDefault("RECONCILE_LOOKBACK", "2h")
	v.SetDefault("RECONCILE_BATCH_SIZE", 200)

	v.SetDefault("ENABLE_STATEMENTS", true)
	v.SetDefault("STATEMENTS_MAX_ROWS", 1000)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
