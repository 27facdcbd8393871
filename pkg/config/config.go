package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "supersecretjwtkey"

type Config struct {
	Port     string
	Env      string // development|production
	Log      string // dev|prod
	LogLevel string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	PostgresConnStr  string
	RedisURL         string
	ElasticsearchURL string

	FirebaseCredentialsPath string

	JWTSecret        string
	JWTTTL           time.Duration
	TrendingCacheTTL time.Duration
	CORSOrigins      []string
}

// Load reads .env when present, then the environment, applying defaults
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      strings.ToLower(getEnv("ENV", "development")),
		Log:      strings.ToLower(getEnv("LOG", "prod")),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDB:           getEnv("MONGO_DB", "blogsphere"),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),

		PostgresConnStr:  getEnv("POSTGRES_CONN_STR", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		ElasticsearchURL: getEnv("ELASTICSEARCH_URL", ""),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),

		JWTSecret:        getEnv("JWT_SECRET", defaultJWTSecret),
		JWTTTL:           getDuration("JWT_TTL", time.Hour),
		TrendingCacheTTL: getDuration("TRENDING_CACHE_TTL", 5*time.Minute),
		CORSOrigins:      getList("CORS_ORIGINS", []string{"*"}),
	}
}

// Validate returns warnings for optional pieces that are missing and an error when the
// service cannot start
func (c *Config) Validate() (warnings []string, err error) {
	if c.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable not set")
	}

	if c.JWTSecret == defaultJWTSecret {
		if c.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		warnings = append(warnings, "JWT_SECRET is not set, using the development default")
	}
	if c.PostgresConnStr == "" {
		warnings = append(warnings, "POSTGRES_CONN_STR is not set, notifications are disabled")
	}
	if c.RedisURL == "" {
		warnings = append(warnings, "REDIS_URL is not set, trending results are not cached and rate limits are per instance")
	}
	if c.ElasticsearchURL == "" {
		warnings = append(warnings, "ELASTICSEARCH_URL is not set, search falls back to MongoDB")
	}
	if c.FirebaseCredentialsPath == "" {
		warnings = append(warnings, "FIREBASE_CREDENTIALS_PATH is not set, Google sign-in is disabled")
	}
	return warnings, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
