package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Database struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	Path     string
	Retries  int
}

type Server struct {
	Port         string
	DB           Database
	RedisURL     string
	RedisChannel string
}

type Gateway struct {
	Port               string
	ServerURL          string
	ServerTimeout      time.Duration
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSOrigins        []string
}

// LoadEnvFile loads .env if present. A missing file is not an error.
func LoadEnvFile() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}
}

func LoadServer() Server {
	return Server{
		Port: getEnv("SERVER_PORT", "9090"),
		DB: Database{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "shareit"),
			Password: getEnv("DB_PASSWORD", "shareit"),
			Name:     getEnv("DB_NAME", "shareit"),
			Path:     getEnv("DB_PATH", "shareit.db"),
			Retries:  getInt("DB_CONNECT_RETRIES", 10),
		},
		RedisURL:     os.Getenv("REDIS_URL"),
		RedisChannel: getEnv("REDIS_CHANNEL", "shareit:bookings"),
	}
}

func LoadGateway() Gateway {
	return Gateway{
		Port:               getEnv("GATEWAY_PORT", "8080"),
		ServerURL:          strings.TrimRight(getEnv("SHAREIT_SERVER_URL", "http://localhost:9090"), "/"),
		ServerTimeout:      getDuration("SERVER_TIMEOUT", 10*time.Second),
		BreakerMaxFailures: getInt("BREAKER_MAX_FAILURES", 5),
		BreakerTimeout:     getDuration("BREAKER_TIMEOUT", 30*time.Second),
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 40),
		CORSOrigins:        strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer in env, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("invalid number in env, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration in env, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}
