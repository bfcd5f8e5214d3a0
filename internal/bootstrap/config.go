package bootstrap

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	JWTSecret string
	TokenTTL  time.Duration

	StunURL      string
	TurnURL      string
	TurnUsername string
	TurnPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ShutdownGrace time.Duration
	MaxViolations int
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":4000"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("WS_TOKEN_TTL", 5*time.Minute),

		StunURL:      getEnv("STUN_URL", "stun:stun.l.google.com:19302"),
		TurnURL:      getEnv("TURN_URL", ""),
		TurnUsername: getEnv("TURN_USERNAME", ""),
		TurnPassword: getEnv("TURN_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
		MaxViolations: getEnvInt("MAX_PROTOCOL_VIOLATIONS", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
