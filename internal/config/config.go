package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Port       int
	DataDir    string
	UploadsDir string

	JWTSecret           string
	JWTAccessTTLMinutes int

	CORSOrigins []string

	OTelEndpoint string

	SeedAdminPassword    string
	SeedEmployeePassword string

	ReminderIntervalSeconds int
	ReminderWindowHours     int
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		DataDir:    getEnv("DATA_DIR", "data"),
		UploadsDir: getEnv("UPLOADS_DIR", "uploads"),

		JWTSecret:           getEnv("JWT_SECRET", "dev-only-secret"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		CORSOrigins: getEnvList("CORS_ORIGINS", "http://localhost:5173"),

		OTelEndpoint: getEnv("OTEL_ENDPOINT", ""),

		SeedAdminPassword:    getEnv("SEED_ADMIN_PASSWORD", "admin123"),
		SeedEmployeePassword: getEnv("SEED_EMPLOYEE_PASSWORD", "employee123"),

		ReminderIntervalSeconds: getEnvInt("REMINDER_INTERVAL_SECONDS", 300),
		ReminderWindowHours:     getEnvInt("REMINDER_WINDOW_HOURS", 24),
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
