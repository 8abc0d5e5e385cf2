package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppPort string

	MongoURI string
	MongoDB  string

	IdPSecretKey  string
	IdPAPIBaseURL string
	IdPIssuerURL  string

	WebhookSecret string

	RedisAddr     string
	RedisPassword string

	SyncPageSize int
}

func Load() Config {

	cfg := Config{

		AppPort: getenv("APP_PORT", "8080"),

		MongoURI: os.Getenv("MONGODB_URI"),
		MongoDB:  getenv("MONGODB_DB", "easysched_dev_suv"),

		IdPSecretKey:  os.Getenv("CLERK_SECRET_KEY"),
		IdPAPIBaseURL: getenv("CLERK_API_URL", "https://api.clerk.com/v1"),
		IdPIssuerURL:  os.Getenv("CLERK_ISSUER_URL"),

		WebhookSecret: os.Getenv("CLERK_WEBHOOK_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SyncPageSize: getenvInt("SYNC_PAGE_SIZE", 100),
	}

	// historical alias for the webhook secret
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = os.Getenv("SVIX_SECRET")
	}

	return cfg

}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
