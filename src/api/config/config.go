package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	MySQLDSN        string
	RedisURL        string
	JWTSecret       string
	Port            string
	MediaBucket     string
	MediaPublicURL  string
	RateLimitCount  int
	RateLimitWindow int // seconds
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	_ = godotenv.Load()

	rate, _ := strconv.Atoi(getenv("RATE_LIMIT_COUNT", "10"))
	window, _ := strconv.Atoi(getenv("RATE_LIMIT_WINDOW", "60"))

	return Config{
		MySQLDSN:        getenv("MYSQL_DSN", "openballot:openballot@tcp(127.0.0.1:3306)/elections"),
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:       getenv("JWT_SECRET", ""),
		Port:            getenv("PORT", "8080"),
		MediaBucket:     os.Getenv("MEDIA_BUCKET"), // empty disables media uploads
		MediaPublicURL:  getenv("MEDIA_PUBLIC_URL", "https://storage.googleapis.com"),
		RateLimitCount:  rate,
		RateLimitWindow: window,
	}
}
