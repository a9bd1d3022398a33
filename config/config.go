package config

import (
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// Firebase Config
	FirebaseCredentials string
	StorageBucket       string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// App Settings
	VolunteerRadiusMeters int
	OfflineSyncInterval   int // seconds
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, reading configuration from environment")
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/campusguard"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),

		// Firebase
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		StorageBucket:       getEnv("FIREBASE_STORAGE_BUCKET", ""),

		// Twilio
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		// App Settings
		VolunteerRadiusMeters: getEnvAsInt("VOLUNTEER_RADIUS_METERS", 1000),
		OfflineSyncInterval:   getEnvAsInt("OFFLINE_SYNC_INTERVAL_SECONDS", 30),
	}
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	return redis.NewClient(opt)
}

// SetupLogging configures logrus for the current environment.
func SetupLogging(cfg *Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
