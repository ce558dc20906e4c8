package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string

	JWTSecret string
	JWTExpiry time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OrgEmailDomain     string
	NotificationLimit  int
	DueSoonWindow      time.Duration
	SubscriptionBuffer int
	ResubscribeDelay   time.Duration

	WorkspaceIdleTimeout time.Duration
	JanitorInterval      time.Duration

	RunMigrations bool

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("⚠️  No .env file found, using system environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "pulseflow"),
		DBPassword: getEnv("DB_PASSWORD", "pulseflow"),
		DBName:     getEnv("DB_NAME", "pulseflow"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ServerPort: getEnv("SERVER_PORT", "8080"),

		JWTSecret: getEnv("JWT_SECRET", "supersecretkey"),
		JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OrgEmailDomain:     getEnv("ORG_EMAIL_DOMAIN", "@pulseflow.com"),
		NotificationLimit:  getEnvInt("NOTIFICATION_LIMIT", 50),
		DueSoonWindow:      getEnvDuration("DUE_SOON_WINDOW", 24*time.Hour),
		SubscriptionBuffer: getEnvInt("SUBSCRIPTION_BUFFER", 64),
		ResubscribeDelay:   getEnvDuration("RESUBSCRIBE_DELAY", time.Second),

		WorkspaceIdleTimeout: getEnvDuration("WORKSPACE_IDLE_TIMEOUT", 30*time.Minute),
		JanitorInterval:      getEnvDuration("WORKSPACE_JANITOR_INTERVAL", time.Minute),

		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// DSN is the libpq-style connection string gorm's postgres driver takes.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// MigrationURL is the same database in the form golang-migrate expects.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.WithField("key", key).Warnf("⚠️  %q is not a number, using %d", raw, defaultVal)
		return defaultVal
	}
	return v
}

func getEnvBool(key string, defaultVal bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.WithField("key", key).Warnf("⚠️  %q is not a boolean, using %t", raw, defaultVal)
		return defaultVal
	}
	return v
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.WithField("key", key).Warnf("⚠️  %q is not a duration, using %s", raw, defaultVal)
		return defaultVal
	}
	return v
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
