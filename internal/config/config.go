// Package config loads server configuration from the environment and
// constructs the external clients (Kafka, Redis) from it.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// Config is everything the server needs to start. Empty KafkaBrokers or
// RedisAddr disables the corresponding integration.
type Config struct {
	HTTPAddr     string
	DBPath       string
	FeeBps       int64
	FeeRecipient string
	KafkaBrokers string
	KafkaTopic   string
	RedisAddr    string
	JWTSecret    string
}

// Load reads the configuration from the environment, falling back to
// development defaults.
func Load() Config {
	return Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		DBPath:       getEnv("DB_PATH", "./data/ledger.db"),
		FeeBps:       getEnvInt64("FEE_BPS", 50),
		FeeRecipient: getEnv("FEE_RECIPIENT", "treasury"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ledger.events"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
	}
}

// NewKafkaWriter builds a writer for the event topic. brokers is a
// comma-separated list.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// NewRedisClient builds the client backing the Idempotent-Key guard.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
