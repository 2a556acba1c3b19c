package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payment  PaymentConfig
	Billing  BillingConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type PaymentConfig struct {
	// DefaultSecret is the platform-wide signing secret used when a
	// restaurant has no active gateway credential.
	DefaultSecret string
	GatewayURL    string
}

type BillingConfig struct {
	PeriodDays int
	GraceDays  int
}

type JWTConfig struct {
	Secret string
}

// Load reads configuration from the environment, with a .env file as
// fallback for local development.
func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8082"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host: getEnv("DB_HOST", "localhost"),
			Port: getEnv("DB_PORT", "3306"),
			User: getEnv("DB_USER", "root"),
			Pass: getEnv("DB_PASS", ""),
			Name: getEnv("DB_NAME", "restaurant-db"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "change-feed"),
			GroupID: getEnv("KAFKA_GROUP_ID", "restaurant-platform"),
		},
		Payment: PaymentConfig{
			DefaultSecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			GatewayURL:    getEnv("RAZORPAY_API_URL", ""),
		},
		Billing: BillingConfig{
			PeriodDays: getEnvInt("BILLING_PERIOD_DAYS", 30),
			GraceDays:  getEnvInt("BILLING_GRACE_DAYS", 7),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
