package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Paystack  PaystackConfig
	Escrow    EscrowConfig
	Reconcile ReconcileConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type PaystackConfig struct {
	SecretKey string
	BaseUrl   string
}

type EscrowConfig struct {
	// FeeRate is the platform's cut of each sale, e.g. 0.03 for 3%.
	FeeRate float64
}

type ReconcileConfig struct {
	VerifyAfterMinutes int
	AbandonAfterHours  int
}

func Load() *Config {
	_ = godotenv.Load()

	feeRate, err := strconv.ParseFloat(getEnv("PLATFORM_FEE_RATE", "0.03"), 64)
	if err != nil {
		feeRate = 0.03
	}
	verifyAfter, _ := strconv.Atoi(getEnv("RECONCILE_VERIFY_AFTER_MINUTES", "30"))
	abandonAfter, _ := strconv.Atoi(getEnv("RECONCILE_ABANDON_AFTER_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			Name:     getEnv("DB_NAME", "escrow"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_URL", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC_ESCROW_EVENTS", "escrow-events"),
		},
		Paystack: PaystackConfig{
			SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			BaseUrl:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		},
		Escrow: EscrowConfig{
			FeeRate: feeRate,
		},
		Reconcile: ReconcileConfig{
			VerifyAfterMinutes: verifyAfter,
			AbandonAfterHours:  abandonAfter,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
