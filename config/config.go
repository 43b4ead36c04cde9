// Package config loads service configuration from the environment, with a
// .env file for local development.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string

	PaystackSecretKey string
	FrontendURL       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	KafkaBrokers []string
	KafkaTopic   string

	PostmarkAPIToken string
	EmailSender      string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; deployed environments set real env vars.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "freshmart")
	v.SetDefault("REDIS_CHANNEL", "orders:events")
	v.SetDefault("KAFKA_TOPIC", "order-events")

	cfg := &Config{
		Port:              v.GetString("PORT"),
		MongoURI:          v.GetString("MONGO_URI"),
		MongoDatabase:     v.GetString("MONGO_DATABASE"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		PaystackSecretKey: v.GetString("PAYSTACK_SECRET_KEY"),
		FrontendURL:       v.GetString("FRONTEND_URL"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		RedisChannel:      v.GetString("REDIS_CHANNEL"),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),
		PostmarkAPIToken:  v.GetString("POSTMARK_API_TOKEN"),
		EmailSender:       v.GetString("EMAIL_SENDER"),
	}

	if brokers := v.GetString("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg, nil
}
