package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	Port       string
	RedisAddr  string
	RedisPass  string
	// Yappy (single-country payment provider, Panama)
	YappyBaseURL    string
	YappyMarketCode string
	// Mercado Pago (multi-country payment provider); the platform token is
	// app-wide, brokers only store their collector id
	MPAccessToken   string
	MPWebhookSecret string
	// Callback / redirect surface
	CallbackBaseURL string
	FrontendBaseURL string
	// WhatsApp Cloud API (messaging channel)
	WhatsAppBaseURL string
	WhatsAppToken   string
	WhatsAppPhoneID string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return &Config{
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		Port:            os.Getenv("PORT"),
		RedisAddr:       getenvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		YappyBaseURL:    getenvOrDefault("YAPPY_BASE_URL", "https://api.yappy.cloud"),
		YappyMarketCode: getenvOrDefault("YAPPY_MARKET_CODE", "PA"),
		MPAccessToken:   os.Getenv("MP_ACCESS_TOKEN"),
		MPWebhookSecret: os.Getenv("MP_WEBHOOK_SECRET"),
		CallbackBaseURL: getenvOrDefault("CALLBACK_BASE_URL", "https://api.corredorflow.com"),
		FrontendBaseURL: getenvOrDefault("FRONTEND_BASE_URL", "https://app.corredorflow.com"),
		WhatsAppBaseURL: getenvOrDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppToken:   os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppPhoneID: os.Getenv("WHATSAPP_PHONE_ID"),
	}
}

// getenvOrDefault returns the environment variable value if set, otherwise returns def
func getenvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
