package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var AppEnv Config

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	MongoURI string
	DBName   string

	JWTSecret      string
	AccessTokenTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration

	RazorpayKeyID     string
	RazorpayKeySecret string
	PaymentCurrency   string

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFrom      string
	OperatorEmail string
	StoreName     string

	WhatsAppNumber string

	RabbitMQURL           string
	NotifyExchange        string
	NotifyQueue           string
	NotifyDeadLetterQueue string
	NotifyWorkers         int
	NotifyBuffer          int

	StrictTotals   bool
	TotalTolerance float64
}

// Load reads .env (when present) and the process environment into AppEnv.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv resolves the configuration from the environment without touching
// AppEnv.
func FromEnv() Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return Config{
		Port:     v.GetString("PORT"),
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),

		MongoURI: secret(v, "MONGO_URI"),
		DBName:   v.GetString("DB_NAME"),

		JWTSecret:      secret(v, "JWT_SECRET"),
		AccessTokenTTL: durationEnv(v, "ACCESS_TOKEN_TTL", 60, time.Minute),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: secret(v, "REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		CartTTL:       durationEnv(v, "CART_TTL", 72, time.Hour),

		RazorpayKeyID:     v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: secret(v, "RAZORPAY_KEY_SECRET"),
		PaymentCurrency:   strings.ToUpper(v.GetString("PAYMENT_CURRENCY")),

		SMTPHost:      v.GetString("SMTP_HOST"),
		SMTPPort:      v.GetInt("SMTP_PORT"),
		SMTPUsername:  v.GetString("SMTP_USERNAME"),
		SMTPPassword:  secret(v, "SMTP_PASSWORD"),
		MailFrom:      v.GetString("MAIL_FROM"),
		OperatorEmail: v.GetString("OPERATOR_EMAIL"),
		StoreName:     v.GetString("STORE_NAME"),

		WhatsAppNumber: v.GetString("WHATSAPP_NUMBER"),

		RabbitMQURL:           secret(v, "RABBITMQ_URL"),
		NotifyExchange:        v.GetString("NOTIFY_EXCHANGE"),
		NotifyQueue:           v.GetString("NOTIFY_QUEUE"),
		NotifyDeadLetterQueue: v.GetString("NOTIFY_DEAD_LETTER_QUEUE"),
		NotifyWorkers:         v.GetInt("NOTIFY_WORKERS"),
		NotifyBuffer:          v.GetInt("NOTIFY_BUFFER"),

		StrictTotals:   v.GetBool("STRICT_TOTALS"),
		TotalTolerance: v.GetFloat64("TOTAL_TOLERANCE"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_NAME", "storefront")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("STORE_NAME", "La Casa")
	v.SetDefault("NOTIFY_EXCHANGE", "notifications_exchange")
	v.SetDefault("NOTIFY_QUEUE", "notifications_queue")
	v.SetDefault("NOTIFY_DEAD_LETTER_QUEUE", "notifications_dead_letter")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER", 100)
	v.SetDefault("STRICT_TOTALS", false)
	v.SetDefault("TOTAL_TOLERANCE", 1.0)
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"MONGO_URI", c.MongoURI},
		{"JWT_SECRET", c.JWTSecret},
		{"RAZORPAY_KEY_ID", c.RazorpayKeyID},
		{"RAZORPAY_KEY_SECRET", c.RazorpayKeySecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	if c.TotalTolerance < 0 {
		return fmt.Errorf("TOTAL_TOLERANCE must be zero or greater")
	}
	return nil
}

// MailEnabled reports whether enough SMTP settings exist to send mail.
func (c Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}

// secret prefers the contents of <key>_FILE over the plain variable.
func secret(v *viper.Viper, key string) string {
	if path := strings.TrimSpace(v.GetString(key + "_FILE")); path != "" {
		if content, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(content))
		}
		log.Printf("%s_FILE could not be read, falling back to %s", key, key)
	}
	return strings.TrimSpace(v.GetString(key))
}

func durationEnv(v *viper.Viper, key string, defaultValue int, unit time.Duration) time.Duration {
	if n := v.GetInt(key); n > 0 {
		return time.Duration(n) * unit
	}
	return time.Duration(defaultValue) * unit
}
