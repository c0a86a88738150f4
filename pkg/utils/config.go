package utils

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Broker      BrokerConfig
	Email       EmailConfig
	Session     SessionConfig
	Reservation ReservationConfig
	RateLimit   RateLimitConfig
	Scheduler   SchedulerConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BrokerConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type SessionConfig struct {
	ExpiryHours int
}

type ReservationConfig struct {
	MaxAttempts int
	CacheTTL    time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type SchedulerConfig struct {
	SessionSweepCron string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	viper.SetDefault("APP_NAME", "movie-reservation")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("AMQP_EXCHANGE", "reservations")
	viper.SetDefault("AMQP_QUEUE", "reservation.notifications")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("RESERVATION_MAX_ATTEMPTS", 3)
	viper.SetDefault("AVAILABILITY_CACHE_TTL", "5s")
	viper.SetDefault("RATE_LIMIT_RPS", 2)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("SESSION_SWEEP_CRON", "0 * * * *")

	// .env is optional, plain environment variables are enough in containers
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Broker: BrokerConfig{
			URL:      viper.GetString("AMQP_URL"),
			Exchange: viper.GetString("AMQP_EXCHANGE"),
			Queue:    viper.GetString("AMQP_QUEUE"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Reservation: ReservationConfig{
			MaxAttempts: viper.GetInt("RESERVATION_MAX_ATTEMPTS"),
			CacheTTL:    viper.GetDuration("AVAILABILITY_CACHE_TTL"),
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
		Scheduler: SchedulerConfig{
			SessionSweepCron: viper.GetString("SESSION_SWEEP_CRON"),
		},
	}

	if config.Reservation.MaxAttempts < 1 {
		config.Reservation.MaxAttempts = 1
	}

	return config, nil
}
