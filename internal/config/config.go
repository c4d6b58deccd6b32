package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Google   GoogleConfig
	Razorpay RazorpayConfig
	Email    EmailConfig
	Quiz     QuizConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string   `validate:"required,numeric"`
	ReadTimeout  int      `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout int      `mapstructure:"write_timeout" validate:"gte=0"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host           string `validate:"required"`
	Port           string `validate:"required"`
	User           string `validate:"required"`
	Password       string
	DBName         string `validate:"required"`
	SSLMode        string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode" validate:"omitempty,oneof=single sentinel cluster"`

	// Addrs: Список адресов Redis (хост:порт). Для 'single' используется первый адрес.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// SessionConfig содержит настройки сессий и токенов
type SessionConfig struct {
	// Secret подписывает токены сессий (HS256)
	Secret string `mapstructure:"secret" validate:"required,min=32"`
	// IdleTimeout - окно бездействия, после которого сессия закрывается
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=1m"`
	// TokenTTL - максимальный срок жизни токена независимо от активности
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gtefield=IdleTimeout"`
	// SweepInterval - как часто IdleDetector проверяет неактивные сессии
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gte=1s"`
}

// GoogleConfig содержит настройки OAuth провайдера
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	// RedirectOrigin - собственный origin приложения, на который провайдер возвращает пользователя
	RedirectOrigin string `mapstructure:"redirect_origin" validate:"required,url"`
}

// RazorpayConfig содержит настройки платежного шлюза
type RazorpayConfig struct {
	KeyID     string        `mapstructure:"key_id" validate:"required"`
	KeySecret string        `mapstructure:"key_secret" validate:"required"`
	Currency  string        `mapstructure:"currency" validate:"len=3"`
	BaseURL   string        `mapstructure:"base_url" validate:"url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// EmailConfig содержит настройки отправки чеков через Resend. Пустой APIKey отключает отправку.
type EmailConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email" validate:"omitempty,email"`
	FromName  string `mapstructure:"from_name"`
}

// QuizConfig содержит настройки каталога и движка прохождения
type QuizConfig struct {
	CatalogCacheTTL     time.Duration `mapstructure:"catalog_cache_ttl" validate:"gte=0"`
	OutboxRetryInterval time.Duration `mapstructure:"outbox_retry_interval" validate:"gte=1s"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")
	vip.SetDefault("session.idle_timeout", 15*time.Minute)
	vip.SetDefault("session.token_ttl", 24*time.Hour)
	vip.SetDefault("session.sweep_interval", 30*time.Second)
	vip.SetDefault("razorpay.currency", "INR")
	vip.SetDefault("razorpay.base_url", "https://api.razorpay.com")
	vip.SetDefault("razorpay.timeout", 10*time.Second)
	vip.SetDefault("email.from_name", "Quiz Rewards")
	vip.SetDefault("quiz.catalog_cache_ttl", time.Minute)
	vip.SetDefault("quiz.outbox_retry_interval", 15*time.Second)
}

func bindEnv(vip *viper.Viper) {
	// Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	// Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Session
	vip.BindEnv("session.secret", "SESSION_SECRET")
	vip.BindEnv("session.idle_timeout", "SESSION_IDLE_TIMEOUT")
	vip.BindEnv("session.token_ttl", "SESSION_TOKEN_TTL")

	// Google OAuth
	vip.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	vip.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	vip.BindEnv("google.redirect_origin", "GOOGLE_REDIRECT_ORIGIN")

	// Razorpay
	vip.BindEnv("razorpay.key_id", "RAZORPAY_KEY_ID")
	vip.BindEnv("razorpay.key_secret", "RAZORPAY_KEY_SECRET")
	vip.BindEnv("razorpay.currency", "RAZORPAY_CURRENCY")

	// Email
	vip.BindEnv("email.api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from_email", "EMAIL_FROM")

	// Server
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allow_origins", "SERVER_ALLOW_ORIGINS")
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, без глобального состояния

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Отсутствие файла не критично: значения могут прийти из окружения
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				log.Infof("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Warnf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS и SERVER_ALLOW_ORIGINS приходят из окружения одной строкой через запятую
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	cfg.Server.AllowOrigins = splitList(cfg.Server.AllowOrigins)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"database_host":   cfg.Database.Host,
		"database_name":   cfg.Database.DBName,
		"redis_mode":      cfg.Redis.Mode,
		"idle_timeout":    cfg.Session.IdleTimeout.String(),
		"razorpay_key_id": cfg.Razorpay.KeyID,
		"email_enabled":   cfg.Email.APIKey != "",
		"server_port":     cfg.Server.Port,
	}).Debug("Конфигурация загружена")

	return &cfg, nil
}

// Validate проверяет обязательные параметры конфигурации
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
