package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string `validate:"required"`
	Port            string `validate:"required,numeric"`
	User            string `validate:"required"`
	Password        string
	Name            string        `validate:"required"`
	SSLMode         string        `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `validate:"gte=1"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gt=0"`
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int `validate:"gte=0"`
}

type ServerConfig struct {
	Port         string        `validate:"required,numeric"`
	JWTSecretKey string        `validate:"required,min=16"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
}

// AuditSettings controls a single audit run.
type AuditSettings struct {
	Timeout        time.Duration `validate:"gt=0"`
	ReportCacheTTL time.Duration `validate:"gte=0"`
	Concurrent     bool
	Forensic       bool
}

type AuditConfig struct {
	Database DBConfig
	Redis    RedisConfig
	Server   ServerConfig
	Audit    AuditSettings
}

// Init binds environment variables and reads the optional .env file.
func Init() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	viper.BindEnv("audit.timeout", "AUDIT_TIMEOUT")
	viper.BindEnv("audit.report_cache_ttl", "AUDIT_REPORT_CACHE_TTL")
	viper.BindEnv("audit.concurrent", "AUDIT_CONCURRENT")
	viper.BindEnv("audit.forensic", "AUDIT_FORENSIC")

	setDefaults()

	// A missing .env is fine, the environment alone is enough.
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "gratipay")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 5)
	viper.SetDefault("database.max_idle_conns", 2)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("jwt.secret_key", "")

	viper.SetDefault("audit.timeout", 5*time.Minute)
	viper.SetDefault("audit.report_cache_ttl", 24*time.Hour)
	viper.SetDefault("audit.concurrent", false)
	viper.SetDefault("audit.forensic", false)
}

// Load builds the configuration from viper. Settings only used when serving
// over HTTP are not validated here, see ValidateServer.
func Load() (*AuditConfig, error) {
	setDefaults()

	cfg := &AuditConfig{
		Database: DBConfig{
			Host:            viper.GetString("database.host"),
			Port:            viper.GetString("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.ssl_mode"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			JWTSecretKey: viper.GetString("jwt.secret_key"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
		},
		Audit: AuditSettings{
			Timeout:        viper.GetDuration("audit.timeout"),
			ReportCacheTTL: viper.GetDuration("audit.report_cache_ttl"),
			Concurrent:     viper.GetBool("audit.concurrent"),
			Forensic:       viper.GetBool("audit.forensic"),
		},
	}

	validate := validator.New()
	if err := validate.Struct(cfg.Database); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if err := validate.Struct(cfg.Redis); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}
	if err := validate.Struct(cfg.Audit); err != nil {
		return nil, fmt.Errorf("invalid audit config: %w", err)
	}
	return cfg, nil
}

// ValidateServer checks the settings needed to serve the operator API.
func (c *AuditConfig) ValidateServer() error {
	if err := validator.New().Struct(c.Server); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	return nil
}

// DSN returns the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
