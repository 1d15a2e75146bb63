// Package config loads the provisioning service settings from an optional
// YAML file, a .env file and the process environment, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gartstein/tenantprov/internal/provisioning/db"
	"github.com/gartstein/tenantprov/internal/provisioning/notify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultConfigFile = "internal/provisioning/config/config.yaml"

// Mail transports.
const (
	MailKafka = "kafka"
	MailSMTP  = "smtp"
	MailLog   = "log"
)

type Config struct {
	GRPCPort int `validate:"min=1,max=65535"`
	HTTPPort int `validate:"min=1,max=65535"`

	DBDriver         string `validate:"oneof=postgres sqlite"`
	DBHost           string
	DBPort           int
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	DatabaseURL      string
	DBMaxConns       int
	DBConnectTimeout time.Duration

	JWTSecret string `validate:"required"`

	KafkaBrokers  []string
	MailTopic     string
	MailTransport string `validate:"oneof=kafka smtp log"`
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string

	// MailTopicRetention bounds how long queued welcome mails, which carry
	// plaintext credentials, stay on the topic.
	MailTopicRetention time.Duration `validate:"gt=0"`

	TxTimeout         time.Duration `validate:"gt=0"`
	DefaultModule     string        `validate:"required"`
	DefaultModuleCode string        `validate:"required,alpha,min=2,max=3"`
	ModulesFile       string
	BcryptCost        int

	NotifyQueueSize   int
	NotifySendTimeout time.Duration
	NotifyMaxRetries  uint64
	LoginURL          string

	RateLimitRPS   float64
	RateLimitBurst int

	RelayGroupID    string
	TokenIssuerPort int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GRPC_PORT", 50051)
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_DRIVER", db.DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "tenantprov")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_CONNECT_TIMEOUT", "30s")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	v.SetDefault("MAIL_TOPIC", "tenant-mail")
	v.SetDefault("MAIL_TOPIC_RETENTION", "24h")
	v.SetDefault("MAIL_TRANSPORT", MailLog)
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 25)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "noreply@localhost")
	v.SetDefault("TX_TIMEOUT", "10s")
	v.SetDefault("DEFAULT_MODULE", "Mobile Detailing")
	v.SetDefault("DEFAULT_MODULE_CODE", "MD")
	v.SetDefault("MODULES_FILE", "internal/provisioning/config/modules.yaml")
	v.SetDefault("BCRYPT_COST", 0)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 1000)
	v.SetDefault("NOTIFY_SEND_TIMEOUT", "10s")
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("LOGIN_URL", "")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RELAY_GROUP_ID", "tenant-mail-relay")
	v.SetDefault("TOKEN_ISSUER_PORT", 8081)
}

// Load reads the file named by CONFIG_FILE (DefaultConfigFile when unset).
// A missing file is not an error; every key has a default and can be set
// through the environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = DefaultConfigFile
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		GRPCPort:           v.GetInt("GRPC_PORT"),
		HTTPPort:           v.GetInt("HTTP_PORT"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             v.GetInt("DB_PORT"),
		DBUser:             v.GetString("DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBName:             v.GetString("DB_NAME"),
		DBSSLMode:          v.GetString("DB_SSLMODE"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		DBMaxConns:         v.GetInt("DB_MAX_CONNS"),
		DBConnectTimeout:   v.GetDuration("DB_CONNECT_TIMEOUT"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		KafkaBrokers:       splitList(v.GetStringSlice("KAFKA_BROKERS")),
		MailTopic:          v.GetString("MAIL_TOPIC"),
		MailTopicRetention: v.GetDuration("MAIL_TOPIC_RETENTION"),
		MailTransport:      strings.ToLower(v.GetString("MAIL_TRANSPORT")),
		SMTPHost:           v.GetString("SMTP_HOST"),
		SMTPPort:           v.GetInt("SMTP_PORT"),
		SMTPUsername:       v.GetString("SMTP_USERNAME"),
		SMTPPassword:       v.GetString("SMTP_PASSWORD"),
		SMTPFrom:           v.GetString("SMTP_FROM"),
		TxTimeout:          v.GetDuration("TX_TIMEOUT"),
		DefaultModule:      v.GetString("DEFAULT_MODULE"),
		DefaultModuleCode:  strings.ToUpper(v.GetString("DEFAULT_MODULE_CODE")),
		ModulesFile:        v.GetString("MODULES_FILE"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		NotifyQueueSize:    v.GetInt("NOTIFY_QUEUE_SIZE"),
		NotifySendTimeout:  v.GetDuration("NOTIFY_SEND_TIMEOUT"),
		NotifyMaxRetries:   v.GetUint64("NOTIFY_MAX_RETRIES"),
		LoginURL:           v.GetString("LOGIN_URL"),
		RateLimitRPS:       v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),
		RelayGroupID:       v.GetString("RELAY_GROUP_ID"),
		TokenIssuerPort:    v.GetInt("TOKEN_ISSUER_PORT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("invalid config: %s failed %q", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// splitList accepts both YAML lists and a comma separated environment value.
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

func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:       c.DBDriver,
		Host:         c.DBHost,
		Port:         c.DBPort,
		User:         c.DBUser,
		Password:     c.DBPassword,
		DBName:       c.DBName,
		SSLMode:      c.DBSSLMode,
		DSN:          c.DatabaseURL,
		MaxOpenConns: c.DBMaxConns,
		LogLevel:     gormlogger.Warn,
	}
}

func (c *Config) NotifyOptions() notify.Options {
	return notify.Options{
		QueueSize:   c.NotifyQueueSize,
		SendTimeout: c.NotifySendTimeout,
		MaxRetries:  c.NotifyMaxRetries,
		LoginURL:    c.LoginURL,
	}
}

func (c *Config) SMTP() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}
}
