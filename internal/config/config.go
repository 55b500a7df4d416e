package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log             LogConfig       `mapstructure:"log"`
	MeasurementHTTP HTTPConfig      `mapstructure:"measurement_http"`
	ProfileHTTP     HTTPConfig      `mapstructure:"profile_http"`
	MeasurementDB   DatabaseConfig  `mapstructure:"measurement_db"`
	ProfileDB       DatabaseConfig  `mapstructure:"profile_db"`
	Redis           RedisConfig     `mapstructure:"redis"`
	RabbitMQ        RabbitMQConfig  `mapstructure:"rabbitmq"`
	Outbox          OutboxConfig    `mapstructure:"outbox"`
	Saga            SagaConfig      `mapstructure:"saga"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Notifier        NotifierConfig  `mapstructure:"notifier"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type RabbitMQConfig struct {
	URL             string        `mapstructure:"url"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	ConnectBackoff  time.Duration `mapstructure:"connect_backoff"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type SagaConfig struct {
	MessageTTL time.Duration `mapstructure:"message_ttl"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type NotifierConfig struct {
	DeliveryDelay time.Duration `mapstructure:"delivery_delay"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (GROWTH_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (GROWTH_*)
	v.SetEnvPrefix("GROWTH")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
