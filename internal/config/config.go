package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

type StoreConfig struct {
	Driver         string `mapstructure:"driver"`
	MongoURI       string `mapstructure:"mongo_uri"`
	Database       string `mapstructure:"database"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RedisConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Addr              string `mapstructure:"addr"`
	Pass              string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	Prefix            string `mapstructure:"prefix"`
	PresenceTTLSecond int    `mapstructure:"presence_ttl_seconds"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type WSConfig struct {
	PingIntervalSeconds  int     `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int     `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64   `mapstructure:"max_message_size_bytes"`
	SendBuffer           int     `mapstructure:"send_buffer"`
	RateLimit            float64 `mapstructure:"rate_limit"`
	RateBurst            int     `mapstructure:"rate_burst"`
	HandlerTimeoutMillis int     `mapstructure:"handler_timeout_ms"`
}

type CallsConfig struct {
	StaleAfterSeconds   int `mapstructure:"stale_after_seconds"`
	ReapIntervalSeconds int `mapstructure:"reap_interval_seconds"`
	HistoryLimit        int `mapstructure:"history_limit"`
}

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Log   LogConfig   `mapstructure:"log"`
	Auth  AuthConfig  `mapstructure:"auth"`
	Store StoreConfig `mapstructure:"store"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	WS    WSConfig    `mapstructure:"ws"`
	Calls CallsConfig `mapstructure:"calls"`

	// derived
	TokenTTL       time.Duration `mapstructure:"-"`
	StoreTimeout   time.Duration `mapstructure:"-"`
	PresenceTTL    time.Duration `mapstructure:"-"`
	PingInterval   time.Duration `mapstructure:"-"`
	WriteDeadline  time.Duration `mapstructure:"-"`
	HandlerTimeout time.Duration `mapstructure:"-"`
	StaleCallAfter time.Duration `mapstructure:"-"`
	ReapInterval   time.Duration `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_hours", 72)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "chat_hub")
	v.SetDefault("store.timeout_seconds", 5)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chathub")
	v.SetDefault("redis.presence_ttl_seconds", 60)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "chat-hub.events")
	v.SetDefault("ws.ping_interval_seconds", 25)
	v.SetDefault("ws.write_deadline_seconds", 10)
	v.SetDefault("ws.max_message_size_bytes", 65536)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.rate_limit", 20)
	v.SetDefault("ws.rate_burst", 40)
	v.SetDefault("ws.handler_timeout_ms", 10000)
	v.SetDefault("calls.stale_after_seconds", 120)
	v.SetDefault("calls.reap_interval_seconds", 60)
	v.SetDefault("calls.history_limit", 50)
}

// Load reads configuration from path (optional, may be empty) and the
// environment. Environment keys use the APP_ prefix with dots replaced by
// underscores, e.g. APP_AUTH_JWT_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("app")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Kafka.Brokers = splitList(c.Kafka.Brokers)

	c.TokenTTL = time.Duration(c.Auth.TokenTTLHours) * time.Hour
	c.StoreTimeout = time.Duration(c.Store.TimeoutSeconds) * time.Second
	c.PresenceTTL = time.Duration(c.Redis.PresenceTTLSecond) * time.Second
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.HandlerTimeout = time.Duration(c.WS.HandlerTimeoutMillis) * time.Millisecond
	c.StaleCallAfter = time.Duration(c.Calls.StaleAfterSeconds) * time.Second
	c.ReapInterval = time.Duration(c.Calls.ReapIntervalSeconds) * time.Second

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.port %d out of range", c.App.Port))
	}
	switch c.Store.Driver {
	case "memory", "mongo":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be memory or mongo", c.Store.Driver))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers required when kafka is enabled"))
	}
	if c.StaleCallAfter <= 0 || c.ReapInterval <= 0 {
		errs = append(errs, errors.New("calls intervals must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Dev() bool { return c.App.Env == "development" }

// splitList normalizes list values that arrive as comma separated env strings.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
