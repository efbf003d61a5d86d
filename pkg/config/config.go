package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port string `mapstructure:"port"`

	Mongo      DatabaseConfig `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`

	History HistoryConfig `mapstructure:"history"`
	Typing  TypingConfig  `mapstructure:"typing"`
	Client  ClientConfig  `mapstructure:"client"`
}

// HistoryConfig paging and read-timeout bounds for the history loader
type HistoryConfig struct {
	PageSize    int           `mapstructure:"page_size"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// TypingConfig typing-indicator TTLs per room kind
type TypingConfig struct {
	LocationTTL time.Duration `mapstructure:"location_ttl"`
	OrderTTL    time.Duration `mapstructure:"order_ttl"`
}

// ClientConfig reconnection constants handed to web/mobile clients
type ClientConfig struct {
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// KafkaConfig definition kafka event-stream setting; empty brokers disable it
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryCount    int      `mapstructure:"retry_count"`
	RetryInterval int      `mapstructure:"retry_interval"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// Defaults applied when the YAML leaves tuning knobs unset.
const (
	DefaultHistoryPageSize    = 50
	DefaultHistoryReadTimeout = 5 * time.Second
	DefaultLocationTypingTTL  = 2 * time.Second
	DefaultOrderTypingTTL     = 3 * time.Second
	DefaultReconnectAttempts  = 5
	DefaultReconnectDelay     = time.Second
)

// ApplyDefaults fills zero values with the documented defaults.
func (c *Chat) ApplyDefaults() {
	if c.History.PageSize <= 0 {
		c.History.PageSize = DefaultHistoryPageSize
	}
	if c.History.ReadTimeout <= 0 {
		c.History.ReadTimeout = DefaultHistoryReadTimeout
	}
	if c.Typing.LocationTTL <= 0 {
		c.Typing.LocationTTL = DefaultLocationTypingTTL
	}
	if c.Typing.OrderTTL <= 0 {
		c.Typing.OrderTTL = DefaultOrderTypingTTL
	}
	if c.Client.ReconnectAttempts <= 0 {
		c.Client.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.Client.ReconnectDelay <= 0 {
		c.Client.ReconnectDelay = DefaultReconnectDelay
	}
}
