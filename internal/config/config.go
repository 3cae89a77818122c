package config

import "time"

// Config is the root configuration for a DDP client session.
type Config struct {
	Session   SessionConfig   `yaml:"session" toml:"session"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// SessionConfig holds protocol session engine settings.
type SessionConfig struct {
	Endpoint                 string        `yaml:"endpoint" toml:"endpoint"`   // e.g. wss://example.com/websocket
	SocketID                 string        `yaml:"socket_id" toml:"socket_id"` // Logical socket id for the default connection
	ProtocolVersion          string        `yaml:"protocol_version" toml:"protocol_version"`
	SupportedVersions        []string      `yaml:"supported_versions" toml:"supported_versions"`
	ReconnectDelay           time.Duration `yaml:"reconnect_delay" toml:"reconnect_delay"`
	QueryCleanupDelay        time.Duration `yaml:"query_cleanup_delay" toml:"query_cleanup_delay"`
	SubscriptionCleanupDelay time.Duration `yaml:"subscription_cleanup_delay" toml:"subscription_cleanup_delay"`
	TokenTimeout             time.Duration `yaml:"token_timeout" toml:"token_timeout"` // Bound on resumption token store calls
}

// TransportConfig holds WebSocket transport settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration     `yaml:"handshake_timeout" toml:"handshake_timeout"`
	WriteTimeout     time.Duration     `yaml:"write_timeout" toml:"write_timeout"`
	Headers          map[string]string `yaml:"headers" toml:"headers"`
}

// StorageConfig selects where resumption tokens are persisted.
type StorageConfig struct {
	Driver    string      `yaml:"driver" toml:"driver"` // "memory", "redis" or "postgres"
	KeyPrefix string      `yaml:"key_prefix" toml:"key_prefix"`
	Redis     RedisConfig `yaml:"redis" toml:"redis"`
	Postgres  DBConfig    `yaml:"postgres" toml:"postgres"`
}

// RedisConfig holds the Redis token store connection.
type RedisConfig struct {
	URL string        `yaml:"url" toml:"url"` // redis://:password@localhost:6379/0
	TTL time.Duration `yaml:"ttl" toml:"ttl"` // 0 = tokens never expire
}

// DBConfig holds the Postgres token store connection.
type DBConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Name     string `yaml:"name" toml:"name"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	SSLMode  string `yaml:"ssl_mode" toml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns" toml:"max_conns"`
	MinConns int    `yaml:"min_conns" toml:"min_conns"`
	Table    string `yaml:"table" toml:"table"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Port    int    `yaml:"port" toml:"port"`
	Path    string `yaml:"path" toml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text or json
}
