package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSocketID                 = "default"
	DefaultProtocolVersion          = "1"
	DefaultReconnectDelay           = 5 * time.Second
	DefaultQueryCleanupDelay        = 30 * time.Second
	DefaultSubscriptionCleanupDelay = 30 * time.Second
	DefaultTokenTimeout             = 5 * time.Second
	DefaultHandshakeTimeout         = 10 * time.Second
	DefaultWriteTimeout             = 5 * time.Second
	DefaultStorageDriver            = "memory"
	DefaultKeyPrefix                = "ddp:resume:"
	DefaultRedisURL                 = "redis://localhost:6379/0"
	DefaultDBPort                   = 5432
	DefaultDBSSLMode                = "prefer"
	DefaultMaxConns                 = 4
	DefaultMinConns                 = 1
	DefaultTokenTable               = "ddp_resume_tokens"
	DefaultMetricsPort              = 9090
	DefaultMetricsPath              = "/metrics"
	DefaultLogLevel                 = "info"
	DefaultLogFormat                = "text"
)

// DefaultSupportedVersions lists the protocol versions offered in the handshake.
var DefaultSupportedVersions = []string{"1", "pre2", "pre1"}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	// Session defaults
	if c.Session.SocketID == "" {
		c.Session.SocketID = DefaultSocketID
	}
	if c.Session.ProtocolVersion == "" {
		c.Session.ProtocolVersion = DefaultProtocolVersion
	}
	if len(c.Session.SupportedVersions) == 0 {
		c.Session.SupportedVersions = append([]string(nil), DefaultSupportedVersions...)
	}
	if c.Session.ReconnectDelay == 0 {
		c.Session.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Session.QueryCleanupDelay == 0 {
		c.Session.QueryCleanupDelay = DefaultQueryCleanupDelay
	}
	if c.Session.SubscriptionCleanupDelay == 0 {
		c.Session.SubscriptionCleanupDelay = DefaultSubscriptionCleanupDelay
	}
	if c.Session.TokenTimeout == 0 {
		c.Session.TokenTimeout = DefaultTokenTimeout
	}

	// Transport defaults
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = DefaultKeyPrefix
	}
	if c.Storage.Redis.URL == "" {
		c.Storage.Redis.URL = DefaultRedisURL
	}
	applyDBDefaults(&c.Storage.Postgres)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.Table == "" {
		db.Table = DefaultTokenTable
	}
}
