package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Session.Endpoint == "" {
		return errors.New("session.endpoint is required")
	}
	u, err := url.Parse(c.Session.Endpoint)
	if err != nil {
		return fmt.Errorf("session.endpoint is not a valid url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("session.endpoint scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Session.SocketID == "" {
		return errors.New("session.socket_id is required")
	}
	if c.Session.ReconnectDelay < 0 {
		return errors.New("session.reconnect_delay must be >= 0")
	}
	if c.Session.QueryCleanupDelay < 0 {
		return errors.New("session.query_cleanup_delay must be >= 0")
	}
	if c.Session.SubscriptionCleanupDelay < 0 {
		return errors.New("session.subscription_cleanup_delay must be >= 0")
	}
	if !contains(c.Session.SupportedVersions, c.Session.ProtocolVersion) {
		return fmt.Errorf("session.supported_versions must include protocol_version %q", c.Session.ProtocolVersion)
	}

	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Storage.Redis.URL == "" {
			return errors.New("storage.redis.url is required")
		}
		if c.Storage.Redis.TTL < 0 {
			return errors.New("storage.redis.ttl must be >= 0")
		}
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, redis, postgres, got %q", c.Storage.Driver)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	if db.Table == "" {
		return fmt.Errorf("%s.table is required", prefix)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
