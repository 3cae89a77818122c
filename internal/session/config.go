package session

import (
	"time"

	"github.com/rickgao/ddp-client/internal/config"
)

// Config tunes the session engine. Zero fields take the package defaults.
type Config struct {
	DefaultSocket            string
	ProtocolVersion          string
	SupportedVersions        []string
	ReconnectDelay           time.Duration
	QueryCleanupDelay        time.Duration
	SubscriptionCleanupDelay time.Duration
	TokenTimeout             time.Duration
}

// ConfigFrom converts the file configuration section.
func ConfigFrom(c config.SessionConfig) Config {
	return Config{
		DefaultSocket:            c.SocketID,
		ProtocolVersion:          c.ProtocolVersion,
		SupportedVersions:        c.SupportedVersions,
		ReconnectDelay:           c.ReconnectDelay,
		QueryCleanupDelay:        c.QueryCleanupDelay,
		SubscriptionCleanupDelay: c.SubscriptionCleanupDelay,
		TokenTimeout:             c.TokenTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.DefaultSocket == "" {
		c.DefaultSocket = config.DefaultSocketID
	}
	if c.ProtocolVersion == "" {
		c.ProtocolVersion = config.DefaultProtocolVersion
	}
	if len(c.SupportedVersions) == 0 {
		c.SupportedVersions = append([]string(nil), config.DefaultSupportedVersions...)
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = config.DefaultReconnectDelay
	}
	if c.QueryCleanupDelay <= 0 {
		c.QueryCleanupDelay = config.DefaultQueryCleanupDelay
	}
	if c.SubscriptionCleanupDelay <= 0 {
		c.SubscriptionCleanupDelay = config.DefaultSubscriptionCleanupDelay
	}
	if c.TokenTimeout <= 0 {
		c.TokenTimeout = config.DefaultTokenTimeout
	}
}
