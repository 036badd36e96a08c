package shared

import (
	"errors"
	"time"
)

// Config is built once in main from flags/environment and handed to every
// component that needs it. Read-only after startup.
type Config struct {
	ListenAddr    string
	UpstreamURL   string
	AdminEmail    string
	AdminPassword string
	JWTSecret     string
	TokenLifetime time.Duration
	UploadDir     string
	MaxUploadSize int64
}

func (c *Config) Validate() error {
	if c.UpstreamURL == "" {
		return errors.New("upstream url is required")
	}
	if c.AdminEmail == "" || c.AdminPassword == "" {
		return errors.New("admin email and password are required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.TokenLifetime <= 0 {
		c.TokenLifetime = DefaultTokenLifetime
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = DefaultMaxUploadBytes
	}
	return nil
}
