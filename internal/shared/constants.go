package shared

import "time"

// HTTP Client Configuration
const (
	DefaultDialTimeout     = 2 * time.Second
	DefaultProbeTimeout    = 2 * time.Second
	DefaultCatalogTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Cache Configuration
const (
	ModelCatalogCacheTTL = 30 * time.Second
)

// Auth Configuration
const (
	DefaultTokenLifetime = 24 * time.Hour
	TokenIssuer          = "relay-api"
)

// Upload Configuration
const (
	DefaultMaxUploadBytes = 50 << 20
)
