// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//
// AppConfig is where everything specific to Zelus lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Connection pool ceiling

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: zelus-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// CSRF protection
	CSRFKey string // 32-byte key for gorilla/csrf tokens

	// Base URL for OAuth callbacks and invite links
	BaseURL string // e.g., "https://zelus.pt" or "http://localhost:3000"

	// Audit logging modes: all, db, log or off
	AuditLogAuth string
	AuditLogOrg  string

	// Google OAuth (sign-in is offered only when both are set)
	GoogleClientID     string
	GoogleClientSecret string

	// How long an invite link stays valid
	InviteTTL time.Duration

	// Expose Prometheus metrics on /metrics
	MetricsEnabled bool
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
