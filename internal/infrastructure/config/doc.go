// Package config provides 12-factor configuration management for appwatch.
//
// Configuration is loaded from environment variables with defaults.
// CLI flags in cmd/server can override the listen address.
//
// Configuration Sections:
//   - Server: HTTP listen address (PORT, HOST)
//   - Storage: Session database path (DB_PATH)
//   - Policy: Settings document path (SETTINGS_PATH)
//   - Retention: History horizon and sweep interval (RETENTION, SWEEP_INTERVAL)
//   - Provider: Snapshot provider kind and command timeout (PROVIDER, PROVIDER_TIMEOUT)
//   - Logging: Log level and output format (LOG_LEVEL, LOG_DEV)
//   - RateLimit: Per-IP rate limiting (RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED)
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Listening on %s\n", cfg.Addr())
package config
