// Package config provides 12-factor configuration management for the ad
// monitor backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional YAML or TOML file named by ADMON_CONFIG_FILE supplies a base
// layer; any variable set in the environment overrides the file.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Storage: Durable state backend (sqlite or memory)
//   - Monitor: Ad timeout, action timeout, origin patterns, operation marker
//   - Host: Browser bridge transport (ws or http)
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - STORAGE_DRIVER, STORAGE_PATH
//   - AD_TIMEOUT, ACTION_TIMEOUT, ORIGIN_PATTERNS, AD_OPERATION_MARKER
//   - HOST_BRIDGE, HOST_URL, HOST_RETRY_MAX
package config
