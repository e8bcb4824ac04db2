// Package config handles configuration loading for coven-console.
//
// # Overview
//
// Configuration is read from YAML, or from TOML when the file name ends in
// .toml. Values missing from the file keep their defaults, and the whole
// config is validated after loading.
//
// # Configuration File
//
// Locations (first match wins):
//
//  1. The --config flag
//  2. Path from the COVEN_CONSOLE_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/console.yaml (~/.config when unset)
//
// A missing file at the default location is not an error; Default() is used.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${COVEN_CONSOLE_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	backend:
//	  url: "http://localhost:8000"
//	  request_timeout: "30s"
//
//	storage:
//	  driver: "sqlite"            # sqlite, file, memory
//	  path: "~/.local/share/coven/console.db"
//	  key: "chat-storage"
//
//	auth:
//	  jwt_secret: "${COVEN_CONSOLE_JWT_SECRET}"
//	  token_ttl: "24h"
//	  users:
//	    alice: "$2a$10$..."       # bcrypt hash
//
//	dashboards:
//	  enabled: true
//	  health_interval: "30s"
//	  metrics_interval: "15s"
//
//	logging:
//	  level: "warn"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	preferences:
//	  theme: "system" # light, dark, system
//	  user_id: "alice"
//	  enable_profiling: false
//
// Durations use time.ParseDuration syntax.
package config
