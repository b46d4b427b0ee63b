// Package config handles configuration loading for the helpdesk server.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from HELPDESK_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/helpdesk/helpdesk.yaml
//  3. ~/.config/helpdesk/helpdesk.yaml
//
// Files ending in .toml are parsed as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  session_secret: "${HELPDESK_SESSION_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//
//	database:
//	  driver: "sqlite"            # sqlite or postgres
//	  path: "./helpdesk.db"       # sqlite
//	  dsn: "postgres://..."       # postgres
//
//	auth:
//	  admins: ["admin@tracker.local"]
//	  session_secret: "${HELPDESK_SESSION_SECRET}"  # 32+ bytes, random if empty
//	  session_duration: "168h"
//	  auth_requests_per_minute: 20                  # negative disables
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
