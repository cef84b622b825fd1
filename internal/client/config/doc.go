// Package config loads runtime configuration for the StudioSync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Server address, SSL, request delay and timeout saved by the user into the
// local store's server_config row take precedence over all three once saved.
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "data_file": "studiosync.db",
//	  "server_address": "sync.studio.example/api/",
//	  "use_ssl": true,
//	  "request_delay": "500ms",
//	  "ping_interval": "1m",
//	  "ping_timeout": "3s",
//	  "http_timeout": "30s",
//	  "debounce": "1s",
//	  "shutdown_timeout": "10s",
//	  "merge_policy": "accept",
//	  "password_salt": "studiosync",
//	  "data_key": "",
//	  "log_file": "",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
