package config

import "time"

// Config holds runtime settings for the StudioSync client.
//
// Units: every interval is a time.Duration. DataKey, when set, is a
// passphrase from which the key encrypting user documents is derived.
type Config struct {
	DataFile        string
	ServerAddress   string
	UseSSL          bool
	RequestDelay    time.Duration
	PingInterval    time.Duration
	PingTimeout     time.Duration
	HTTPTimeout     time.Duration
	Debounce        time.Duration
	ShutdownTimeout time.Duration
	MergePolicy     string
	PasswordSalt    string
	DataKey         string
	LogFile         string
	LogLevel        string
	LogFormat       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataFile = "studiosync.db"
	c.ServerAddress = "127.0.0.1:8080/"
	c.UseSSL = false
	c.RequestDelay = 500 * time.Millisecond
	c.PingInterval = time.Minute
	c.PingTimeout = 3 * time.Second
	c.HTTPTimeout = 30 * time.Second
	c.Debounce = time.Second
	c.ShutdownTimeout = 10 * time.Second
	c.MergePolicy = "accept"
	c.PasswordSalt = "studiosync"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
