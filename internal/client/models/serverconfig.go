package models

import "time"

// ServerConfig is the persisted connection setting singleton.
type ServerConfig struct {
	Address     string
	UseSSL      bool
	UpdateDelay int // seconds between automatic sync rounds, 0 disables them
	Timeout     int // handshake timeout in milliseconds
}

func (c ServerConfig) Delay() time.Duration {
	return time.Duration(c.UpdateDelay) * time.Second
}

func (c ServerConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}
