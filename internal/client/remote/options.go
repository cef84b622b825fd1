package remote

import (
	"time"

	"github.com/dmitrijs2005/studiosync/internal/buildinfo"
)

type Options struct {
	Address string // host and path, without scheme, e.g. "studio.example/api/"
	UseSSL  bool

	RequestDelay time.Duration // minimum gap between paced requests
	PingInterval time.Duration // heartbeat period while connected
	PingTimeout  time.Duration // bound on the handshake
	HTTPTimeout  time.Duration

	Version   string
	UserAgent string
	Debug     bool

	PasswordSalt string
}

func (o *Options) setDefaults() {
	if o.RequestDelay <= 0 {
		o.RequestDelay = 500 * time.Millisecond
	}
	if o.PingInterval <= 0 {
		o.PingInterval = time.Minute
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 3 * time.Second
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 30 * time.Second
	}
	if o.Version == "" {
		o.Version = buildinfo.Version
	}
	if o.UserAgent == "" {
		o.UserAgent = buildinfo.UserAgent()
	}
}

func (o Options) scheme() string {
	if o.UseSSL {
		return "https://"
	}
	return "http://"
}
