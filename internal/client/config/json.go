package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/flagx"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an explicit false apart from a missing key.
type JsonConfig struct {
	DataFile        string         `json:"data_file"`
	ServerAddress   string         `json:"server_address"`
	UseSSL          *bool          `json:"use_ssl"`
	RequestDelay    timex.Duration `json:"request_delay"`
	PingInterval    timex.Duration `json:"ping_interval"`
	PingTimeout     timex.Duration `json:"ping_timeout"`
	HTTPTimeout     timex.Duration `json:"http_timeout"`
	Debounce        timex.Duration `json:"debounce"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	MergePolicy     string         `json:"merge_policy"`
	PasswordSalt    string         `json:"password_salt"`
	DataKey         string         `json:"data_key"`
	LogFile         string         `json:"log_file"`
	LogLevel        string         `json:"log_level"`
	LogFormat       string         `json:"log_format"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Keys missing from the file keep their current value.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DataFile, jc.DataFile)
	setString(&cfg.ServerAddress, jc.ServerAddress)
	if jc.UseSSL != nil {
		cfg.UseSSL = *jc.UseSSL
	}
	setDuration(&cfg.RequestDelay, jc.RequestDelay)
	setDuration(&cfg.PingInterval, jc.PingInterval)
	setDuration(&cfg.PingTimeout, jc.PingTimeout)
	setDuration(&cfg.HTTPTimeout, jc.HTTPTimeout)
	setDuration(&cfg.Debounce, jc.Debounce)
	setDuration(&cfg.ShutdownTimeout, jc.ShutdownTimeout)
	setString(&cfg.MergePolicy, jc.MergePolicy)
	setString(&cfg.PasswordSalt, jc.PasswordSalt)
	setString(&cfg.DataKey, jc.DataKey)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
