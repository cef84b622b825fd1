package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/flagx"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

// JsonConfig is a DTO used only for reading JSON configuration files.
// Durations accept both "1s" strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddr      string         `json:"endpoint_addr"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	TokenValidity     timex.Duration `json:"token_validity"`
	BootstrapUser     string         `json:"bootstrap_user"`
	BootstrapPassword string         `json:"bootstrap_password"`
	PasswordSalt      string         `json:"password_salt"`
	ShutdownTimeout   timex.Duration `json:"shutdown_timeout"`
	LogLevel          string         `json:"log_level"`
	LogFormat         string         `json:"log_format"`
}

// parseJson overlays Config with values from the JSON file named by -c or
// -config. Missing keys keep their current value. Panics on read or
// unmarshal errors.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidity, c.TokenValidity)
	setString(&config.BootstrapUser, c.BootstrapUser)
	setString(&config.BootstrapPassword, c.BootstrapPassword)
	setString(&config.PasswordSalt, c.PasswordSalt)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
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
