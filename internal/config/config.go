// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv("IPPEL_RNC_CONFIG_JSON")

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	applyDefaults(&c)

	return c, validate(c)
}

// applyDefaults fills optional settings that may be absent from the toml file.
func applyDefaults(c *Config) {
	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // seconds
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = 8 * time.Hour
	}

	if c.DB.BusyTimeoutMS == 0 {
		c.DB.BusyTimeoutMS = 30000 // match the 30s connection timeout of the legacy system
	}

	if c.Notify.MaxAttempts == 0 {
		c.Notify.MaxAttempts = 10
	}

	if c.Notify.RepeatIntervalMinutes == 0 {
		c.Notify.RepeatIntervalMinutes = 5
	}

	if c.Authz.CacheSize == 0 {
		c.Authz.CacheSize = 1024
	}

	if c.Authz.CacheTTLSeconds == 0 {
		c.Authz.CacheTTLSeconds = 30
	}

	if c.Backup.IntervalMinutes == 0 {
		c.Backup.IntervalMinutes = 60
	}

	if c.Log.LogLevel == "" {
		c.Log.LogLevel = "info"
	}

	if c.Log.ServiceName == "" {
		c.Log.ServiceName = "ippel_rnc"
	}

	if c.Log.AppName == "" {
		c.Log.AppName = "ippel-rnc"
	}
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to merge config from env")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings needed to serve.
func validate(c Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.DB.Path == "" {
		return errors.Wrap(ErrEmptyDBPath, invalidErrMessage)
	}

	return nil
}
