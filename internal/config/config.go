// Package config owns the daemon configuration file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/meshwire/meshwire/internal/driver"
)

// DaemonConfig is everything the meshwirectl daemon needs: where the
// serial link is, how the driver should behave, and where the admin
// surface listens.
type DaemonConfig struct {
	Port      string
	Baud      int
	AdminAddr string
	Driver    driver.Config
}

func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		Baud:      115200,
		AdminAddr: "127.0.0.1:9470",
		Driver:    driver.DefaultConfig(),
	}
}

type fileConfig struct {
	Port      string `toml:"port"`
	Baud      int    `toml:"baud"`
	AdminAddr string `toml:"admin_addr"`

	AckTimeout      string `toml:"ack_timeout"`
	ResponseTimeout string `toml:"response_timeout"`
	CallbackTimeout string `toml:"callback_timeout"`
	MaxAttempts     int    `toml:"max_attempts"`
}

// LoadDaemonConfig reads path on top of the defaults; absent keys keep
// their default values.
func LoadDaemonConfig(path string) (DaemonConfig, error) {
	cfg := DefaultDaemonConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return DaemonConfig{}, fmt.Errorf("load daemon config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("ack_timeout") {
		if cfg.Driver.AckTimeout, err = parseDuration(raw.AckTimeout); err != nil {
			return DaemonConfig{}, fmt.Errorf("parse ack_timeout: %w", err)
		}
	}
	if meta.IsDefined("response_timeout") {
		if cfg.Driver.ResponseTimeout, err = parseDuration(raw.ResponseTimeout); err != nil {
			return DaemonConfig{}, fmt.Errorf("parse response_timeout: %w", err)
		}
	}
	if meta.IsDefined("callback_timeout") {
		if cfg.Driver.CallbackTimeout, err = parseDuration(raw.CallbackTimeout); err != nil {
			return DaemonConfig{}, fmt.Errorf("parse callback_timeout: %w", err)
		}
	}
	if meta.IsDefined("max_attempts") {
		cfg.Driver.MaxAttempts = raw.MaxAttempts
	}

	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("daemon config missing port")
	}
	if cfg.Baud <= 0 {
		return fmt.Errorf("daemon config invalid baud %d", cfg.Baud)
	}
	if cfg.Driver.MaxAttempts < 0 {
		return fmt.Errorf("daemon config invalid max_attempts %d", cfg.Driver.MaxAttempts)
	}
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(raw))
}
