package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kic113/site/internal/relay"
)

// Config is the decoded application configuration. Viper fills it from
// defaults, config.yaml and KIC113_* environment variables.
type Config struct {
	SiteTitle  string      `mapstructure:"siteTitle" validate:"required"`
	BaseURL    string      `mapstructure:"baseURL"`
	Addr       string      `mapstructure:"addr" validate:"required"`
	OutputDir  string      `mapstructure:"outputDir" validate:"required"`
	ContentDir string      `mapstructure:"contentDir"`
	Log        LogConfig   `mapstructure:"log"`
	Relay      RelayConfig `mapstructure:"relay"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Human bool   `mapstructure:"human"`
}

// RelayConfig holds the email-relay endpoint and the three identifiers the
// relay assigns to the account. The identifiers may be empty; the contact
// form then reports an authentication failure instead of sending.
type RelayConfig struct {
	Endpoint      string        `mapstructure:"endpoint" validate:"required,url"`
	ServiceID     string        `mapstructure:"serviceID"`
	TemplateID    string        `mapstructure:"templateID"`
	PublicKey     string        `mapstructure:"publicKey"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RatePerMinute float64       `mapstructure:"ratePerMinute" validate:"gte=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=1"`
}

// Configured reports whether all relay identifiers are present.
func (r RelayConfig) Configured() bool {
	return r.ServiceID != "" && r.TemplateID != "" && r.PublicKey != ""
}

// Defaults returns the values registered with viper before any file or
// environment lookup.
func Defaults() map[string]any {
	return map[string]any{
		"siteTitle":           "KIC113",
		"baseURL":             "",
		"addr":                ":8080",
		"outputDir":           "public",
		"contentDir":          "",
		"log.level":           "info",
		"log.human":           false,
		"relay.endpoint":      relay.DefaultEndpoint,
		"relay.serviceID":     "",
		"relay.templateID":    "",
		"relay.publicKey":     "",
		"relay.timeout":       relay.DefaultTimeout.String(),
		"relay.ratePerMinute": 6.0,
		"relay.burst":         3,
	}
}

var validate = validator.New()

// Validate checks the decoded configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
