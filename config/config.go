// Package config centralizes environment configuration.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings, populated from the environment.
type Config struct {
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8080"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"momentum.db"`

	// ModelProvider selects the reasoning backend: openai or anthropic.
	ModelProvider string `envconfig:"MODEL_PROVIDER" default:"openai"`
	ModelName     string `envconfig:"MODEL_NAME"`

	TwilioAccountSID     string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppNumber string `envconfig:"TWILIO_WHATSAPP_NUMBER"`
	WhatsAppFlowID       string `envconfig:"WHATSAPP_FLOW_ID"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// TwilioConfigured reports whether all Twilio credentials are present.
func (c Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppNumber != ""
}

// Readiness reports whether the configuration required to serve production
// traffic is present.
func (c Config) Readiness() error {
	if c.ModelProvider != "openai" && c.ModelProvider != "anthropic" {
		return fmt.Errorf("unknown model provider %q", c.ModelProvider)
	}
	if !c.TwilioConfigured() {
		return fmt.Errorf("twilio credentials missing")
	}
	return nil
}
