// Package config reads the formstate-demo settings from the environment and
// command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Output formats understood by the CLI.
const (
	OutputJSON   = "json"
	OutputPretty = "pretty"
)

// Config holds the CLI settings. Flags bound with BindFlags default to the
// environment values, so an explicit flag wins.
type Config struct {
	Schema           string `env:"FORMSTATE_SCHEMA"`
	OpenAPI          string `env:"FORMSTATE_OPENAPI"`
	Operation        string `env:"FORMSTATE_OPERATION"`
	Output           string `env:"FORMSTATE_OUTPUT" envDefault:"json"`
	ValidateOnChange bool   `env:"FORMSTATE_VALIDATE_ON_CHANGE"`
	Sanitize         bool   `env:"FORMSTATE_SANITIZE"`
	Debug            bool   `env:"FORMSTATE_DEBUG"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindFlags registers one flag per setting on fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Schema, "schema", c.Schema, "YAML or JSON form schema (default: built-in demo form)")
	fs.StringVar(&c.OpenAPI, "openapi", c.OpenAPI, "OpenAPI document to derive the form from")
	fs.StringVar(&c.Operation, "operation", c.Operation, "operation ID inside the OpenAPI document")
	fs.StringVar(&c.Output, "output", c.Output, "output format: json or pretty")
	fs.BoolVar(&c.ValidateOnChange, "validate-on-change", c.ValidateOnChange, "revalidate after every answer")
	fs.BoolVar(&c.Sanitize, "sanitize", c.Sanitize, "strip HTML from every text answer")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "log engine traces to stderr")
}

// Validate rejects contradictory settings.
func (c Config) Validate() error {
	var errs []error
	if c.Schema != "" && c.OpenAPI != "" {
		errs = append(errs, errors.New("schema and openapi are mutually exclusive"))
	}
	if c.OpenAPI != "" && strings.TrimSpace(c.Operation) == "" {
		errs = append(errs, errors.New("openapi requires an operation"))
	}
	switch c.Output {
	case OutputJSON, OutputPretty:
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
