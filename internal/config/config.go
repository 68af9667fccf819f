// Package config loads the settlement service configuration from a YAML file
// with environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// like "30m" or "15s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Gateway holds the remote payment gateway parameters.
type Gateway struct {
	BaseURL            string   `yaml:"base_url"`
	PublicKey          string   `yaml:"public_key"`
	PrivateKey         string   `yaml:"private_key"`
	Currency           string   `yaml:"currency"`
	Language           string   `yaml:"language"`
	SuccessRedirectURL string   `yaml:"success_redirect_url"`
	ErrorRedirectURL   string   `yaml:"error_redirect_url"`
	Timeout            Duration `yaml:"timeout"`
}

// Frontend holds the browser-facing URLs the redirect fallbacks bounce to.
type Frontend struct {
	SuccessURL string `yaml:"success_url"`
	ErrorURL   string `yaml:"error_url"`
}

// Reservation holds pending-purchase lifecycle parameters.
type Reservation struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// Identity holds the optional bearer-token identity parameters.
type Identity struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Config is the full service configuration.
type Config struct {
	Port        int         `yaml:"port"`
	Verbose     bool        `yaml:"verbose"`
	SeedFile    string      `yaml:"seed_file"`
	Gateway     Gateway     `yaml:"gateway"`
	Frontend    Frontend    `yaml:"frontend"`
	Reservation Reservation `yaml:"reservation"`
	Identity    Identity    `yaml:"identity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port: 8080,
		Gateway: Gateway{
			BaseURL:  "https://epoint.az",
			Currency: "AZN",
			Language: "az",
			Timeout:  Duration(15 * time.Second),
		},
		Reservation: Reservation{
			TTL:           Duration(30 * time.Minute),
			SweepInterval: Duration(time.Minute),
		},
	}
}

// Load reads the configuration from path, layering it over defaults. A
// missing file yields the defaults. GATEWAY_PUBLIC_KEY, GATEWAY_PRIVATE_KEY,
// and IDENTITY_JWT_SECRET override their file counterparts so secrets can be
// kept out of the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if v := os.Getenv("GATEWAY_PUBLIC_KEY"); v != "" {
		cfg.Gateway.PublicKey = v
	}
	if v := os.Getenv("GATEWAY_PRIVATE_KEY"); v != "" {
		cfg.Gateway.PrivateKey = v
	}
	if v := os.Getenv("IDENTITY_JWT_SECRET"); v != "" {
		cfg.Identity.JWTSecret = v
	}

	if cfg.Reservation.TTL == 0 {
		cfg.Reservation.TTL = Duration(30 * time.Minute)
	}
	if cfg.Reservation.SweepInterval == 0 {
		cfg.Reservation.SweepInterval = Duration(time.Minute)
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = Duration(15 * time.Second)
	}

	return cfg, nil
}
