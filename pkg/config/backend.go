package config

import (
	"fmt"
	"strings"
	"time"
)

// BackendConfig describes the external product backend consumed over REST.
// Uploaded images are served from a separately configured base URL.
type BackendConfig struct {
	APIURL     string               `koanf:"api_url"`
	UploadsURL string               `koanf:"uploads_url"`
	Timeout    time.Duration        `koanf:"timeout"`
	Breaker    CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// String returns a string representation of the backend configuration.
func (c *BackendConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Backend ---\n")
	b.WriteString(fmt.Sprintf("  api_url: %s\n", c.APIURL))
	b.WriteString(fmt.Sprintf("  uploads_url: %s\n", c.UploadsURL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  circuitbreaker.consecutivefailures: %d\n", c.Breaker.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  circuitbreaker.errorratepercent: %d\n", c.Breaker.ErrorRatePercent))
	b.WriteString(fmt.Sprintf("  circuitbreaker.opentimeout: %v\n", c.Breaker.OpenTimeout))
	return b.String()
}

func (c *BackendConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("backend API URL is not configured")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("backend API URL must be an http(s) URL: %s", c.APIURL)
	}
	if c.UploadsURL == "" {
		return fmt.Errorf("backend uploads URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("backend request timeout is not configured")
	}
	return c.Breaker.Validate()
}

func (c *CircuitBreakerConfig) Validate() error {
	if c.ConsecutiveFailures <= 0 {
		return fmt.Errorf("circuitbreaker.consecutivefailures must be greater than 0")
	}
	if c.ErrorRatePercent < 0 || c.ErrorRatePercent > 100 {
		return fmt.Errorf("circuitbreaker.errorratepercent must be between 0 and 100")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("circuitbreaker.opentimeout must be greater than 0")
	}
	return nil
}
