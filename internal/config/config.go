// Package config holds the storefront service configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/saddiabu4/telegram-market/pkg/config"
	"github.com/saddiabu4/telegram-market/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Backend    config.BackendConfig   `koanf:"backend"`
	Storage    config.StorageConfig   `koanf:"storage"`
	Bridge     BridgeConfig           `koanf:"bridge"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
}

// BridgeConfig selects the order submission strategy. When disabled, the
// local mock submitter accepts orders without any network call.
type BridgeConfig struct {
	Enabled bool              `koanf:"enabled"`
	NATS    config.NATSConfig `koanf:"nats"`
}

func (c *BridgeConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.NATS.Validate()
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- Backend Configuration ---\n")
	b.WriteString(fmt.Sprintf("  backend.api_url: %s\n", c.Backend.APIURL))
	b.WriteString(fmt.Sprintf("  backend.uploads_url: %s\n", c.Backend.UploadsURL))
	b.WriteString(fmt.Sprintf("  backend.timeout: %s\n", c.Backend.Timeout))

	b.WriteString("\n--- Storage Configuration ---\n")
	b.WriteString(fmt.Sprintf("  storage.driver: %s\n", c.Storage.Driver))

	b.WriteString("\n--- Bridge Configuration ---\n")
	b.WriteString(fmt.Sprintf("  bridge.enabled: %t\n", c.Bridge.Enabled))
	if c.Bridge.Enabled {
		b.WriteString(fmt.Sprintf("  bridge.nats.url: %s\n", c.Bridge.NATS.Url))
	}

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  telemetry.traces.otlphttp.endpoint: %s\n", c.Telemetry.Traces.OtlpHttp.Endpoint))
	b.WriteString(fmt.Sprintf("  telemetry.traces.otlphttp.insecure: %v\n", c.Telemetry.Traces.OtlpHttp.Insecure))
	b.WriteString(fmt.Sprintf("  telemetry.traces.otlphttp.timeout: %v\n", c.Telemetry.Traces.OtlpHttp.Timeout))
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Bridge.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	return c.Shutdown.Validate()
}
