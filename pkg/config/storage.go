package config

import (
	"fmt"
	"strings"
)

// Storage drivers for the durable state slots.
const (
	StorageDriverFile     = "file"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
)

// StorageConfig selects where the cart, favorites and session slots are kept.
type StorageConfig struct {
	Driver   string         `koanf:"driver"`
	Path     string         `koanf:"path"` // state directory for the file driver
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// String returns a string representation of the storage configuration.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	switch c.Driver {
	case StorageDriverFile:
		b.WriteString(fmt.Sprintf("  path: %s\n", c.Path))
	case StorageDriverRedis:
		b.WriteString(fmt.Sprintf("  redis.addr: %s\n", c.Redis.Addr))
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageDriverFile:
		if c.Path == "" {
			return fmt.Errorf("storage path is not configured for the file driver")
		}
	case StorageDriverPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case StorageDriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is not configured for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Driver)
	}
	return nil
}
