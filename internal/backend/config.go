package backend

import (
	"errors"
	"fmt"

	"cashbook/internal/config"
)

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
	RedisBackend  BackendType = "redis"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// Config holds configuration for backend creation
type Config struct {
	Data        BackendType
	Credentials BackendType

	SQLiteDBPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Ledger events are disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	c := Config{
		Data:          BackendType(appConfig.DataBackend),
		Credentials:   BackendType(appConfig.CredentialBackend),
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Data {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid data backend: %q", c.Data)
	}

	switch c.Credentials {
	case SQLiteBackend:
		if c.Data != SQLiteBackend {
			return errors.New("sqlite credentials require the sqlite data backend")
		}
	case RedisBackend:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for redis credentials")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid credential backend: %q", c.Credentials)
	}
	return nil
}
