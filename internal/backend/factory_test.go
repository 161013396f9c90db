package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cashbook/internal/config"
	"cashbook/internal/core"
	"cashbook/internal/storage"
	"cashbook/internal/storage/memory"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Data: MemoryBackend, Credentials: MemoryBackend}, false},
		{"sqlite", Config{Data: SQLiteBackend, Credentials: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Data: SQLiteBackend, Credentials: MemoryBackend}, true},
		{"sqlite credentials on memory data", Config{Data: MemoryBackend, Credentials: SQLiteBackend}, true},
		{"redis without address", Config{Data: MemoryBackend, Credentials: RedisBackend}, true},
		{"unknown data", Config{Data: "sheets", Credentials: MemoryBackend}, true},
		{"unknown credentials", Config{Data: MemoryBackend, Credentials: "vault"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}
	c, err := FromAppConfig(&config.Config{
		DataBackend: "sqlite", CredentialBackend: "redis", SQLiteDBPath: "a.db",
		RedisAddr: "localhost:6379", RedisDB: 2, AMQPURL: "amqp://x", AMQPQueue: "q",
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Data != SQLiteBackend || c.Credentials != RedisBackend || c.RedisDB != 2 || c.AMQPQueue != "q" {
		t.Errorf("FromAppConfig() = %+v", c)
	}
}

func TestDefaultFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("memory shares one store", func(t *testing.T) {
		res, err := NewFactory(nil).Create(ctx, Config{Data: MemoryBackend, Credentials: MemoryBackend})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()

		if _, ok := res.Store.(*memory.Store); !ok {
			t.Fatalf("Store = %T", res.Store)
		}
		if res.Credentials != res.Store.(*memory.Store) {
			t.Error("memory credentials should share the data store")
		}
		if res.Publisher != nil {
			t.Error("Publisher should be nil without AMQP_URL")
		}
	})

	t.Run("sqlite keeps credentials in the database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cashbook.db")
		res, err := NewFactory(nil).Create(ctx, Config{Data: SQLiteBackend, Credentials: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()

		if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
			t.Fatalf("Store = %T", res.Store)
		}
		if err := res.Credentials.SaveCredential(ctx, core.Credential{UserID: "u1", AccessToken: "tok"}); err != nil {
			t.Fatal(err)
		}
		if err := res.Store.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("unreachable redis closes the store", func(t *testing.T) {
		_, err := NewFactory(nil).Create(ctx, Config{Data: MemoryBackend, Credentials: RedisBackend, RedisAddr: "127.0.0.1:1"})
		if err == nil {
			t.Fatal("Create() should fail when redis is unreachable")
		}
		if errors.Is(err, core.ErrNotFound) {
			t.Errorf("unexpected error kind: %v", err)
		}
	})
}
