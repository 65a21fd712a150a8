package config

import (
	"testing"
	"time"
)

func TestRead_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")

	cfg := Read()

	if cfg.ServiceName == "" {
		t.Fatalf("expected a default service name")
	}
	if cfg.DirectoryCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %s", cfg.DirectoryCacheTTL)
	}
	if cfg.MigrationsPath != "migrations" {
		t.Fatalf("unexpected migrations path %q", cfg.MigrationsPath)
	}
}

func TestRead_Environment(t *testing.T) {
	t.Setenv("GRPC_PORT", "7070")
	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("DIRECTORY_CACHE_SIZE", "64")

	cfg := Read()

	if cfg.GRPCPort != "7070" {
		t.Fatalf("expected grpc port from env, got %q", cfg.GRPCPort)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("expected memory store driver, got %q", cfg.StoreDriver)
	}
	if cfg.DirectoryCacheSize != 64 {
		t.Fatalf("expected cache size 64, got %d", cfg.DirectoryCacheSize)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &AppConfig{
		PostgresUsername: "app",
		PostgresPassword: "secret",
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresDatabase: "discussion",
		PostgresSSLMode:  "disable",
	}

	want := "postgres://app:secret@db:5432/discussion?sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
