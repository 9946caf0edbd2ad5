package config

import "testing"

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATAWARD_PG_DSN", "postgres://localhost/dataward")
	t.Setenv("DATAWARD_SERVICE_USER", "bridge")
	t.Setenv("DATAWARD_SERVICE_PASSWORD", "pw")
	t.Setenv("DATAWARD_PG_MAX_OPEN", "50")
	t.Setenv("DATAWARD_PG_MAX_IDLE", "5")

	cfg := Load()
	if cfg.DSN != "postgres://localhost/dataward" {
		t.Fatalf("dsn = %q", cfg.DSN)
	}
	if cfg.ServiceUsername != "bridge" || cfg.ServicePassword != "pw" {
		t.Fatalf("service credentials = %q/%q", cfg.ServiceUsername, cfg.ServicePassword)
	}
	if cfg.MaxOpenConns != 50 || cfg.MaxIdleConns != 5 {
		t.Fatalf("pool = %d/%d", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATAWARD_PG_MAX_OPEN", "")
	t.Setenv("DATAWARD_PG_MAX_IDLE", "garbage")

	cfg := Load()
	if cfg.MaxOpenConns != 25 {
		t.Fatalf("max open = %d, want default 25", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 10 {
		t.Fatalf("max idle = %d, want default 10", cfg.MaxIdleConns)
	}
}
