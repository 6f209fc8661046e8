package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ORDER_PREFIX", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.OrderPrefix != "PRJ" {
		t.Errorf("expected default order prefix PRJ, got %q", c.OrderPrefix)
	}
	if c.ServerPort != "8080" {
		t.Errorf("expected default port 8080, got %q", c.ServerPort)
	}
	if err := c.RequireDatabase(); err == nil {
		t.Error("expected RequireDatabase to fail without DATABASE_URL")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/budget")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("ORDER_PREFIX", "OBR")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.DatabaseURL != "postgres://u:p@localhost:5432/budget" || c.ServerPort != "9090" {
		t.Errorf("env not applied: %+v", c)
	}
	if c.MetricsEnabled {
		t.Error("expected metrics disabled")
	}
	if c.OrderPrefix != "OBR" {
		t.Errorf("expected OBR, got %q", c.OrderPrefix)
	}
	if err := c.RequireDatabase(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
