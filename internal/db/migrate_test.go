package db

import (
	"strings"
	"testing"
	"testing/fstest"

	"budget-engine/migrations"
)

func TestDiscoverMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_pricebooks.sql":  {Data: []byte("CREATE TABLE b ();")},
		"001_budget_core.sql": {Data: []byte("CREATE TABLE a ();")},
		"README.md":           {Data: []byte("ignored")},
	}
	got, err := DiscoverMigrations(fsys)
	if err != nil {
		t.Fatalf("DiscoverMigrations: %v", err)
	}
	if len(got) != 2 || got[0].Version != "001" || got[1].Version != "002" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got[0].Checksum) != 64 || got[0].Checksum == got[1].Checksum {
		t.Errorf("checksums look wrong: %q %q", got[0].Checksum, got[1].Checksum)
	}
}

func TestDiscoverMigrations_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{"duplicate version", fstest.MapFS{
			"001_a.sql": {Data: []byte("")},
			"001_b.sql": {Data: []byte("")},
		}, "duplicate migration version 001"},
		{"bad name", fstest.MapFS{
			"init.sql": {Data: []byte("")},
		}, "invalid migration filename"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DiscoverMigrations(tc.fsys)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := DiscoverMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("DiscoverMigrations: %v", err)
	}
	if len(got) < 2 || got[0].Filename != "001_budget_core.sql" {
		t.Errorf("unexpected embedded migrations: %+v", got)
	}
}
