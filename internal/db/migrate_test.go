package db

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
)

func TestMigrationsEmbedded(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("unexpected error loading embedded migrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "model_comparisons" {
		t.Fatalf("unexpected first migration: %d %s", migrations[0].Version, migrations[0].Name)
	}
	if !strings.Contains(migrations[1].UpSQL, "threshold_sweeps") || migrations[1].DownSQL == "" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsRejectsBadInput(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name":     {"migrations/one.up.sql": {Data: []byte("SELECT 1")}},
		"missing down": {"migrations/000001_a.up.sql": {Data: []byte("SELECT 1")}},
		"empty file": {
			"migrations/000001_a.up.sql":   {Data: []byte(" ")},
			"migrations/000001_a.down.sql": {Data: []byte("SELECT 1")},
		},
		"name conflict": {
			"migrations/000001_a.up.sql":   {Data: []byte("SELECT 1")},
			"migrations/000001_b.down.sql": {Data: []byte("SELECT 1")},
		},
		"no files": {},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadMigrations(fsys); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInitPostgresEmptyDSN(t *testing.T) {
	pool, err := InitPostgres(context.Background(), " ")
	if err != nil || pool != nil {
		t.Fatalf("expected nil pool without error, got %v %v", pool, err)
	}
}

func TestMigrateDownRejectsZeroSteps(t *testing.T) {
	if _, err := MigrateDown(context.Background(), nil, 0); err == nil {
		t.Fatal("expected error for zero steps")
	}
}
