package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"restobook/internal/config"
	"restobook/internal/core"
	"restobook/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    BackendType
		wantErr bool
	}{
		{"nil config", nil, "", true},
		{"memory", &config.Config{DataBackend: "memory"}, MemoryBackend, false},
		{"postgres", &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://localhost/restobook"}, PostgresBackend, false},
		{"sheets is gone", &config.Config{DataBackend: "sheets"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Type != tt.want {
				t.Errorf("Type = %s, want %s", got.Type, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "data/x.db"}, false},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidBackendListsChoices(t *testing.T) {
	_, err := FromAppConfig(&config.Config{DataBackend: "mongo"})
	if err == nil || !strings.Contains(err.Error(), "[memory sqlite postgres]") {
		t.Errorf("FromAppConfig() error = %v, want the valid choices", err)
	}
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s listed but not valid", bt)
		}
	}
}

func TestBackendType_Shared(t *testing.T) {
	if MemoryBackend.Shared() {
		t.Error("memory backend must not be shared")
	}
	for _, bt := range []BackendType{SQLiteBackend, PostgresBackend} {
		if !bt.Shared() {
			t.Errorf("%s should be shared", bt)
		}
	}
}

func TestFactory_CreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if _, ok := res.Store.(*memory.Store); !ok {
		t.Errorf("Store = %T, want *memory.Store", res.Store)
	}
	if err := res.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}

func TestFactory_CreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "restobook.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	exists, err := res.Store.SalesRegistered(context.Background(), core.NewDate(2026, 3, 1), core.EntityRestaurant)
	if err != nil {
		t.Fatalf("SalesRegistered() error = %v", err)
	}
	if exists {
		t.Error("fresh database should have no registrations")
	}
}

func TestFactory_RejectsInvalidConfig(t *testing.T) {
	if _, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: PostgresBackend}); err == nil {
		t.Error("expected an error for postgres without a URL")
	}
}
