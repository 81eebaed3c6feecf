package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "/tmp/portal.db"
autocomplete:
  min_digits: 6
  auto_lock: false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath != "/tmp/portal.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Autocomplete.MinDigits != 6 {
		t.Errorf("min_digits = %d, want 6", cfg.Autocomplete.MinDigits)
	}
	if cfg.Autocomplete.AutoLockOrDefault() {
		t.Error("auto_lock: false should be kept")
	}
	if !cfg.Autocomplete.ShowMessagesOrDefault() {
		t.Error("show_messages should default to true")
	}
	if cfg.Portal.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("base_url should follow the server address, got %s", cfg.Portal.BaseURL)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/portal.db"
  directory_index_path: "./data/indices/directory"
import:
  directories: ["./entrada"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "portal.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantIdx := filepath.Join(dir, "data", "indices", "directory")
	if cfg.Storage.DirectoryIndexPath != wantIdx {
		t.Errorf("directory_index_path = %s, want %s", cfg.Storage.DirectoryIndexPath, wantIdx)
	}
	if len(cfg.Import.Directories) != 1 {
		t.Fatalf("import directories: got %d", len(cfg.Import.Directories))
	}
	if want := filepath.Join(dir, "entrada"); cfg.Import.Directories[0] != want {
		t.Errorf("import directory = %s, want %s", cfg.Import.Directories[0], want)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Portal.BaseURL != "http://localhost:8080" {
		t.Errorf("default base_url: got %s", cfg.Portal.BaseURL)
	}
	if cfg.Autocomplete.Endpoint != "/api/usuarios/buscar" {
		t.Errorf("default endpoint: got %s", cfg.Autocomplete.Endpoint)
	}
	if cfg.Autocomplete.MinDigits != 5 {
		t.Errorf("default min_digits: got %d", cfg.Autocomplete.MinDigits)
	}
	if cfg.Autocomplete.Debounce() != 300*time.Millisecond {
		t.Errorf("default debounce: got %s", cfg.Autocomplete.Debounce())
	}
	if cfg.Autocomplete.MessageTTL() != 5*time.Second {
		t.Errorf("default message ttl: got %s", cfg.Autocomplete.MessageTTL())
	}
	if len(cfg.Import.Extensions) != 1 || cfg.Import.Extensions[0] != ".xlsx" {
		t.Errorf("import extensions: got %v", cfg.Import.Extensions)
	}
}

func TestAutocompleteConfig_Flags(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		a := &AutocompleteConfig{}
		if !a.AutoLockOrDefault() || !a.ShowMessagesOrDefault() {
			t.Error("unset flags should default to true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		a := &AutocompleteConfig{AutoLock: &f, ShowMessages: &f}
		if a.AutoLockOrDefault() || a.ShowMessagesOrDefault() {
			t.Error("explicit false should be kept")
		}
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
