package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Ledger.TaxRate != 0.19 {
		t.Errorf("expected default tax rate 0.19, got %v", cfg.Ledger.TaxRate)
	}
	if cfg.Ledger.ActivityLogLimit != 50 {
		t.Errorf("expected default activity limit 50, got %d", cfg.Ledger.ActivityLogLimit)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Missing company", func(c *Config) { c.Shop.CompanyName = "" }, "company_name is required"},
		{"Negative tax", func(c *Config) { c.Ledger.TaxRate = -0.1 }, "tax_rate"},
		{"Tax of one hundred percent", func(c *Config) { c.Ledger.TaxRate = 1 }, "tax_rate"},
		{"Zero activity limit", func(c *Config) { c.Ledger.ActivityLogLimit = 0 }, "activity_log_limit"},
		{"Unknown color scheme", func(c *Config) { c.Display.ColorScheme = "neon" }, "invalid color_scheme"},
		{"Unknown log level", func(c *Config) { c.Logging.Level = "trace" }, "invalid log level"},
		{"Missing database path", func(c *Config) { c.Database.Path = "" }, "path is required"},
		{"Negative retention", func(c *Config) { c.Database.BackupRetentionDays = -1 }, "backup_retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Shop.CompanyName = ""
	cfg.Database.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "shop:") || !strings.Contains(msg, "database:") {
		t.Errorf("expected both sections in joined error, got %v", msg)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")

	content := `
[shop]
company_name = "Taller Sur"

[ledger]
tax_rate = 0.1
activity_log_limit = 20
`
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, loadedFrom, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedFrom != path {
		t.Errorf("expected path %s, got %s", path, loadedFrom)
	}
	if cfg.Shop.CompanyName != "Taller Sur" {
		t.Errorf("expected company 'Taller Sur', got %q", cfg.Shop.CompanyName)
	}
	if cfg.Ledger.TaxRate != 0.1 {
		t.Errorf("expected tax rate 0.1, got %v", cfg.Ledger.TaxRate)
	}
	// Unset values keep their defaults
	if cfg.Database.Path != "ledger.db" {
		t.Errorf("expected default database path, got %q", cfg.Database.Path)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[ledger]\ntax_rate = 2.0\n"), 0640); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	_, _, err := Load(path, false)
	if err == nil {
		t.Fatal("expected error for invalid tax rate")
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Path != path {
		t.Errorf("expected LoadError for %s, got %v", path, err)
	}
}

func TestLoad_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(t.TempDir())

	cfg, path, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(dir, XDGConfigSubdir, DefaultConfigFileName)
	if path != want {
		t.Errorf("expected default written to %s, got %s", want, path)
	}
	if cfg.Shop.CompanyName != Default().Shop.CompanyName {
		t.Errorf("expected default company, got %q", cfg.Shop.CompanyName)
	}

	// Reloading reads the generated file back
	again, againPath, err := Load("", false)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if againPath != want || again.Ledger.ActivityLogLimit != cfg.Ledger.ActivityLogLimit {
		t.Errorf("reload mismatch: %s %+v", againPath, again.Ledger)
	}
}

func TestEnsureDataDir_Relative(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	cfg := Default()
	path, err := EnsureDataDir(cfg)
	if err != nil {
		t.Fatalf("EnsureDataDir: %v", err)
	}
	want := filepath.Join(dir, XDGConfigSubdir, "ledger.db")
	if path != want {
		t.Errorf("expected %s, got %s", want, path)
	}

	backups, err := BackupDir(cfg)
	if err != nil {
		t.Fatalf("BackupDir: %v", err)
	}
	if backups != filepath.Join(dir, XDGConfigSubdir, "backups") {
		t.Errorf("unexpected backup dir %s", backups)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPSLEDGER_COMPANY":   "Maestranza Sur",
		"OPSLEDGER_DB_PATH":   "/srv/ledger.db",
		"OPSLEDGER_LOG_LEVEL": "DEBUG",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	applyEnv(cfg, lookup)

	if cfg.Shop.CompanyName != "Maestranza Sur" {
		t.Errorf("expected company override, got %q", cfg.Shop.CompanyName)
	}
	if cfg.Database.Path != "/srv/ledger.db" {
		t.Errorf("expected database override, got %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
	if cfg.Shop.OperatorID != Default().Shop.OperatorID {
		t.Errorf("unset variables must not change values, got %q", cfg.Shop.OperatorID)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsledger.toml")
	content := "[shop]\ncompany_name = \"Taller Sur\"\nunknown_key = 1\n"
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("OPSLEDGER_OPERATOR", "turno-noche")

	cfg, _, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Shop.OperatorID != "turno-noche" {
		t.Errorf("expected operator from environment, got %q", cfg.Shop.OperatorID)
	}
	if cfg.Shop.CompanyName != "Taller Sur" {
		t.Errorf("expected company from file, got %q", cfg.Shop.CompanyName)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "opsledger.toml")
	cfg := Default()
	cfg.Ledger.ActivityLogLimit = 120

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Operations ledger configuration") {
		t.Error("expected header comment")
	}

	loaded, _, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Ledger.ActivityLogLimit != 120 {
		t.Errorf("expected 120, got %d", loaded.Ledger.ActivityLogLimit)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
}
