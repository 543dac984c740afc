package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFileName is the standard configuration file name.
	DefaultConfigFileName = "opsledger.toml"

	// XDGConfigSubdir is the subdirectory under XDG_CONFIG_HOME and XDG_DATA_HOME.
	XDGConfigSubdir = "opsledger"

	// EnvPrefix prefixes the environment variables that override file values.
	EnvPrefix = "OPSLEDGER_"
)

const fileHeader = `# Operations ledger configuration
#
# Generated on first run. Edit as needed; ledger.tax_rate applies to
# every supply receipt recorded after the change.

`

// LoadError reports which file failed to load.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load resolves the configuration. An explicit path is used alone;
// otherwise the XDG config file then ./opsledger.toml are tried. When
// neither exists and createDefault is set, the defaults are written to the
// first writable candidate. OPSLEDGER_* environment variables override
// whatever was loaded.
//
// The returned path is where the configuration came from, empty when the
// defaults could not be written anywhere.
func Load(explicitPath string, createDefault bool) (*Config, string, error) {
	candidates := []string{explicitPath}
	if explicitPath == "" {
		candidates = searchPaths()
	}

	for _, path := range candidates {
		if explicitPath == "" && !fileExists(path) {
			continue
		}
		cfg, err := loadFromFile(path)
		if err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	if !createDefault {
		return nil, "", fmt.Errorf("no configuration file found; searched: %s", strings.Join(candidates, ", "))
	}

	cfg := Default()
	written := ""
	for _, path := range candidates {
		if err := Save(cfg, path); err == nil {
			written = path
			break
		}
	}

	if err := finish(cfg); err != nil {
		return nil, "", err
	}
	return cfg, written, nil
}

// searchPaths lists the implicit configuration locations, most preferred first.
func searchPaths() []string {
	var paths []string
	if dir := xdgHome("XDG_CONFIG_HOME", ".config"); dir != "" {
		paths = append(paths, filepath.Join(dir, XDGConfigSubdir, DefaultConfigFileName))
	}
	return append(paths, filepath.Join(".", DefaultConfigFileName))
}

func loadFromFile(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slog.Warn("ignoring unknown configuration keys", "path", path, "keys", keys)
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies environment overrides and validates.
func finish(cfg *Config) error {
	applyEnv(cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// applyEnv overrides the settings most often changed per machine.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	overrides := []struct {
		name string
		dst  *string
	}{
		{"COMPANY", &cfg.Shop.CompanyName},
		{"OPERATOR", &cfg.Shop.OperatorID},
		{"DB_PATH", &cfg.Database.Path},
		{"LOG_FILE", &cfg.Logging.File},
	}
	for _, o := range overrides {
		if v, ok := lookup(EnvPrefix + o.name); ok {
			*o.dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.Logging.Level = LogLevel(strings.ToLower(v))
	}
}

// Save writes cfg as TOML. The file is replaced atomically.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+DefaultConfigFileName+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(fileHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding TOML: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0640); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// xdgHome returns $env, falling back to ~/fallback.
func xdgHome(env, fallback string) string {
	if d := os.Getenv(env); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dataDir is where relative database, backup and log paths live: the
// opsledger directory under XDG_DATA_HOME, or the working directory when
// that cannot be created.
func dataDir() string {
	base := xdgHome("XDG_DATA_HOME", filepath.Join(".local", "share"))
	if base == "" {
		return "."
	}
	dir := filepath.Join(base, XDGConfigSubdir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "."
	}
	return dir
}

// resolve anchors a relative path in the data directory and creates its
// parent directory.
func resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dataDir(), path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureDataDir returns the database file path, creating its directory.
func EnsureDataDir(cfg *Config) (string, error) {
	path, err := resolve(cfg.Database.Path)
	if err != nil {
		return "", fmt.Errorf("creating database directory: %w", err)
	}
	return path, nil
}

// EnsureLogDir returns the log file path, creating its directory. An empty
// path disables file logging.
func EnsureLogDir(cfg *Config) (string, error) {
	if cfg.Logging.File == "" {
		return "", nil
	}
	path, err := resolve(cfg.Logging.File)
	if err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}
	return path, nil
}

// BackupDir returns the backups directory beside the database, creating it.
func BackupDir(cfg *Config) (string, error) {
	dbPath, err := EnsureDataDir(cfg)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	return dir, nil
}
