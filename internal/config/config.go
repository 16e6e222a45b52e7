package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
)

// Config is the root configuration for tpt, stored in ~/.tpt/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	Remote RemoteConfig `json:"remote"`
	Sheets SheetsConfig `json:"sheets"`
	MySQL  MySQLConfig  `json:"mysql"`
	Local  LocalConfig  `json:"local"`
}

// RemoteConfig selects the append-only store entries are saved to.
type RemoteConfig struct {
	// Kind is one of "sheets", "mysql" or "none".
	Kind string `json:"kind"`
	// InitTimeout bounds how long a command waits for the remote client, e.g. "5s".
	InitTimeout string `json:"init_timeout"`
}

// SheetsConfig holds Google Sheets settings.
type SheetsConfig struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
	// CredentialsFile is a service account JSON key. Required for writes.
	CredentialsFile string `json:"credentials_file"`
	// APIKey is read-only. Prefer the keyring or TPT_SHEETS_API_KEY over this field.
	APIKey string `json:"api_key"`
}

// MySQLConfig holds the MySQL remote settings.
type MySQLConfig struct {
	// DSN, e.g. user:pass@tcp(localhost:3306)/tpt. Prefer the keyring or TPT_MYSQL_DSN.
	DSN string `json:"dsn"`
}

// LocalConfig controls the local slot.
type LocalConfig struct {
	// Backend is "json" or "sqlite".
	Backend string `json:"backend"`
	// Slot is the name of the record holding the entry sequence.
	Slot string `json:"slot"`
}

const (
	RemoteNone   = "none"
	RemoteSheets = "sheets"
	RemoteMySQL  = "mysql"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	DefaultInitTimeout = 5 * time.Second
	DefaultSheetName   = "PayTracker"
	DefaultSlot        = "payTrackerEntries"
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		Remote: RemoteConfig{Kind: RemoteNone, InitTimeout: DefaultInitTimeout.String()},
		Sheets: SheetsConfig{SheetName: DefaultSheetName},
		Local:  LocalConfig{Backend: BackendJSON, Slot: DefaultSlot},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// tpt configuration – ~/.tpt/config.json
//
// All settings are optional. Without a remote, entries are kept in local
// storage only.
{
  "remote": {
    // Where entries are appended: "sheets", "mysql" or "none" (default).
    "kind": "none",

    // How long a command waits for the remote client before falling back to
    // local storage.
    "init_timeout": "5s"
  },

  "sheets": {
    // The id from the spreadsheet URL: docs.google.com/spreadsheets/d/<id>/edit
    "spreadsheet_id": "",

    // Worksheet holding the rows. Row 1 is a header and is never read back.
    "sheet_name": "PayTracker",

    // Service account JSON key with edit access to the spreadsheet.
    "credentials_file": "",

    // Read-only API key. Leave empty and use: tpt secret set sheets-api-key
    "api_key": ""
  },

  "mysql": {
    // Leave empty and use: tpt secret set mysql-dsn  (or TPT_MYSQL_DSN)
    "dsn": ""
  },

  "local": {
    // "json" (~/.tpt/<slot>.json) or "sqlite" (~/.tpt/tpt.db)
    "backend": "json",
    "slot": "payTrackerEntries"
  }
}
`

// FilePath returns the path to ~/.tpt/config.json.
func FilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tpt", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.tpt/config.json, creating it with annotated defaults on first
// run. Lines starting with // are treated as comments and stripped before
// JSON parsing.
func Load() (Config, error) {
	path, err := FilePath()
	if err != nil {
		return defaultConfig(), err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			logger.Warn("could not create config file", "path", path, "err", writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// fillDefaults replaces zero-value fields with built-in defaults so callers
// always get a usable Config even if the file is only partially filled in.
func (c *Config) fillDefaults() {
	d := defaultConfig()
	if c.Remote.Kind == "" {
		c.Remote.Kind = d.Remote.Kind
	}
	if c.Remote.InitTimeout == "" {
		c.Remote.InitTimeout = d.Remote.InitTimeout
	}
	if c.Sheets.SheetName == "" {
		c.Sheets.SheetName = d.Sheets.SheetName
	}
	if c.Local.Backend == "" {
		c.Local.Backend = d.Local.Backend
	}
	if c.Local.Slot == "" {
		c.Local.Slot = d.Local.Slot
	}
}

// Validate rejects unknown enum values and unparseable durations.
func (c Config) Validate() error {
	switch c.Remote.Kind {
	case RemoteNone, RemoteSheets, RemoteMySQL:
	default:
		return fmt.Errorf("remote.kind must be one of none, sheets, mysql; got %q", c.Remote.Kind)
	}
	switch c.Local.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("local.backend must be json or sqlite; got %q", c.Local.Backend)
	}
	if d, err := time.ParseDuration(c.Remote.InitTimeout); err != nil || d <= 0 {
		return fmt.Errorf("remote.init_timeout must be a positive duration; got %q", c.Remote.InitTimeout)
	}
	return nil
}

// InitTimeout returns remote.init_timeout, or the default when it cannot be parsed.
func (c Config) InitTimeout() time.Duration {
	d, err := time.ParseDuration(c.Remote.InitTimeout)
	if err != nil || d <= 0 {
		return DefaultInitTimeout
	}
	return d
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
