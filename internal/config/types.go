// Package config loads regionmap configuration.
//
// Values are layered, lowest to highest precedence: built-in defaults, the
// project file (regionmap.yaml or regionmap.yml), REGIONMAP_* environment
// variables (a .env file in the project root is read first) and command-line
// flags that were explicitly set.
package config

import (
	"github.com/leapstack-labs/regionmap/internal/loader"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "regionmap.yaml"
	ConfigFileNameAlt = "regionmap.yml"
)

// EnvPrefix prefixes every environment variable read. Nested keys use a
// double underscore: REGIONMAP_SERVER__PORT sets server.port.
const EnvPrefix = "REGIONMAP_"

// Default configuration values.
const (
	DefaultDataDir     = loader.DefaultDataDir
	DefaultMaxFileSize = loader.DefaultMaxFileSize
	DefaultStateFile   = ".regionmap/state.db"
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8050
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto" // TTY=text, non-TTY=markdown
)

// MemoryPath as state_path keeps the load history in memory.
const MemoryPath = ":memory:"

// Config holds all regionmap configuration.
type Config struct {
	DataDir           string `koanf:"data_dir" validate:"required"`
	RegionsDir        string `koanf:"regions_dir"`
	OrganizationsPath string `koanf:"organizations_path"`
	AnalyticPath      string `koanf:"analytic_path"`
	MaxFileSize       int64  `koanf:"max_file_size" validate:"gt=0"`
	StatePath         string `koanf:"state_path"`

	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`

	OutputFormat string `koanf:"output" validate:"oneof=auto text markdown json"`
	Verbose      bool   `koanf:"verbose"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the file that was read, if any.
	ConfigFile string `koanf:"-"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"gte=0,lte=65535"`
	// Watch rebuilds the table when input files change.
	Watch bool `koanf:"watch"`
	// SessionSecret signs the session cookie. A random key is used when empty,
	// so sessions do not survive a restart.
	SessionSecret string `koanf:"session_secret"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
	// File, when set, receives the log through a rotating writer.
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
	Compress   bool   `koanf:"compress"`
}

// Defaults returns the default values as koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"data_dir":              DefaultDataDir,
		"regions_dir":           "",
		"organizations_path":    "",
		"analytic_path":         "",
		"max_file_size":         DefaultMaxFileSize,
		"state_path":            DefaultStateFile,
		"server.host":           DefaultHost,
		"server.port":           DefaultPort,
		"server.watch":          true,
		"server.session_secret": "",
		"log.level":             DefaultLogLevel,
		"log.format":            DefaultLogFormat,
		"log.file":              "",
		"log.max_size_mb":       100,
		"log.max_backups":       3,
		"log.max_age_days":      28,
		"log.compress":          false,
		"output":                DefaultOutput,
		"verbose":               false,
	}
}
