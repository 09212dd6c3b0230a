// Package config handles wldtool configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/multierr"

	"github.com/Faultbox/terrafirma/pkg/wld"
)

// Config holds all tool settings.
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Library LibraryConfig `yaml:"library"`
	Index   IndexConfig   `yaml:"index"`
	Minimap MinimapConfig `yaml:"minimap"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
}

// DecoderConfig holds world decoding limits.
type DecoderConfig struct {
	MinVersion   int `yaml:"min_version"`
	MaxVersion   int `yaml:"max_version"`
	MaxGridCells int `yaml:"max_grid_cells"`
}

// LibraryConfig holds world folder and cache settings.
type LibraryConfig struct {
	WorldDirs  []string      `yaml:"world_dirs"`
	CacheMaxMB int           `yaml:"cache_max_mb"` // 0 disables the cache
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// IndexConfig holds the chest index database location.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// MinimapConfig holds minimap export settings.
type MinimapConfig struct {
	MaxDimension int `yaml:"max_dimension"` // 0 keeps full size
}

// DataConfig points at an external registry directory. Empty uses the bundled data.
type DataConfig struct {
	RegistryDir string `yaml:"registry_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decoder: DecoderConfig{
			MinVersion:   wld.DefaultMinVersion,
			MaxVersion:   wld.DefaultMaxVersion,
			MaxGridCells: wld.DefaultMaxGridCells,
		},
		Library: LibraryConfig{
			WorldDirs:  []string{DefaultWorldDir()},
			CacheMaxMB: 512,
			CacheTTL:   10 * time.Minute,
		},
		Index: IndexConfig{
			Path: filepath.Join(ConfigDir(), "chests.db"),
		},
		Minimap: MinimapConfig{
			MaxDimension: 2048,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DecoderOptions converts the decoder section for wld.NewDecoder.
func (c *Config) DecoderOptions() wld.DecoderConfig {
	return wld.DecoderConfig{
		MinVersion:   c.Decoder.MinVersion,
		MaxVersion:   c.Decoder.MaxVersion,
		MaxGridCells: c.Decoder.MaxGridCells,
	}
}

// Validate reports every inconsistent setting.
func (c *Config) Validate() error {
	var errs error
	d := c.Decoder
	if d.MinVersion < 0 || d.MaxVersion < 0 {
		errs = multierr.Append(errs, fmt.Errorf("decoder: negative version bound"))
	}
	if d.MaxVersion != 0 && d.MinVersion > d.MaxVersion {
		errs = multierr.Append(errs, fmt.Errorf("decoder: min_version %d above max_version %d", d.MinVersion, d.MaxVersion))
	}
	if d.MaxGridCells < 0 {
		errs = multierr.Append(errs, fmt.Errorf("decoder: negative max_grid_cells"))
	}
	if c.Library.CacheMaxMB < 0 {
		errs = multierr.Append(errs, fmt.Errorf("library: negative cache_max_mb"))
	}
	if c.Minimap.MaxDimension < 0 {
		errs = multierr.Append(errs, fmt.Errorf("minimap: negative max_dimension"))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = multierr.Append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	return errs
}

// DefaultWorldDir returns where the game keeps local worlds on this OS.
func DefaultWorldDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Terraria", "Worlds")
	case "windows":
		return filepath.Join(home, "Documents", "My Games", "Terraria", "Worlds")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "Terraria", "Worlds")
		}
		return filepath.Join(home, ".local", "share", "Terraria", "Worlds")
	}
}
