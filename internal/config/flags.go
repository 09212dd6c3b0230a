package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides registered on a FlagSet.
type Flags struct {
	set *pflag.FlagSet

	config      string
	debug       bool
	minVersion  int
	maxVersion  int
	index       string
	logFile     string
	worldDirs   []string
	registryDir string
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{set: fs}
	fs.StringVar(&f.config, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.minVersion, "min-version", 0, "Oldest world version to accept")
	fs.IntVar(&f.maxVersion, "max-version", 0, "Newest world version to accept")
	fs.StringVar(&f.index, "index", "", "Path to the chest index database")
	fs.StringVar(&f.logFile, "log-file", "", "Also log to this file")
	fs.StringSliceVar(&f.worldDirs, "world-dir", nil, "World folder to scan (repeatable)")
	fs.StringVar(&f.registryDir, "data-dir", "", "Directory with registry JSON files")
	return f
}

// ConfigPath returns the explicit config path if provided via --config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.config
}

// apply copies flags the user set onto cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if f.set.Changed("min-version") {
		cfg.Decoder.MinVersion = f.minVersion
	}
	if f.set.Changed("max-version") {
		cfg.Decoder.MaxVersion = f.maxVersion
	}
	if f.index != "" {
		cfg.Index.Path = f.index
	}
	if f.logFile != "" {
		cfg.Logging.LogFile = f.logFile
	}
	if len(f.worldDirs) > 0 {
		cfg.Library.WorldDirs = f.worldDirs
	}
	if f.registryDir != "" {
		cfg.Data.RegistryDir = f.registryDir
	}
}
