// Package config loads tada settings from defaults, TOML files, .env, the
// environment and flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Backend names which store variant the app runs on.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

const (
	DefaultListen    = ":8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultTheme     = "classic"

	ProjectFile = "tada.toml"
	UserFile    = "config.toml"
	LogFile     = "tada.log"
)

// Config is everything the binary needs to wire itself.
type Config struct {
	Backend    Backend `toml:"backend"`
	DataDir    string  `toml:"data_dir"`
	APIBaseURL string  `toml:"api_base_url"`
	Listen     string  `toml:"listen"`
	LogLevel   string  `toml:"log_level"`
	LogFormat  string  `toml:"log_format"`
	Theme      string  `toml:"theme"`

	// Group lists pending and done separately in `ls`.
	Group bool `toml:"group"`

	// ConfigFile is the file that was loaded last, if any.
	ConfigFile string `toml:"-"`
}

// Load builds a Config. Flags are parsed from args with fs; the remaining
// positional arguments are returned.
func Load(fs *flag.FlagSet, args []string) (*Config, []string, error) {
	cfg := &Config{}
	setDefaults(cfg)

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("loading .env: %w", err)
	}

	for _, p := range configFiles(strings.TrimSpace(os.Getenv("TADA_CONFIG"))) {
		if err := loadFile(cfg, p); err != nil {
			return nil, nil, fmt.Errorf("loading config file %s: %w", p, err)
		}
		cfg.ConfigFile = p
	}

	loadFromEnv(cfg)

	rest, err := parseFlags(cfg, fs, args)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

func setDefaults(cfg *Config) {
	cfg.Backend = BackendLocal
	cfg.DataDir = defaultDataDir()
	cfg.Listen = DefaultListen
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.Theme = DefaultTheme
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tada"
	}
	return filepath.Join(home, ".tada")
}

// configFiles lists existing config files, lowest priority first.
func configFiles(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	var out []string
	if user := filepath.Join(defaultDataDir(), UserFile); fileExists(user) {
		out = append(out, user)
	}
	if fileExists(ProjectFile) {
		out = append(out, ProjectFile)
	}
	return out
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func loadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return fmt.Errorf("unknown keys: %v", undec)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	set := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	var backend string
	set("TADA_BACKEND", &backend)
	if backend != "" {
		cfg.Backend = Backend(backend)
	}
	set("TADA_DATA_DIR", &cfg.DataDir)
	set("TADA_API_BASE_URL", &cfg.APIBaseURL)
	set("TADA_LISTEN", &cfg.Listen)
	set("TADA_LOG_LEVEL", &cfg.LogLevel)
	set("TADA_LOG_FORMAT", &cfg.LogFormat)
	set("TADA_THEME", &cfg.Theme)
}

func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) ([]string, error) {
	if fs == nil {
		return args, nil
	}
	backend := string(cfg.Backend)
	fs.StringVar(&backend, "backend", backend, "storage backend: local or remote")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding todos and the connection string")
	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "base URL of a todo API (empty: in-process mock)")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "address for `serve`")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text, json or logfmt")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "classic, neon or mono")
	fs.BoolVar(&cfg.Group, "group", cfg.Group, "group output by pending/done")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Backend = Backend(backend)
	return fs.Args(), nil
}

func (cfg *Config) finalize() error {
	cfg.Backend = Backend(strings.ToLower(string(cfg.Backend)))
	switch cfg.Backend {
	case BackendLocal, BackendRemote:
	default:
		return fmt.Errorf("unknown backend %q (want local or remote)", cfg.Backend)
	}
	if strings.HasPrefix(cfg.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
		}
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is empty")
	}
	return nil
}

// LogPath is where the TUI writes its log.
func (cfg *Config) LogPath() string { return filepath.Join(cfg.DataDir, LogFile) }
