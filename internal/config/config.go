// Package config is the top-level configuration for both the daemon and
// exec entry points: where the candle store lives on disk, which exchange
// adapters are wired in, and the HTTP listener the daemon exposes.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"candlereactor/internal/exchange"
	"candlereactor/pkg/confkit"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"
)

// Config is loaded once at process start from a YAML file (see Load)
// plus environment variable overrides.
type Config struct {
	rest.RestConf

	// Env selects environment-specific behavior (test/dev/prod); validated
	// in Validate, defaulting to "dev" when left blank.
	Env string `json:",default=dev,options=test|dev|prod"`

	// StorePath is where the bbolt database backing every market lives.
	StorePath string `json:",default=./data/candles.db"`

	// DefaultExchange names the exchange bare "base/quote" market strings
	// resolve against (the cat/ls builtins' convenience form). Defaults to
	// whichever exchange is registered first if left empty.
	DefaultExchange string `json:",optional"`

	Exchange confkit.Section[exchange.Config] `json:",optional"`

	mainPath string
	baseDir  string
}

const defaultConfigRelativePath = "etc/candlereactor.yaml"

var configFileFlag = flag.String("f", defaultConfigRelativePath, "the config file")

func init() {
	confkit.LoadDotenvOnce()
}

// ConfigFile resolves the -f flag (or its default) by looking for it in the
// working directory and each of its parents, then in the executable's
// directory and each of its parents.
func ConfigFile() string {
	candidate := defaultConfigRelativePath
	if configFileFlag != nil {
		if trimmed := strings.TrimSpace(*configFileFlag); trimmed != "" {
			candidate = trimmed
		}
	}
	if resolved, ok := resolveConfigPath(candidate); ok {
		return resolved
	}
	return candidate
}

func resolveConfigPath(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if filepath.IsAbs(path) {
		if fileExists(path) {
			return path, true
		}
		return "", false
	}

	startDirs := make([]string, 0, 2)
	if cwd, err := os.Getwd(); err == nil {
		startDirs = append(startDirs, cwd)
	}
	if exePath, err := os.Executable(); err == nil {
		startDirs = append(startDirs, filepath.Dir(exePath))
	}

	seen := make(map[string]struct{}, len(startDirs))
	for _, dir := range startDirs {
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		if resolved, ok := searchUpwards(dir, path); ok {
			return resolved, true
		}
	}
	return "", false
}

func searchUpwards(start, rel string) (string, bool) {
	dir := filepath.Clean(start)
	for {
		candidate := filepath.Join(dir, rel)
		if fileExists(candidate) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MustLoad loads ConfigFile() or panics.
func MustLoad() *Config {
	cfg, err := Load(ConfigFile())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads and validates the config file at path, hydrating its
// sub-sections.
func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	var cfg Config
	if err := conf.Load(absPath, &cfg, conf.UseEnv()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", absPath, err)
	}

	cfg.mainPath = absPath
	cfg.baseDir = filepath.Dir(absPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.hydrateSections(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the top-level fields Load itself is responsible
// for; sub-section configs validate themselves when hydrated.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StorePath) == "" {
		return errors.New("config: storePath is required")
	}
	switch c.Env {
	case "":
		c.Env = "dev"
	case "test", "dev", "prod":
	default:
		return fmt.Errorf("config: env must be one of test|dev|prod, got %q", c.Env)
	}
	return nil
}

// IsTestEnv reports whether this config was loaded for the test
// environment (Env is "test").
func (c *Config) IsTestEnv() bool {
	return c.Env == "test"
}

func (c *Config) hydrateSections() error {
	if err := c.Exchange.Hydrate(c.baseDir, exchange.LoadConfig); err != nil {
		return fmt.Errorf("load exchange config: %w", err)
	}
	return nil
}

// MainPath returns the absolute path the config was loaded from.
func (c *Config) MainPath() string {
	return c.mainPath
}

// BaseDir returns the directory of the main config file, the base every
// hydrated section's relative path resolves against.
func (c *Config) BaseDir() string {
	return c.baseDir
}

// ResolvedStorePath resolves StorePath relative to BaseDir if it isn't
// already absolute.
func (c *Config) ResolvedStorePath() string {
	return confkit.ResolvePath(c.baseDir, c.StorePath)
}
