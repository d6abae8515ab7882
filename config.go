package taskcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskcache/taskcache/cache"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// BuildConfig is the process-wide cache configuration. It is read once at
// build start and read-only from then on.
type BuildConfig struct {
	// Enabled turns task output caching on for the whole build. When false,
	// every task goes straight to its delegate executer.
	Enabled bool `mapstructure:"enabled"`
	// Provider selects the store backend: "directory", "sqlite" or "memory".
	Provider string `mapstructure:"provider"`
	// Directory is the backing location for the directory and sqlite
	// providers.
	Directory string `mapstructure:"directory"`
}

// LoadConfig reads the build configuration from the given file, with
// environment overrides (TASKCACHE_ENABLED etc.) and defaults applied.
// An empty path loads defaults and environment only.
func LoadConfig(path string) (*BuildConfig, error) {
	v := viper.New()
	v.SetDefault("enabled", false)
	v.SetDefault("provider", "directory")
	v.SetDefault("directory", ".task-cache")

	v.SetEnvPrefix("TASKCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	config := &BuildConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return config, nil
}

// NewExecuter builds a caching executer around the given delegate according
// to the process-wide configuration. When caching is disabled, the executer
// passes every task straight to the delegate.
func (c *BuildConfig) NewExecuter(keyer KeyCalculator, delegate Executer, logger *zerolog.Logger) (*CachingExecuter, error) {
	store, err := c.NewStore(logger)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Disabled: !c.Enabled,
		Store:    store,
		Keyer:    keyer,
		Delegate: delegate,
		Logger:   logger,
	}), nil
}

// NewStore builds the configured store backend.
func (c *BuildConfig) NewStore(logger *zerolog.Logger) (cache.Store, error) {
	switch c.Provider {
	case "directory", "":
		return cache.NewDirectoryStore(c.Directory, logger)
	case "sqlite":
		if err := os.MkdirAll(c.Directory, 0o755); err != nil {
			return nil, err
		}
		return cache.NewSQLiteStore(filepath.Join(c.Directory, "cache.db")), nil
	case "memory":
		return cache.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", c.Provider)
	}
}
