// Package mpconfig provides viper-backed configuration for the mpcore engine.
package mpconfig

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine and its ambient/domain stack.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      LogConfig      `mapstructure:"log"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Storage  StorageConfig  `mapstructure:"storage"`

	v *viper.Viper
}

// EngineConfig mirrors the configuration keys consumed by the core (spec §4.K).
type EngineConfig struct {
	MinLogLength      int  `mapstructure:"min_log_length"`
	MaxLogLength      int  `mapstructure:"max_log_length"`
	DelayedAllocation bool `mapstructure:"delayed_allocation"`
	PoolShards        int  `mapstructure:"pool_shards"`
	SlabInitialSize   int  `mapstructure:"slab_initial_size"`
}

// LogConfig configures the async log sink (Component E).
type LogConfig struct {
	Path     string `mapstructure:"path"`
	Level    string `mapstructure:"level"`
	Capacity int    `mapstructure:"capacity"`
}

// JournalConfig configures the optional evaluation journal (Component O).
type JournalConfig struct {
	Type     string `mapstructure:"type"` // "", "sqlite", "mysql", "postgres"
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// StorageConfig configures the optional graph-export upload target (Component J export).
type StorageConfig struct {
	Type      string `mapstructure:"type"` // "local" or "cos"
	LocalPath string `mapstructure:"local_path"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
}

// Load reads configuration from the specified file path, falling back to defaults
// when no file is present.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("mpcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/mpcore")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// no config file; defaults stand
		} else if os.IsNotExist(err) {
			// explicit path didn't exist; defaults stand
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// LoadFromReader loads configuration from raw bytes, useful for tests.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// Default returns a Config populated entirely from defaults (no file, no env).
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.v = v
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.min_log_length", 12)
	v.SetDefault("engine.max_log_length", 32)
	v.SetDefault("engine.delayed_allocation", true)
	v.SetDefault("engine.pool_shards", 0) // 0 means "compute from GOMAXPROCS at runtime"
	v.SetDefault("engine.slab_initial_size", 4194304)

	v.SetDefault("log.path", "./mpcore.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.capacity", 256)

	v.SetDefault("journal.type", "")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./graphs")
}

// GetOrElse is the Go analogue of the source's config.get_or_else<T>(path, default):
// it returns the value stored at path if present and of the requested type, or def
// otherwise. Matches ConfigType::get_or_else's catch-and-default behavior exactly.
func GetOrElse[T any](cfg *Config, path string, def T) T {
	if cfg == nil || cfg.v == nil || !cfg.v.IsSet(path) {
		return def
	}
	raw := cfg.v.Get(path)
	if v, ok := raw.(T); ok {
		return v
	}
	return def
}
