// Package config loads the daemon's own configuration through viper
// and the supervised program definitions from a YAML program file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"taskmaster/pkg/utils/constants"
)

var (
	configMu sync.RWMutex
	config   *Config
)

// Config is the daemon-level configuration. Program definitions live
// in their own file, see LoadPrograms.
type Config struct {
	Daemonize   bool              `yaml:"daemonize" mapstructure:"daemonize"`
	PidFile     string            `yaml:"pidfile" mapstructure:"pidfile"`
	Listen      string            `yaml:"listen" mapstructure:"listen"`
	Programs    string            `yaml:"programs" mapstructure:"programs"`
	Pool        int               `yaml:"pool" mapstructure:"pool"`
	Metrics     string            `yaml:"metrics" mapstructure:"metrics"`
	SnapshotDir string            `yaml:"snapshotdir" mapstructure:"snapshotdir"`
	Log         Log               `yaml:"log" mapstructure:"log"`
	Env         map[string]string `yaml:"env,omitempty" mapstructure:"env,omitempty"`
}

// Log configures the daemon's own log sink, not the children's.
type Log struct {
	Level        string `yaml:"level,omitempty" mapstructure:"level,omitempty"`
	FileEnabled  bool   `yaml:"file_enabled" mapstructure:"file_enabled"`
	FilePath     string `yaml:"file_path,omitempty" mapstructure:"file_path,omitempty"`
	FileSize     int    `yaml:"file_size,omitempty" mapstructure:"file_size,omitempty"`
	FileCompress bool   `yaml:"file_compress,omitempty" mapstructure:"file_compress,omitempty"`
	MaxAge       int    `yaml:"max_age,omitempty" mapstructure:"max_age,omitempty"`
	MaxBackups   int    `yaml:"max_backups,omitempty" mapstructure:"max_backups,omitempty"`
}

func setDefault(v *viper.Viper) {
	v.SetDefault("daemonize", true)
	v.SetDefault("pidfile", constants.DaemonPidFilePath)
	v.SetDefault("listen", constants.DefaultListenAddr)
	v.SetDefault("programs", "")
	v.SetDefault("pool", constants.DefaultPoolSize)
	v.SetDefault("metrics", "")
	v.SetDefault("snapshotdir", constants.DaemonSnapshotDirPath)
	// Dotted keys so the defaults land on the same keys the yaml file
	// uses, a nested map would be keyed by field name instead.
	v.SetDefault("log.level", constants.DefaultLogLevel)
	v.SetDefault("log.file_path", constants.DaemonLogFilePath)
	v.SetDefault("log.file_enabled", true)
	v.SetDefault("log.file_compress", true)
	v.SetDefault("log.file_size", 50)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 10)
}

// Get returns the configuration from the last Load. The root command
// loads before any subcommand runs, so this is never nil in practice.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// Load reads the daemon configuration. An empty path searches the
// usual locations; a missing file there is fine and yields defaults,
// but an explicit path that does not exist is an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(constants.DefaultDaemonName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("etc")
		v.AddConfigPath("../etc")
		v.AddConfigPath(constants.TaskmasterHome)
		v.AddConfigPath("/etc/taskmaster")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefault(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Pool <= 0 {
		cfg.Pool = constants.DefaultPoolSize
	}

	configMu.Lock()
	config = cfg
	configMu.Unlock()
	return cfg, nil
}
