package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "WORLDBUILD_CONFIG"

type Config struct {
	World    WorldConfig    `toml:"world"`
	Scene    SceneConfig    `toml:"scene"`
	Data     DataConfig     `toml:"data"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

type WorldConfig struct {
	InitialCapacity int `toml:"initial_capacity"`
	MaxEntities     int `toml:"max_entities"` // 0 = unlimited
}

type SceneConfig struct {
	Name          string        `toml:"name"`
	TickRate      time.Duration `toml:"tick_rate"`
	AutosaveTicks int           `toml:"autosave_ticks"` // 0 = only save on exit
}

type DataConfig struct {
	PrefabFile string `toml:"prefab_file"`
	ScriptsDir string `toml:"scripts_dir"`
}

// DatabaseConfig configures snapshot persistence. An empty DSN disables it.
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

func (c DatabaseConfig) Enabled() bool { return c.DSN != "" }

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path resolves the config file to load: the environment override wins over
// the flag value.
func Path(flag string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return flag
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML over the defaults. name is only used in errors.
func Parse(data []byte, name string) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if cfg.Scene.TickRate <= 0 {
		return nil, fmt.Errorf("parse config %s: scene.tick_rate must be positive", name)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		World: WorldConfig{
			InitialCapacity: 1024,
		},
		Scene: SceneConfig{
			Name:     "default",
			TickRate: 50 * time.Millisecond,
		},
		Data: DataConfig{
			PrefabFile: "data/prefabs.yaml",
			ScriptsDir: "scripts",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
