// Package config loads the TOML configuration read by the tuber binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tubereng/tuber/gpu"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "TUBER_CONFIG"

// DefaultPath is read when neither a flag nor EnvPath names a file.
const DefaultPath = "tuber.toml"

type Config struct {
	Window  WindowConfig  `toml:"window"`
	Ecs     EcsConfig     `toml:"ecs"`
	Render  RenderConfig  `toml:"render"`
	Logging LoggingConfig `toml:"logging"`
	Assets  AssetsConfig  `toml:"assets"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type EcsConfig struct {
	MaxEntityCount int  `toml:"max_entity_count"` // power of two
	Workers        int  `toml:"workers"`          // 0 = GOMAXPROCS
	StrictBorrows  bool `toml:"strict_borrows"`
}

type RenderConfig struct {
	ClearColor [4]float64 `toml:"clear_color"` // linear RGBA
}

// Color returns the clear color as a gpu.Color.
func (c RenderConfig) Color() gpu.Color {
	return gpu.Color{R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3]}
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	// File receives the log instead of stderr; the terminal platform needs
	// one since it owns the screen.
	File string `toml:"file"`
}

type AssetsConfig struct {
	// Root is the asset directory. Empty means the binary's default: the
	// bundled assets for tuber-demo.
	Root string `toml:"root"`
}

// Path returns the config path to read: EnvPath when set, otherwise flagPath,
// otherwise DefaultPath.
func Path(flagPath string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	if flagPath != "" {
		return flagPath
	}
	return DefaultPath
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

func Defaults() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "TuberApp",
			Width:  800,
			Height: 600,
		},
		Ecs: EcsConfig{
			MaxEntityCount: 1 << 16,
		},
		Render: RenderConfig{
			ClearColor: [4]float64{0.1, 0.2, 0.3, 1},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) validate() error {
	if n := c.Ecs.MaxEntityCount; n <= 0 || n&(n-1) != 0 {
		return fmt.Errorf("ecs.max_entity_count %d is not a power of two", n)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d is not positive", c.Window.Width, c.Window.Height)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is neither json nor console", c.Logging.Format)
	}
	return nil
}
