package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// MaxDragThreshold bounds drag.threshold in terminal cells.
const MaxDragThreshold = 10

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Drag     DragConfig     `toml:"drag"`
	UI       UIConfig       `toml:"ui"`
	Keys     KeyConfig      `toml:"keys"`
	Seed     SeedConfig     `toml:"seed"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"` // debug | info | warn | error
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DragConfig tunes the mouse sensor: a press turns into a drag only after the
// pointer travels Threshold cells.
type DragConfig struct {
	Threshold int `toml:"threshold"`
}

type UIConfig struct {
	ShowHelp    bool `toml:"show_help"`
	ShowRegions bool `toml:"show_regions"`
}

// KeyConfig overrides single-key bindings. Blank entries keep the defaults.
type KeyConfig struct {
	PickUp     string `toml:"pick_up"`
	Drop       string `toml:"drop"`
	Cancel     string `toml:"cancel"`
	NewElement string `toml:"new_element"`
	Rename     string `toml:"rename"`
	Delete     string `toml:"delete"`
	Copy       string `toml:"copy"`
}

type SeedConfig struct {
	Rows     []string            `toml:"rows"`
	Columns  []string            `toml:"columns"`
	Elements []SeedElementConfig `toml:"elements"`
}

type SeedElementConfig struct {
	Name   string `toml:"name"`
	Column int    `toml:"column"`
	Row    int    `toml:"row"`
}

func defaultSeed() SeedConfig {
	return SeedConfig{
		Rows:    []string{"Row 1", "Row 2", "Row 3"},
		Columns: []string{"Column 1", "Column 2", "Column 3"},
		Elements: []SeedElementConfig{
			{Name: "Item 1", Column: 1, Row: 1},
			{Name: "Item 2", Column: 1, Row: 1},
		},
	}
}

// Default returns the built-in config. The dev log file goes to logDir.
func Default(dbPath, logDir string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     logDir,
			},
		},
		Drag: DragConfig{
			Threshold: 1,
		},
		UI: UIConfig{
			ShowHelp:    true,
			ShowRegions: false,
		},
		Seed: defaultSeed(),
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	seen := map[string]string{}
	for name, raw := range map[string]string{
		"pick_up":     c.Keys.PickUp,
		"drop":        c.Keys.Drop,
		"cancel":      c.Keys.Cancel,
		"new_element": c.Keys.NewElement,
		"rename":      c.Keys.Rename,
		"delete":      c.Keys.Delete,
		"copy":        c.Keys.Copy,
	} {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		if other, ok := seen[key]; ok {
			first, second := min(name, other), max(name, other)
			return fmt.Errorf("keys.%s and keys.%s both bind %q", first, second, key)
		}
		seen[key] = name
	}

	if c.Drag.Threshold < 0 || c.Drag.Threshold > MaxDragThreshold {
		return fmt.Errorf("drag.threshold must be between 0 and %d", MaxDragThreshold)
	}

	for idx, name := range c.Seed.Rows {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("seed.rows[%d] is required", idx)
		}
	}
	for idx, name := range c.Seed.Columns {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("seed.columns[%d] is required", idx)
		}
	}
	for idx, elem := range c.Seed.Elements {
		if strings.TrimSpace(elem.Name) == "" {
			return fmt.Errorf("seed.elements[%d].name is required", idx)
		}
		if elem.Column < 1 || elem.Column > len(c.Seed.Columns) {
			return fmt.Errorf("seed.elements[%d].column references unknown column %d", idx, elem.Column)
		}
		if elem.Row < 1 || elem.Row > len(c.Seed.Rows) {
			return fmt.Errorf("seed.elements[%d].row references unknown row %d", idx, elem.Row)
		}
	}

	return nil
}
