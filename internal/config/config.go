// Package config handles tabula.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in the root directory.
const FileName = "tabula.toml"

// Config represents a tabula.toml file.
type Config struct {
	Cache       Cache       `toml:"cache"`
	Engine      Engine      `toml:"engine"`
	Render      Render      `toml:"render"`
	Store       Store       `toml:"store"`
	Definitions Definitions `toml:"definitions"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Cache configures the content cache.
type Cache struct {
	Lifespan Duration `toml:"lifespan"`
	Debounce Duration `toml:"debounce"`
	Disabled bool     `toml:"disabled"`
}

// Engine configures compilation.
type Engine struct {
	MaxDepth int `toml:"max_depth"`
}

// Render configures table elision.
type Render struct {
	RowsLimit int `toml:"rows_limit"`
	ColsLimit int `toml:"cols_limit"`
}

// Store configures the definitions and history database.
type Store struct {
	// Path is relative to Dir unless absolute. Empty disables the store.
	Path string `toml:"path"`
}

// Definitions lists CUE definition bundles loaded at start-up.
type Definitions struct {
	Files []string `toml:"files"`
}

// Duration is a time.Duration written as "3m" or "5ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Cache:  Cache{Lifespan: Duration{3 * time.Minute}, Debounce: Duration{5 * time.Millisecond}},
		Engine: Engine{MaxDepth: 64},
		Render: Render{RowsLimit: 30, ColsLimit: 7},
	}
}

// Load reads tabula.toml from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	path := filepath.Join(abs, FileName)
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		c := Default()
		c.Dir = abs
		return c, nil
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path. Unset values keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	if c.Dir, err = filepath.Abs(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Engine.MaxDepth < 1:
		return fmt.Errorf("engine.max_depth must be at least 1, got %d", c.Engine.MaxDepth)
	case c.Render.RowsLimit < 11:
		return fmt.Errorf("render.rows_limit must be at least 11, got %d", c.Render.RowsLimit)
	case c.Render.ColsLimit < 7:
		return fmt.Errorf("render.cols_limit must be at least 7, got %d", c.Render.ColsLimit)
	case c.Cache.Lifespan.Duration == 0:
		return errors.New("cache.lifespan must be positive")
	}
	return nil
}

// StorePath returns the absolute database path, or "" when unset.
func (c *Config) StorePath() string {
	return c.resolve(c.Store.Path)
}

// DefinitionFiles returns the absolute paths of the definition bundles.
func (c *Config) DefinitionFiles() []string {
	out := make([]string, len(c.Definitions.Files))
	for i, f := range c.Definitions.Files {
		out[i] = c.resolve(f)
	}
	return out
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
