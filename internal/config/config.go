// Package config loads polylab.toml.
//
// The file is found by walking up from the start directory. A .env file next
// to it (or in the working directory) is loaded first, and POLYLAB_* variables
// override the [defaults] section.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"polylab/internal/language"
	"polylab/internal/session"
)

const FileName = "polylab.toml"

type Config struct {
	// Path is the file the config came from, empty for defaults.
	Path string `toml:"-"`

	Defaults  Defaults        `toml:"defaults"`
	Go        GoSection       `toml:"go"`
	Go117     GoSection       `toml:"go117"`
	Starlark  StarlarkSection `toml:"starlark"`
	Jsonnet   JsonnetSection  `toml:"jsonnet"`
	Telemetry Telemetry       `toml:"telemetry"`
}

type Defaults struct {
	Language       string `toml:"language"`
	Target         string `toml:"target"`
	Optimize       string `toml:"optimize"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
}

type GoSection struct {
	Version  string   `toml:"version"`
	Features []string `toml:"features"`
}

type StarlarkSection struct {
	Set             bool     `toml:"set"`
	While           bool     `toml:"while"`
	TopLevelControl bool     `toml:"top_level_control"`
	GlobalReassign  bool     `toml:"global_reassign"`
	Recursion       bool     `toml:"recursion"`
	Predeclared     []string `toml:"predeclared"`
}

type JsonnetSection struct {
	MaxStack int               `toml:"max_stack"`
	ExtVars  map[string]string `toml:"ext_vars"`
}

type Telemetry struct {
	Dir string `toml:"dir"`
}

// Default mirrors language.DefaultSettings.
func Default() Config {
	s := language.DefaultSettings()
	return Config{
		Defaults: Defaults{
			Language:       language.LangGo,
			Target:         session.TargetLibrary.String(),
			Optimize:       session.Debug.String(),
			MaxDiagnostics: 100,
		},
		Go:    GoSection{Version: s.Go.Version, Features: s.Go.Features},
		Go117: GoSection{Version: s.Go117.Version, Features: s.Go117.Features},
		Starlark: StarlarkSection{
			Set:             s.Starlark.Set,
			While:           s.Starlark.While,
			TopLevelControl: s.Starlark.TopLevelControl,
			GlobalReassign:  s.Starlark.GlobalReassign,
			Recursion:       s.Starlark.Recursion,
			Predeclared:     s.Starlark.Predeclared,
		},
		Jsonnet: JsonnetSection{MaxStack: s.Jsonnet.MaxStack, ExtVars: s.Jsonnet.ExtVars},
	}
}

// Find walks up from startDir looking for polylab.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load finds and decodes the config, applies .env and environment overrides
// and validates the result. A missing file yields the defaults.
func Load(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if err := loadDotEnv(path, ok); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if ok {
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadExplicit is Load for a config path named on the command line: the .env
// next to path is applied before the file is decoded.
func LoadExplicit(path string) (Config, error) {
	if err := loadDotEnv(path, true); err != nil {
		return Config{}, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv prefers the .env beside the config file and falls back to the
// working directory. A missing file is fine, a malformed one is not.
func loadDotEnv(tomlPath string, found bool) error {
	env := ".env"
	if found {
		if beside := filepath.Join(filepath.Dir(tomlPath), ".env"); fileExists(beside) {
			env = beside
		}
	}
	if err := godotenv.Load(env); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%s: failed to load environment: %w", env, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadFile decodes path over the defaults. Unknown keys are an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	return cfg, nil
}

// ApplyEnv overrides defaults from POLYLAB_LANGUAGE, POLYLAB_TARGET,
// POLYLAB_OPTIMIZE and POLYLAB_TELEMETRY_DIR.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("POLYLAB_LANGUAGE", &c.Defaults.Language)
	set("POLYLAB_TARGET", &c.Defaults.Target)
	set("POLYLAB_OPTIMIZE", &c.Defaults.Optimize)
	set("POLYLAB_TELEMETRY_DIR", &c.Telemetry.Dir)
}

func (c Config) where() string {
	if c.Path == "" {
		return "config"
	}
	return c.Path
}

// Validate checks values that do not need the language registry.
func (c Config) Validate() error {
	if _, err := session.ParseTarget(c.Defaults.Target); err != nil {
		return fmt.Errorf("%s: [defaults].target: %w", c.where(), err)
	}
	if _, err := session.ParseOptimize(c.Defaults.Optimize); err != nil {
		return fmt.Errorf("%s: [defaults].optimize: %w", c.where(), err)
	}
	if c.Defaults.MaxDiagnostics < 0 {
		return fmt.Errorf("%s: [defaults].max_diagnostics must not be negative", c.where())
	}
	if c.Jsonnet.MaxStack < 0 {
		return fmt.Errorf("%s: [jsonnet].max_stack must not be negative", c.where())
	}
	return nil
}

// Target returns the validated default target.
func (c Config) Target() session.TargetKind {
	t, _ := session.ParseTarget(c.Defaults.Target)
	return t
}

// Optimize returns the validated default optimization mode.
func (c Config) Optimize() session.Optimize {
	o, _ := session.ParseOptimize(c.Defaults.Optimize)
	return o
}

// Settings converts the language sections for language.NewDefaultRegistry.
func (c Config) Settings() language.Settings {
	return language.Settings{
		Go:    language.GoSettings{Version: c.Go.Version, Features: c.Go.Features},
		Go117: language.GoSettings{Version: c.Go117.Version, Features: c.Go117.Features},
		Starlark: language.StarlarkSettings{
			Set:             c.Starlark.Set,
			While:           c.Starlark.While,
			TopLevelControl: c.Starlark.TopLevelControl,
			GlobalReassign:  c.Starlark.GlobalReassign,
			Recursion:       c.Starlark.Recursion,
			Predeclared:     c.Starlark.Predeclared,
		},
		Jsonnet: language.JsonnetSettings{MaxStack: c.Jsonnet.MaxStack, ExtVars: c.Jsonnet.ExtVars},
	}
}
