package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/platform"
)

// LoadOptions controls Load
type LoadOptions struct {
	// Path is an explicit config file, typically from --config
	Path     string
	Detector platform.Detector
	Logger   logx.Logger
}

// Loaded is a configuration together with where it came from
type Loaded struct {
	*Config
	// Path is the file that was parsed, or "" when defaults were used
	Path string
}

// ResolvePath returns the config file location: explicit, then
// $TOOLSMITH_CONFIG, then <user config dir>/toolsmith/toolsmith.lua.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "toolsmith", FileName), nil
}

// Load reads the config file if it exists and applies the environment.
// An explicitly named file must exist; a missing default file yields the
// built-in defaults.
func Load(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	logger := logx.OrNop(opts.Logger)

	path, err := ResolvePath(opts.Path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	loadedFrom := ""

	parsed, err := NewParser(opts.Detector).ParseFile(ctx, path)
	switch {
	case err == nil:
		cfg = parsed
		loadedFrom = path
		logger.Debug("config loaded", "path", path)
	case errors.Is(err, fs.ErrNotExist) && opts.Path == "":
		logger.Debug("no config file, using defaults", "path", path)
	default:
		return nil, err
	}

	if err := ApplyEnvironment(cfg); err != nil {
		return nil, err
	}
	return &Loaded{Config: cfg, Path: loadedFrom}, nil
}

// ApplyEnvironment fills the managed roots. $TOOLSMITH_RESOURCE_DIR and
// $TOOLSMITH_DATA_DIR override the file. Unset roots default to
// <executable dir>/resources and <user config dir>/toolsmith.
func ApplyEnvironment(cfg *Config) error {
	if dir := os.Getenv(EnvResourceDir); dir != "" {
		cfg.Paths.ResourceDir = dir
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.Paths.DataDir = dir
	}

	if cfg.Paths.ResourceDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		cfg.Paths.ResourceDir = filepath.Join(filepath.Dir(exe), "resources")
	}
	if cfg.Paths.DataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locate user config dir: %w", err)
		}
		cfg.Paths.DataDir = filepath.Join(dir, "toolsmith")
	}
	return nil
}
