// Package config loads optional spp project settings from a .spp.toml or
// .spp.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Names are the config file names Find looks for, in order.
var Names = []string{".spp.toml", ".spp.yaml", ".spp.yml"}

// EnvBaseDir overrides the config file's base_dir when set.
const EnvBaseDir = "SPP_BASE_DIR"

// File is the content of a config file.
type File struct {
	// Path of the file the settings came from, empty for defaults.
	Path string `toml:"-" yaml:"-"`

	BaseDir string `toml:"base_dir" yaml:"base_dir"`
	Output  string `toml:"output" yaml:"output"`
	Verbose bool   `toml:"verbose" yaml:"verbose"`
}

// Find walks up from startDir looking for a config file. It returns the
// path and true on a hit, or "" and false when the filesystem root is
// reached without one.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range Names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes the config file at path. The format follows the extension.
// Relative base_dir and output paths are made relative to the file's
// directory.
func Load(path string) (*File, error) {
	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
	f.Path = path
	dir := filepath.Dir(path)
	if f.BaseDir != "" && !filepath.IsAbs(f.BaseDir) {
		f.BaseDir = filepath.Join(dir, f.BaseDir)
	}
	if f.Output != "" && !filepath.IsAbs(f.Output) {
		f.Output = filepath.Join(dir, f.Output)
	}
	return &f, nil
}

// Resolve loads the config at explicit when given, otherwise the first one
// found from startDir. No file at all yields empty settings. The
// SPP_BASE_DIR environment variable is applied last.
func Resolve(explicit, startDir string) (*File, error) {
	f := &File{}
	path := explicit
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return nil, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		f = loaded
	}
	if dir := os.Getenv(EnvBaseDir); dir != "" {
		f.BaseDir = dir
	}
	return f, nil
}
