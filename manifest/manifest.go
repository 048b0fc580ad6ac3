// Package manifest handles quill.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "quill.toml"

// Manifest represents a quill.toml configuration.
type Manifest struct {
	Run RunConfig `toml:"run"`
	Log LogConfig `toml:"log"`

	// Dir is the directory containing the quill.toml file (set at load time).
	Dir string `toml:"-"`
}

// RunConfig controls how the driver executes programs.
type RunConfig struct {
	Trace       bool `toml:"trace"`       // per-instruction trace to stderr
	Disassemble bool `toml:"disassemble"` // print the chunk before running
	Color       bool `toml:"color"`       // colored diagnostics
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"` // empty means stderr
}

// Default returns the configuration used when no quill.toml exists.
func Default() *Manifest {
	return &Manifest{
		Run: RunConfig{Color: true},
	}
}

// Load parses a quill.toml file from the given directory. Keys missing from
// the file keep their defaults; unknown keys are an error.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown key(s) in %s: %s", path, strings.Join(keys, ", "))
	}
	if m.Log.Verbosity < -4 || m.Log.Verbosity > 4 {
		return nil, fmt.Errorf("%s: log verbosity %d out of range [-4, 4]", path, m.Log.Verbosity)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a quill.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// LogPath returns the log file path resolved against the manifest
// directory, or nil when logging goes to stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
