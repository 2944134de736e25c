// Package settings loads archsmith configuration from .archsmith/settings.yaml.
//
// Example:
//
//	regtest:
//	  ignore_failures: true
//	  maxtasks: 4
//	modinc:
//	  sources: ["mkl_dfti.f90"]
//	log:
//	  level: debug
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dir is the settings directory relative to the project root.
const Dir = ".archsmith"

// Settings holds archsmith configuration.
type Settings struct {
	Regtest Regtest `yaml:"regtest"`
	ModInc  ModInc  `yaml:"modinc"`
	Log     Log     `yaml:"log"`
}

// Regtest controls how regression-test output is judged and run.
type Regtest struct {
	// IgnoreFailures turns failed tests into a warning instead of a reject.
	IgnoreFailures bool `yaml:"ignore_failures"`
	// MaxTasks is the harness task limit.
	MaxTasks int `yaml:"maxtasks"`
	// Parallel caps the MPI ranks per test; 0 means no cap.
	Parallel int `yaml:"parallel"`
}

// ModInc selects the vendor module sources to prepare.
type ModInc struct {
	// Sources are glob patterns relative to the vendor include directory.
	Sources []string `yaml:"sources"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		Regtest: Regtest{MaxTasks: 3},
		ModInc:  ModInc{Sources: []string{"*.f90"}},
		Log:     Log{Level: "info"},
	}
}

// Path returns the settings file path under root.
func Path(root string) string {
	return filepath.Join(root, Dir, "settings.yaml")
}

// Load reads .archsmith/settings.yaml relative to root. A missing file gives
// the defaults, not an error. Fields absent from the file keep their
// defaults.
func Load(root string) (*Settings, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if s.Regtest.MaxTasks <= 0 {
		return nil, fmt.Errorf("%s: regtest.maxtasks must be positive, got %d", path, s.Regtest.MaxTasks)
	}
	return s, nil
}
