package verify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/tverify/internal"
	"github.com/gnolang/tverify/internal/solver"
)

// DefaultConfigFile is read when no configuration path is given.
const DefaultConfigFile = ".tverify.yaml"

// Config is the content of a configuration file.
type Config struct {
	Name        string       `yaml:"name"`
	Solver      SolverConfig `yaml:"solver"`
	Concurrency int          `yaml:"concurrency"`
	// Normalize simplifies bodies before they are encoded.
	Normalize   bool        `yaml:"normalize"`
	Cache       CacheConfig `yaml:"cache"`
	IgnorePaths []string    `yaml:"ignore_paths,omitempty"`
}

type SolverConfig struct {
	// Command is the solver executable, run once per query.
	Command string `yaml:"command"`
	// URL selects a solver server instead of a local process.
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
	// Version is a semver constraint the local solver must satisfy.
	Version string `yaml:"version"`
}

type CacheConfig struct {
	// Dir enables the response cache when set.
	Dir    string        `yaml:"dir,omitempty"`
	MaxAge time.Duration `yaml:"max_age"`
}

func DefaultConfig() Config {
	return Config{
		Name: "tverify",
		Solver: SolverConfig{
			Command: solver.DefaultCommand,
			Timeout: 30 * time.Second,
			Version: solver.DefaultConstraint,
		},
		Concurrency: runtime.NumCPU(),
		Cache: CacheConfig{
			MaxAge: internal.DefaultCacheMaxAge,
		},
	}
}

// LoadConfig reads a configuration file over the defaults. An empty path
// or a missing default file yields the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		path = DefaultConfigFile
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFile {
		return config, nil
	}
	if err != nil {
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return config, nil
}

// WriteConfig stores config as YAML at path.
func WriteConfig(path string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}
