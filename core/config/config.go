// Package config resolves the filesystem roots the engine operates on.
// Every root is overridable so tests and non-standard layouts can point the
// engine at arbitrary directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/chrisguillory/claude-session-mcp/core/pathenc"
)

const DefaultPath = ".claude-session-mcp/config.yaml"

// DefaultZstdLevel matches the compression level used for .zst archives
// when the config does not override it.
const DefaultZstdLevel = 3

type Config struct {
	ProjectsDir string `yaml:"projects_dir"` // Claude Code session tree
	PlansDir    string `yaml:"plans_dir"`    // plan-mode documents, <slug>.md
	TodosDir    string `yaml:"todos_dir"`    // task lists, <sid>-agent-<agent-sid>.json
	StateDir    string `yaml:"state_dir"`    // engine-owned state (lineage, delete backups)
	ZstdLevel   int    `yaml:"zstd_level"`
}

// Default returns the config for the standard Claude Code layout under the
// current user's home directory.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	return defaultsUnder(home), nil
}

func defaultsUnder(home string) Config {
	return Config{
		ProjectsDir: filepath.Join(home, ".claude", "projects"),
		PlansDir:    filepath.Join(home, ".claude", "plans"),
		TodosDir:    filepath.Join(home, ".claude", "todos"),
		StateDir:    filepath.Join(home, ".claude-session-mcp"),
		ZstdLevel:   DefaultZstdLevel,
	}
}

// Load reads a YAML config file and fills unset fields with defaults.
// A missing file is acceptable when allowMissing is set.
func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("config path is required")
	}

	base, err := Default()
	if err != nil {
		return Config{}, err
	}

	// #nosec G304 -- config path is explicit local user input.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return base, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return base, nil
	}

	var overrides Config
	if err := yaml.Unmarshal(content, &overrides); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	overrides.normalize()
	base.apply(overrides)
	return base, nil
}

func (configuration *Config) normalize() {
	configuration.ProjectsDir = strings.TrimSpace(configuration.ProjectsDir)
	configuration.PlansDir = strings.TrimSpace(configuration.PlansDir)
	configuration.TodosDir = strings.TrimSpace(configuration.TodosDir)
	configuration.StateDir = strings.TrimSpace(configuration.StateDir)
}

func (configuration *Config) apply(overrides Config) {
	if overrides.ProjectsDir != "" {
		configuration.ProjectsDir = overrides.ProjectsDir
	}
	if overrides.PlansDir != "" {
		configuration.PlansDir = overrides.PlansDir
	}
	if overrides.TodosDir != "" {
		configuration.TodosDir = overrides.TodosDir
	}
	if overrides.StateDir != "" {
		configuration.StateDir = overrides.StateDir
	}
	if overrides.ZstdLevel != 0 {
		configuration.ZstdLevel = overrides.ZstdLevel
	}
}

// ProjectDir returns the on-disk session directory for a project path.
func (configuration Config) ProjectDir(projectPath string) string {
	return filepath.Join(configuration.ProjectsDir, pathenc.Encode(projectPath))
}

// LineagePath is the append-only lineage ledger location.
func (configuration Config) LineagePath() string {
	return filepath.Join(configuration.StateDir, "lineage.jsonl")
}

// DeletedDir holds backup archives created before deletions.
func (configuration Config) DeletedDir() string {
	return filepath.Join(configuration.StateDir, "deleted")
}
