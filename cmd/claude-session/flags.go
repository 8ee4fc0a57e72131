package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/chrisguillory/claude-session-mcp/core/config"
)

// commonFlags are accepted by every command: the config file plus direct
// directory overrides that win over it.
type commonFlags struct {
	configPath  string
	projectsDir string
	plansDir    string
	todosDir    string
	stateDir    string
}

func registerCommonFlags(flagSet *flag.FlagSet) *commonFlags {
	common := &commonFlags{}
	flagSet.StringVar(&common.configPath, "config", "", "config file path")
	flagSet.StringVar(&common.projectsDir, "projects-dir", "", "override the Claude Code projects directory")
	flagSet.StringVar(&common.plansDir, "plans-dir", "", "override the plans directory")
	flagSet.StringVar(&common.todosDir, "todos-dir", "", "override the todos directory")
	flagSet.StringVar(&common.stateDir, "state-dir", "", "override the engine state directory")
	return common
}

// commonValueFlags feeds reorderInterspersedFlags; command files add their
// own value flags on top.
func commonValueFlags(extra map[string]bool) map[string]bool {
	flags := map[string]bool{
		"config":       true,
		"projects-dir": true,
		"plans-dir":    true,
		"todos-dir":    true,
		"state-dir":    true,
	}
	for name, takesValue := range extra {
		flags[name] = takesValue
	}
	return flags
}

func (common *commonFlags) load() (config.Config, error) {
	path := strings.TrimSpace(common.configPath)
	allowMissing := false
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return config.Config{}, err
		}
		path = filepath.Join(home, config.DefaultPath)
		allowMissing = true
	}
	configuration, err := config.Load(path, allowMissing)
	if err != nil {
		return config.Config{}, err
	}
	if common.projectsDir != "" {
		configuration.ProjectsDir = common.projectsDir
	}
	if common.plansDir != "" {
		configuration.PlansDir = common.plansDir
	}
	if common.todosDir != "" {
		configuration.TodosDir = common.todosDir
	}
	if common.stateDir != "" {
		configuration.StateDir = common.stateDir
	}
	return configuration, nil
}

func usageError(message string) int {
	return writeJSONOutput(map[string]any{"ok": false, "error": message}, exitInvalidInput)
}
