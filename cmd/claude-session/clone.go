package main

import (
	"flag"
	"io"

	"github.com/chrisguillory/claude-session-mcp/core/clone"
	"github.com/chrisguillory/claude-session-mcp/core/translate"
)

type cloneOutput struct {
	Ok              bool                `json:"ok"`
	SessionID       string              `json:"session_id"`
	ParentSessionID string              `json:"parent_session_id"`
	ProjectPath     string              `json:"project_path"`
	ProjectDir      string              `json:"project_dir"`
	WrittenPaths    []string            `json:"written_paths"`
	PathsTranslated bool                `json:"paths_translated"`
	Findings        []translate.Finding `json:"findings,omitempty"`
	Gaps            []string            `json:"gaps,omitempty"`
}

func runClone(arguments []string) int {
	flagSet := flag.NewFlagSet("clone", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	common := registerCommonFlags(flagSet)
	targetPath := flagSet.String("to", "", "clone into this project path instead of the parent's")
	noTranslate := flagSet.Bool("no-translate", false, "keep in-record paths verbatim when cloning elsewhere")

	arguments = reorderInterspersedFlags(arguments, commonValueFlags(map[string]bool{"to": true}))
	if err := flagSet.Parse(arguments); err != nil {
		return usageError("usage: claude-session clone <session-id> [--to <project-path>]")
	}
	if flagSet.NArg() != 1 {
		return usageError("usage: claude-session clone <session-id> [--to <project-path>]")
	}

	configuration, err := common.load()
	if err != nil {
		return writeError(err)
	}
	result, err := clone.Clone(clone.Options{
		Config:            configuration,
		SessionID:         flagSet.Arg(0),
		TargetProjectPath: *targetPath,
		NoTranslate:       *noTranslate,
	})
	if err != nil {
		return writeError(err)
	}
	return writeJSONOutput(cloneOutput{
		Ok:              true,
		SessionID:       result.SessionID,
		ParentSessionID: result.ParentSessionID,
		ProjectPath:     result.ProjectPath,
		ProjectDir:      result.ProjectDir,
		WrittenPaths:    result.WrittenPaths,
		PathsTranslated: result.PathsTranslated,
		Findings:        result.Findings,
		Gaps:            result.Gaps,
	}, exitOK)
}
