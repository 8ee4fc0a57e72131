package main

import (
	"flag"
	"io"
	"path/filepath"

	"github.com/chrisguillory/claude-session-mcp/core/archive"
	lineageschema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/lineage"
	"github.com/chrisguillory/claude-session-mcp/core/translate"
)

type restoreOutput struct {
	Ok              bool                `json:"ok"`
	SessionID       string              `json:"session_id"`
	ParentSessionID string              `json:"parent_session_id,omitempty"`
	ProjectPath     string              `json:"project_path"`
	ProjectDir      string              `json:"project_dir"`
	WrittenPaths    []string            `json:"written_paths"`
	PathsTranslated bool                `json:"paths_translated"`
	InPlace         bool                `json:"in_place,omitempty"`
	Findings        []translate.Finding `json:"findings,omitempty"`
}

func runRestore(arguments []string) int {
	flagSet := flag.NewFlagSet("restore", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	common := registerCommonFlags(flagSet)
	targetPath := flagSet.String("to", "", "restore into this project path instead of the archived one")
	inPlace := flagSet.Bool("in-place", false, "keep the original session id and names")
	noTranslate := flagSet.Bool("no-translate", false, "keep in-record paths verbatim when restoring elsewhere")
	formatName := flagSet.String("format", "", "archive format: json or zst (default from extension)")

	arguments = reorderInterspersedFlags(arguments, commonValueFlags(map[string]bool{"to": true, "format": true}))
	if err := flagSet.Parse(arguments); err != nil {
		return usageError("usage: claude-session restore <archive-path> [--to <project-path>] [--in-place]")
	}
	if flagSet.NArg() != 1 {
		return usageError("usage: claude-session restore <archive-path> [--to <project-path>] [--in-place]")
	}

	configuration, err := common.load()
	if err != nil {
		return writeError(err)
	}
	archivePath := flagSet.Arg(0)
	container, err := archive.Load(archivePath, *formatName)
	if err != nil {
		return writeError(err)
	}
	absolutePath, err := filepath.Abs(archivePath)
	if err != nil {
		absolutePath = archivePath
	}
	result, err := archive.Restore(container, archive.RestoreOptions{
		Config:            configuration,
		TargetProjectPath: *targetPath,
		NoTranslate:       *noTranslate,
		InPlace:           *inPlace,
		Method:            lineageschema.MethodRestore,
		ArchivePath:       absolutePath,
	})
	if err != nil {
		return writeError(err)
	}
	output := restoreOutput{
		Ok:              true,
		SessionID:       result.SessionID,
		ProjectPath:     result.ProjectPath,
		ProjectDir:      result.ProjectDir,
		WrittenPaths:    result.WrittenPaths,
		PathsTranslated: result.PathsTranslated,
		InPlace:         *inPlace,
		Findings:        result.Findings,
	}
	if !*inPlace {
		output.ParentSessionID = container.SessionID
	}
	return writeJSONOutput(output, exitOK)
}
