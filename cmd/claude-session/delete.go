package main

import (
	"flag"
	"io"

	"github.com/chrisguillory/claude-session-mcp/core/deletion"
)

type deleteOutput struct {
	Ok         bool     `json:"ok"`
	SessionID  string   `json:"session_id"`
	BackupPath string   `json:"backup_path,omitempty"`
	Files      []string `json:"files"`
	Dirs       []string `json:"dirs,omitempty"`
	DryRun     bool     `json:"dry_run,omitempty"`
}

func runDelete(arguments []string) int {
	flagSet := flag.NewFlagSet("delete", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	common := registerCommonFlags(flagSet)
	force := flagSet.Bool("force", false, "permit deleting native Claude Code sessions")
	dryRun := flagSet.Bool("dry-run", false, "report the manifest without deleting")
	noBackup := flagSet.Bool("no-backup", false, "discard the backup archive after a successful delete")

	arguments = reorderInterspersedFlags(arguments, commonValueFlags(nil))
	if err := flagSet.Parse(arguments); err != nil {
		return usageError("usage: claude-session delete <session-id> [--force] [--dry-run]")
	}
	if flagSet.NArg() != 1 {
		return usageError("usage: claude-session delete <session-id> [--force] [--dry-run]")
	}

	configuration, err := common.load()
	if err != nil {
		return writeError(err)
	}
	result, err := deletion.Delete(deletion.Options{
		Config:    configuration,
		SessionID: flagSet.Arg(0),
		Force:     *force,
		DryRun:    *dryRun,
		NoBackup:  *noBackup,
	})
	if err != nil {
		return writeError(err)
	}
	return writeJSONOutput(deleteOutput{
		Ok:         true,
		SessionID:  result.SessionID,
		BackupPath: result.BackupPath,
		Files:      result.Files,
		Dirs:       result.Dirs,
		DryRun:     result.DryRun,
	}, exitOK)
}
