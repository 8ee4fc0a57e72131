package main

import (
	"flag"
	"io"

	"github.com/chrisguillory/claude-session-mcp/core/archive"
	"github.com/chrisguillory/claude-session-mcp/core/discovery"
	"github.com/chrisguillory/claude-session-mcp/core/lineage"
)

type archiveOutput struct {
	Ok          bool     `json:"ok"`
	SessionID   string   `json:"session_id"`
	ArchivePath string   `json:"archive_path"`
	Format      string   `json:"format"`
	Digest      string   `json:"digest"`
	Files       int      `json:"files"`
	Gaps        []string `json:"gaps,omitempty"`
}

func runArchive(arguments []string) int {
	flagSet := flag.NewFlagSet("archive", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	common := registerCommonFlags(flagSet)
	outPath := flagSet.String("out", "", "archive destination path")
	formatName := flagSet.String("format", "", "archive format: json or zst (default from extension)")

	arguments = reorderInterspersedFlags(arguments, commonValueFlags(map[string]bool{"out": true, "format": true}))
	if err := flagSet.Parse(arguments); err != nil {
		return usageError("usage: claude-session archive <session-id> --out <path> [--format json|zst]")
	}
	if flagSet.NArg() != 1 || *outPath == "" {
		return usageError("usage: claude-session archive <session-id> --out <path> [--format json|zst]")
	}

	configuration, err := common.load()
	if err != nil {
		return writeError(err)
	}
	format, err := archive.DetectFormat(*outPath, *formatName)
	if err != nil {
		return writeError(err)
	}
	sessionID, err := discovery.Resolve(configuration, flagSet.Arg(0))
	if err != nil {
		return writeError(err)
	}
	set, err := discovery.Discover(configuration, sessionID)
	if err != nil {
		return writeError(err)
	}
	container, err := archive.Build(set, lineage.MachineID())
	if err != nil {
		return writeError(err)
	}
	digest, err := archive.Pack(container, *outPath, format, configuration.ZstdLevel)
	if err != nil {
		return writeError(err)
	}
	return writeJSONOutput(archiveOutput{
		Ok:          true,
		SessionID:   sessionID,
		ArchivePath: *outPath,
		Format:      string(format),
		Digest:      digest,
		Files:       len(container.Files),
		Gaps:        set.Gaps,
	}, exitOK)
}
