package main

import (
	"flag"
	"io"

	"github.com/chrisguillory/claude-session-mcp/core/lineage"
	schema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/lineage"
)

type lineageOutput struct {
	Ok        bool           `json:"ok"`
	SessionID string         `json:"session_id"`
	Parent    *schema.Entry  `json:"parent,omitempty"`
	Children  []schema.Entry `json:"children,omitempty"`
	Ancestry  []schema.Entry `json:"ancestry,omitempty"`
}

func runLineage(arguments []string) int {
	flagSet := flag.NewFlagSet("lineage", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	common := registerCommonFlags(flagSet)

	arguments = reorderInterspersedFlags(arguments, commonValueFlags(nil))
	if err := flagSet.Parse(arguments); err != nil {
		return usageError("usage: claude-session lineage <session-id>")
	}
	if flagSet.NArg() != 1 {
		return usageError("usage: claude-session lineage <session-id>")
	}

	configuration, err := common.load()
	if err != nil {
		return writeError(err)
	}
	ledger := lineage.Open(configuration.LineagePath())
	sessionID, err := ledger.Resolve(flagSet.Arg(0))
	if err != nil {
		return writeError(err)
	}

	output := lineageOutput{Ok: true, SessionID: sessionID}
	if entry, ok, err := ledger.Parent(sessionID); err != nil {
		return writeError(err)
	} else if ok {
		output.Parent = &entry
	}
	if output.Children, err = ledger.Children(sessionID); err != nil {
		return writeError(err)
	}
	if output.Ancestry, err = ledger.Ancestry(sessionID); err != nil {
		return writeError(err)
	}
	return writeJSONOutput(output, exitOK)
}
