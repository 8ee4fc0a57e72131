package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chrisguillory/claude-session-mcp/core/archive"
	"github.com/chrisguillory/claude-session-mcp/core/clone"
	"github.com/chrisguillory/claude-session-mcp/core/config"
	"github.com/chrisguillory/claude-session-mcp/core/deletion"
	"github.com/chrisguillory/claude-session-mcp/core/discovery"
	"github.com/chrisguillory/claude-session-mcp/core/lineage"
	lineageschema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/lineage"
)

// runMCP serves the five session operations over MCP on stdio so agents
// can manage their own session graph.
func runMCP(arguments []string) int {
	flagSet := flag.NewFlagSet("mcp", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	common := registerCommonFlags(flagSet)

	arguments = reorderInterspersedFlags(arguments, commonValueFlags(nil))
	if err := flagSet.Parse(arguments); err != nil {
		return usageError("usage: claude-session mcp")
	}
	configuration, err := common.load()
	if err != nil {
		return writeError(err)
	}

	mcpServer := server.NewMCPServer("claude-session", version,
		server.WithToolCapabilities(true))
	registerMCPTools(mcpServer, configuration)

	if err := server.ServeStdio(mcpServer); err != nil {
		return writeError(err)
	}
	return exitOK
}

func registerMCPTools(mcpServer *server.MCPServer, configuration config.Config) {
	mcpServer.AddTool(
		mcp.NewTool("clone_session",
			mcp.WithDescription("Duplicate a session under a fresh identity with derived agent, plan, and todo names."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id or unique prefix.")),
			mcp.WithString("target_project_path", mcp.Description("Clone into this project path instead of the parent's.")),
			mcp.WithBoolean("no_translate", mcp.Description("Keep in-record paths verbatim when cloning elsewhere.")),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sessionID, err := request.RequireString("session_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := clone.Clone(clone.Options{
				Config:            configuration,
				SessionID:         sessionID,
				TargetProjectPath: request.GetString("target_project_path", ""),
				NoTranslate:       request.GetBool("no_translate", false),
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResultJSON(result)
		})

	mcpServer.AddTool(
		mcp.NewTool("archive_session",
			mcp.WithDescription("Pack a session's full artifact set into a portable archive file."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id or unique prefix.")),
			mcp.WithString("out", mcp.Required(), mcp.Description("Destination path; .json or .json.zst extension selects the format.")),
			mcp.WithString("format", mcp.Description("Explicit format, json or zst, when the extension is ambiguous.")),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sessionID, err := request.RequireString("session_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			outPath, err := request.RequireString("out")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			format, err := archive.DetectFormat(outPath, request.GetString("format", ""))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resolved, err := discovery.Resolve(configuration, sessionID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			set, err := discovery.Discover(configuration, resolved)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			container, err := archive.Build(set, lineage.MachineID())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			digest, err := archive.Pack(container, outPath, format, configuration.ZstdLevel)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResultJSON(archiveOutput{
				Ok:          true,
				SessionID:   resolved,
				ArchivePath: outPath,
				Format:      string(format),
				Digest:      digest,
				Files:       len(container.Files),
				Gaps:        set.Gaps,
			})
		})

	mcpServer.AddTool(
		mcp.NewTool("restore_session",
			mcp.WithDescription("Materialize an archive onto disk, as a new session or in place."),
			mcp.WithString("archive_path", mcp.Required(), mcp.Description("Path to the archive file.")),
			mcp.WithString("target_project_path", mcp.Description("Restore into this project path instead of the archived one.")),
			mcp.WithBoolean("in_place", mcp.Description("Keep the original session id and names.")),
			mcp.WithBoolean("no_translate", mcp.Description("Keep in-record paths verbatim when restoring elsewhere.")),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			archivePath, err := request.RequireString("archive_path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			container, err := archive.Load(archivePath, "")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := archive.Restore(container, archive.RestoreOptions{
				Config:            configuration,
				TargetProjectPath: request.GetString("target_project_path", ""),
				NoTranslate:       request.GetBool("no_translate", false),
				InPlace:           request.GetBool("in_place", false),
				Method:            lineageschema.MethodRestore,
				ArchivePath:       archivePath,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResultJSON(result)
		})

	mcpServer.AddTool(
		mcp.NewTool("delete_session",
			mcp.WithDescription("Delete a session's artifact set after packing a backup archive. Native Claude Code sessions require force."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id or unique prefix.")),
			mcp.WithBoolean("force", mcp.Description("Permit deleting native Claude Code sessions.")),
			mcp.WithBoolean("dry_run", mcp.Description("Report the deletion manifest without deleting.")),
			mcp.WithBoolean("no_backup", mcp.Description("Discard the backup archive after a successful delete.")),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sessionID, err := request.RequireString("session_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := deletion.Delete(deletion.Options{
				Config:    configuration,
				SessionID: sessionID,
				Force:     request.GetBool("force", false),
				DryRun:    request.GetBool("dry_run", false),
				NoBackup:  request.GetBool("no_backup", false),
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResultJSON(result)
		})

	mcpServer.AddTool(
		mcp.NewTool("get_lineage",
			mcp.WithDescription("Query parent, children, and full ancestry of a cloned or restored session."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id or unique prefix.")),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			prefix, err := request.RequireString("session_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ledger := lineage.Open(configuration.LineagePath())
			sessionID, err := ledger.Resolve(prefix)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			output := lineageOutput{Ok: true, SessionID: sessionID}
			if entry, ok, err := ledger.Parent(sessionID); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			} else if ok {
				output.Parent = &entry
			}
			if output.Children, err = ledger.Children(sessionID); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if output.Ancestry, err = ledger.Ancestry(sessionID); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResultJSON(output)
		})
}

func toolResultJSON(value any) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
