package main

import (
	"fmt"
	"os"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

// Exit codes mirror the error taxonomy so scripts can branch without
// parsing JSON.
const (
	exitOK                = 0
	exitInvalidInput      = 2
	exitSchemaInvalid     = 3
	exitNotFound          = 4
	exitDestinationExists = 5
	exitDeleteGuarded     = 6
	exitInternalFailure   = 7
)

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	if len(arguments) < 2 {
		fmt.Println("claude-session", version)
		return exitOK
	}

	switch arguments[1] {
	case "clone":
		return runClone(arguments[2:])
	case "archive":
		return runArchive(arguments[2:])
	case "restore":
		return runRestore(arguments[2:])
	case "delete":
		return runDelete(arguments[2:])
	case "lineage":
		return runLineage(arguments[2:])
	case "mcp":
		return runMCP(arguments[2:])
	case "version", "--version", "-v":
		fmt.Println("claude-session", version)
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func printUsage() {
	fmt.Print(`claude-session <command> [flags]

Commands:
  clone     duplicate a session under a fresh identity
  archive   pack a session's artifact set into a portable file
  restore   materialize an archive onto disk
  delete    remove a session's artifact set (backup first)
  lineage   query parent/child relationships between sessions
  mcp       serve the operations over MCP on stdio
  version   print the CLI version

Every command emits a single JSON object on stdout.
`)
}
