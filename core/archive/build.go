// Package archive packs a session artifact set into a portable container
// and restores containers back onto disk, with all-or-nothing semantics on
// the write side.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrisguillory/claude-session-mcp/core/discovery"
	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
	schema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/archive"
	"github.com/chrisguillory/claude-session-mcp/core/schema/v1/session"
)

// Build packs a discovered artifact set into an in-memory container. Every
// session file is re-validated against the record schema and the combined
// reference graph before anything is stored.
func Build(set *discovery.ArtifactSet, machineID string) (*schema.Archive, error) {
	container := &schema.Archive{
		FormatVersion:   schema.FormatVersion,
		SessionID:       set.SessionID,
		ProjectPath:     set.ProjectPath,
		MachineID:       machineID,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		ProducerVersion: set.ProducerVersion,
		CustomTitle:     set.CustomTitle,
	}

	var combined []session.Record
	addFile := func(path string, nested bool) error {
		records, err := session.ParseFile(path)
		if err != nil {
			return err
		}
		combined = append(combined, records...)
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		container.Files = append(container.Files, schema.FileEntry{
			Name:    filepath.Base(path),
			Nested:  nested,
			Records: lines,
		})
		return nil
	}

	if err := addFile(set.Main, false); err != nil {
		return nil, err
	}
	for _, agent := range set.Agents {
		if err := addFile(agent.Path, agent.Nested); err != nil {
			return nil, err
		}
	}

	if err := session.ValidateReferences(combined); err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("session %s: %w", set.SessionID, err),
			coreerrors.CategorySchemaValidation, "session_references_broken",
			"the artifact set is internally inconsistent; refusing to archive it", false)
	}

	var err error
	if container.ToolResults, err = readBlobs(set.ToolResults); err != nil {
		return nil, err
	}
	if container.Todos, err = readBlobs(set.Todos); err != nil {
		return nil, err
	}
	if len(set.PlanFiles) > 0 {
		container.Plans = map[string]string{}
		for slug, path := range set.PlanFiles {
			content, err := readBlob(path)
			if err != nil {
				return nil, err
			}
			container.Plans[slug] = content
		}
	}
	return container, nil
}

// readLines splits a JSONL file into its lines, byte exact apart from the
// line terminators.
func readLines(path string) ([]string, error) {
	content, err := readBlob(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func readBlobs(paths []string) (map[string]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	blobs := make(map[string]string, len(paths))
	for _, path := range paths {
		content, err := readBlob(path)
		if err != nil {
			return nil, err
		}
		blobs[filepath.Base(path)] = content
	}
	return blobs, nil
}

func readBlob(path string) (string, error) {
	// #nosec G304 -- paths come from discovery over trusted roots.
	content, err := os.ReadFile(path)
	if err != nil {
		return "", coreerrors.Wrap(fmt.Errorf("read artifact: %w", err),
			coreerrors.CategoryIOFailure, "artifact_read_failed", "", false)
	}
	return string(content), nil
}
