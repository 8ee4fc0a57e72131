package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/chrisguillory/claude-session-mcp/core/config"
	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
	"github.com/chrisguillory/claude-session-mcp/core/fsx"
	"github.com/chrisguillory/claude-session-mcp/core/identity"
	corelineage "github.com/chrisguillory/claude-session-mcp/core/lineage"
	schema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/archive"
	lineageschema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/lineage"
	"github.com/chrisguillory/claude-session-mcp/core/schema/v1/session"
	"github.com/chrisguillory/claude-session-mcp/core/translate"
)

// RestoreOptions steers how a container lands on disk.
type RestoreOptions struct {
	Config config.Config
	// TargetProjectPath re-homes the session; empty keeps the archived
	// project path. A changed path triggers path translation.
	TargetProjectPath string
	// NoTranslate re-homes without rewriting in-record paths. The records
	// keep their archived cwd and file paths verbatim.
	NoTranslate bool
	// InPlace keeps the original session id and all derived names. Used
	// for putting a session back exactly where it came from.
	InPlace bool
	// NewSessionID pre-mints the id; empty mints a fresh v7.
	NewSessionID string
	// Method is recorded in the lineage ledger: clone or restore.
	Method string
	// ArchivePath is recorded for restores from an on-disk archive.
	ArchivePath string
	// SkipLineage suppresses the ledger entry; rollback writes use this.
	SkipLineage bool
}

// RestoreResult reports what a restore wrote.
type RestoreResult struct {
	SessionID       string
	ProjectPath     string
	ProjectDir      string
	WrittenPaths    []string
	PathsTranslated bool
	Findings        []translate.Finding
}

type plannedFile struct {
	path    string
	content []byte
}

// Restore materializes a container onto disk. Every output path is
// computed and checked before the first byte is written: if any target
// exists, nothing is written at all.
func Restore(container *schema.Archive, options RestoreOptions) (*RestoreResult, error) {
	targetPath := strings.TrimSpace(options.TargetProjectPath)
	if targetPath == "" {
		targetPath = container.ProjectPath
	}
	if targetPath == "" {
		return nil, coreerrors.Wrap(fmt.Errorf("archive has no project path and none was given"),
			coreerrors.CategoryInvalidInput, "restore_target_unknown",
			"pass a target project path", false)
	}
	translated := targetPath != container.ProjectPath && !options.NoTranslate

	newSessionID := container.SessionID
	if !options.InPlace {
		newSessionID = strings.TrimSpace(options.NewSessionID)
		if newSessionID == "" {
			minted, err := identity.NewSessionID()
			if err != nil {
				return nil, coreerrors.Wrap(err, coreerrors.CategoryInternalFailure,
					"session_id_mint_failed", "", false)
			}
			newSessionID = minted
		}
	}

	identityMap, err := buildIdentityMap(container, newSessionID, options.InPlace)
	if err != nil {
		return nil, err
	}

	projectDir := options.Config.ProjectDir(targetPath)
	result := &RestoreResult{
		SessionID:       newSessionID,
		ProjectPath:     targetPath,
		ProjectDir:      projectDir,
		PathsTranslated: translated,
	}

	var translator *translate.Translator
	if translated {
		translator = translate.New(container.ProjectPath, targetPath)
	}

	planned, err := planFiles(container, options.Config, projectDir, newSessionID, identityMap, translator)
	if err != nil {
		return nil, err
	}

	for _, file := range planned {
		if _, err := os.Lstat(file.path); err == nil {
			return nil, coreerrors.Wrap(fmt.Errorf("restore target exists: %s", file.path),
				coreerrors.CategoryDestinationExists, "restore_destination_exists",
				"none of the outputs were written; remove the conflict or restore elsewhere", false)
		} else if !os.IsNotExist(err) {
			return nil, coreerrors.Wrap(fmt.Errorf("stat restore target: %w", err),
				coreerrors.CategoryIOFailure, "restore_target_stat_failed", "", false)
		}
	}

	for _, file := range planned {
		if err := os.MkdirAll(filepath.Dir(file.path), 0o755); err != nil {
			return nil, coreerrors.Wrap(fmt.Errorf("create restore dir: %w", err),
				coreerrors.CategoryIOFailure, "restore_dir_create_failed", "", false)
		}
		if err := fsx.WriteFileExclusive(file.path, file.content, 0o644); err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CategoryIOFailure,
				"restore_write_failed", "the restore is partial; delete the written files", false)
		}
		result.WrittenPaths = append(result.WrittenPaths, file.path)
	}

	if translator != nil {
		result.Findings = translator.Findings()
	}

	if !options.InPlace && !options.SkipLineage {
		ledger := corelineage.Open(options.Config.LineagePath())
		entry := lineageschema.Entry{
			ChildSessionID:    newSessionID,
			ParentSessionID:   container.SessionID,
			CreatedAt:         time.Now().UTC().Format(time.RFC3339),
			Method:            options.Method,
			ParentProjectPath: container.ProjectPath,
			TargetProjectPath: targetPath,
			ParentMachineID:   container.MachineID,
			TargetMachineID:   corelineage.MachineID(),
			PathsTranslated:   translated,
			ArchivePath:       options.ArchivePath,
		}
		if err := ledger.Append(entry); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// buildIdentityMap collects agent ids from file names and plan slugs from
// record content, then derives their clone names. In-place restores get an
// empty map.
func buildIdentityMap(container *schema.Archive, newSessionID string, inPlace bool) (identity.Map, error) {
	if inPlace {
		return identity.Map{OldSessionID: container.SessionID, NewSessionID: container.SessionID}, nil
	}
	var agentIDs []string
	slugSeen := map[string]bool{}
	var slugs []string
	for _, file := range container.Files {
		if agentID, ok := identity.AgentIDFromFilename(file.Name); ok {
			agentIDs = append(agentIDs, agentID)
		}
		for _, line := range file.Records {
			record, err := session.DecodeRecord([]byte(line))
			if err != nil {
				return identity.Map{}, coreerrors.Wrap(
					fmt.Errorf("archive file %s: %w", file.Name, err),
					coreerrors.CategorySchemaValidation, "archive_record_invalid", "", false)
			}
			if slug, ok := record.Slug(); ok && !slugSeen[slug] {
				slugSeen[slug] = true
				slugs = append(slugs, slug)
			}
		}
	}
	return identity.NewMap(container.SessionID, newSessionID, agentIDs, slugs), nil
}

// planFiles computes every output path and its final content. Rewrite order
// per line: custom title, session id, path translation, then identifier
// substitution over the serialized text.
func planFiles(container *schema.Archive, configuration config.Config, projectDir, newSessionID string,
	identityMap identity.Map, translator *translate.Translator) ([]plannedFile, error) {

	remap := newSessionID != container.SessionID
	var planned []plannedFile

	for _, file := range container.Files {
		var lines []string
		for _, line := range file.Records {
			rewritten, err := rewriteLine(line, container.SessionID, newSessionID, remap, identityMap, translator)
			if err != nil {
				return nil, fmt.Errorf("file %s: %w", file.Name, err)
			}
			lines = append(lines, rewritten)
		}
		name := file.Name
		if remap {
			if name == container.SessionID+".jsonl" {
				name = newSessionID + ".jsonl"
			} else if agentID, ok := identity.AgentIDFromFilename(name); ok {
				name = identity.AgentFilename(identityMap.Agents[agentID])
			}
		}
		path := filepath.Join(projectDir, name)
		if file.Nested {
			path = filepath.Join(projectDir, newSessionID, "subagents", name)
		}
		planned = append(planned, plannedFile{path: path, content: []byte(strings.Join(lines, "\n") + "\n")})
	}

	for name, content := range container.ToolResults {
		planned = append(planned, plannedFile{
			path:    filepath.Join(projectDir, newSessionID, "tool-results", name),
			content: []byte(content),
		})
	}
	for name, content := range container.Todos {
		outName := name
		if remap {
			outName = identity.TransformTodoFilename(name, container.SessionID, newSessionID)
		}
		planned = append(planned, plannedFile{
			path:    filepath.Join(configuration.TodosDir, outName),
			content: []byte(content),
		})
	}
	for slug, content := range container.Plans {
		outSlug := slug
		if remap {
			if derived, ok := identityMap.Slugs[slug]; ok {
				outSlug = derived
			}
		}
		planned = append(planned, plannedFile{
			path:    filepath.Join(configuration.PlansDir, outSlug+".md"),
			content: []byte(content),
		})
	}
	return planned, nil
}

func rewriteLine(line, oldSessionID, newSessionID string, remap bool,
	identityMap identity.Map, translator *translate.Translator) (string, error) {

	raw := []byte(line)
	var err error
	if remap {
		if title := gjson.GetBytes(raw, "customTitle"); title.Exists() {
			raw, err = sjson.SetBytes(raw, "customTitle", identity.DeriveTitle(title.String(), newSessionID))
			if err != nil {
				return "", fmt.Errorf("rewrite customTitle: %w", err)
			}
		}
		if gjson.GetBytes(raw, "sessionId").Exists() {
			raw, err = sjson.SetBytes(raw, "sessionId", newSessionID)
			if err != nil {
				return "", fmt.Errorf("rewrite sessionId: %w", err)
			}
		}
	}
	if translator != nil {
		record, err := session.DecodeRecord(raw)
		if err != nil {
			return "", fmt.Errorf("re-decode for translation: %w", err)
		}
		translated, err := translator.Line(record)
		if err != nil {
			return "", err
		}
		raw = translated
	}
	if remap {
		return identityMap.Apply(string(raw)), nil
	}
	return string(raw), nil
}
