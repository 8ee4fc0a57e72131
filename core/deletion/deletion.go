// Package deletion removes a session's full artifact set. Deletion is the
// only destructive operation in the engine, so it is wrapped in three
// safeguards: native sessions need an explicit force, a backup archive is
// packed before the first unlink, and any failure mid-delete rolls the
// already-removed files back from memory.
package deletion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chrisguillory/claude-session-mcp/core/archive"
	"github.com/chrisguillory/claude-session-mcp/core/config"
	"github.com/chrisguillory/claude-session-mcp/core/discovery"
	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
	"github.com/chrisguillory/claude-session-mcp/core/fsx"
	"github.com/chrisguillory/claude-session-mcp/core/identity"
	"github.com/chrisguillory/claude-session-mcp/core/lineage"
)

type Options struct {
	Config config.Config
	// SessionID accepts a full id or a unique prefix.
	SessionID string
	// Force permits deleting native Claude Code sessions. Engine-created
	// sessions (v7 ids) never need it.
	Force bool
	// DryRun reports the manifest without writing a backup or deleting
	// anything.
	DryRun bool
	// NoBackup discards the backup archive after a successful delete. The
	// backup is still packed first so a failed delete can be recovered; it
	// only skips keeping the snapshot around afterwards.
	NoBackup bool
}

type Result struct {
	SessionID  string
	BackupPath string
	// Files lists every path the manifest covers, deletion order.
	Files []string
	// Dirs lists session-owned directories, deepest first.
	Dirs   []string
	DryRun bool
}

// Delete removes the artifact set of one session.
func Delete(options Options) (*Result, error) {
	sessionID, err := discovery.Resolve(options.Config, options.SessionID)
	if err != nil {
		return nil, err
	}
	if identity.IsNative(sessionID) && !options.Force {
		return nil, coreerrors.Wrap(
			fmt.Errorf("session %s was not created by this engine", sessionID),
			coreerrors.CategoryDeleteGuarded, "native_session_guarded",
			"pass force to delete native Claude Code data", false)
	}

	set, err := discovery.Discover(options.Config, sessionID)
	if err != nil {
		return nil, err
	}

	files, dirs := manifest(set)
	result := &Result{SessionID: sessionID, Files: files, Dirs: dirs, DryRun: options.DryRun}
	if options.DryRun {
		return result, nil
	}

	if err := checkNoStrayFiles(set, files); err != nil {
		return nil, err
	}

	container, err := archive.Build(set, lineage.MachineID())
	if err != nil {
		return nil, err
	}
	backupName := fmt.Sprintf("%s-%s.json.zst", sessionID, time.Now().UTC().Format("20060102T150405Z"))
	backupPath := filepath.Join(options.Config.DeletedDir(), backupName)
	if _, err := archive.Pack(container, backupPath, archive.FormatZstd, options.Config.ZstdLevel); err != nil {
		return nil, err
	}
	result.BackupPath = backupPath

	// Hold every file in memory so a half-finished delete can be undone.
	contents := make(map[string][]byte, len(files))
	for _, path := range files {
		// #nosec G304 -- manifest paths come from discovery.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, coreerrors.Wrap(fmt.Errorf("read before delete: %w", err),
				coreerrors.CategoryIOFailure, "delete_read_failed", "", false)
		}
		contents[path] = data
	}

	var removed []string
	fail := func(cause error) (*Result, error) {
		rollbackErr := rollback(removed, contents)
		if rollbackErr != nil {
			return nil, coreerrors.Wrap(
				fmt.Errorf("delete failed (%v) and rollback failed: %w", cause, rollbackErr),
				coreerrors.CategoryInternalFailure, "delete_rollback_failed",
				fmt.Sprintf("restore manually from the backup archive at %s", backupPath), false)
		}
		return nil, coreerrors.Wrap(fmt.Errorf("delete aborted, all files restored: %w", cause),
			coreerrors.CategoryIOFailure, "delete_aborted", "", true)
	}

	for _, path := range files {
		if err := os.Remove(path); err != nil {
			return fail(err)
		}
		removed = append(removed, path)
	}
	for _, dir := range dirs {
		if err := os.Remove(dir); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fail(fmt.Errorf("remove dir %s: %w", dir, err))
		}
	}
	if options.NoBackup {
		if err := os.Remove(backupPath); err != nil {
			return nil, coreerrors.Wrap(fmt.Errorf("remove backup: %w", err),
				coreerrors.CategoryIOFailure, "backup_remove_failed",
				"the session was deleted; remove the backup archive manually", false)
		}
		result.BackupPath = ""
	}
	return result, nil
}

// manifest lists every path the delete will touch: files first, then the
// session-owned directories deepest first so each is empty when its turn
// comes.
func manifest(set *discovery.ArtifactSet) (files, dirs []string) {
	files = append(files, set.Main)
	for _, agent := range set.Agents {
		files = append(files, agent.Path)
	}
	files = append(files, set.ToolResults...)
	files = append(files, set.Todos...)
	for _, path := range set.PlanFiles {
		files = append(files, path)
	}
	sort.Strings(files[1:])

	sessionDir := filepath.Join(set.ProjectDir, set.SessionID)
	if _, err := os.Stat(sessionDir); err == nil {
		dirs = []string{
			filepath.Join(sessionDir, "tool-results"),
			filepath.Join(sessionDir, "subagents"),
			sessionDir,
		}
	}
	return files, dirs
}

// checkNoStrayFiles refuses to delete when the session directory holds
// anything the manifest does not name. Unknown files mean a newer producer
// stored artifacts this version does not understand.
func checkNoStrayFiles(set *discovery.ArtifactSet, files []string) error {
	sessionDir := filepath.Join(set.ProjectDir, set.SessionID)
	known := make(map[string]bool, len(files))
	for _, path := range files {
		known[path] = true
	}
	err := filepath.WalkDir(sessionDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if entry.IsDir() || known[path] {
			return nil
		}
		return fmt.Errorf("%w: %s", errUnknownArtifact, path)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errUnknownArtifact):
		return coreerrors.Wrap(err,
			coreerrors.CategoryDeleteGuarded, "unknown_artifact_present",
			"the session directory holds files this version does not recognize; refusing to delete", false)
	default:
		return coreerrors.Wrap(fmt.Errorf("scan session dir: %w", err),
			coreerrors.CategoryIOFailure, "delete_scan_failed", "", false)
	}
}

var errUnknownArtifact = errors.New("unexpected file in session directory")

func rollback(removed []string, contents map[string][]byte) error {
	for _, path := range removed {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := fsx.WriteFileAtomic(path, contents[path], 0o644); err != nil {
			return err
		}
	}
	return nil
}
