// Package discovery locates every on-disk artifact belonging to a session:
// the main JSONL, flat and nested agent files, tool result blobs, todo
// lists, and plan documents.
//
// Agent membership is decided by file content, never by filename alone: a
// flat agent file joins the set only when its records carry the session id.
package discovery

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chrisguillory/claude-session-mcp/core/config"
	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
	"github.com/chrisguillory/claude-session-mcp/core/identity"
	"github.com/chrisguillory/claude-session-mcp/core/schema/v1/session"
)

// AgentFile is one subagent session file in the set.
type AgentFile struct {
	Path    string
	AgentID string
	// Nested files live under <sid>/subagents/ and belong by location;
	// flat files had to prove membership by content.
	Nested bool
}

// ArtifactSet is everything discovery found for one session.
type ArtifactSet struct {
	SessionID   string
	ProjectDir  string
	ProjectPath string // from record cwd, authoritative
	Main        string
	Agents      []AgentFile
	AgentIDs    []string
	Slugs       []string
	PlanFiles   map[string]string // slug -> path
	ToolResults []string
	Todos       []string
	CustomTitle string
	// ProducerVersion is the newest Claude Code version seen on records.
	ProducerVersion string
	// Gaps lists artifacts that were referenced but not found.
	Gaps []string
}

// Resolve expands a session id prefix to the unique full id under the
// projects root. An exact full id resolves without walking ambiguity.
func Resolve(configuration config.Config, sessionIDOrPrefix string) (string, error) {
	prefix := strings.TrimSpace(sessionIDOrPrefix)
	if prefix == "" {
		return "", coreerrors.Wrap(fmt.Errorf("session id is required"),
			coreerrors.CategoryInvalidInput, "session_id_missing",
			"pass a session id or unique prefix", false)
	}

	matches := map[string]bool{}
	projectDirs, err := os.ReadDir(configuration.ProjectsDir)
	if err != nil {
		return "", coreerrors.Wrap(fmt.Errorf("read projects root: %w", err),
			coreerrors.CategoryIOFailure, "projects_root_unreadable",
			"check that the projects directory exists", false)
	}
	for _, projectDir := range projectDirs {
		if !projectDir.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(configuration.ProjectsDir, projectDir.Name()))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") || strings.HasPrefix(name, "agent-") {
				continue
			}
			candidate := strings.TrimSuffix(name, ".jsonl")
			if strings.HasPrefix(candidate, prefix) {
				matches[candidate] = true
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", coreerrors.Wrap(fmt.Errorf("no session matches %q", prefix),
			coreerrors.CategoryDiscoveryGap, "session_not_found",
			"list sessions or pass a longer prefix", false)
	case 1:
		for id := range matches {
			return id, nil
		}
		panic("unreachable")
	default:
		ids := make([]string, 0, len(matches))
		for id := range matches {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return "", coreerrors.Wrap(fmt.Errorf("prefix %q is ambiguous: %s", prefix, strings.Join(ids, ", ")),
			coreerrors.CategoryIdentifierParse, "session_prefix_ambiguous",
			"pass a longer prefix", false)
	}
}

// Discover builds the full artifact set for a session id.
func Discover(configuration config.Config, sessionID string) (*ArtifactSet, error) {
	mainPath, projectDir, err := findMainFile(configuration, sessionID)
	if err != nil {
		return nil, err
	}

	records, err := session.ParseFile(mainPath)
	if err != nil {
		return nil, err
	}

	set := &ArtifactSet{
		SessionID:  sessionID,
		ProjectDir: projectDir,
		Main:       mainPath,
		PlanFiles:  map[string]string{},
	}
	set.harvestRecords(records)

	if err := set.collectAgents(configuration); err != nil {
		return nil, err
	}
	set.collectToolResults()
	set.collectTodos(configuration)
	set.collectPlans(configuration)

	if set.ProjectPath == "" {
		set.Gaps = append(set.Gaps, "no record carries a cwd; project path unknown")
	}
	return set, nil
}

func findMainFile(configuration config.Config, sessionID string) (mainPath, projectDir string, err error) {
	projectDirs, err := os.ReadDir(configuration.ProjectsDir)
	if err != nil {
		return "", "", coreerrors.Wrap(fmt.Errorf("read projects root: %w", err),
			coreerrors.CategoryIOFailure, "projects_root_unreadable",
			"check that the projects directory exists", false)
	}
	for _, entry := range projectDirs {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(configuration.ProjectsDir, entry.Name())
		candidate := filepath.Join(dir, sessionID+".jsonl")
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, dir, nil
		}
	}
	return "", "", coreerrors.Wrap(fmt.Errorf("session %s not found under %s", sessionID, configuration.ProjectsDir),
		coreerrors.CategoryDiscoveryGap, "session_not_found",
		"verify the session id with a session listing", false)
}

// harvestRecords pulls identity facts out of the main session records.
func (set *ArtifactSet) harvestRecords(records []session.Record) {
	slugSeen := map[string]bool{}
	for _, record := range records {
		if set.ProjectPath == "" {
			if cwd, ok := record.Cwd(); ok {
				set.ProjectPath = cwd
			}
		}
		if slug, ok := record.Slug(); ok && !slugSeen[slug] {
			slugSeen[slug] = true
			set.Slugs = append(set.Slugs, slug)
		}
		if title, ok := record.CustomTitle(); ok {
			set.CustomTitle = title
		}
		if version, ok := record.ProducerVersion(); ok && version > set.ProducerVersion {
			set.ProducerVersion = version
		}
	}
}

func (set *ArtifactSet) collectAgents(configuration config.Config) error {
	// Flat layout: agent-*.jsonl siblings of the main file, membership by
	// record content.
	entries, err := os.ReadDir(set.ProjectDir)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("read project dir: %w", err),
			coreerrors.CategoryIOFailure, "project_dir_unreadable", "", false)
	}
	membershipToken := []byte(`"sessionId":"` + set.SessionID + `"`)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		agentID, ok := identity.AgentIDFromFilename(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(set.ProjectDir, entry.Name())
		// #nosec G304 -- paths enumerated from the project directory.
		content, err := os.ReadFile(path)
		if err != nil {
			return coreerrors.Wrap(fmt.Errorf("read agent file: %w", err),
				coreerrors.CategoryIOFailure, "agent_file_unreadable", "", false)
		}
		if !bytes.Contains(content, membershipToken) {
			continue
		}
		set.Agents = append(set.Agents, AgentFile{Path: path, AgentID: agentID})
		set.AgentIDs = append(set.AgentIDs, agentID)
	}

	// Nested layout: <sid>/subagents/agent-*.jsonl belong by location.
	nestedDir := filepath.Join(set.ProjectDir, set.SessionID, "subagents")
	nested, err := os.ReadDir(nestedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return coreerrors.Wrap(fmt.Errorf("read subagents dir: %w", err),
			coreerrors.CategoryIOFailure, "subagents_dir_unreadable", "", false)
	}
	for _, entry := range nested {
		if entry.IsDir() {
			continue
		}
		agentID, ok := identity.AgentIDFromFilename(entry.Name())
		if !ok {
			continue
		}
		set.Agents = append(set.Agents, AgentFile{
			Path:    filepath.Join(nestedDir, entry.Name()),
			AgentID: agentID,
			Nested:  true,
		})
		set.AgentIDs = append(set.AgentIDs, agentID)
	}
	return nil
}

func (set *ArtifactSet) collectToolResults() {
	dir := filepath.Join(set.ProjectDir, set.SessionID, "tool-results")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
			set.ToolResults = append(set.ToolResults, filepath.Join(dir, entry.Name()))
		}
	}
}

func (set *ArtifactSet) collectTodos(configuration config.Config) {
	entries, err := os.ReadDir(configuration.TodosDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasPrefix(name, set.SessionID+"-agent-") || name == set.SessionID+".json" {
			set.Todos = append(set.Todos, filepath.Join(configuration.TodosDir, name))
		}
	}
}

func (set *ArtifactSet) collectPlans(configuration config.Config) {
	for _, slug := range set.Slugs {
		path := filepath.Join(configuration.PlansDir, slug+".md")
		if _, err := os.Stat(path); err != nil {
			set.Gaps = append(set.Gaps, fmt.Sprintf("plan file for slug %q not found", slug))
			continue
		}
		set.PlanFiles[slug] = path
	}
}
