// Package lineage records and queries parent/child relationships between
// sessions in an append-only JSONL ledger.
package lineage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"sort"
	"strings"

	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
	"github.com/chrisguillory/claude-session-mcp/core/fsx"
	schema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/lineage"
)

// MaxAncestryDepth caps ancestry walks; a longer chain indicates a cycle or
// a corrupted ledger.
const MaxAncestryDepth = 10

// MachineID identifies this machine in ledger entries as user@hostname.
func MachineID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	current, err := user.Current()
	if err != nil || current.Username == "" {
		return "unknown@" + hostname
	}
	return current.Username + "@" + hostname
}

// Ledger is a handle on the lineage file. The file may not exist yet; an
// absent ledger reads as empty.
type Ledger struct {
	path string
}

func Open(path string) *Ledger {
	return &Ledger{path: path}
}

// Append adds one entry. Writes go through the lock-file protocol so
// concurrent engine processes cannot interleave lines.
func (l *Ledger) Append(entry schema.Entry) error {
	if entry.ChildSessionID == "" || entry.ParentSessionID == "" {
		return coreerrors.Wrap(fmt.Errorf("lineage entry missing session ids"),
			coreerrors.CategoryInvalidInput, "lineage_entry_incomplete", "", false)
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal lineage entry: %w", err)
	}
	if err := fsx.AppendLineLocked(l.path, line, 0o644); err != nil {
		return coreerrors.Wrap(fmt.Errorf("append lineage: %w", err),
			coreerrors.CategoryIOFailure, "lineage_append_failed",
			"check permissions on the state directory", true)
	}
	return nil
}

// Entries returns every ledger line in file order.
func (l *Ledger) Entries() ([]schema.Entry, error) {
	// #nosec G304 -- ledger path comes from engine config.
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, coreerrors.Wrap(fmt.Errorf("read lineage: %w", err),
			coreerrors.CategoryIOFailure, "lineage_read_failed", "", false)
	}
	var entries []schema.Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry schema.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, coreerrors.Wrap(fmt.Errorf("lineage line %d: %w", lineNumber, err),
				coreerrors.CategorySchemaValidation, "lineage_line_invalid",
				"the ledger contains a malformed line", false)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lineage: %w", err)
	}
	return entries, nil
}

// Resolve expands a session id prefix against the ids present in the
// ledger, child and parent alike.
func (l *Ledger) Resolve(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", coreerrors.Wrap(fmt.Errorf("session id is required"),
			coreerrors.CategoryInvalidInput, "session_id_missing", "", false)
	}
	entries, err := l.Entries()
	if err != nil {
		return "", err
	}
	matches := map[string]bool{}
	for _, entry := range entries {
		for _, id := range []string{entry.ChildSessionID, entry.ParentSessionID} {
			if strings.HasPrefix(id, prefix) {
				matches[id] = true
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", coreerrors.Wrap(fmt.Errorf("no lineage entry matches %q", prefix),
			coreerrors.CategoryDiscoveryGap, "lineage_not_found",
			"only cloned or restored sessions appear in the ledger", false)
	case 1:
		for id := range matches {
			return id, nil
		}
	}
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return "", coreerrors.Wrap(fmt.Errorf("prefix %q is ambiguous: %s", prefix, strings.Join(ids, ", ")),
		coreerrors.CategoryIdentifierParse, "lineage_prefix_ambiguous",
		"pass a longer prefix", false)
}

// Parent returns the latest entry that created sessionID, if any.
func (l *Ledger) Parent(sessionID string) (schema.Entry, bool, error) {
	entries, err := l.Entries()
	if err != nil {
		return schema.Entry{}, false, err
	}
	var (
		found  bool
		latest schema.Entry
	)
	for _, entry := range entries {
		if entry.ChildSessionID == sessionID {
			latest = entry
			found = true
		}
	}
	return latest, found, nil
}

// Children returns every entry derived directly from sessionID.
func (l *Ledger) Children(sessionID string) ([]schema.Entry, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	var children []schema.Entry
	for _, entry := range entries {
		if entry.ParentSessionID == sessionID {
			children = append(children, entry)
		}
	}
	return children, nil
}

// Ancestry walks from sessionID to its root, returning entries root first.
func (l *Ledger) Ancestry(sessionID string) ([]schema.Entry, error) {
	var chain []schema.Entry
	current := sessionID
	for depth := 0; depth < MaxAncestryDepth; depth++ {
		entry, ok, err := l.Parent(current)
		if err != nil {
			return nil, err
		}
		if !ok {
			reverse(chain)
			return chain, nil
		}
		chain = append(chain, entry)
		current = entry.ParentSessionID
	}
	return nil, coreerrors.Wrap(fmt.Errorf("ancestry of %s exceeds %d levels", sessionID, MaxAncestryDepth),
		coreerrors.CategoryInternalFailure, "lineage_chain_too_deep",
		"the ledger may contain a cycle", false)
}

func reverse(entries []schema.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
