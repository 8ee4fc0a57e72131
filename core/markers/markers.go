// Package markers enumerates where absolute filesystem paths live inside
// session records. Path translation consults this registry instead of
// guessing, so a field the registry does not name is never rewritten.
package markers

import "github.com/chrisguillory/claude-session-mcp/core/schema/v1/session"

// FieldKind says how a marked location is shaped.
type FieldKind int

const (
	// Single is one string path.
	Single FieldKind = iota
	// List is an array of string paths.
	List
	// Opaque is free text that may embed paths; it is audited but never
	// rewritten automatically.
	Opaque
)

// Entry is one marked location, addressed by a gjson/sjson dotted path
// relative to the record root.
type Entry struct {
	Path string
	Kind FieldKind
}

// Registry maps record kinds to their marked path locations.
type Registry struct {
	byKind map[session.Kind][]Entry
}

// NewRegistry returns the registry for the current record taxonomy.
//
// Known gaps, tracked but not rewritten: file-history-snapshot
// trackedFileBackups keys and backupFileName values, and paths embedded in
// command output or message prose.
func NewRegistry() *Registry {
	shared := []Entry{
		{Path: "cwd", Kind: Single},
	}
	user := append([]Entry{
		{Path: "projectPaths", Kind: List},
		{Path: "toolUseResult.filePath", Kind: Single},
		{Path: "toolUseResult.file.filePath", Kind: Single},
		{Path: "toolUseResult.filenames", Kind: List},
		{Path: "toolUseResult.fullOutputPath", Kind: Single},
		{Path: "toolUseResult.stdout", Kind: Opaque},
		{Path: "toolUseResult.content", Kind: Opaque},
	}, shared...)

	byKind := map[session.Kind][]Entry{
		session.KindUser:            user,
		session.KindAssistant:       shared,
		session.KindSystem:          shared,
		session.KindLocalCommand:    shared,
		session.KindCompactBoundary: shared,
		session.KindAPIError:        shared,
		session.KindInformational:   shared,
	}
	return &Registry{byKind: byKind}
}

// Entries returns the marked locations for a record kind. Kinds with no
// path-bearing fields return nil.
func (r *Registry) Entries(kind session.Kind) []Entry {
	return r.byKind[kind]
}

// PathInputTools names the built-in tools whose input carries a file_path
// argument that translation rewrites. The dotted path is relative to the
// tool_use input object.
func (r *Registry) PathInputTools() map[string]string {
	return map[string]string{
		"Read":  "file_path",
		"Write": "file_path",
		"Edit":  "file_path",
	}
}
