// Package archive defines the portable container for a full session
// artifact set.
//
// Session records are stored as their original line text, not as parsed
// JSON, so re-encoding the container can never disturb record bytes.
package archive

import "fmt"

// FormatVersion history:
//
//	1.0 session files only
//	1.1 plan documents
//	1.2 tool result blobs and todo lists
//	1.3 source machine id
const FormatVersion = "1.3"

// FileEntry is one session JSONL file: the main file or an agent file.
type FileEntry struct {
	// Name is the base filename, e.g. "agent-5271c147.jsonl".
	Name string `json:"name"`
	// Nested marks agent files stored under <sid>/subagents/.
	Nested bool `json:"nested"`
	// Records holds the raw JSONL lines, one per record, byte exact.
	Records []string `json:"records"`
}

// Archive is the container document.
type Archive struct {
	FormatVersion   string            `json:"format_version"`
	SessionID       string            `json:"session_id"`
	ProjectPath     string            `json:"project_path"`
	MachineID       string            `json:"machine_id"`
	CreatedAt       string            `json:"created_at"`
	ProducerVersion string            `json:"producer_version,omitempty"`
	CustomTitle     string            `json:"custom_title,omitempty"`
	Files           []FileEntry       `json:"files"`
	ToolResults     map[string]string `json:"tool_results,omitempty"`
	Todos           map[string]string `json:"todos,omitempty"`
	Plans           map[string]string `json:"plans,omitempty"`
}

// MainFile returns the entry for the primary session file.
func (a *Archive) MainFile() (*FileEntry, error) {
	wanted := a.SessionID + ".jsonl"
	for i := range a.Files {
		if a.Files[i].Name == wanted {
			return &a.Files[i], nil
		}
	}
	return nil, fmt.Errorf("archive has no main file %s", wanted)
}

// Schema is the container's JSON Schema, applied before any record-level
// decoding when loading an archive.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "session archive container",
  "type": "object",
  "required": ["format_version", "session_id", "project_path", "created_at", "files"],
  "additionalProperties": false,
  "properties": {
    "format_version": {"type": "string", "enum": ["1.0", "1.1", "1.2", "1.3"]},
    "session_id": {"type": "string", "minLength": 1},
    "project_path": {"type": "string"},
    "machine_id": {"type": "string"},
    "created_at": {"type": "string"},
    "producer_version": {"type": "string"},
    "custom_title": {"type": "string"},
    "files": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "records"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "pattern": "\\.jsonl$"},
          "nested": {"type": "boolean"},
          "records": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "tool_results": {"type": "object", "additionalProperties": {"type": "string"}},
    "todos": {"type": "object", "additionalProperties": {"type": "string"}},
    "plans": {"type": "object", "additionalProperties": {"type": "string"}}
  }
}`
