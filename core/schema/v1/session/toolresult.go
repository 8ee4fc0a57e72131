package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Typed tool result payloads for the toolUseResult record field.

type BashToolResult struct {
	Stdout           string  `json:"stdout"`
	Stderr           string  `json:"stderr"`
	Interrupted      bool    `json:"interrupted"`
	IsImage          bool    `json:"isImage"`
	StdoutLines      *int    `json:"stdoutLines,omitempty"`
	StderrLines      *int    `json:"stderrLines,omitempty"`
	ReturnCodeInterp *string `json:"returnCodeInterpretation,omitempty"`
	BackgroundTaskID *string `json:"backgroundTaskId,omitempty"`
	ShellID          *string `json:"shellId,omitempty"`
	Truncated        *bool   `json:"truncated,omitempty"`
	FullOutputPath   *string `json:"fullOutputPath,omitempty"`
}

type ReadFileInfo struct {
	FilePath   string `json:"filePath"`
	Content    string `json:"content"`
	NumLines   int    `json:"numLines"`
	StartLine  int    `json:"startLine"`
	TotalLines int    `json:"totalLines"`
}

type ReadToolResult struct {
	Type string       `json:"type"`
	File ReadFileInfo `json:"file"`
}

type PatchHunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Lines    []string `json:"lines"`
}

type EditToolResult struct {
	FilePath        string      `json:"filePath"`
	OldString       string      `json:"oldString"`
	NewString       string      `json:"newString"`
	OriginalFile    string      `json:"originalFile"`
	StructuredPatch []PatchHunk `json:"structuredPatch,omitempty"`
	UserModified    *bool       `json:"userModified,omitempty"`
	ReplaceAll      *bool       `json:"replaceAll,omitempty"`
}

type WriteToolResult struct {
	Type            string      `json:"type"`
	FilePath        string      `json:"filePath"`
	Content         string      `json:"content"`
	StructuredPatch []PatchHunk `json:"structuredPatch,omitempty"`
}

type GrepToolResult struct {
	Mode         string   `json:"mode"`
	NumFiles     int      `json:"numFiles"`
	Filenames    []string `json:"filenames"`
	Content      *string  `json:"content,omitempty"`
	NumLines     *int     `json:"numLines,omitempty"`
	NumMatches   *int     `json:"numMatches,omitempty"`
	AppliedLimit *int     `json:"appliedLimit,omitempty"`
}

type GlobToolResult struct {
	Filenames  []string `json:"filenames"`
	NumFiles   int      `json:"numFiles"`
	Mode       *string  `json:"mode,omitempty"`
	DurationMs *int     `json:"durationMs,omitempty"`
	Truncated  *bool    `json:"truncated,omitempty"`
}

type TodoToolResult struct {
	OldTodos []TodoItem `json:"oldTodos"`
	NewTodos []TodoItem `json:"newTodos"`
}

type TaskToolResult struct {
	Status            string         `json:"status"`
	Prompt            string         `json:"prompt"`
	Content           []ContentBlock `json:"content"`
	TotalDurationMs   *int           `json:"totalDurationMs,omitempty"`
	TotalTokens       *int           `json:"totalTokens,omitempty"`
	TotalToolUseCount *int           `json:"totalToolUseCount,omitempty"`
	Usage             *TokenUsage    `json:"usage,omitempty"`
	AgentID           *string        `json:"agentId,omitempty"`
}

type QuestionOption struct {
	Label       string  `json:"label"`
	Description *string `json:"description,omitempty"`
}

type Question struct {
	Question    string           `json:"question"`
	Header      string           `json:"header"`
	Options     []QuestionOption `json:"options"`
	MultiSelect bool             `json:"multiSelect"`
}

type AskUserQuestionToolResult struct {
	Questions []Question          `json:"questions"`
	Answers   map[string][]string `json:"answers"`
}

type WebSearchToolResult struct {
	Query           string          `json:"query"`
	Results         json.RawMessage `json:"results"` // list of hits or a bare summary string
	DurationSeconds float64         `json:"durationSeconds"`
}

type WebFetchToolResult struct {
	URL        string  `json:"url"`
	Code       int     `json:"code"`
	CodeText   string  `json:"codeText"`
	Result     *string `json:"result,omitempty"`
	DurationMs *int    `json:"durationMs,omitempty"`
	Bytes      *int    `json:"bytes,omitempty"`
}

type ExitPlanModeToolResult struct {
	Plan    string `json:"plan"`
	IsAgent bool   `json:"isAgent"`
}

type KillShellToolResult struct {
	Success bool   `json:"success"`
	ShellID string `json:"shellId"`
	Message string `json:"message,omitempty"`
}

type McpResource struct {
	Name        string  `json:"name"`
	URI         string  `json:"uri"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	MimeType    *string `json:"mimeType,omitempty"`
	Server      *string `json:"server,omitempty"`
}

// toolResultShapes is tried left to right: a candidate matches when every
// required key is present and the strict decode succeeds. Order matters
// where key sets overlap (Read and Write both carry "type").
var toolResultShapes = []struct {
	required []string
	build    func() any
}{
	{[]string{"stdout", "stderr", "interrupted", "isImage"}, func() any { return &BashToolResult{} }},
	{[]string{"type", "file"}, func() any { return &ReadToolResult{} }},
	{[]string{"filePath", "oldString", "newString", "originalFile"}, func() any { return &EditToolResult{} }},
	{[]string{"type", "filePath", "content"}, func() any { return &WriteToolResult{} }},
	{[]string{"mode", "numFiles", "filenames"}, func() any { return &GrepToolResult{} }},
	{[]string{"filenames", "numFiles"}, func() any { return &GlobToolResult{} }},
	{[]string{"oldTodos", "newTodos"}, func() any { return &TodoToolResult{} }},
	{[]string{"status", "prompt", "content"}, func() any { return &TaskToolResult{} }},
	{[]string{"questions", "answers"}, func() any { return &AskUserQuestionToolResult{} }},
	{[]string{"query", "results", "durationSeconds"}, func() any { return &WebSearchToolResult{} }},
	{[]string{"url", "code", "codeText"}, func() any { return &WebFetchToolResult{} }},
	{[]string{"plan", "isAgent"}, func() any { return &ExitPlanModeToolResult{} }},
	{[]string{"success", "shellId"}, func() any { return &KillShellToolResult{} }},
}

// ToolUseResult is the toolUseResult union: a string, a list of content
// blocks, a list of MCP resources, a typed result object, or (for MCP and
// unmodeled shapes) a plain map. The raw bytes win on marshal.
type ToolUseResult struct {
	Value any

	raw json.RawMessage
}

func (r *ToolUseResult) UnmarshalJSON(data []byte) error {
	r.raw = cloneBytes(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty toolUseResult")
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		r.Value = text
		return nil
	case '[':
		return r.decodeList(data)
	case '{':
		return r.decodeObject(data)
	case 'n':
		r.Value = nil
		return nil
	default:
		return fmt.Errorf("toolUseResult: unexpected leading byte %q", trimmed[0])
	}
}

func (r ToolUseResult) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(r.Value)
}

func (r *ToolUseResult) decodeList(data []byte) error {
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		r.Value = blocks
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return fmt.Errorf("toolUseResult list: %w", err)
	}
	resources := make([]McpResource, 0, len(elements))
	for i, element := range elements {
		var resource McpResource
		if err := strictDecode(element, &resource); err != nil || resource.URI == "" {
			return fmt.Errorf("toolUseResult list element %d: neither content block nor resource", i)
		}
		resources = append(resources, resource)
	}
	r.Value = resources
	return nil
}

func (r *ToolUseResult) decodeObject(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("toolUseResult object: %w", err)
	}
	for _, shape := range toolResultShapes {
		if !hasAllKeys(fields, shape.required) {
			continue
		}
		typed := shape.build()
		if err := strictDecode(data, typed); err != nil {
			continue
		}
		r.Value = typed
		return nil
	}
	// MCP tools and newer producer shapes land here.
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	r.Value = generic
	return nil
}

func hasAllKeys(fields map[string]json.RawMessage, keys []string) bool {
	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			return false
		}
	}
	return true
}
