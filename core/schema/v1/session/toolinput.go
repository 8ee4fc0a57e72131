package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExternalToolPrefix marks MCP server tools, whose input shapes are defined
// by the server and stay opaque.
const ExternalToolPrefix = "mcp__"

// Typed inputs exist for the tools whose arguments the engine rewrites or
// inspects. Everything else stays an opaque object, but only for names the
// producer is known to emit; an unknown built-in name is a decode error so
// new tools surface loudly instead of slipping through untyped.

type ReadToolInput struct {
	FilePath string `json:"file_path"`
	Offset   *int   `json:"offset,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
}

type WriteToolInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

type EditToolInput struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll *bool  `json:"replace_all,omitempty"`
}

type SkillToolInput struct {
	Command string `json:"command"`
}

type EnterPlanModeToolInput struct{}

type AgentOutputToolInput struct {
	AgentID  string `json:"agentId"`
	Block    *bool  `json:"block,omitempty"`
	WaitUpTo *int   `json:"wait_up_to,omitempty"`
}

type TaskOutputToolInput struct {
	TaskID  string `json:"task_id"`
	Block   *bool  `json:"block,omitempty"`
	Timeout *int   `json:"timeout,omitempty"`
}

var typedToolInputs = map[string]func() any{
	"Read":            func() any { return &ReadToolInput{} },
	"Write":           func() any { return &WriteToolInput{} },
	"Edit":            func() any { return &EditToolInput{} },
	"Skill":           func() any { return &SkillToolInput{} },
	"EnterPlanMode":   func() any { return &EnterPlanModeToolInput{} },
	"AgentOutputTool": func() any { return &AgentOutputToolInput{} },
	"TaskOutput":      func() any { return &TaskOutputToolInput{} },
}

// allowedToolNames lists the built-in tools that may carry an untyped input
// object. Derived from observed producer output.
var allowedToolNames = map[string]bool{
	"Bash":                 true,
	"BashOutput":           true,
	"Read":                 true,
	"Edit":                 true,
	"Write":                true,
	"Grep":                 true,
	"Glob":                 true,
	"TodoWrite":            true,
	"Task":                 true,
	"AskUserQuestion":      true,
	"WebSearch":            true,
	"WebFetch":             true,
	"ExitPlanMode":         true,
	"EnterPlanMode":        true,
	"KillShell":            true,
	"ListMcpResourcesTool": true,
	"Skill":                true,
	"AgentOutputTool":      true,
	"TaskOutput":           true,
}

// ToolInput holds a tool_use input. Typed is set for tools with a modeled
// shape, Opaque for allowed untyped tools. The raw bytes win on marshal so
// the original field order survives.
type ToolInput struct {
	Typed  any
	Opaque map[string]any

	raw json.RawMessage
}

func (in ToolInput) MarshalJSON() ([]byte, error) {
	if len(in.raw) > 0 {
		return in.raw, nil
	}
	if in.Typed != nil {
		return json.Marshal(in.Typed)
	}
	return json.Marshal(in.Opaque)
}

func decodeToolInput(name string, raw json.RawMessage) (ToolInput, error) {
	if len(raw) == 0 {
		return ToolInput{}, fmt.Errorf("tool %s: missing input", name)
	}
	if build, ok := typedToolInputs[name]; ok {
		typed := build()
		if err := strictDecode(raw, typed); err == nil {
			return ToolInput{Typed: typed, raw: cloneBytes(raw)}, nil
		}
		// Producer versions add fields faster than the typed shapes track
		// them; an allowed tool falls back to the opaque form.
	}
	if !allowedToolNames[name] && !strings.HasPrefix(name, ExternalToolPrefix) {
		return ToolInput{}, fmt.Errorf("tool %q: untyped input is only accepted for %s-prefixed tools", name, ExternalToolPrefix)
	}
	var opaque map[string]any
	if err := json.Unmarshal(raw, &opaque); err != nil {
		return ToolInput{}, fmt.Errorf("tool %s input: %w", name, err)
	}
	return ToolInput{Opaque: opaque, raw: cloneBytes(raw)}, nil
}

// Read returns the typed Read input if this input decoded as one.
func (in ToolInput) Read() (*ReadToolInput, bool) {
	typed, ok := in.Typed.(*ReadToolInput)
	return typed, ok
}

// Write returns the typed Write input if this input decoded as one.
func (in ToolInput) Write() (*WriteToolInput, bool) {
	typed, ok := in.Typed.(*WriteToolInput)
	return typed, ok
}

// Edit returns the typed Edit input if this input decoded as one.
func (in ToolInput) Edit() (*EditToolInput, bool) {
	typed, ok := in.Typed.(*EditToolInput)
	return typed, ok
}
