package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageBody is a message content field: either a bare string or a list of
// typed content blocks. The two forms round-trip to their original shape.
type MessageBody struct {
	Text   string
	Blocks []ContentBlock

	isBlocks bool
}

// IsBlocks reports whether the body was the block-list form.
func (b MessageBody) IsBlocks() bool { return b.isBlocks }

func (b *MessageBody) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty message content")
	}
	if trimmed[0] == '"' {
		b.isBlocks = false
		return json.Unmarshal(data, &b.Text)
	}
	b.isBlocks = true
	return json.Unmarshal(data, &b.Blocks)
}

func (b MessageBody) MarshalJSON() ([]byte, error) {
	if b.isBlocks {
		if b.Blocks == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(b.Blocks)
	}
	return json.Marshal(b.Text)
}

// ContentBlock is the discriminated union of message content block types.
// Exactly one variant pointer is set, matching Type.
type ContentBlock struct {
	Type string

	Thinking      *ThinkingContent
	Text          *TextContent
	ToolUse       *ToolUseContent
	ToolResult    *ToolResultContent
	Image         *ImageContent
	Document      *DocumentContent
	ToolReference *ToolReferenceContent
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("content block: %w", err)
	}
	b.Type = head.Type

	switch head.Type {
	case "thinking":
		b.Thinking = &ThinkingContent{}
		return strictDecode(data, b.Thinking)
	case "text":
		b.Text = &TextContent{}
		return strictDecode(data, b.Text)
	case "tool_use":
		b.ToolUse = &ToolUseContent{}
		return b.ToolUse.UnmarshalJSON(data)
	case "tool_result":
		b.ToolResult = &ToolResultContent{}
		return strictDecode(data, b.ToolResult)
	case "image":
		b.Image = &ImageContent{}
		return strictDecode(data, b.Image)
	case "document":
		b.Document = &DocumentContent{}
		return strictDecode(data, b.Document)
	case "tool_reference":
		b.ToolReference = &ToolReferenceContent{}
		return strictDecode(data, b.ToolReference)
	case "":
		return fmt.Errorf("content block has no type field")
	default:
		return fmt.Errorf("unknown content block type %q", head.Type)
	}
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case "thinking":
		return json.Marshal(b.Thinking)
	case "text":
		return json.Marshal(b.Text)
	case "tool_use":
		return json.Marshal(b.ToolUse)
	case "tool_result":
		return json.Marshal(b.ToolResult)
	case "image":
		return json.Marshal(b.Image)
	case "document":
		return json.Marshal(b.Document)
	case "tool_reference":
		return json.Marshal(b.ToolReference)
	default:
		return nil, fmt.Errorf("cannot marshal content block type %q", b.Type)
	}
}

type ThinkingContent struct {
	Type      string `json:"type"`
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type ImageContent struct {
	Type   string      `json:"type"`
	Source ImageSource `json:"source"`
}

type DocumentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type DocumentContent struct {
	Type   string         `json:"type"`
	Source DocumentSource `json:"source"`
}

type ToolReferenceContent struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ToolResultBody is a tool_result content value: a bare string or a list of
// text/image blocks.
type ToolResultBody struct {
	Text   string
	Blocks []ContentBlock

	isBlocks bool
}

func (b ToolResultBody) IsBlocks() bool { return b.isBlocks }

func (b *ToolResultBody) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty tool_result content")
	}
	if trimmed[0] == '"' {
		b.isBlocks = false
		return json.Unmarshal(data, &b.Text)
	}
	b.isBlocks = true
	if err := json.Unmarshal(data, &b.Blocks); err != nil {
		return err
	}
	for i, block := range b.Blocks {
		switch block.Type {
		case "text", "image":
		default:
			return fmt.Errorf("tool_result content block %d: unexpected type %q", i, block.Type)
		}
	}
	return nil
}

func (b ToolResultBody) MarshalJSON() ([]byte, error) {
	if b.isBlocks {
		if b.Blocks == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(b.Blocks)
	}
	return json.Marshal(b.Text)
}

type ToolResultContent struct {
	Type      string          `json:"type"`
	ToolUseID string          `json:"tool_use_id"`
	Content   *ToolResultBody `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`
}

// ToolUseContent carries a tool invocation. Input typing depends on the
// tool name, so decoding goes through decodeToolInput rather than a plain
// struct unmarshal.
type ToolUseContent struct {
	Type  string
	ID    string
	Name  string
	Input ToolInput
}

func (c *ToolUseContent) UnmarshalJSON(data []byte) error {
	var head struct {
		Type  string          `json:"type"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}
	if err := strictDecode(data, &head); err != nil {
		return fmt.Errorf("tool_use block: %w", err)
	}
	if head.ID == "" || head.Name == "" {
		return fmt.Errorf("tool_use block missing id or name")
	}
	input, err := decodeToolInput(head.Name, head.Input)
	if err != nil {
		return err
	}
	c.Type = head.Type
	c.ID = head.ID
	c.Name = head.Name
	c.Input = input
	return nil
}

func (c ToolUseContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string    `json:"type"`
		ID    string    `json:"id"`
		Name  string    `json:"name"`
		Input ToolInput `json:"input"`
	}{c.Type, c.ID, c.Name, c.Input})
}
