// Package translate rewrites absolute project paths inside session records
// when a session moves between machines or directories.
//
// Rewrites are surgical: each marked field is edited in the raw line with
// sjson, so untouched fields keep their exact bytes. Matching is prefix
// exact, the old root matches only as a whole path segment.
package translate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/chrisguillory/claude-session-mcp/core/markers"
	"github.com/chrisguillory/claude-session-mcp/core/schema/v1/session"
)

// Finding is a marked value translation looked at but did not rewrite:
// either an absolute path outside the old root, or an opaque field that
// mentions the old root in free text.
type Finding struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Translator rewrites one project root to another across a record stream
// and accumulates audit findings along the way.
type Translator struct {
	registry *markers.Registry
	oldRoot  string
	newRoot  string
	findings []Finding
}

func New(oldRoot, newRoot string) *Translator {
	return &Translator{
		registry: markers.NewRegistry(),
		oldRoot:  strings.TrimRight(oldRoot, "/"),
		newRoot:  strings.TrimRight(newRoot, "/"),
	}
}

// Findings returns everything the translator flagged but left alone.
func (t *Translator) Findings() []Finding { return t.findings }

// Line translates all marked fields of one record and returns the rewritten
// raw line. Lines without marked fields come back unchanged.
func (t *Translator) Line(record session.Record) (json.RawMessage, error) {
	raw := []byte(record.Raw)
	var err error
	for _, entry := range t.registry.Entries(record.Kind) {
		raw, err = t.applyEntry(raw, entry)
		if err != nil {
			return nil, fmt.Errorf("%s record field %s: %w", record.Kind, entry.Path, err)
		}
	}
	raw, err = t.applyToolInputs(raw, record.Kind)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (t *Translator) applyEntry(raw []byte, entry markers.Entry) ([]byte, error) {
	value := gjson.GetBytes(raw, entry.Path)
	if !value.Exists() || value.Type == gjson.Null {
		return raw, nil
	}
	switch entry.Kind {
	case markers.Single:
		return t.setTranslated(raw, entry.Path, value.String())
	case markers.List:
		var err error
		for index, element := range value.Array() {
			raw, err = t.setTranslated(raw, entry.Path+"."+strconv.Itoa(index), element.String())
			if err != nil {
				return nil, err
			}
		}
		return raw, nil
	case markers.Opaque:
		if strings.Contains(value.String(), t.oldRoot) {
			t.flag(entry.Path, value.String(), "opaque field mentions old root, not rewritten")
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown marker kind %d", entry.Kind)
	}
}

// applyToolInputs rewrites file_path arguments of path-taking tool calls
// inside message content blocks.
func (t *Translator) applyToolInputs(raw []byte, kind session.Kind) ([]byte, error) {
	if kind != session.KindUser && kind != session.KindAssistant {
		return raw, nil
	}
	content := gjson.GetBytes(raw, "message.content")
	if !content.IsArray() {
		return raw, nil
	}
	pathTools := t.registry.PathInputTools()
	var err error
	for index, block := range content.Array() {
		if block.Get("type").String() != "tool_use" {
			continue
		}
		argument, ok := pathTools[block.Get("name").String()]
		if !ok {
			continue
		}
		fieldPath := "message.content." + strconv.Itoa(index) + ".input." + argument
		value := gjson.GetBytes(raw, fieldPath)
		if !value.Exists() {
			continue
		}
		raw, err = t.setTranslated(raw, fieldPath, value.String())
		if err != nil {
			return nil, fmt.Errorf("tool input %s: %w", fieldPath, err)
		}
	}
	return raw, nil
}

func (t *Translator) setTranslated(raw []byte, fieldPath, value string) ([]byte, error) {
	translated, ok := t.translate(value)
	if !ok {
		if strings.HasPrefix(value, "/") {
			t.flag(fieldPath, value, "absolute path outside old project root")
		}
		return raw, nil
	}
	if translated == value {
		return raw, nil
	}
	return sjson.SetBytes(raw, fieldPath, translated)
}

// translate maps a path under the old root to the new root. The old root
// matches exactly or as a directory prefix, never mid-segment.
func (t *Translator) translate(value string) (string, bool) {
	if value == t.oldRoot {
		return t.newRoot, true
	}
	if strings.HasPrefix(value, t.oldRoot+"/") {
		return t.newRoot + value[len(t.oldRoot):], true
	}
	return "", false
}

func (t *Translator) flag(field, value, reason string) {
	t.findings = append(t.findings, Finding{Field: field, Value: value, Reason: reason})
}
