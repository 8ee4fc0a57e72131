package session

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

const userLine = `{"type":"user","uuid":"aaaa-1","timestamp":"2026-01-02T03:04:05.000Z","sessionId":"5e1f0f6d-0001-7000-8000-000000000001","cwd":"/Users/chris/project","parentUuid":null,"isSidechain":false,"userType":"external","version":"2.0.14","gitBranch":"main","message":{"role":"user","content":"hello"}}`

const assistantLine = `{"type":"assistant","uuid":"aaaa-2","parentUuid":"aaaa-1","timestamp":"2026-01-02T03:04:06.000Z","sessionId":"5e1f0f6d-0001-7000-8000-000000000001","cwd":"/Users/chris/project","message":{"role":"assistant","content":[{"type":"text","text":"hi"},{"type":"tool_use","id":"toolu_01","name":"Read","input":{"file_path":"/Users/chris/project/main.go"}}]}}`

func TestDecodeUserRecord(t *testing.T) {
	record, err := DecodeRecord([]byte(userLine))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.Kind != KindUser {
		t.Fatalf("kind = %s", record.Kind)
	}
	payload := record.Payload.(*UserRecord)
	if payload.Cwd != "/Users/chris/project" {
		t.Fatalf("cwd = %q", payload.Cwd)
	}
	if payload.Message.Content.IsBlocks() {
		t.Fatal("string content misread as blocks")
	}
	if payload.Message.Content.Text != "hello" {
		t.Fatalf("content = %q", payload.Message.Content.Text)
	}
	if !bytes.Equal(record.Raw, []byte(userLine)) {
		t.Fatal("raw bytes not preserved")
	}
}

func TestDecodeAssistantToolUse(t *testing.T) {
	record, err := DecodeRecord([]byte(assistantLine))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ids := record.ToolUseIDs()
	if len(ids) != 1 || ids[0] != "toolu_01" {
		t.Fatalf("tool use ids = %v", ids)
	}
	message, _ := record.Message()
	toolUse := message.Content.Blocks[1].ToolUse
	input, ok := toolUse.Input.Read()
	if !ok {
		t.Fatalf("Read input not typed: %#v", toolUse.Input)
	}
	if input.FilePath != "/Users/chris/project/main.go" {
		t.Fatalf("file_path = %q", input.FilePath)
	}
}

func TestDecodeRejectsUnknownField(t *testing.T) {
	line := strings.Replace(userLine, `"gitBranch":"main"`, `"gitBranch":"main","surprise":1`, 1)
	if _, err := DecodeRecord([]byte(line)); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, err := DecodeRecord([]byte(`{"type":"telemetry","uuid":"x"}`)); err == nil {
		t.Fatal("unknown type accepted")
	}
	if _, err := DecodeRecord([]byte(`{"type":"system","subtype":"brand_new","uuid":"x","sessionId":"s"}`)); err == nil {
		t.Fatal("unknown system subtype accepted")
	}
}

func TestDecodeRejectsMissingRequiredFields(t *testing.T) {
	if _, err := DecodeRecord([]byte(`{"type":"user","uuid":"aaaa-1"}`)); err == nil {
		t.Fatal("user record without sessionId accepted")
	}
}

func TestUnknownInternalToolIsRejected(t *testing.T) {
	line := strings.Replace(assistantLine, `"name":"Read"`, `"name":"SecretTool"`, 1)
	line = strings.Replace(line, `{"file_path":"/Users/chris/project/main.go"}`, `{"anything":1}`, 1)
	if _, err := DecodeRecord([]byte(line)); err == nil {
		t.Fatal("unmodeled internal tool accepted")
	}
}

func TestMcpToolInputStaysOpaque(t *testing.T) {
	line := strings.Replace(assistantLine, `"name":"Read"`, `"name":"mcp__jira__create_issue"`, 1)
	line = strings.Replace(line, `{"file_path":"/Users/chris/project/main.go"}`, `{"project":"ENG","title":"t"}`, 1)
	record, err := DecodeRecord([]byte(line))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	message, _ := record.Message()
	input := message.Content.Blocks[1].ToolUse.Input
	if input.Opaque["project"] != "ENG" {
		t.Fatalf("opaque input = %#v", input.Opaque)
	}
}

func TestSystemSubtypeDispatch(t *testing.T) {
	line := `{"type":"system","subtype":"compact_boundary","uuid":"aaaa-3","timestamp":"2026-01-02T03:04:07.000Z","sessionId":"s","cwd":"/p","parentUuid":null,"content":"Compacted","isMeta":false,"isSidechain":false,"userType":"external","version":"2.0.14","gitBranch":"main","compactMetadata":{"trigger":"auto","preTokens":150000},"logicalParentUuid":"aaaa-2"}`
	record, err := DecodeRecord([]byte(line))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.Kind != KindCompactBoundary {
		t.Fatalf("kind = %s", record.Kind)
	}
	payload := record.Payload.(*CompactBoundaryRecord)
	if payload.CompactMetadata.PreTokens != 150000 {
		t.Fatalf("preTokens = %d", payload.CompactMetadata.PreTokens)
	}
}

func TestLegacySystemRecordWithoutSubtype(t *testing.T) {
	line := `{"type":"system","uuid":"aaaa-4","timestamp":"t","sessionId":"s","cwd":"/p","parentUuid":null,"systemType":"notice","message":"hello"}`
	record, err := DecodeRecord([]byte(line))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.Kind != KindSystem {
		t.Fatalf("kind = %s", record.Kind)
	}
}

func TestToolUseResultUnion(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bash", `{"stdout":"ok","stderr":"","interrupted":false,"isImage":false}`, "*session.BashToolResult"},
		{"read", `{"type":"text","file":{"filePath":"/p/a.go","content":"x","numLines":1,"startLine":1,"totalLines":1}}`, "*session.ReadToolResult"},
		{"edit", `{"filePath":"/p/a.go","oldString":"a","newString":"b","originalFile":"a"}`, "*session.EditToolResult"},
		{"glob", `{"filenames":["/p/a.go"],"numFiles":1}`, "*session.GlobToolResult"},
		{"todo", `{"oldTodos":[],"newTodos":[{"content":"c","status":"pending","activeForm":"cing"}]}`, "*session.TodoToolResult"},
	}
	for _, testCase := range cases {
		var result ToolUseResult
		if err := json.Unmarshal([]byte(testCase.in), &result); err != nil {
			t.Fatalf("%s: %v", testCase.name, err)
		}
		got := typeName(result.Value)
		if got != testCase.want {
			t.Fatalf("%s: decoded as %s, want %s", testCase.name, got, testCase.want)
		}
	}
}

func TestToolUseResultStringAndFallback(t *testing.T) {
	var result ToolUseResult
	if err := json.Unmarshal([]byte(`"plain output"`), &result); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if result.Value != "plain output" {
		t.Fatalf("value = %#v", result.Value)
	}

	if err := json.Unmarshal([]byte(`{"serverSpecific":true,"items":[1,2]}`), &result); err != nil {
		t.Fatalf("fallback form: %v", err)
	}
	if _, ok := result.Value.(map[string]any); !ok {
		t.Fatalf("fallback value = %#v", result.Value)
	}
}

func TestToolUseResultMarshalKeepsRawBytes(t *testing.T) {
	raw := `{"stdout":"ok","stderr":"","interrupted":false,"isImage":false,"stdoutLines":1}`
	var result ToolUseResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("round trip changed bytes:\n %s\n %s", raw, out)
	}
}

func TestParseLinesReportsLineNumber(t *testing.T) {
	doc := userLine + "\n\n" + `{"type":"nope"}` + "\n"
	_, err := ParseLines([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line 3 in error, got %v", err)
	}
}

func TestValidateReferences(t *testing.T) {
	resultLine := `{"type":"user","uuid":"aaaa-3","timestamp":"t","sessionId":"s","cwd":"/p","parentUuid":"aaaa-2","isSidechain":false,"userType":"external","version":"2.0.14","gitBranch":"main","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_01","content":"done"}]}}`
	records := decodeAll(t, userLine, assistantLine, resultLine)
	if err := ValidateReferences(records); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}

	orphan := strings.Replace(resultLine, `"parentUuid":"aaaa-2"`, `"parentUuid":"missing"`, 1)
	records = decodeAll(t, userLine, assistantLine, orphan)
	if err := ValidateReferences(records); err == nil {
		t.Fatal("dangling parentUuid accepted")
	}

	badRef := strings.Replace(resultLine, `"tool_use_id":"toolu_01"`, `"tool_use_id":"toolu_99"`, 1)
	records = decodeAll(t, userLine, assistantLine, badRef)
	if err := ValidateReferences(records); err == nil {
		t.Fatal("unpaired tool_result accepted")
	}
}

func decodeAll(t *testing.T, lines ...string) []Record {
	t.Helper()
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		record, err := DecodeRecord([]byte(line))
		if err != nil {
			t.Fatalf("line %d: %v", i+1, err)
		}
		records = append(records, record)
	}
	return records
}

func typeName(v any) string {
	switch v.(type) {
	case *BashToolResult:
		return "*session.BashToolResult"
	case *ReadToolResult:
		return "*session.ReadToolResult"
	case *EditToolResult:
		return "*session.EditToolResult"
	case *WriteToolResult:
		return "*session.WriteToolResult"
	case *GrepToolResult:
		return "*session.GrepToolResult"
	case *GlobToolResult:
		return "*session.GlobToolResult"
	case *TodoToolResult:
		return "*session.TodoToolResult"
	default:
		return "other"
	}
}
