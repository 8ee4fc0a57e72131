package translate

import (
	"strings"
	"testing"

	"github.com/chrisguillory/claude-session-mcp/core/schema/v1/session"
)

func decode(t *testing.T, line string) session.Record {
	t.Helper()
	record, err := session.DecodeRecord([]byte(line))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return record
}

func TestLineTranslatesCwdAndToolInput(t *testing.T) {
	line := `{"type":"assistant","uuid":"u1","timestamp":"t","sessionId":"s","cwd":"/old/proj","parentUuid":null,"message":{"role":"assistant","content":[{"type":"tool_use","id":"toolu_01","name":"Edit","input":{"file_path":"/old/proj/pkg/a.go","old_string":"x","new_string":"y"}}]}}`
	translator := New("/old/proj", "/new/home/proj")
	out, err := translator.Line(decode(t, line))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, `"cwd":"/new/home/proj"`) {
		t.Fatalf("cwd not translated: %s", text)
	}
	if !strings.Contains(text, `"file_path":"/new/home/proj/pkg/a.go"`) {
		t.Fatalf("tool input not translated: %s", text)
	}
	// Strings that merely talk about paths stay alone.
	if !strings.Contains(text, `"old_string":"x"`) {
		t.Fatalf("unrelated field disturbed: %s", text)
	}
}

func TestPrefixMatchingIsSegmentExact(t *testing.T) {
	translator := New("/old/proj", "/new/proj")
	if _, ok := translator.translate("/old/project-extra/file"); ok {
		t.Fatal("mid-segment prefix translated")
	}
	if got, ok := translator.translate("/old/proj"); !ok || got != "/new/proj" {
		t.Fatalf("exact root: %q %v", got, ok)
	}
	if got, ok := translator.translate("/old/proj/sub/file.go"); !ok || got != "/new/proj/sub/file.go" {
		t.Fatalf("descendant: %q %v", got, ok)
	}
}

func TestUntouchedLinesKeepExactBytes(t *testing.T) {
	line := `{"type":"user","uuid":"u1","timestamp":"t","sessionId":"s","cwd":"/elsewhere/app","parentUuid":null,"isSidechain":false,"userType":"external","version":"2.0.14","gitBranch":"main","message":{"role":"user","content":"look at /elsewhere/app"}}`
	translator := New("/old/proj", "/new/proj")
	out, err := translator.Line(decode(t, line))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if string(out) != line {
		t.Fatalf("line changed without a matching root:\n %s\n %s", line, out)
	}
	// The foreign absolute cwd is flagged for the caller.
	findings := translator.Findings()
	if len(findings) == 0 || findings[0].Field != "cwd" {
		t.Fatalf("expected cwd finding, got %+v", findings)
	}
}

func TestOpaqueFieldsAreFlaggedNotRewritten(t *testing.T) {
	line := `{"type":"user","uuid":"u1","timestamp":"t","sessionId":"s","cwd":"/old/proj","parentUuid":"u0","isSidechain":false,"userType":"external","version":"2.0.14","gitBranch":"main","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_01","content":"done"}]},"toolUseResult":{"stdout":"built /old/proj/bin/app","stderr":"","interrupted":false,"isImage":false}}`
	translator := New("/old/proj", "/new/proj")
	out, err := translator.Line(decode(t, line))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !strings.Contains(string(out), `"stdout":"built /old/proj/bin/app"`) {
		t.Fatalf("opaque stdout rewritten: %s", out)
	}
	var flagged bool
	for _, finding := range translator.Findings() {
		if finding.Field == "toolUseResult.stdout" {
			flagged = true
		}
	}
	if !flagged {
		t.Fatalf("stdout mention not flagged: %+v", translator.Findings())
	}
}

func TestProjectPathsListTranslation(t *testing.T) {
	line := `{"type":"user","uuid":"u1","timestamp":"t","sessionId":"s","cwd":"/old/proj","parentUuid":null,"isSidechain":false,"userType":"external","version":"2.0.14","gitBranch":"main","message":{"role":"user","content":"hi"},"projectPaths":["/old/proj","/old/proj/sub"]}`
	translator := New("/old/proj", "/new/proj")
	out, err := translator.Line(decode(t, line))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !strings.Contains(string(out), `"projectPaths":["/new/proj","/new/proj/sub"]`) {
		t.Fatalf("list not translated: %s", out)
	}
}
